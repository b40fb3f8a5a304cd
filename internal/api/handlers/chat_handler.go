package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vartik/vartikgpt/internal/services"
	"github.com/vartik/vartikgpt/internal/utils"
)

const maxDictationBytes = 10 << 20

type ChatHandler struct {
	svc services.ChatService
}

func NewChatHandler(svc services.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

func (h *ChatHandler) New(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, err := h.svc.NewChat(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chatId": id})
}

// Submit answers 200 even when the turn failed upstream; the failure is part of the entries.
func (h *ChatHandler) Submit(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req services.TurnRequest
	if !bindJSON(c, "ChatHandler.Submit", &req) {
		return
	}
	res, err := h.svc.Submit(c.Request.Context(), owner, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ChatHandler) History(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	msgs, err := h.svc.History(c.Request.Context(), owner, c.Param("chat_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *ChatHandler) Transcript(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	tr, err := h.svc.Transcript(c.Request.Context(), owner, c.Param("chat_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tr)
}

func (h *ChatHandler) Delete(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteChat(c.Request.Context(), owner, c.Param("chat_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) Speech(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Speech", "index must be a number", err))
		return
	}
	st, err := h.svc.ToggleSpeech(c.Request.Context(), owner, c.Param("chat_id"), idx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Dictation takes a multipart form with an "audio" file and optional "language" and "draft" fields.
func (h *ChatHandler) Dictation(c *gin.Context) {
	const op = "ChatHandler.Dictation"
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var audio []byte
	if fh, err := c.FormFile("audio"); err == nil {
		f, err := fh.Open()
		if err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "unreadable audio", err))
			return
		}
		defer f.Close()
		audio, err = io.ReadAll(io.LimitReader(f, maxDictationBytes+1))
		if err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "unreadable audio", err))
			return
		}
		if len(audio) > maxDictationBytes {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio too large", nil))
			return
		}
	}

	res, err := h.svc.Dictate(c.Request.Context(), owner, audio, c.PostForm("language"), c.PostForm("draft"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
