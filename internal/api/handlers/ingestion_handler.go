package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/services"
	"github.com/vartik/vartikgpt/internal/utils"
)

type IngestionHandler struct {
	svc services.IngestionService
}

func NewIngestionHandler(svc services.IngestionService) *IngestionHandler {
	return &IngestionHandler{svc: svc}
}

func (h *IngestionHandler) Form(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	f, err := h.svc.Form(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *IngestionHandler) EditForm(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var patch services.IngestionFormPatch
	if !bindJSON(c, "IngestionHandler.EditForm", &patch) {
		return
	}
	f, err := h.svc.EditForm(c.Request.Context(), owner, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *IngestionHandler) Options(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	opts, err := h.svc.Options(c.Request.Context(), owner, c.Query("store"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// Submit uses the request body when one is sent, otherwise the saved form.
func (h *IngestionHandler) Submit(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var form models.DataIngestionForm
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, "IngestionHandler.Submit", &form) {
			return
		}
	} else {
		saved, err := h.svc.Form(c.Request.Context(), owner)
		if err != nil {
			writeError(c, err)
			return
		}
		form = saved
	}
	res, err := h.svc.Submit(c.Request.Context(), owner, form)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(phasedStatus(res.Submitted), res)
}

func (h *IngestionHandler) Status(c *gin.Context) {
	rows, err := h.svc.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": rows})
}

// Upload takes multipart "files" and a "container" field.
func (h *IngestionHandler) Upload(c *gin.Context) {
	const op = "IngestionHandler.Upload"
	form, err := c.MultipartForm()
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "multipart form required", err))
		return
	}
	headers := form.File["files"]
	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "unreadable file "+fh.Filename, err))
			return
		}
		defer f.Close()
		files = append(files, services.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	paths, err := h.svc.Upload(c.Request.Context(), c.PostForm("container"), files)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paths": paths})
}
