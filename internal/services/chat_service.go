package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/clients/directory"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/prefs"
	"github.com/vartik/vartikgpt/internal/providers/inference"
	"github.com/vartik/vartikgpt/internal/providers/stt"
	"github.com/vartik/vartikgpt/internal/repositories"
	"github.com/vartik/vartikgpt/internal/utils"
)

// PendingChatID holds the transcript of a first turn until the directory hands out a chat id.
const PendingChatID = "pending"

const (
	msgNoMessage     = "Error: No message found in response"
	msgInvalidFormat = "Error: Invalid response format"
)

type TurnRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// TurnResult is what one submit added to the transcript. Reply is set only for a real answer.
type TurnResult struct {
	ChatID   string                   `json:"chatId"`
	Entries  []models.TranscriptEntry `json:"entries"`
	Reply    string                   `json:"reply,omitempty"`
	OK       bool                     `json:"ok"`
	Warnings []string                 `json:"warnings,omitempty"`
}

type DictationResult struct {
	Draft      string  `json:"draft"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Available  bool    `json:"available"`
}

// SpeechState reports which entry is being read aloud after a toggle, and which one was stopped.
type SpeechState struct {
	Speaking  *int   `json:"speaking"`
	Cancelled *int   `json:"cancelled,omitempty"`
	Text      string `json:"text,omitempty"`
}

type ChatService interface {
	Submit(ctx context.Context, owner string, req TurnRequest) (*TurnResult, error)
	History(ctx context.Context, owner, chatID string) ([]models.ChatMessage, error)
	Transcript(ctx context.Context, owner, chatID string) (*models.Transcript, error)
	NewChat(ctx context.Context, owner string) (string, error)
	DeleteChat(ctx context.Context, owner, chatID string) error
	Dictate(ctx context.Context, owner string, audio []byte, language, draft string) (*DictationResult, error)
	ToggleSpeech(ctx context.Context, owner, chatID string, index int) (*SpeechState, error)
}

type ChatDeps struct {
	Users       directory.UserDirectory
	Sessions    directory.SessionDirectory
	Chats       directory.ChatDirectory
	Inference   inference.Completer
	Transcripts repositories.TranscriptRepository
	Prefs       *prefs.Store
	Speech      stt.Transcriber // nil when dictation is not configured
	Log         *logrus.Logger
}

type chatService struct {
	ChatDeps
	guard inflight
	now   func() time.Time
}

func NewChatService(d ChatDeps) ChatService {
	return &chatService{
		ChatDeps: d,
		guard:    inflight{owners: map[string]struct{}{}},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// inflight allows one submit per owner at a time.
type inflight struct {
	mu     sync.Mutex
	owners map[string]struct{}
}

func (g *inflight) acquire(owner string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.owners[owner]; busy {
		return false
	}
	g.owners[owner] = struct{}{}
	return true
}

func (g *inflight) release(owner string) {
	g.mu.Lock()
	delete(g.owners, owner)
	g.mu.Unlock()
}

// turn accumulates what a submit writes to the transcript.
type turn struct {
	s      *chatService
	owner  string
	chatID string
	res    *TurnResult
	log    *logrus.Entry
}

func (t *turn) add(ctx context.Context, role, msg string, diagnostic bool) {
	e := models.TranscriptEntry{Role: role, Message: msg, Diagnostic: diagnostic, At: t.s.now()}
	t.res.Entries = append(t.res.Entries, e)
	if err := t.s.Transcripts.Append(ctx, t.owner, t.key(), e); err != nil {
		t.log.WithError(err).Warn("transcript append failed")
	}
}

func (t *turn) key() string {
	if t.chatID == "" {
		return PendingChatID
	}
	return t.chatID
}

// fail ends the turn with a diagnostic line; the caller still gets a result, not an error.
func (t *turn) fail(ctx context.Context, msg string) *TurnResult {
	t.add(ctx, models.ChatRoleAssistant, msg, true)
	t.res.ChatID = t.chatID
	return t.res
}

func (s *chatService) Submit(ctx context.Context, owner string, req TurnRequest) (*TurnResult, error) {
	const op = "ChatService.Submit"

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message is required", nil)
	}
	if !s.guard.acquire(owner) {
		return nil, utils.E(utils.CodeConflict, op, "a message is already being answered", nil)
	}
	defer s.guard.release(owner)

	fd, _, err := s.Prefs.FormData(ctx, owner)
	if err != nil {
		return nil, err
	}

	t := &turn{s: s, owner: owner, chatID: strings.TrimSpace(req.ChatID), res: &TurnResult{}}
	if t.chatID == "" {
		t.chatID = fd.ActiveChatID
	}
	t.log = s.Log.WithFields(logrus.Fields{"op": op, "owner": owner, "chat_id": t.chatID})

	if t.chatID == "" {
		// leftovers of an earlier first turn that never got an id
		_ = s.Transcripts.Delete(ctx, owner, PendingChatID)
	}
	t.add(ctx, models.ChatRoleUser, message, false)

	user, err := s.Users.GetUserByExternalID(ctx, owner)
	if err != nil {
		t.log.WithError(err).Warn("user lookup failed")
		return t.fail(ctx, "Error: "+utils.SafeMessage(err)), nil
	}

	rotated := false
	if t.chatID == "" {
		id, err := s.Sessions.RotateSessionID(ctx, user.ID)
		if err != nil {
			t.log.WithError(err).Warn("session rotation failed")
			return t.fail(ctx, "Error: "+utils.SafeMessage(err)), nil
		}
		if err := s.Transcripts.Rename(ctx, owner, PendingChatID, id); err != nil {
			t.log.WithError(err).Warn("pending transcript not moved")
		}
		t.chatID, rotated = id, true
		t.log = t.log.WithField("chat_id", id)
		updated, err := s.Prefs.UpdateFormData(ctx, owner, func(f *models.FormData) error {
			f.ActiveChatID = id
			f.SessionID = id
			return nil
		})
		if err != nil {
			t.log.WithError(err).Warn("active chat not saved")
			t.res.Warnings = append(t.res.Warnings, "Failed to save preferences")
			fd.ActiveChatID, fd.SessionID = id, id
		} else {
			fd = updated
		}
	}
	t.res.ChatID = t.chatID

	caching, routing := fd.CacheEnabled, fd.RoutingEnabled
	if !rotated {
		caching, routing = s.flagsFor(ctx, t, fd)
	}

	if _, err := s.Chats.AppendChatMessage(ctx, models.ChatMessage{
		SessionID:       t.chatID,
		UserID:          user.ID,
		Role:            models.ChatRoleUser,
		Message:         message,
		UpdatedDateTime: models.Timestamp{Time: s.now()},
		CachingEnabled:  models.FlagValue(caching),
		RoutingEnabled:  models.FlagValue(routing),
	}); err != nil {
		t.log.WithError(err).Warn("chat history append failed")
		return t.fail(ctx, "Error: "+utils.SafeMessage(err)), nil
	}

	reply, err := s.Inference.Complete(ctx, buildInferenceRequest(fd, user.ID, t.chatID, message, caching, routing))
	if err != nil {
		t.log.WithError(err).Warn("inference failed")
		return t.fail(ctx, diagnosticFor(err)), nil
	}

	t.add(ctx, models.ChatRoleAssistant, reply.Message, false)
	t.res.Reply = reply.Message
	t.res.OK = true

	if _, err := s.Chats.AppendChatMessage(ctx, models.ChatMessage{
		SessionID:       t.chatID,
		UserID:          user.ID,
		Role:            models.ChatRoleAssistant,
		Message:         reply.Message,
		UpdatedDateTime: models.Timestamp{Time: s.now()},
		CachingEnabled:  models.FlagValue(caching),
		RoutingEnabled:  models.FlagValue(routing),
	}); err != nil {
		t.log.WithError(err).Warn("assistant reply not persisted")
		t.res.Warnings = append(t.res.Warnings, "Failed to save the reply to chat history")
	}
	return t.res, nil
}

// flagsFor reads caching/routing from the newest history row, falling back to the cached preferences.
func (s *chatService) flagsFor(ctx context.Context, t *turn, fd models.FormData) (bool, bool) {
	history, err := s.Chats.ListChatBySession(ctx, t.chatID)
	if err != nil {
		t.log.WithError(err).Warn("history fetch failed, using cached flags")
		return fd.CacheEnabled, fd.RoutingEnabled
	}
	latest, ok := models.LatestMessage(history, "")
	if !ok {
		return fd.CacheEnabled, fd.RoutingEnabled
	}
	return bool(latest.CachingEnabled), bool(latest.RoutingEnabled)
}

func buildInferenceRequest(fd models.FormData, userID int64, chatID, query string, caching, routing bool) inference.Request {
	req := inference.Request{
		UserID:         strconv.FormatInt(userID, 10),
		UserSessionID:  chatID,
		Department:     fd.DepartmentName,
		UserQuery:      query,
		EmbeddingMode:  fd.EmbLLMVendor,
		EmbeddingModel: fd.EmbLLMModel,
		VectorStore:    fd.VectorStore,
		IndexName:      fd.VectorIndex,
		LLMType:        fd.LLMVendor,
		LLMModel:       fd.LLMModel,
		Temp:           fd.Temp.String(),
		MaxTokens:      fd.MaxTokens.Int(),
		CachingEnabled: models.FlagString(caching),
		RoutingEnabled: models.FlagString(routing),
	}
	if needsDeployment(fd.LLMVendor) {
		req.LLMDeployment = fd.LLMModel
	}
	return req
}

// needsDeployment reports whether the vendor addresses models by deployment name.
func needsDeployment(vendor string) bool {
	return strings.Contains(strings.ToLower(vendor), "azure")
}

// diagnosticFor renders a failed completion as the line shown in the transcript.
func diagnosticFor(err error) string {
	var se *inference.StatusError
	switch {
	case errors.Is(err, inference.ErrMissingMessage):
		return msgNoMessage
	case errors.Is(err, inference.ErrInvalidFormat):
		return msgInvalidFormat
	case errors.As(err, &se) && se.Code == http.StatusInternalServerError:
		return fmt.Sprintf("Server Error: %s,Please contact Admin", se.Text)
	case errors.As(err, &se):
		return fmt.Sprintf("Error: %s", se.Text)
	default:
		return fmt.Sprintf("Error: %s", utils.SafeMessage(err))
	}
}

func (s *chatService) History(ctx context.Context, owner, chatID string) ([]models.ChatMessage, error) {
	const op = "ChatService.History"
	if strings.TrimSpace(chatID) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "chat id is required", nil)
	}
	msgs, err := s.Chats.ListChatBySession(ctx, chatID)
	if utils.IsCode(err, utils.CodeNotFound) {
		return []models.ChatMessage{}, nil
	}
	if err != nil {
		s.Log.WithFields(logrus.Fields{"op": op, "owner": owner, "chat_id": chatID}).WithError(err).Warn("history fetch failed")
		return nil, err
	}
	models.SortChronological(msgs)
	return msgs, nil
}

// Transcript returns the view buffer. A chat opened for the first time is seeded from history.
func (s *chatService) Transcript(ctx context.Context, owner, chatID string) (*models.Transcript, error) {
	const op = "ChatService.Transcript"

	tr, err := s.Transcripts.Get(ctx, owner, chatID)
	if err == nil {
		return tr, nil
	}
	if !utils.IsCode(err, utils.CodeNotFound) {
		return nil, utils.E(utils.CodeUnavailable, op, "transcript unavailable", err)
	}

	msgs, err := s.History(ctx, owner, chatID)
	if err != nil {
		return nil, err
	}
	entries := make([]models.TranscriptEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, models.TranscriptEntry{Role: m.Role, Message: m.Message, At: m.UpdatedDateTime.Time})
	}
	if len(entries) > 0 {
		if err := s.Transcripts.Append(ctx, owner, chatID, entries...); err != nil {
			s.Log.WithFields(logrus.Fields{"op": op, "owner": owner, "chat_id": chatID}).WithError(err).Warn("transcript seed failed")
		}
	}
	return &models.Transcript{Owner: owner, ChatID: chatID, Entries: entries, UpdatedAt: s.now()}, nil
}

func (s *chatService) NewChat(ctx context.Context, owner string) (string, error) {
	const op = "ChatService.NewChat"

	user, err := s.Users.GetUserByExternalID(ctx, owner)
	if err != nil {
		return "", err
	}
	id, err := s.Sessions.RotateSessionID(ctx, user.ID)
	if err != nil {
		s.Log.WithFields(logrus.Fields{"op": op, "owner": owner}).WithError(err).Warn("session rotation failed")
		return "", err
	}
	if _, err := s.Prefs.UpdateFormData(ctx, owner, func(f *models.FormData) error {
		f.ActiveChatID = id
		f.SessionID = id
		return nil
	}); err != nil {
		return "", err
	}
	s.Log.WithFields(logrus.Fields{"op": op, "owner": owner, "chat_id": id}).Info("new chat started")
	return id, nil
}

func (s *chatService) DeleteChat(ctx context.Context, owner, chatID string) error {
	const op = "ChatService.DeleteChat"
	if strings.TrimSpace(chatID) == "" {
		return utils.E(utils.CodeInvalidArgument, op, "chat id is required", nil)
	}
	if err := s.Chats.DeleteChatSession(ctx, chatID); err != nil {
		return err
	}
	if err := s.Transcripts.Delete(ctx, owner, chatID); err != nil {
		s.Log.WithFields(logrus.Fields{"op": op, "chat_id": chatID}).WithError(err).Warn("transcript not dropped")
	}
	if _, err := s.Prefs.UpdateFormData(ctx, owner, func(f *models.FormData) error {
		if f.ActiveChatID == chatID {
			f.ActiveChatID = ""
		}
		return nil
	}); err != nil {
		s.Log.WithFields(logrus.Fields{"op": op, "owner": owner}).WithError(err).Warn("preferences not updated")
	}
	return nil
}

func (s *chatService) Dictate(ctx context.Context, owner string, audio []byte, language, draft string) (*DictationResult, error) {
	const op = "ChatService.Dictate"

	if s.Speech == nil {
		s.Log.WithFields(logrus.Fields{"op": op, "owner": owner}).Info("dictation requested but no speech provider is configured")
		return &DictationResult{Draft: draft}, nil
	}
	if len(audio) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is required", nil)
	}
	if language == "" {
		language = stt.DefaultLanguage
	}
	r, err := s.Speech.Transcribe(ctx, audio, language)
	if err != nil {
		s.Log.WithFields(logrus.Fields{"op": op, "owner": owner}).WithError(err).Warn("speech recognition failed")
		return nil, utils.E(utils.CodeUnavailable, op, "speech recognition failed", err)
	}
	return &DictationResult{
		Draft:      stt.AppendToDraft(draft, r.Text),
		Text:       r.Text,
		Confidence: r.Confidence,
		Available:  true,
	}, nil
}

// ToggleSpeech starts reading entry index aloud, stopping whatever was playing. Toggling the entry
// that is already playing stops it.
func (s *chatService) ToggleSpeech(ctx context.Context, owner, chatID string, index int) (*SpeechState, error) {
	const op = "ChatService.ToggleSpeech"

	tr, err := s.Transcripts.Get(ctx, owner, chatID)
	if err != nil {
		if utils.IsCode(err, utils.CodeNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "chat not found", err)
		}
		return nil, utils.E(utils.CodeUnavailable, op, "transcript unavailable", err)
	}
	if index < 0 || index >= len(tr.Entries) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no such message", nil)
	}
	if !strings.EqualFold(tr.Entries[index].Role, models.ChatRoleAssistant) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "only assistant messages can be read aloud", nil)
	}

	state := &SpeechState{Cancelled: tr.Speaking}
	if tr.Speaking == nil || *tr.Speaking != index {
		i := index
		state.Speaking = &i
		state.Text = tr.Entries[index].Message
	}
	if err := s.Transcripts.SetSpeaking(ctx, owner, chatID, state.Speaking); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "speech state not saved", err)
	}
	return state, nil
}
