package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/prefs"
	"github.com/vartik/vartikgpt/internal/providers/inference"
	"github.com/vartik/vartikgpt/internal/providers/stt"
	"github.com/vartik/vartikgpt/internal/repositories/memory"
	"github.com/vartik/vartikgpt/internal/utils"
)

const chatOwner = "oid-chat"

type chatFixture struct {
	dir         *fakeDirectory
	llm         *fakeCompleter
	transcripts *memory.TranscriptRepo
	prefs       *prefs.Store
	user        *models.User
	svc         ChatService
}

func newChatFixture(t *testing.T, speech stt.Transcriber) *chatFixture {
	t.Helper()
	f := &chatFixture{
		dir:         newFakeDirectory(),
		llm:         &fakeCompleter{reply: &inference.Reply{Message: "Hello there"}},
		transcripts: memory.NewTranscriptRepo(),
		prefs:       testPrefs(),
	}
	dep := f.dir.addDepartment("Finance", "")
	f.user = f.dir.addUser(chatOwner, "Ada", dep.ID)

	fd := models.DefaultFormData()
	fd.UserID = f.user.ID
	fd.DepartmentID = dep.ID
	fd.DepartmentName = "Finance"
	fd.UniqueAzureID = chatOwner
	fd.LLMVendor = "AzureOpenAI"
	fd.LLMModel = "gpt-4o"
	fd.EmbLLMVendor = "AzureOpenAI"
	fd.EmbLLMModel = "text-embedding-3-small"
	fd.VectorStore = "Qdrant"
	fd.VectorIndex = "finance-docs"
	fd.Temp = models.NewTemperature(0.7)
	fd.MaxTokens = models.NewMaxTokens(1024)
	require.NoError(t, f.prefs.SaveFormData(context.Background(), chatOwner, fd))

	f.svc = NewChatService(ChatDeps{
		Users:       f.dir,
		Sessions:    f.dir,
		Chats:       f.dir,
		Inference:   f.llm,
		Transcripts: f.transcripts,
		Prefs:       f.prefs,
		Speech:      speech,
		Log:         testLog(),
	})
	return f
}

func TestSubmit_BlankMessage(t *testing.T) {
	f := newChatFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), chatOwner, TurnRequest{Message: "   "})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	assert.Empty(t, f.llm.requests())
}

func TestSubmit_FirstTurnRotatesAndPersists(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, chatOwner, TurnRequest{Message: "  What is our Q3 revenue?  "})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, "chat-a", res.ChatID)
	assert.Equal(t, "Hello there", res.Reply)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, models.ChatRoleUser, res.Entries[0].Role)
	assert.Equal(t, "What is our Q3 revenue?", res.Entries[0].Message)

	tr, err := f.transcripts.Get(ctx, chatOwner, "chat-a")
	require.NoError(t, err)
	assert.Len(t, tr.Entries, 2)

	fd, _, err := f.prefs.FormData(ctx, chatOwner)
	require.NoError(t, err)
	assert.Equal(t, "chat-a", fd.ActiveChatID)
	assert.Equal(t, "chat-a", fd.SessionID)

	history := f.dir.chats["chat-a"]
	require.Len(t, history, 2)
	assert.Equal(t, models.ChatRoleUser, history[0].Role)
	assert.Equal(t, models.ChatRoleAssistant, history[1].Role)

	reqs := f.llm.requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "chat-a", req.UserSessionID)
	assert.Equal(t, "Finance", req.Department)
	assert.Equal(t, "0.7", req.Temp)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.Equal(t, "gpt-4o", req.LLMDeployment)
	assert.Equal(t, "false", req.CachingEnabled)
	assert.Equal(t, "finance-docs", req.IndexName)
}

func TestSubmit_SecondTurnReusesActiveChat(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, chatOwner, TurnRequest{Message: "one"})
	require.NoError(t, err)
	res, err := f.svc.Submit(ctx, chatOwner, TurnRequest{Message: "two"})
	require.NoError(t, err)

	assert.Equal(t, "chat-a", res.ChatID)
	assert.Equal(t, 1, f.dir.called("RotateSessionID"))
}

func TestSubmit_FlagsComeFromLatestHistoryRow(t *testing.T) {
	f := newChatFixture(t, nil)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	f.dir.addMessage(models.ChatMessage{SessionID: "chat-x", UserID: f.user.ID, Role: "User", Message: "old", UpdatedDateTime: models.Timestamp{Time: base}})
	f.dir.addMessage(models.ChatMessage{SessionID: "chat-x", UserID: f.user.ID, Role: "assistant", Message: "new", UpdatedDateTime: models.Timestamp{Time: base.Add(time.Minute)}, CachingEnabled: true, RoutingEnabled: true})

	_, err := f.svc.Submit(context.Background(), chatOwner, TurnRequest{ChatID: "chat-x", Message: "hi"})
	require.NoError(t, err)

	req := f.llm.requests()[0]
	assert.Equal(t, "true", req.CachingEnabled)
	assert.Equal(t, "true", req.RoutingEnabled)
	assert.Equal(t, 0, f.dir.called("RotateSessionID"))
}

func TestSubmit_HistoryFailureFallsBackToCachedFlags(t *testing.T) {
	f := newChatFixture(t, nil)
	_, err := f.prefs.UpdateFormData(context.Background(), chatOwner, func(fd *models.FormData) error {
		fd.RoutingEnabled = true
		return nil
	})
	require.NoError(t, err)
	f.dir.fail("ListChatBySession", errors.New("boom"))

	res, err := f.svc.Submit(context.Background(), chatOwner, TurnRequest{ChatID: "chat-y", Message: "hi"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "true", f.llm.requests()[0].RoutingEnabled)
}

func TestSubmit_FailureBranchesBecomeTranscriptEntries(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing message", inference.ErrMissingMessage, "Error: No message found in response"},
		{"invalid format", inference.ErrInvalidFormat, "Error: Invalid response format"},
		{"server error", &inference.StatusError{Code: 500, Text: "Internal Server Error"}, "Server Error: Internal Server Error,Please contact Admin"},
		{"other status", &inference.StatusError{Code: 404, Text: "Not Found"}, "Error: Not Found"},
		{"network", utils.Network("Inference.Complete", errors.New("refused")), "Error: upstream unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t, nil)
			f.llm.reply, f.llm.err = nil, tt.err

			res, err := f.svc.Submit(context.Background(), chatOwner, TurnRequest{ChatID: "chat-z", Message: "hi"})
			require.NoError(t, err)

			assert.False(t, res.OK)
			require.Len(t, res.Entries, 2)
			last := res.Entries[1]
			assert.Equal(t, tt.want, last.Message)
			assert.True(t, last.Diagnostic)
			assert.Equal(t, models.ChatRoleAssistant, last.Role)

			history := f.dir.chats["chat-z"]
			require.Len(t, history, 1, "only the user message is persisted")
			assert.Equal(t, models.ChatRoleUser, history[0].Role)
		})
	}
}

func TestSubmit_RotationFailureKeepsPendingTranscript(t *testing.T) {
	f := newChatFixture(t, nil)
	f.dir.fail("RotateSessionID", utils.E(utils.CodeServerFault, "Dir.Rotate", "upstream returned 500 Internal Server Error", nil))

	res, err := f.svc.Submit(context.Background(), chatOwner, TurnRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Empty(t, res.ChatID)
	assert.Equal(t, "Error: upstream returned 500 Internal Server Error", res.Entries[1].Message)

	tr, err := f.transcripts.Get(context.Background(), chatOwner, PendingChatID)
	require.NoError(t, err)
	assert.Len(t, tr.Entries, 2)
	assert.Empty(t, f.llm.requests())
}

func TestSubmit_NonAzureVendorHasNoDeployment(t *testing.T) {
	f := newChatFixture(t, nil)
	_, err := f.prefs.UpdateFormData(context.Background(), chatOwner, func(fd *models.FormData) error {
		fd.LLMVendor = "OpenAI"
		return nil
	})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), chatOwner, TurnRequest{ChatID: "chat-q", Message: "hi"})
	require.NoError(t, err)
	assert.Empty(t, f.llm.requests()[0].LLMDeployment)
}

func TestSubmit_SingleInFlightPerOwner(t *testing.T) {
	f := newChatFixture(t, nil)
	f.llm.gate = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = f.svc.Submit(context.Background(), chatOwner, TurnRequest{ChatID: "chat-g", Message: "first"})
	}()
	require.Eventually(t, func() bool { return len(f.llm.requests()) == 1 }, time.Second, 5*time.Millisecond)

	_, err := f.svc.Submit(context.Background(), chatOwner, TurnRequest{ChatID: "chat-g", Message: "second"})
	assert.True(t, utils.IsCode(err, utils.CodeConflict))

	close(f.llm.gate)
	wg.Wait()

	_, err = f.svc.Submit(context.Background(), chatOwner, TurnRequest{ChatID: "chat-g", Message: "third"})
	assert.NoError(t, err, "guard is released after the turn")
}

func TestTranscript_SeedsFromHistory(t *testing.T) {
	f := newChatFixture(t, nil)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	f.dir.addMessage(models.ChatMessage{SessionID: "chat-h", Role: "assistant", Message: "b", UpdatedDateTime: models.Timestamp{Time: base.Add(time.Minute)}})
	f.dir.addMessage(models.ChatMessage{SessionID: "chat-h", Role: "User", Message: "a", UpdatedDateTime: models.Timestamp{Time: base}})

	tr, err := f.svc.Transcript(context.Background(), chatOwner, "chat-h")
	require.NoError(t, err)
	require.Len(t, tr.Entries, 2)
	assert.Equal(t, "a", tr.Entries[0].Message)

	_, err = f.transcripts.Get(context.Background(), chatOwner, "chat-h")
	assert.NoError(t, err)
}

func TestNewChatAndDelete(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()

	id, err := f.svc.NewChat(ctx, chatOwner)
	require.NoError(t, err)
	assert.Equal(t, "chat-a", id)

	fd, _, _ := f.prefs.FormData(ctx, chatOwner)
	assert.Equal(t, "chat-a", fd.ActiveChatID)

	require.NoError(t, f.svc.DeleteChat(ctx, chatOwner, "chat-a"))
	fd, _, _ = f.prefs.FormData(ctx, chatOwner)
	assert.Empty(t, fd.ActiveChatID)
	assert.Equal(t, 1, f.dir.called("DeleteChatSession"))
}

func TestToggleSpeech_SingleSpeaker(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.transcripts.Append(ctx, chatOwner, "chat-s",
		models.TranscriptEntry{Role: "User", Message: "q1"},
		models.TranscriptEntry{Role: "assistant", Message: "a1"},
		models.TranscriptEntry{Role: "User", Message: "q2"},
		models.TranscriptEntry{Role: "assistant", Message: "a2"},
	))

	st, err := f.svc.ToggleSpeech(ctx, chatOwner, "chat-s", 1)
	require.NoError(t, err)
	require.NotNil(t, st.Speaking)
	assert.Equal(t, 1, *st.Speaking)
	assert.Nil(t, st.Cancelled)
	assert.Equal(t, "a1", st.Text)

	st, err = f.svc.ToggleSpeech(ctx, chatOwner, "chat-s", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, *st.Speaking)
	require.NotNil(t, st.Cancelled)
	assert.Equal(t, 1, *st.Cancelled)

	st, err = f.svc.ToggleSpeech(ctx, chatOwner, "chat-s", 3)
	require.NoError(t, err)
	assert.Nil(t, st.Speaking)
	assert.Equal(t, 3, *st.Cancelled)

	_, err = f.svc.ToggleSpeech(ctx, chatOwner, "chat-s", 0)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	_, err = f.svc.ToggleSpeech(ctx, chatOwner, "chat-s", 9)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestDictate(t *testing.T) {
	f := newChatFixture(t, nil)
	res, err := f.svc.Dictate(context.Background(), chatOwner, []byte{1}, "", "draft")
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, "draft", res.Draft)

	f = newChatFixture(t, fakeSpeech{result: stt.Result{Text: "hello world", Confidence: 0.9}})
	res, err = f.svc.Dictate(context.Background(), chatOwner, []byte{1}, "", "say")
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, "say hello world", res.Draft)

	_, err = f.svc.Dictate(context.Background(), chatOwner, nil, "", "say")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
