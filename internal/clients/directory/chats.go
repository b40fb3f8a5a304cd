package directory

import (
	"context"
	"net/http"

	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

func (cl *Client) ListChatBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	const op = "Directory.ListChatBySession"
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}
	msgs := []models.ChatMessage{}
	if _, err := cl.do(ctx, call{op: op, method: http.MethodGet, path: "/ChatHistory/session/" + seg(sessionID)}, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (cl *Client) ListChatByUser(ctx context.Context, userID int64) ([]models.ChatSessionRef, error) {
	const op = "Directory.ListChatByUser"
	refs := []models.ChatSessionRef{}
	if _, err := cl.do(ctx, call{op: op, method: http.MethodGet, path: "/ChatHistory/user/" + idSeg(userID)}, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func (cl *Client) AppendChatMessage(ctx context.Context, m models.ChatMessage) (*models.ChatMessage, error) {
	const op = "Directory.AppendChatMessage"
	if m.SessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}
	if m.UpdatedDateTime.IsZero() {
		m.UpdatedDateTime = models.NowTimestamp()
	}
	out := m
	if _, err := cl.do(ctx, call{op: op, method: http.MethodPost, path: "/ChatHistory", body: m}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (cl *Client) DeleteChatSession(ctx context.Context, sessionID string) error {
	const op = "Directory.DeleteChatSession"
	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}
	_, err := cl.do(ctx, call{op: op, method: http.MethodDelete, path: "/ChatHistory/session/" + seg(sessionID)}, nil)
	return err
}
