package directory

import (
	"context"
	"net/http"

	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

func (cl *Client) GetSessionByUserID(ctx context.Context, userID int64) (*models.Session, error) {
	const op = "Directory.GetSessionByUserID"
	var s models.Session
	raw, err := cl.do(ctx, call{op: op, method: http.MethodGet, path: "/Sessions/GetSessionByUserId/" + idSeg(userID)}, &s)
	if err != nil {
		return nil, err
	}
	if isEmptyBody(raw) || s.SessionID == "" {
		return nil, utils.E(utils.CodeNotFound, op, "not found", nil)
	}
	return &s, nil
}

func (cl *Client) CreateSession(ctx context.Context, s models.Session) (*models.Session, error) {
	const op = "Directory.CreateSession"
	s.Normalize()
	out := s
	if _, err := cl.do(ctx, call{op: op, method: http.MethodPost, path: "/Sessions", body: s}, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		out.SessionID = s.SessionID
	}
	return &out, nil
}

func (cl *Client) UpdateSession(ctx context.Context, userID int64, s models.Session) (*models.Session, error) {
	const op = "Directory.UpdateSession"
	s.Normalize()
	out := s
	if _, err := cl.do(ctx, call{op: op, method: http.MethodPut, path: "/Sessions/UpdateSessionByUserId/" + idSeg(userID), body: s}, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		out.SessionID = s.SessionID
	}
	return &out, nil
}

func (cl *Client) UpdateSessionParameters(ctx context.Context, userID int64, p models.SessionParameters) error {
	const op = "Directory.UpdateSessionParameters"
	p.Temp = models.NewTemperature(float64(p.Temp))
	p.MaxTokens = models.NewMaxTokens(int(p.MaxTokens))
	_, err := cl.do(ctx, call{op: op, method: http.MethodPut, path: "/Sessions/UpdateSessionByUserIdForParameters/" + idSeg(userID), body: p}, nil)
	return err
}

// RotateSessionID asks the directory for a fresh session id; used to start a new chat.
func (cl *Client) RotateSessionID(ctx context.Context, userID int64) (string, error) {
	const op = "Directory.RotateSessionID"
	var reply struct {
		SessionID string `json:"sessionId"`
	}
	if _, err := cl.do(ctx, call{op: op, method: http.MethodPut, path: "/Sessions/UpdateSessionIdByUserId/" + idSeg(userID)}, &reply); err != nil {
		return "", err
	}
	if reply.SessionID == "" {
		return "", utils.Protocol(op, "no session id in response", nil)
	}
	return reply.SessionID, nil
}
