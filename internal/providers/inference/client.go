package inference

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/utils"
)

type Client struct {
	http *resty.Client
	url  string
	log  *logrus.Logger
}

func New(url string, timeout time.Duration, log *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{http: resty.New().SetTimeout(timeout), url: url, log: log}
}

// Complete posts req once. Transport failures are NETWORK_FAILURE app errors, non-2xx answers are
// *StatusError and malformed bodies are ErrInvalidFormat or ErrMissingMessage.
func (c *Client) Complete(ctx context.Context, req Request) (*Reply, error) {
	const op = "Inference.Complete"
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "text/plain").
		SetBody(req).
		Post(c.url)
	if err != nil {
		c.log.WithFields(logrus.Fields{"op": op, "session_id": req.UserSessionID}).WithError(err).Warn("inference unreachable")
		return nil, utils.Network(op, err)
	}
	if !resp.IsSuccess() {
		se := &StatusError{Code: resp.StatusCode(), Text: reasonPhrase(resp.Status(), resp.StatusCode())}
		c.log.WithFields(logrus.Fields{"op": op, "status": se.Code}).Warn("inference call failed")
		return nil, se
	}
	reply, err := DecodeReply(resp.Header().Get("Content-Type"), resp.Body())
	if err != nil {
		c.log.WithFields(logrus.Fields{"op": op}).WithError(err).Warn("inference reply rejected")
		return nil, err
	}
	return reply, nil
}

// reasonPhrase turns "500 Internal Server Error" into "Internal Server Error".
func reasonPhrase(status string, code int) string {
	prefix := strconv.Itoa(code)
	if text := strings.TrimSpace(strings.TrimPrefix(status, prefix)); text != "" && text != status {
		return text
	}
	if status != "" && !strings.HasPrefix(status, prefix) {
		return status
	}
	return http.StatusText(code)
}
