// Package directory is the REST client for the Directory API, the backend of record for users,
// departments, categories, sessions, chat history and vector store registrations.
package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/utils"
)

// Client talks to the Directory API. It never retries: a failed call is classified and returned once.
type Client struct {
	http *resty.Client
	log  *logrus.Logger
}

func New(baseURL string, timeout time.Duration, log *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: hc, log: log}
}

type call struct {
	op     string
	method string
	path   string
	query  map[string]string
	body   any
}

// do executes c and decodes a 2xx body into out when out is non-nil. It returns the raw body so
// callers can handle endpoints with more than one response shape.
func (cl *Client) do(ctx context.Context, c call, out any) ([]byte, error) {
	req := cl.http.R().SetContext(ctx)
	if c.query != nil {
		req.SetQueryParams(c.query)
	}
	if c.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(c.body)
	}

	resp, err := req.Execute(c.method, c.path)
	if err != nil {
		cl.log.WithFields(logrus.Fields{"op": c.op, "path": c.path}).WithError(err).Warn("directory unreachable")
		return nil, utils.Network(c.op, err)
	}
	if !resp.IsSuccess() {
		if resp.StatusCode() != http.StatusNotFound {
			cl.log.WithFields(logrus.Fields{
				"op":     c.op,
				"path":   c.path,
				"status": resp.StatusCode(),
			}).Warn("directory call failed")
		}
		return nil, utils.FromStatus(c.op, resp.StatusCode(), http.StatusText(resp.StatusCode()))
	}

	raw := resp.Body()
	if out != nil && !isEmptyBody(raw) {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, utils.Protocol(c.op, "unexpected directory response", err)
		}
	}
	return raw, nil
}

func isEmptyBody(b []byte) bool {
	s := strings.TrimSpace(string(b))
	return s == "" || s == "null"
}

func seg(s string) string { return url.PathEscape(s) }

func idSeg(id int64) string { return strconv.FormatInt(id, 10) }
