// Package inference adapts the chat completion endpoint. Its success body is a JSON string that
// itself holds JSON; DecodeReply is the only place that knows this.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Request carries the completion parameters under the wire names the endpoint expects.
type Request struct {
	UserID         string `json:"user_id"`
	UserSessionID  string `json:"user_sessionid"`
	Department     string `json:"department"`
	UserQuery      string `json:"user_query"`
	EmbeddingMode  string `json:"embedding_mode"`
	EmbeddingModel string `json:"embedding_model"`
	VectorStore    string `json:"vector_store"`
	IndexName      string `json:"index_name"`
	LLMType        string `json:"llm_type"`
	LLMModel       string `json:"llm_model"`
	LLMDeployment  string `json:"llm_deployment,omitempty"`
	Temp           string `json:"vartikgpt_temp"`
	MaxTokens      int    `json:"max_tokens"`
	CachingEnabled string `json:"caching_enabled"`
	RoutingEnabled string `json:"routing_enabled"`
}

type Reply struct {
	Message string `json:"message"`
}

var (
	ErrMissingMessage = errors.New("no message found in response")
	ErrInvalidFormat  = errors.New("invalid response format")
)

// StatusError is a non-2xx answer. Text is the reason phrase, e.g. "Internal Server Error".
type StatusError struct {
	Code int
	Text string
}

func (e *StatusError) Error() string { return fmt.Sprintf("inference returned %d %s", e.Code, e.Text) }

// Completer is what the chat workflow needs from the inference endpoint.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Reply, error)
}

// DecodeReply unwraps a successful body. contentType must be JSON, the body must be a JSON string
// holding an object with a non-empty message. An object body is accepted as-is.
func DecodeReply(contentType string, body []byte) (*Reply, error) {
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		return nil, ErrInvalidFormat
	}

	var first json.RawMessage
	if err := json.Unmarshal(body, &first); err != nil {
		return nil, ErrInvalidFormat
	}

	inner := []byte(first)
	var encoded string
	if err := json.Unmarshal(first, &encoded); err == nil {
		inner = []byte(encoded)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(inner, &fields); err != nil || fields == nil {
		return nil, ErrMissingMessage
	}
	raw, ok := fields["message"]
	if !ok {
		return nil, ErrMissingMessage
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		// a non-string message is rendered as its JSON text
		msg = strings.TrimSpace(string(raw))
		if msg == "null" {
			msg = ""
		}
	}
	if msg == "" {
		return nil, ErrMissingMessage
	}
	return &Reply{Message: msg}, nil
}
