package directory

import (
	"context"
	"net/http"

	"github.com/vartik/vartikgpt/internal/models"
)

func (cl *Client) ListLLMRefs(ctx context.Context) ([]models.ModelRef, error) {
	out := []models.ModelRef{}
	_, err := cl.do(ctx, call{op: "Directory.ListLLMRefs", method: http.MethodGet, path: "/LLMRef"}, &out)
	return out, err
}

func (cl *Client) ListEmbLLMRefs(ctx context.Context) ([]models.ModelRef, error) {
	out := []models.ModelRef{}
	_, err := cl.do(ctx, call{op: "Directory.ListEmbLLMRefs", method: http.MethodGet, path: "/EmbLLMRef"}, &out)
	return out, err
}
