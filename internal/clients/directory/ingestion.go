package directory

import (
	"context"
	"net/http"

	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

func (cl *Client) CreateIngestion(ctx context.Context, j models.IngestionJob) (*models.IngestionJob, error) {
	const op = "Directory.CreateIngestion"
	if j.UpdatedDateTime.IsZero() {
		j.UpdatedDateTime = models.NowTimestamp()
	}
	out := j
	if _, err := cl.do(ctx, call{op: op, method: http.MethodPost, path: "/DataIngestion", body: j}, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, utils.Protocol(op, "created ingestion has no id", nil)
	}
	return &out, nil
}

func (cl *Client) ListIngestions(ctx context.Context) ([]models.IngestionJob, error) {
	out := []models.IngestionJob{}
	_, err := cl.do(ctx, call{op: "Directory.ListIngestions", method: http.MethodGet, path: "/DataIngestion"}, &out)
	return out, err
}
