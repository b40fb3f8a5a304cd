// Package ingestion triggers the data ingestion pipeline for a recorded ingestion job.
package ingestion

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

type Trigger interface {
	Ingest(ctx context.Context, req models.IngestRequest) error
}

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

func (c *Client) Ingest(ctx context.Context, req models.IngestRequest) error {
	const op = "Ingestion.Ingest"
	if c.url == "" {
		return utils.E(utils.CodeUnavailable, op, "ingestion pipeline is not configured", nil)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.url)
	if err != nil {
		c.log.WithFields(logrus.Fields{"op": op, "ingestion_id": req.IngestionID}).WithError(err).Warn("ingestion unreachable")
		return utils.Network(op, err)
	}
	if !resp.IsSuccess() {
		c.log.WithFields(logrus.Fields{"op": op, "ingestion_id": req.IngestionID, "status": resp.StatusCode()}).Warn("ingestion rejected")
		return utils.FromStatus(op, resp.StatusCode(), http.StatusText(resp.StatusCode()))
	}
	return nil
}
