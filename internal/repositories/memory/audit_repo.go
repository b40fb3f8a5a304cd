package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vartik/vartikgpt/internal/models"
)

type AuditRepo struct {
	mu   sync.Mutex
	rows []models.AuditRecord
}

func NewAuditRepo() *AuditRepo { return &AuditRepo{} }

func (r *AuditRepo) Record(_ context.Context, rec *models.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.rows = append(r.rows, *rec)
	r.mu.Unlock()
	return nil
}

func (r *AuditRepo) List(_ context.Context, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	out := append([]models.AuditRecord(nil), r.rows...)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
