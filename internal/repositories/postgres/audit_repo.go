package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/repositories"
	"gorm.io/gorm"
)

type auditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) repositories.AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Record(ctx context.Context, rec *models.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *auditRepo) List(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.AuditRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
