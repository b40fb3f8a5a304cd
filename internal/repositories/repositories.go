// Package repositories declares the storage contracts shared by the mongo, postgres and memory
// implementations.
package repositories

import (
	"context"

	"github.com/vartik/vartikgpt/internal/models"
)

// TranscriptRepository keeps the displayed transcript of each chat, diagnostics included.
type TranscriptRepository interface {
	Append(ctx context.Context, owner, chatID string, entries ...models.TranscriptEntry) error
	Get(ctx context.Context, owner, chatID string) (*models.Transcript, error)
	// Rename moves a transcript to a new chat id, used once a pending chat gets its directory id.
	Rename(ctx context.Context, owner, from, to string) error
	SetSpeaking(ctx context.Context, owner, chatID string, index *int) error
	Delete(ctx context.Context, owner, chatID string) error
}

// AuditRepository records administrative actions, newest first on read.
type AuditRepository interface {
	Record(ctx context.Context, rec *models.AuditRecord) error
	List(ctx context.Context, limit int) ([]models.AuditRecord, error)
}
