// Package memory holds process-local repositories used when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

type chatKey struct{ owner, chatID string }

type TranscriptRepo struct {
	mu    sync.Mutex
	items map[chatKey]*models.Transcript
}

func NewTranscriptRepo() *TranscriptRepo {
	return &TranscriptRepo{items: map[chatKey]*models.Transcript{}}
}

func (r *TranscriptRepo) Append(_ context.Context, owner, chatID string, entries ...models.TranscriptEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	k := chatKey{owner, chatID}
	t, ok := r.items[k]
	if !ok {
		t = &models.Transcript{Owner: owner, ChatID: chatID}
		r.items[k] = t
	}
	for _, e := range entries {
		if e.At.IsZero() {
			e.At = now
		}
		t.Entries = append(t.Entries, e)
	}
	t.UpdatedAt = now
	return nil
}

// Get returns a copy so callers cannot mutate stored state.
func (r *TranscriptRepo) Get(_ context.Context, owner, chatID string) (*models.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[chatKey{owner, chatID}]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *t
	cp.Entries = append([]models.TranscriptEntry(nil), t.Entries...)
	if t.Speaking != nil {
		s := *t.Speaking
		cp.Speaking = &s
	}
	return &cp, nil
}

func (r *TranscriptRepo) Rename(_ context.Context, owner, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[chatKey{owner, from}]
	if !ok {
		return utils.ErrNotFound
	}
	delete(r.items, chatKey{owner, from})
	t.ChatID = to
	r.items[chatKey{owner, to}] = t
	return nil
}

func (r *TranscriptRepo) SetSpeaking(_ context.Context, owner, chatID string, index *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[chatKey{owner, chatID}]
	if !ok {
		return utils.ErrNotFound
	}
	if index == nil {
		t.Speaking = nil
		return nil
	}
	i := *index
	t.Speaking = &i
	return nil
}

func (r *TranscriptRepo) Delete(_ context.Context, owner, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, chatKey{owner, chatID})
	return nil
}
