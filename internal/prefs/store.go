// Package prefs is the typed Local Preference Store. It keeps three records per signed-in user:
// formData, azureAccount and dataIngestionForm. Writes replace the whole record and the last
// writer wins; there is no locking between concurrent writers.
package prefs

import (
	"context"
	"fmt"
	"time"

	"github.com/vartik/vartikgpt/internal/cache"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

const (
	RecordFormData      = "formData"
	RecordAzureAccount  = "azureAccount"
	RecordIngestionForm = "dataIngestionForm"
)

type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewStore(c cache.Cache, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

func key(owner, record string) string {
	return fmt.Sprintf("prefs:%s:%s", owner, record)
}

func (s *Store) get(ctx context.Context, op, owner, record string, dst any) (bool, error) {
	if owner == "" {
		return false, utils.E(utils.CodeInvalidArgument, op, "owner is required", nil)
	}
	hit, err := s.cache.GetJSON(ctx, key(owner, record), dst)
	if err != nil {
		return false, utils.E(utils.CodeUnavailable, op, "preference store unavailable", err)
	}
	return hit, nil
}

func (s *Store) set(ctx context.Context, op, owner, record string, val any) error {
	if owner == "" {
		return utils.E(utils.CodeInvalidArgument, op, "owner is required", nil)
	}
	if err := s.cache.SetJSON(ctx, key(owner, record), val, s.ttl); err != nil {
		return utils.E(utils.CodeUnavailable, op, "preference store unavailable", err)
	}
	return nil
}

// FormData returns the stored record, or DefaultFormData with found=false.
func (s *Store) FormData(ctx context.Context, owner string) (models.FormData, bool, error) {
	fd := models.DefaultFormData()
	hit, err := s.get(ctx, "Prefs.FormData", owner, RecordFormData, &fd)
	if err != nil || !hit {
		return models.DefaultFormData(), false, err
	}
	fd.Normalize()
	return fd, true, nil
}

func (s *Store) SaveFormData(ctx context.Context, owner string, fd models.FormData) error {
	fd.Normalize()
	return s.set(ctx, "Prefs.SaveFormData", owner, RecordFormData, fd)
}

// UpdateFormData reads the record, applies fn and writes the whole record back.
func (s *Store) UpdateFormData(ctx context.Context, owner string, fn func(*models.FormData) error) (models.FormData, error) {
	fd, _, err := s.FormData(ctx, owner)
	if err != nil {
		return fd, err
	}
	if err := fn(&fd); err != nil {
		return fd, err
	}
	fd.Normalize()
	if err := s.SaveFormData(ctx, owner, fd); err != nil {
		return fd, err
	}
	return fd, nil
}

func (s *Store) ClearFormData(ctx context.Context, owner string) error {
	if err := s.cache.Del(ctx, key(owner, RecordFormData)); err != nil {
		return utils.E(utils.CodeUnavailable, "Prefs.ClearFormData", "preference store unavailable", err)
	}
	return nil
}

func (s *Store) Account(ctx context.Context, owner string) (models.AzureAccount, bool, error) {
	var acc models.AzureAccount
	hit, err := s.get(ctx, "Prefs.Account", owner, RecordAzureAccount, &acc)
	return acc, hit, err
}

func (s *Store) SaveAccount(ctx context.Context, acc models.AzureAccount) error {
	return s.set(ctx, "Prefs.SaveAccount", acc.UniqueID, RecordAzureAccount, acc)
}

func (s *Store) IngestionForm(ctx context.Context, owner string) (models.DataIngestionForm, bool, error) {
	var f models.DataIngestionForm
	hit, err := s.get(ctx, "Prefs.IngestionForm", owner, RecordIngestionForm, &f)
	return f, hit, err
}

func (s *Store) SaveIngestionForm(ctx context.Context, owner string, f models.DataIngestionForm) error {
	return s.set(ctx, "Prefs.SaveIngestionForm", owner, RecordIngestionForm, f)
}

func (s *Store) ResetIngestionForm(ctx context.Context, owner string) error {
	return s.SaveIngestionForm(ctx, owner, models.DataIngestionForm{})
}

// Clear removes every record of owner. Used on sign out.
func (s *Store) Clear(ctx context.Context, owner string) error {
	err := s.cache.Del(ctx,
		key(owner, RecordFormData),
		key(owner, RecordAzureAccount),
		key(owner, RecordIngestionForm),
	)
	if err != nil {
		return utils.E(utils.CodeUnavailable, "Prefs.Clear", "preference store unavailable", err)
	}
	return nil
}
