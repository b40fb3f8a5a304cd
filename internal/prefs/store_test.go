package prefs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vartik/vartikgpt/internal/cache"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

func TestFormData_DefaultsWhenMissing(t *testing.T) {
	s := NewStore(cache.NewMemoryCache(), 0)

	fd, found, err := s.FormData(context.Background(), "oid-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, models.DefaultFormData(), fd)
}

func TestSaveFormData_NormalizesKnobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemoryCache(), time.Hour)

	require.NoError(t, s.SaveFormData(ctx, "oid-1", models.FormData{Name: "Ana", Temp: 0.449, MaxTokens: 100000}))

	fd, found, err := s.FormData(ctx, "oid-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Ana", fd.Name)
	assert.Equal(t, "0.4", fd.Temp.String())
	assert.Equal(t, models.MaxTokensLimit, fd.MaxTokens.Int())
}

func TestUpdateFormData_ReadMergeWrite(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemoryCache(), 0)
	require.NoError(t, s.SaveFormData(ctx, "oid-1", models.FormData{Name: "Ana", VectorStore: "Qdrant"}))

	fd, err := s.UpdateFormData(ctx, "oid-1", func(f *models.FormData) error {
		f.VectorIndex = "docs"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", fd.Name)
	assert.Equal(t, "docs", fd.VectorIndex)

	_, err = s.UpdateFormData(ctx, "oid-1", func(f *models.FormData) error {
		f.Name = "changed"
		return errors.New("rejected")
	})
	require.Error(t, err)

	stored, _, _ := s.FormData(ctx, "oid-1")
	assert.Equal(t, "Ana", stored.Name)
}

func TestClearFormData_KeepsOtherRecords(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemoryCache(), 0)
	require.NoError(t, s.SaveFormData(ctx, "oid-1", models.FormData{Name: "Ana"}))
	require.NoError(t, s.SaveAccount(ctx, models.AzureAccount{UniqueID: "oid-1", Name: "Ana"}))

	require.NoError(t, s.ClearFormData(ctx, "oid-1"))

	_, found, _ := s.FormData(ctx, "oid-1")
	assert.False(t, found)
	_, found, _ = s.Account(ctx, "oid-1")
	assert.True(t, found)

	require.NoError(t, s.Clear(ctx, "oid-1"))
	_, found, _ = s.Account(ctx, "oid-1")
	assert.False(t, found)
}

func TestOwnerRequired(t *testing.T) {
	s := NewStore(cache.NewMemoryCache(), 0)

	err := s.SaveFormData(context.Background(), "", models.FormData{})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestIngestionForm_Reset(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemoryCache(), 0)
	require.NoError(t, s.SaveIngestionForm(ctx, "oid-1", models.DataIngestionForm{VectorStore: "Pinecone"}))

	require.NoError(t, s.ResetIngestionForm(ctx, "oid-1"))

	f, found, err := s.IngestionForm(ctx, "oid-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, f.VectorStore)
}
