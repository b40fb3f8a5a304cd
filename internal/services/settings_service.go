package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/vartik/vartikgpt/internal/clients/directory"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/prefs"
	"github.com/vartik/vartikgpt/internal/providers/provisioning"
	"github.com/vartik/vartikgpt/internal/utils"
)

// SettingsView is the edit buffer with the option lists the settings screen offers.
type SettingsView struct {
	FormData  models.FormData     `json:"formData"`
	LLM       models.VendorModels `json:"llm"`
	Embedding models.VendorModels `json:"embedding"`
	Stores    []string            `json:"stores"`
	Tabs      []string            `json:"tabs"`
	Warnings  []string            `json:"warnings,omitempty"`
}

// SettingsPatch changes only the fields that are set.
type SettingsPatch struct {
	LLMVendor      *string             `json:"llmVendor"`
	LLMModel       *string             `json:"llmModel"`
	EmbLLMVendor   *string             `json:"embLLMVendor"`
	EmbLLMModel    *string             `json:"embLLMModel"`
	ChunkingType   *string             `json:"chunkingType"`
	Temp           *models.Temperature `json:"temp"`
	MaxTokens      *models.MaxTokens   `json:"maxTokens"`
	VectorStore    *string             `json:"vectorStore"`
	VectorIndex    *string             `json:"vectorIndex"`
	CacheEnabled   *bool               `json:"cacheEnabled"`
	RoutingEnabled *bool               `json:"routingEnabled"`
	Admin          *bool               `json:"admin"`
}

type EditResult struct {
	FormData models.FormData `json:"formData"`
	// Indexes is set when the vector store changed.
	Indexes *IndexDiscovery `json:"indexes,omitempty"`
}

type SettingsService interface {
	Load(ctx context.Context, owner string) (*SettingsView, error)
	Edit(ctx context.Context, owner string, patch SettingsPatch) (*EditResult, error)
	DiscoverIndexes(ctx context.Context, owner, store string) (*IndexDiscovery, error)
	Save(ctx context.Context, owner string) (models.FormData, error)
	SaveParameters(ctx context.Context, owner string) (models.FormData, error)
}

type SettingsDeps struct {
	Sessions     directory.SessionDirectory
	References   directory.ReferenceDirectory
	Registry     directory.VectorStoreDirectory
	Provisioners *provisioning.Set
	Prefs        *prefs.Store
	Log          *logrus.Logger
}

type settingsService struct {
	SettingsDeps
	indexes indexDiscoverer
}

func NewSettingsService(d SettingsDeps) SettingsService {
	return &settingsService{
		SettingsDeps: d,
		indexes:      indexDiscoverer{provisioners: d.Provisioners, registry: d.Registry, log: d.Log},
	}
}

func (s *settingsService) Load(ctx context.Context, owner string) (*SettingsView, error) {
	const op = "SettingsService.Load"
	log := s.Log.WithFields(logrus.Fields{"op": op, "owner": owner})

	fd, _, err := s.Prefs.FormData(ctx, owner)
	if err != nil {
		return nil, err
	}

	var (
		llm, emb       []models.ModelRef
		llmErr, embErr error
	)
	var wg conc.WaitGroup
	wg.Go(func() { llm, llmErr = s.References.ListLLMRefs(ctx) })
	wg.Go(func() { emb, embErr = s.References.ListEmbLLMRefs(ctx) })
	wg.Wait()

	view := &SettingsView{
		FormData:  fd,
		LLM:       models.GroupByVendor(llm),
		Embedding: models.GroupByVendor(emb),
		Tabs:      models.SettingsTabs(fd.DepartmentName),
	}
	for _, k := range s.Provisioners.Kinds() {
		view.Stores = append(view.Stores, string(k))
	}
	if llmErr != nil {
		log.WithError(llmErr).Warn("LLM reference fetch failed")
		view.Warnings = append(view.Warnings, "Error fetching LLM data")
	}
	if embErr != nil {
		log.WithError(embErr).Warn("embedding reference fetch failed")
		view.Warnings = append(view.Warnings, "Error fetching embedding LLM data")
	}
	return view, nil
}

// Edit applies patch to the buffer and mirrors the whole buffer to the store. Changing a vendor
// clears its model, changing the vector store clears the index, unless the same patch sets them.
func (s *settingsService) Edit(ctx context.Context, owner string, patch SettingsPatch) (*EditResult, error) {
	const op = "SettingsService.Edit"

	storeChanged := false
	fd, err := s.Prefs.UpdateFormData(ctx, owner, func(f *models.FormData) error {
		if patch.Admin != nil && !models.IsAdminDepartment(f.DepartmentName) {
			return utils.E(utils.CodeForbidden, op, "admin can only be changed by the ADMIN department", nil)
		}
		if setString(&f.LLMVendor, patch.LLMVendor) && patch.LLMModel == nil {
			f.LLMModel = ""
		}
		setString(&f.LLMModel, patch.LLMModel)
		if setString(&f.EmbLLMVendor, patch.EmbLLMVendor) && patch.EmbLLMModel == nil {
			f.EmbLLMModel = ""
		}
		setString(&f.EmbLLMModel, patch.EmbLLMModel)
		if setString(&f.VectorStore, patch.VectorStore) {
			storeChanged = true
			if patch.VectorIndex == nil {
				f.VectorIndex = ""
			}
		}
		setString(&f.VectorIndex, patch.VectorIndex)
		setString(&f.ChunkingType, patch.ChunkingType)
		if patch.Temp != nil {
			f.Temp = *patch.Temp
		}
		if patch.MaxTokens != nil {
			f.MaxTokens = *patch.MaxTokens
		}
		if patch.CacheEnabled != nil {
			f.CacheEnabled = *patch.CacheEnabled
		}
		if patch.RoutingEnabled != nil {
			f.RoutingEnabled = *patch.RoutingEnabled
		}
		if patch.Admin != nil {
			f.Admin = *patch.Admin
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &EditResult{FormData: fd}
	if storeChanged && fd.VectorStore != "" {
		d := s.indexes.discover(ctx, fd.VectorStore, fd.DepartmentID)
		res.Indexes = &d
	}
	return res, nil
}

// setString assigns v when set and reports whether the value changed.
func setString(dst *string, v *string) bool {
	if v == nil || *dst == *v {
		return false
	}
	*dst = *v
	return true
}

func (s *settingsService) DiscoverIndexes(ctx context.Context, owner, store string) (*IndexDiscovery, error) {
	fd, _, err := s.Prefs.FormData(ctx, owner)
	if err != nil {
		return nil, err
	}
	if store == "" {
		store = fd.VectorStore
	}
	d := s.indexes.discover(ctx, store, fd.DepartmentID)
	return &d, nil
}

// Save writes the buffer as the user's Session, creating it when the directory has none.
func (s *settingsService) Save(ctx context.Context, owner string) (models.FormData, error) {
	const op = "SettingsService.Save"
	log := s.Log.WithFields(logrus.Fields{"op": op, "owner": owner})

	fd, err := s.resolvedFormData(ctx, op, owner)
	if err != nil {
		return fd, err
	}

	existing, err := s.Sessions.GetSessionByUserID(ctx, fd.UserID)
	var saved *models.Session
	switch {
	case err == nil:
		if fd.SessionID == "" {
			fd.SessionID = existing.SessionID
		}
		saved, err = s.Sessions.UpdateSession(ctx, fd.UserID, fd.ToSession())
	case utils.IsCode(err, utils.CodeNotFound):
		saved, err = s.Sessions.CreateSession(ctx, fd.ToSession())
	}
	if err != nil {
		log.WithError(err).Warn("session save failed")
		return fd, err
	}

	if saved != nil && saved.SessionID != "" {
		fd.SessionID = saved.SessionID
	}
	if err := s.Prefs.SaveFormData(ctx, owner, fd); err != nil {
		return fd, err
	}
	log.WithField("session_id", fd.SessionID).Info("settings saved")
	return fd, nil
}

func (s *settingsService) SaveParameters(ctx context.Context, owner string) (models.FormData, error) {
	const op = "SettingsService.SaveParameters"

	fd, err := s.resolvedFormData(ctx, op, owner)
	if err != nil {
		return fd, err
	}
	if err := s.Sessions.UpdateSessionParameters(ctx, fd.UserID, fd.Parameters()); err != nil {
		s.Log.WithFields(logrus.Fields{"op": op, "owner": owner}).WithError(err).Warn("parameter save failed")
		return fd, err
	}
	return fd, nil
}

func (s *settingsService) resolvedFormData(ctx context.Context, op, owner string) (models.FormData, error) {
	fd, found, err := s.Prefs.FormData(ctx, owner)
	if err != nil {
		return fd, err
	}
	if !found || fd.UserID == 0 {
		return fd, utils.E(utils.CodeInvalidArgument, op, "user is not resolved, sign in again", nil)
	}
	fd.Normalize()
	return fd, nil
}
