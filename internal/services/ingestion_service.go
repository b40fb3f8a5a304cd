package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"github.com/vartik/vartikgpt/internal/clients/directory"
	"github.com/vartik/vartikgpt/internal/clients/ingestion"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/prefs"
	"github.com/vartik/vartikgpt/internal/providers/provisioning"
	"github.com/vartik/vartikgpt/internal/repositories"
	"github.com/vartik/vartikgpt/internal/storage"
	"github.com/vartik/vartikgpt/internal/utils"
)

type IngestionFormPatch struct {
	VectorStore    *string `json:"vectorStore"`
	VectorIndex    *string `json:"vectorIndex"`
	FilesContainer *string `json:"filesContainer"`
	ChunkingType   *string `json:"chunkingType"`
	EmbLLMType     *string `json:"embLLMType"`
	EmbLLMName     *string `json:"embLLMName"`
	DepartmentID   *int64  `json:"departmentId"`
}

type IngestionOptions struct {
	Embedding   models.VendorModels `json:"embedding"`
	Departments []models.Department `json:"departments"`
	Stores      []string            `json:"stores"`
	Indexes     []string            `json:"indexes"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// IngestionResult reports the directory record and the pipeline trigger separately.
type IngestionResult struct {
	Job       *models.IngestionJob `json:"job,omitempty"`
	Record    models.PhaseOutcome  `json:"record"`
	Trigger   models.PhaseOutcome  `json:"trigger"`
	Submitted bool                 `json:"submitted"`
}

type UploadFile struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type IngestionService interface {
	Form(ctx context.Context, owner string) (models.DataIngestionForm, error)
	EditForm(ctx context.Context, owner string, patch IngestionFormPatch) (models.DataIngestionForm, error)
	Options(ctx context.Context, owner, store string) (*IngestionOptions, error)
	Submit(ctx context.Context, owner string, form models.DataIngestionForm) (*IngestionResult, error)
	Status(ctx context.Context) ([]models.IngestionStatusRow, error)
	Upload(ctx context.Context, container string, files []UploadFile) ([]string, error)
}

type IngestionDeps struct {
	Jobs         directory.IngestionDirectory
	Departments  directory.DepartmentDirectory
	References   directory.ReferenceDirectory
	Registry     directory.VectorStoreDirectory
	Provisioners *provisioning.Set
	Trigger      ingestion.Trigger
	Uploader     storage.Uploader // nil when no bucket is configured
	Prefs        *prefs.Store
	Audit        repositories.AuditRepository
	Defaults     models.SessionDefaults
	Log          *logrus.Logger
}

type ingestionService struct {
	IngestionDeps
	audit   auditor
	indexes indexDiscoverer
	now     func() time.Time
}

func NewIngestionService(d IngestionDeps) IngestionService {
	return &ingestionService{
		IngestionDeps: d,
		audit:         auditor{repo: d.Audit, log: d.Log},
		indexes:       indexDiscoverer{provisioners: d.Provisioners, registry: d.Registry, log: d.Log},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *ingestionService) Form(ctx context.Context, owner string) (models.DataIngestionForm, error) {
	f, found, err := s.Prefs.IngestionForm(ctx, owner)
	if err != nil {
		return f, err
	}
	if !found {
		f = s.blankForm()
	}
	return f, nil
}

func (s *ingestionService) blankForm() models.DataIngestionForm {
	return models.DataIngestionForm{
		ChunkingType: s.Defaults.ChunkingType,
		EmbLLMType:   s.Defaults.EmbLLMVendor,
		EmbLLMName:   s.Defaults.EmbLLMModel,
	}
}

func (s *ingestionService) EditForm(ctx context.Context, owner string, patch IngestionFormPatch) (models.DataIngestionForm, error) {
	f, err := s.Form(ctx, owner)
	if err != nil {
		return f, err
	}
	if setString(&f.VectorStore, patch.VectorStore) && patch.VectorIndex == nil {
		f.VectorIndex = ""
	}
	setString(&f.VectorIndex, patch.VectorIndex)
	if setString(&f.EmbLLMType, patch.EmbLLMType) && patch.EmbLLMName == nil {
		f.EmbLLMName = ""
	}
	setString(&f.EmbLLMName, patch.EmbLLMName)
	setString(&f.FilesContainer, patch.FilesContainer)
	setString(&f.ChunkingType, patch.ChunkingType)
	if patch.DepartmentID != nil {
		f.DepartmentID = *patch.DepartmentID
	}
	if err := s.Prefs.SaveIngestionForm(ctx, owner, f); err != nil {
		return f, err
	}
	return f, nil
}

// Options loads the selectable values of the ingestion form. Indexes are those registered for the
// form's department when one is chosen, otherwise everything the provider reports.
func (s *ingestionService) Options(ctx context.Context, owner, store string) (*IngestionOptions, error) {
	const op = "IngestionService.Options"
	log := s.Log.WithFields(logrus.Fields{"op": op, "owner": owner})

	form, err := s.Form(ctx, owner)
	if err != nil {
		return nil, err
	}
	if store == "" {
		store = form.VectorStore
	}

	out := &IngestionOptions{Departments: []models.Department{}, Indexes: []string{}}
	for _, k := range s.Provisioners.Kinds() {
		out.Stores = append(out.Stores, string(k))
	}

	var (
		emb            []models.ModelRef
		deps           []models.Department
		embErr, depErr error
		mu             sync.Mutex
	)
	warn := func(msg string) {
		mu.Lock()
		out.Warnings = append(out.Warnings, msg)
		mu.Unlock()
	}

	var wg conc.WaitGroup
	wg.Go(func() { emb, embErr = s.References.ListEmbLLMRefs(ctx) })
	wg.Go(func() { deps, depErr = s.Departments.ListDepartments(ctx) })
	if store != "" {
		wg.Go(func() {
			names, warnings := s.indexOptions(ctx, store, form.DepartmentID)
			for _, w := range warnings {
				warn(w)
			}
			mu.Lock()
			out.Indexes = names
			mu.Unlock()
		})
	}
	wg.Wait()

	out.Embedding = models.GroupByVendor(emb)
	if embErr != nil {
		log.WithError(embErr).Warn("embedding reference fetch failed")
		warn("Error fetching embedding LLM data")
	}
	if depErr != nil {
		log.WithError(depErr).Warn("department fetch failed")
		warn("Error fetching departments")
	} else if deps != nil {
		out.Departments = deps
	}
	return out, nil
}

func (s *ingestionService) indexOptions(ctx context.Context, store string, departmentID int64) ([]string, []string) {
	if departmentID != 0 {
		d := s.indexes.discover(ctx, store, departmentID)
		return d.Indexes, d.Warnings
	}
	kind, err := models.ParseStore(store)
	if err != nil {
		return []string{}, []string{err.Error()}
	}
	p, err := s.Provisioners.For(kind)
	if err != nil {
		return []string{}, []string{utils.SafeMessage(err)}
	}
	names, err := p.ListIndexes(ctx)
	if err != nil {
		s.Log.WithField("store", kind).WithError(err).Warn("index listing failed")
		return []string{}, []string{"Error fetching " + string(kind) + " indexes"}
	}
	return names, nil
}

// Submit records the job in the directory and then starts the pipeline with the new job id.
// The form is reset only when both steps succeed.
func (s *ingestionService) Submit(ctx context.Context, owner string, form models.DataIngestionForm) (*IngestionResult, error) {
	const op = "IngestionService.Submit"

	if err := validateIngestionForm(form); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, err.Error(), nil)
	}
	fd, found, err := s.Prefs.FormData(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !found || fd.UserID == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user is not resolved, sign in again", nil)
	}
	log := s.Log.WithFields(logrus.Fields{"op": op, "owner": owner, "index": form.VectorIndex, "container": form.FilesContainer})
	target := form.VectorStore + "/" + form.VectorIndex

	res := &IngestionResult{Trigger: models.PhaseOutcome{Status: models.PhaseSkipped}}
	job, err := s.Jobs.CreateIngestion(ctx, models.IngestionJob{
		UserID:          fd.UserID,
		DepartmentID:    form.DepartmentID,
		VectorStore:     form.VectorStore,
		VectorIndex:     form.VectorIndex,
		FilesContainer:  form.FilesContainer,
		ChunkingType:    form.ChunkingType,
		EmbLLMType:      form.EmbLLMType,
		EmbLLMName:      form.EmbLLMName,
		Status:          models.IngestionPending,
		UpdatedDateTime: models.Timestamp{Time: s.now()},
	})
	if err != nil {
		log.WithError(err).Warn("ingestion record failed")
		res.Record = models.PhaseOutcome{Status: models.PhaseFailed, Message: "Failed to create data ingestion record: " + utils.SafeMessage(err)}
		s.audit.record(ctx, owner, "ingestion.submit", target, OutcomeFailed, res, nil)
		return res, nil
	}
	res.Job = job
	res.Record = models.PhaseOutcome{Status: models.PhaseOK}

	if err := s.Trigger.Ingest(ctx, models.IngestRequest{
		IngestionID:     job.ID,
		FilesContainer:  form.FilesContainer,
		IndexName:       form.VectorIndex,
		VectorStoreName: form.VectorStore,
		ChunkingType:    form.ChunkingType,
	}); err != nil {
		log.WithError(err).Warn("ingestion trigger failed")
		res.Trigger = models.PhaseOutcome{Status: models.PhaseFailed, Message: "Failed to start data ingestion: " + utils.SafeMessage(err)}
		s.audit.record(ctx, owner, "ingestion.submit", target, OutcomePartial, res, nil)
		return res, nil
	}
	res.Trigger = models.PhaseOutcome{Status: models.PhaseOK}
	res.Submitted = true

	if err := s.Prefs.ResetIngestionForm(ctx, owner); err != nil {
		log.WithError(err).Warn("ingestion form not reset")
	}
	s.audit.record(ctx, owner, "ingestion.submit", target, OutcomeOK, res, nil)
	log.WithField("ingestion_id", job.ID).Info("data ingestion started")
	return res, nil
}

func validateIngestionForm(f models.DataIngestionForm) error {
	missing := []string{}
	if strings.TrimSpace(f.VectorStore) == "" {
		missing = append(missing, "vectorStore")
	}
	if strings.TrimSpace(f.VectorIndex) == "" {
		missing = append(missing, "vectorIndex")
	}
	if strings.TrimSpace(f.FilesContainer) == "" {
		missing = append(missing, "filesContainer")
	}
	if f.DepartmentID == 0 {
		missing = append(missing, "departmentId")
	}
	if len(missing) > 0 {
		return &missingFieldsError{fields: missing}
	}
	return nil
}

type missingFieldsError struct{ fields []string }

func (e *missingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.fields, ", ")
}

// Status lists the jobs with their department names, looked up once per department.
func (s *ingestionService) Status(ctx context.Context) ([]models.IngestionStatusRow, error) {
	const op = "IngestionService.Status"

	jobs, err := s.Jobs.ListIngestions(ctx)
	if utils.IsCode(err, utils.CodeNotFound) {
		return []models.IngestionStatusRow{}, nil
	}
	if err != nil {
		return nil, err
	}

	ids := map[int64]struct{}{}
	for _, j := range jobs {
		if j.DepartmentID != 0 {
			ids[j.DepartmentID] = struct{}{}
		}
	}
	var mu sync.Mutex
	names := make(map[int64]string, len(ids))
	p := pool.New().WithMaxGoroutines(recentChatsFanOut)
	for id := range ids {
		p.Go(func() {
			dep, err := s.Departments.GetDepartment(ctx, id)
			if err != nil {
				s.Log.WithFields(logrus.Fields{"op": op, "department_id": id}).WithError(err).Warn("department lookup failed")
				return
			}
			mu.Lock()
			names[id] = dep.Name
			mu.Unlock()
		})
	}
	p.Wait()

	rows := make([]models.IngestionStatusRow, 0, len(jobs))
	for _, j := range jobs {
		label := j.Status.Label()
		if j.Status == models.IngestionFailed && j.Error != "" {
			label += ": " + j.Error
		}
		rows = append(rows, models.IngestionStatusRow{IngestionJob: j, DepartmentName: names[j.DepartmentID], StatusLabel: label})
	}
	return rows, nil
}

func (s *ingestionService) Upload(ctx context.Context, container string, files []UploadFile) ([]string, error) {
	const op = "IngestionService.Upload"

	if s.Uploader == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "file storage is not configured", nil)
	}
	if strings.TrimSpace(container) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "files container is required", nil)
	}
	if len(files) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no files", nil)
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		name := storage.ObjectName(container, f.Name)
		stored, err := s.Uploader.Upload(ctx, name, f.ContentType, f.Body)
		if err != nil {
			s.Log.WithFields(logrus.Fields{"op": op, "object": name}).WithError(err).Warn("upload failed")
			return out, utils.E(utils.CodeUnavailable, op, "upload failed: "+f.Name, err)
		}
		out = append(out, stored)
	}
	return out, nil
}
