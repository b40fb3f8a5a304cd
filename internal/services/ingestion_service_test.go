package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/prefs"
	"github.com/vartik/vartikgpt/internal/providers/provisioning"
	"github.com/vartik/vartikgpt/internal/storage"
	"github.com/vartik/vartikgpt/internal/utils"
)

const ingestOwner = "oid-ingest"

type ingestionFixture struct {
	dir     *fakeDirectory
	trigger *fakeTrigger
	prefs   *prefs.Store
	dep     models.Department
	svc     IngestionService
}

func newIngestionFixture(t *testing.T, uploader storage.Uploader) *ingestionFixture {
	t.Helper()
	f := &ingestionFixture{dir: newFakeDirectory(), trigger: &fakeTrigger{}, prefs: testPrefs()}
	f.dep = f.dir.addDepartment("Finance", "")
	admin := f.dir.addDepartment("ADMIN", "")
	u := f.dir.addUser(ingestOwner, "Ada", admin.ID)
	f.dir.embRefs = []models.ModelRef{{Type: "AzureOpenAI", Name: "ada-002"}}
	f.dir.registrations = []models.VectorStoreRegistration{{VectorIndex: "fin", Type: "Qdrant", DepartmentID: f.dep.ID}}

	fd := models.DefaultFormData()
	fd.UserID = u.ID
	fd.DepartmentName = "ADMIN"
	require.NoError(t, f.prefs.SaveFormData(context.Background(), ingestOwner, fd))

	f.svc = NewIngestionService(IngestionDeps{
		Jobs:         f.dir,
		Departments:  f.dir,
		References:   f.dir,
		Registry:     f.dir,
		Provisioners: provisioning.NewSet(&fakeProvisioner{kind: models.StoreQdrant, names: []string{"fin", "other"}}),
		Trigger:      f.trigger,
		Uploader:     uploader,
		Prefs:        f.prefs,
		Audit:        newAuditRepo(),
		Defaults:     testDefaults,
		Log:          testLog(),
	})
	return f
}

func (f *ingestionFixture) form() models.DataIngestionForm {
	return models.DataIngestionForm{
		VectorStore:    "Qdrant",
		VectorIndex:    "fin",
		FilesContainer: "finance-2026",
		ChunkingType:   "fixed",
		EmbLLMType:     "AzureOpenAI",
		EmbLLMName:     "ada-002",
		DepartmentID:   f.dep.ID,
	}
}

func TestIngestionForm_DefaultsAndCascade(t *testing.T) {
	f := newIngestionFixture(t, nil)
	ctx := context.Background()

	form, err := f.svc.Form(ctx, ingestOwner)
	require.NoError(t, err)
	assert.Equal(t, "fixed", form.ChunkingType)
	assert.Equal(t, "text-embedding-3-small", form.EmbLLMName)

	store, index := "Qdrant", "fin"
	_, err = f.svc.EditForm(ctx, ingestOwner, IngestionFormPatch{VectorStore: &store, VectorIndex: &index})
	require.NoError(t, err)

	other, emb := "Pinecone", "OpenAI"
	form, err = f.svc.EditForm(ctx, ingestOwner, IngestionFormPatch{VectorStore: &other, EmbLLMType: &emb})
	require.NoError(t, err)
	assert.Empty(t, form.VectorIndex)
	assert.Empty(t, form.EmbLLMName)

	stored, found, err := f.prefs.IngestionForm(ctx, ingestOwner)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Pinecone", stored.VectorStore)
}

func TestIngestionOptions(t *testing.T) {
	f := newIngestionFixture(t, nil)
	ctx := context.Background()

	opts, err := f.svc.Options(ctx, ingestOwner, "Qdrant")
	require.NoError(t, err)
	assert.Equal(t, []string{"fin", "other"}, opts.Indexes, "no department chosen lists everything")
	assert.Len(t, opts.Departments, 2)
	assert.Equal(t, []string{"AzureOpenAI"}, opts.Embedding.Vendors)

	id := f.dep.ID
	_, err = f.svc.EditForm(ctx, ingestOwner, IngestionFormPatch{DepartmentID: &id})
	require.NoError(t, err)
	opts, err = f.svc.Options(ctx, ingestOwner, "Qdrant")
	require.NoError(t, err)
	assert.Equal(t, []string{"fin"}, opts.Indexes)
}

func TestIngestionSubmit_TwoPhasesAndReset(t *testing.T) {
	f := newIngestionFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.prefs.SaveIngestionForm(ctx, ingestOwner, f.form()))

	res, err := f.svc.Submit(ctx, ingestOwner, f.form())
	require.NoError(t, err)
	assert.True(t, res.Submitted)
	assert.Equal(t, models.PhaseOK, res.Record.Status)
	assert.Equal(t, models.PhaseOK, res.Trigger.Status)

	require.Len(t, f.dir.jobs, 1)
	job := f.dir.jobs[0]
	assert.Equal(t, models.IngestionPending, job.Status)
	assert.Equal(t, f.dep.ID, job.DepartmentID)

	require.Len(t, f.trigger.seen, 1)
	assert.Equal(t, models.IngestRequest{
		IngestionID:     job.ID,
		FilesContainer:  "finance-2026",
		IndexName:       "fin",
		VectorStoreName: "Qdrant",
		ChunkingType:    "fixed",
	}, f.trigger.seen[0])

	stored, _, err := f.prefs.IngestionForm(ctx, ingestOwner)
	require.NoError(t, err)
	assert.Equal(t, models.DataIngestionForm{}, stored)
}

func TestIngestionSubmit_TriggerFailureKeepsForm(t *testing.T) {
	f := newIngestionFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.prefs.SaveIngestionForm(ctx, ingestOwner, f.form()))
	f.trigger.err = errors.New("pipeline down")

	res, err := f.svc.Submit(ctx, ingestOwner, f.form())
	require.NoError(t, err)
	assert.False(t, res.Submitted)
	assert.Equal(t, models.PhaseOK, res.Record.Status)
	assert.Equal(t, models.PhaseFailed, res.Trigger.Status)

	stored, _, _ := f.prefs.IngestionForm(ctx, ingestOwner)
	assert.Equal(t, "fin", stored.VectorIndex)
}

func TestIngestionSubmit_RecordFailureSkipsTrigger(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.dir.fail("CreateIngestion", errors.New("boom"))

	res, err := f.svc.Submit(context.Background(), ingestOwner, f.form())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseFailed, res.Record.Status)
	assert.Equal(t, models.PhaseSkipped, res.Trigger.Status)
	assert.Empty(t, f.trigger.seen)
}

func TestIngestionSubmit_Validation(t *testing.T) {
	f := newIngestionFixture(t, nil)
	_, err := f.svc.Submit(context.Background(), ingestOwner, models.DataIngestionForm{VectorStore: "Qdrant"})
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	assert.Contains(t, utils.SafeMessage(err), "vectorIndex")
}

func TestIngestionStatus_ResolvesDepartmentNames(t *testing.T) {
	f := newIngestionFixture(t, nil)
	f.dir.jobs = []models.IngestionJob{
		{ID: 1, DepartmentID: f.dep.ID, Status: models.IngestionDone},
		{ID: 2, DepartmentID: f.dep.ID, Status: models.IngestionFailed, Error: "bad pdf"},
		{ID: 3, DepartmentID: 9999, Status: models.IngestionPending},
	}

	rows, err := f.svc.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Finance", rows[0].DepartmentName)
	assert.Equal(t, "done", rows[0].StatusLabel)
	assert.Equal(t, "failed: bad pdf", rows[1].StatusLabel)
	assert.Empty(t, rows[2].DepartmentName)
	assert.Equal(t, "pending", rows[2].StatusLabel)
	assert.Equal(t, 2, f.dir.called("GetDepartment"), "one lookup per department")
}

func TestIngestionUpload(t *testing.T) {
	f := newIngestionFixture(t, nil)
	_, err := f.svc.Upload(context.Background(), "c", []UploadFile{{Name: "a.pdf", Body: strings.NewReader("x")}})
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))

	up := &fakeUploader{}
	f = newIngestionFixture(t, up)
	paths, err := f.svc.Upload(context.Background(), "finance-2026", []UploadFile{
		{Name: "../../etc/report.pdf", ContentType: "application/pdf", Body: strings.NewReader("pdf")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"gs://test-bucket/finance-2026/report.pdf"}, paths)
	assert.Equal(t, "pdf", up.objects["finance-2026/report.pdf"])
}
