package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/auth"
	"github.com/vartik/vartikgpt/internal/cache"
	"github.com/vartik/vartikgpt/internal/logger"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/prefs"
	"github.com/vartik/vartikgpt/internal/providers/identity"
	"github.com/vartik/vartikgpt/internal/providers/inference"
	"github.com/vartik/vartikgpt/internal/providers/stt"
	"github.com/vartik/vartikgpt/internal/repositories/memory"
	"github.com/vartik/vartikgpt/internal/utils"
	"golang.org/x/oauth2"
)

func testLog() *logrus.Logger { return logger.Discard() }

func testPrefs() *prefs.Store { return prefs.NewStore(cache.NewMemoryCache(), time.Hour) }

var testDefaults = models.SessionDefaults{
	LLMVendor:    "AzureOpenAI",
	LLMModel:     "gpt-4o",
	EmbLLMVendor: "AzureOpenAI",
	EmbLLMModel:  "text-embedding-3-small",
	ChunkingType: "fixed",
	Temp:         models.NewTemperature(0.7),
	MaxTokens:    models.NewMaxTokens(1024),
}

// fakeDirectory is an in-memory directory API. errs forces a method, keyed by name, to fail.
type fakeDirectory struct {
	mu sync.Mutex

	nextID        int64
	users         map[string]*models.User
	sessions      map[int64]*models.Session
	chats         map[string][]models.ChatMessage
	departments   map[int64]models.Department
	categories    map[int64]models.Category
	deptByCat     map[int64]int64
	registrations []models.VectorStoreRegistration
	llmRefs       []models.ModelRef
	embRefs       []models.ModelRef
	jobs          []models.IngestionJob

	rotations int
	calls     []string
	errs      map[string]error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		nextID:      100,
		users:       map[string]*models.User{},
		sessions:    map[int64]*models.Session{},
		chats:       map[string][]models.ChatMessage{},
		departments: map[int64]models.Department{},
		categories:  map[int64]models.Category{},
		deptByCat:   map[int64]int64{},
		errs:        map[string]error{},
	}
}

func (f *fakeDirectory) enter(method string) error {
	f.calls = append(f.calls, method)
	return f.errs[method]
}

func (f *fakeDirectory) fail(method string, err error) {
	f.mu.Lock()
	f.errs[method] = err
	f.mu.Unlock()
}

func (f *fakeDirectory) called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeDirectory) id() int64 {
	f.nextID++
	return f.nextID
}

func notFound(op string) error { return utils.E(utils.CodeNotFound, op, "not found", nil) }

func (f *fakeDirectory) addUser(externalID, name string, deptID int64) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: f.id(), Name: name, UniqueAzureID: externalID, DepartmentID: deptID}
	f.users[externalID] = u
	return u
}

func (f *fakeDirectory) addDepartment(name, promptFile string) models.Department {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := models.Category{ID: f.id(), Name: name, PromptFile: promptFile}
	f.categories[c.ID] = c
	d := models.Department{ID: f.id(), Name: name, CategoryID: c.ID}
	f.departments[d.ID] = d
	f.deptByCat[c.ID] = d.ID
	return d
}

func (f *fakeDirectory) addMessage(m models.ChatMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats[m.SessionID] = append(f.chats[m.SessionID], m)
}

func (f *fakeDirectory) GetUserByExternalID(_ context.Context, externalID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetUserByExternalID"); err != nil {
		return nil, err
	}
	u, ok := f.users[externalID]
	if !ok {
		return nil, notFound("GetUserByExternalID")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeDirectory) CreateUser(_ context.Context, u models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateUser"); err != nil {
		return nil, err
	}
	u.ID = f.id()
	f.users[u.UniqueAzureID] = &u
	cp := u
	return &cp, nil
}

func (f *fakeDirectory) GetSessionByUserID(_ context.Context, userID int64) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetSessionByUserID"); err != nil {
		return nil, err
	}
	s, ok := f.sessions[userID]
	if !ok {
		return nil, notFound("GetSessionByUserID")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeDirectory) CreateSession(_ context.Context, s models.Session) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateSession"); err != nil {
		return nil, err
	}
	f.sessions[s.UserID] = &s
	cp := s
	return &cp, nil
}

func (f *fakeDirectory) UpdateSession(_ context.Context, userID int64, s models.Session) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateSession"); err != nil {
		return nil, err
	}
	s.UserID = userID
	f.sessions[userID] = &s
	cp := s
	return &cp, nil
}

func (f *fakeDirectory) UpdateSessionParameters(_ context.Context, userID int64, p models.SessionParameters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateSessionParameters"); err != nil {
		return err
	}
	s, ok := f.sessions[userID]
	if !ok {
		return notFound("UpdateSessionParameters")
	}
	s.LLMVendor, s.LLMModel = p.LLMVendor, p.LLMModel
	s.Temp, s.MaxTokens = p.Temp, p.MaxTokens
	s.VectorStore, s.VectorIndex = p.VectorStore, p.VectorIndex
	return nil
}

func (f *fakeDirectory) RotateSessionID(_ context.Context, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RotateSessionID"); err != nil {
		return "", err
	}
	f.rotations++
	return "chat-" + string(rune('a'+f.rotations-1)), nil
}

func (f *fakeDirectory) ListChatBySession(_ context.Context, sessionID string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListChatBySession"); err != nil {
		return nil, err
	}
	if err := f.errs["ListChatBySession:"+sessionID]; err != nil {
		return nil, err
	}
	return append([]models.ChatMessage(nil), f.chats[sessionID]...), nil
}

func (f *fakeDirectory) ListChatByUser(_ context.Context, userID int64) ([]models.ChatSessionRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListChatByUser"); err != nil {
		return nil, err
	}
	var out []models.ChatSessionRef
	for sid, msgs := range f.chats {
		for _, m := range msgs {
			if m.UserID == userID {
				out = append(out, models.ChatSessionRef{SessionID: sid}, models.ChatSessionRef{SessionID: sid})
				break
			}
		}
	}
	return out, nil
}

func (f *fakeDirectory) AppendChatMessage(_ context.Context, m models.ChatMessage) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("AppendChatMessage"); err != nil {
		return nil, err
	}
	if err := f.errs["AppendChatMessage:"+m.Role]; err != nil {
		return nil, err
	}
	m.ID = f.id()
	f.chats[m.SessionID] = append(f.chats[m.SessionID], m)
	return &m, nil
}

func (f *fakeDirectory) DeleteChatSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteChatSession"); err != nil {
		return err
	}
	delete(f.chats, sessionID)
	return nil
}

func (f *fakeDirectory) ListDepartments(_ context.Context) ([]models.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListDepartments"); err != nil {
		return nil, err
	}
	out := []models.Department{}
	for _, d := range f.departments {
		out = append(out, d)
	}
	sortDepartments(out)
	return out, nil
}

func sortDepartments(d []models.Department) {
	for i := 1; i < len(d); i++ {
		for j := i; j > 0 && d[j].ID < d[j-1].ID; j-- {
			d[j], d[j-1] = d[j-1], d[j]
		}
	}
}

func (f *fakeDirectory) GetDepartment(_ context.Context, id int64) (*models.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetDepartment"); err != nil {
		return nil, err
	}
	d, ok := f.departments[id]
	if !ok {
		return nil, notFound("GetDepartment")
	}
	return &d, nil
}

func (f *fakeDirectory) CreateDepartment(_ context.Context, d models.Department) (*models.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateDepartment"); err != nil {
		return nil, err
	}
	d.ID = f.id()
	f.departments[d.ID] = d
	f.deptByCat[d.CategoryID] = d.ID
	return &d, nil
}

func (f *fakeDirectory) DeleteDepartment(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteDepartment"); err != nil {
		return err
	}
	delete(f.departments, id)
	return nil
}

func (f *fakeDirectory) DepartmentIDByCategory(_ context.Context, categoryID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DepartmentIDByCategory"); err != nil {
		return 0, err
	}
	id, ok := f.deptByCat[categoryID]
	if !ok {
		return 0, notFound("DepartmentIDByCategory")
	}
	return id, nil
}

func (f *fakeDirectory) ListCategories(_ context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListCategories"); err != nil {
		return nil, err
	}
	out := []models.Category{}
	for _, c := range f.categories {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeDirectory) SearchCategories(_ context.Context, name string) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SearchCategories"); err != nil {
		return nil, err
	}
	out := []models.Category{}
	for _, c := range f.categories {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeDirectory) CreateCategory(_ context.Context, c models.Category) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateCategory"); err != nil {
		return nil, err
	}
	c.ID = f.id()
	f.categories[c.ID] = c
	return &c, nil
}

func (f *fakeDirectory) DeleteCategory(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteCategory"); err != nil {
		return err
	}
	delete(f.categories, id)
	return nil
}

func (f *fakeDirectory) RegisterVectorStore(_ context.Context, r models.VectorStoreRegistration) (*models.VectorStoreRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RegisterVectorStore"); err != nil {
		return nil, err
	}
	for _, have := range f.registrations {
		if have.VectorIndex == r.VectorIndex && have.Type == r.Type && have.DepartmentID == r.DepartmentID {
			return nil, utils.E(utils.CodeConflict, "RegisterVectorStore", "already exists", nil)
		}
	}
	r.ID = f.id()
	f.registrations = append(f.registrations, r)
	return &r, nil
}

func (f *fakeDirectory) DeregisterVectorStore(_ context.Context, index, storeType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeregisterVectorStore"); err != nil {
		return err
	}
	kept := f.registrations[:0]
	removed := false
	for _, r := range f.registrations {
		if r.VectorIndex == index && r.Type == storeType {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	f.registrations = kept
	if !removed {
		return notFound("DeregisterVectorStore")
	}
	return nil
}

func (f *fakeDirectory) RegistrationsFor(_ context.Context, storeType string, departmentID int64) ([]models.VectorStoreRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RegistrationsFor"); err != nil {
		return nil, err
	}
	var out []models.VectorStoreRegistration
	for _, r := range f.registrations {
		if r.Type == storeType && r.DepartmentID == departmentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDirectory) ListLLMRefs(_ context.Context) ([]models.ModelRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListLLMRefs"); err != nil {
		return nil, err
	}
	return f.llmRefs, nil
}

func (f *fakeDirectory) ListEmbLLMRefs(_ context.Context) ([]models.ModelRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListEmbLLMRefs"); err != nil {
		return nil, err
	}
	return f.embRefs, nil
}

func (f *fakeDirectory) CreateIngestion(_ context.Context, j models.IngestionJob) (*models.IngestionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateIngestion"); err != nil {
		return nil, err
	}
	j.ID = f.id()
	f.jobs = append(f.jobs, j)
	return &j, nil
}

func (f *fakeDirectory) ListIngestions(_ context.Context) ([]models.IngestionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListIngestions"); err != nil {
		return nil, err
	}
	return append([]models.IngestionJob(nil), f.jobs...), nil
}

// fakeCompleter answers every completion with reply or err. When gate is set, Complete waits on it.
type fakeCompleter struct {
	mu    sync.Mutex
	reply *inference.Reply
	err   error
	gate  chan struct{}
	seen  []inference.Request
}

func (c *fakeCompleter) Complete(ctx context.Context, req inference.Request) (*inference.Reply, error) {
	c.mu.Lock()
	c.seen = append(c.seen, req)
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.reply, c.err
}

func (c *fakeCompleter) requests() []inference.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]inference.Request(nil), c.seen...)
}

type fakeIdentity struct {
	signIn     *identity.Identity
	signInErr  error
	silent     *identity.Identity
	silentErr  error
	silentSeen int
}

func (f *fakeIdentity) LoginURL(state string) string { return "https://login.example/authorize?state=" + state }

func (f *fakeIdentity) SignIn(_ context.Context, _ identity.Callback) (*identity.Identity, error) {
	return f.signIn, f.signInErr
}

func (f *fakeIdentity) TokenSilently(_ context.Context, id *identity.Identity) (*identity.Identity, error) {
	f.silentSeen++
	if f.silentErr != nil {
		return nil, f.silentErr
	}
	if f.silent != nil {
		return f.silent, nil
	}
	return id, nil
}

func (f *fakeIdentity) LogoutURL() string { return "https://login.example/logout" }

type fakeGraph struct {
	name string
	err  error
}

func (g fakeGraph) DepartmentName(context.Context, string, string) (string, error) { return g.name, g.err }

func newIdentity(oid, name string) *identity.Identity {
	return &identity.Identity{
		UniqueID: oid,
		Name:     name,
		Username: name + "@example.com",
		Token:    &oauth2.Token{AccessToken: "at-" + oid, Expiry: time.Now().Add(time.Hour)},
	}
}

func testIssuer() *auth.Issuer { return auth.NewIssuer("test-secret", "vartikgpt-test", time.Hour) }

// fakeProvisioner is one store's provider with a fixed index list.
type fakeProvisioner struct {
	mu        sync.Mutex
	kind      models.VectorStoreKind
	names     []string
	listErr   error
	createErr error
	deleteErr error
	created   []models.IndexSpec
}

func (p *fakeProvisioner) Kind() models.VectorStoreKind { return p.kind }

func (p *fakeProvisioner) ListIndexes(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	return append([]string(nil), p.names...), nil
}

func (p *fakeProvisioner) Create(_ context.Context, spec models.IndexSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return p.createErr
	}
	p.created = append(p.created, spec)
	p.names = append(p.names, spec.Name)
	return nil
}

func (p *fakeProvisioner) Delete(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteErr != nil {
		return p.deleteErr
	}
	kept := p.names[:0]
	for _, n := range p.names {
		if n != name {
			kept = append(kept, n)
		}
	}
	p.names = kept
	return nil
}

type fakeTrigger struct {
	err  error
	seen []models.IngestRequest
}

func (t *fakeTrigger) Ingest(_ context.Context, req models.IngestRequest) error {
	t.seen = append(t.seen, req)
	return t.err
}

type fakeSpeech struct {
	result stt.Result
	err    error
}

func (s fakeSpeech) Transcribe(context.Context, []byte, string) (stt.Result, error) { return s.result, s.err }
func (s fakeSpeech) Close() error                                                  { return nil }

type fakeUploader struct {
	objects map[string]string
}

func (u *fakeUploader) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if u.objects == nil {
		u.objects = map[string]string{}
	}
	u.objects[name] = string(b)
	return "gs://test-bucket/" + name, nil
}

func (u *fakeUploader) Close() error { return nil }

func newAuditRepo() *memory.AuditRepo { return memory.NewAuditRepo() }
