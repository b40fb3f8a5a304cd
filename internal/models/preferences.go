package models

import "time"

// FormData is the merged user/department/session preference record kept per signed-in user.
type FormData struct {
	UserID         int64       `json:"userId"`
	Name           string      `json:"name"`
	UniqueAzureID  string      `json:"uniqueAzureId"`
	DepartmentID   int64       `json:"departmentId"`
	DepartmentName string      `json:"departmentName"`
	PromptFile     string      `json:"promptFile,omitempty"`
	Admin          bool        `json:"admin"`
	SessionID      string      `json:"sessionId"`
	ActiveChatID   string      `json:"activeChatId,omitempty"`
	LLMVendor      string      `json:"llmVendor"`
	LLMModel       string      `json:"llmModel"`
	EmbLLMVendor   string      `json:"embLLMVendor"`
	EmbLLMModel    string      `json:"embLLMModel"`
	ChunkingType   string      `json:"chunkingType"`
	CacheEnabled   bool        `json:"cacheEnabled"`
	RoutingEnabled bool        `json:"routingEnabled"`
	Temp           Temperature `json:"temp"`
	MaxTokens      MaxTokens   `json:"maxTokens"`
	VectorStore    string      `json:"vectorStore"`
	VectorIndex    string      `json:"vectorIndex"`
}

// DefaultFormData is the single source of defaults for a preference record.
func DefaultFormData() FormData {
	return FormData{Temp: NewTemperature(0), MaxTokens: 0}
}

// Normalize re-applies the temperature and token invariants.
func (f *FormData) Normalize() {
	f.Temp = NewTemperature(float64(f.Temp))
	f.MaxTokens = NewMaxTokens(int(f.MaxTokens))
}

// ApplySession copies the session's generation settings into the record.
func (f *FormData) ApplySession(s Session) {
	f.SessionID = s.SessionID
	f.Admin = s.Admin
	f.CacheEnabled = s.CacheEnabled
	f.RoutingEnabled = s.RoutingEnabled
	f.Temp = s.Temp
	f.MaxTokens = s.MaxTokens
	f.LLMVendor = s.LLMVendor
	f.LLMModel = s.LLMModel
	f.EmbLLMVendor = s.EmbLLMVendor
	f.EmbLLMModel = s.EmbLLMModel
	f.ChunkingType = s.ChunkingType
	f.VectorStore = s.VectorStore
	f.VectorIndex = s.VectorIndex
	f.Normalize()
}

// ToSession builds the full Session row from the record.
func (f FormData) ToSession() Session {
	s := Session{
		SessionID:       f.SessionID,
		UserID:          f.UserID,
		UniqueUserID:    f.UniqueAzureID,
		Admin:           f.Admin,
		CacheEnabled:    f.CacheEnabled,
		RoutingEnabled:  f.RoutingEnabled,
		Temp:            f.Temp,
		MaxTokens:       f.MaxTokens,
		LLMVendor:       f.LLMVendor,
		LLMModel:        f.LLMModel,
		EmbLLMVendor:    f.EmbLLMVendor,
		EmbLLMModel:     f.EmbLLMModel,
		ChunkingType:    f.ChunkingType,
		VectorStore:     f.VectorStore,
		VectorIndex:     f.VectorIndex,
		UpdatedDateTime: NowTimestamp(),
	}
	s.Normalize()
	return s
}

// Parameters extracts the generation knobs saved from the chat side panel.
func (f FormData) Parameters() SessionParameters {
	return SessionParameters{
		LLMVendor:   f.LLMVendor,
		LLMModel:    f.LLMModel,
		Temp:        NewTemperature(float64(f.Temp)),
		MaxTokens:   NewMaxTokens(int(f.MaxTokens)),
		VectorStore: f.VectorStore,
		VectorIndex: f.VectorIndex,
	}
}

// AzureAccount is the cached identity snapshot, including the delegated token used for Graph calls.
type AzureAccount struct {
	UniqueID     string    `json:"uniqueId"`
	TenantID     string    `json:"tenantId,omitempty"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// DataIngestionForm is the in-progress data ingestion request.
type DataIngestionForm struct {
	VectorStore    string `json:"vectorStore"`
	VectorIndex    string `json:"vectorIndex"`
	FilesContainer string `json:"filesContainer"`
	ChunkingType   string `json:"chunkingType"`
	EmbLLMType     string `json:"embLLMType"`
	EmbLLMName     string `json:"embLLMName"`
	DepartmentID   int64  `json:"departmentId"`
}
