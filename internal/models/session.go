package models

import "github.com/google/uuid"

// Session is the directory row of generation preferences tied to a user.
type Session struct {
	SessionID       string      `json:"sessionId"`
	UserID          int64       `json:"userId"`
	UniqueUserID    string      `json:"uniqueuserId,omitempty"`
	Admin           bool        `json:"admin"`
	CacheEnabled    bool        `json:"cacheEnabled"`
	RoutingEnabled  bool        `json:"routingEnabled"`
	Temp            Temperature `json:"temp"`
	MaxTokens       MaxTokens   `json:"maxTokens"`
	LLMVendor       string      `json:"llmVendor"`
	LLMModel        string      `json:"llmModel"`
	EmbLLMVendor    string      `json:"embLLMVendor"`
	EmbLLMModel     string      `json:"embLLMModel"`
	ChunkingType    string      `json:"chunkingType"`
	VectorStore     string      `json:"vectorStore"`
	VectorIndex     string      `json:"vectorIndex"`
	UpdatedDateTime Timestamp   `json:"updatedDateTime"`
}

// SessionParameters is the partial update sent from the chat side panel.
type SessionParameters struct {
	LLMVendor   string      `json:"llmVendor"`
	LLMModel    string      `json:"llmModel"`
	Temp        Temperature `json:"temp"`
	MaxTokens   MaxTokens   `json:"maxTokens"`
	VectorStore string      `json:"vectorStore"`
	VectorIndex string      `json:"vectorIndex"`
}

// SessionDefaults seeds sessions and preferences for users seen for the first time.
type SessionDefaults struct {
	LLMVendor    string
	LLMModel     string
	EmbLLMVendor string
	EmbLLMModel  string
	ChunkingType string
	Temp         Temperature
	MaxTokens    MaxTokens
}

// NewSession is the only place a Session is default-constructed.
func NewSession(userID int64, uniqueID string, d SessionDefaults) Session {
	return Session{
		SessionID:       uuid.NewString(),
		UserID:          userID,
		UniqueUserID:    uniqueID,
		Temp:            NewTemperature(float64(d.Temp)),
		MaxTokens:       NewMaxTokens(int(d.MaxTokens)),
		LLMVendor:       d.LLMVendor,
		LLMModel:        d.LLMModel,
		EmbLLMVendor:    d.EmbLLMVendor,
		EmbLLMModel:     d.EmbLLMModel,
		ChunkingType:    d.ChunkingType,
		UpdatedDateTime: NowTimestamp(),
	}
}

// Normalize re-applies the temperature and token invariants before persistence.
func (s *Session) Normalize() {
	s.Temp = NewTemperature(float64(s.Temp))
	s.MaxTokens = NewMaxTokens(int(s.MaxTokens))
	if s.SessionID == "" {
		s.SessionID = uuid.NewString()
	}
}
