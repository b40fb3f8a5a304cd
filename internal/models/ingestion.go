package models

type IngestionStatus int

const (
	IngestionPending IngestionStatus = 0
	IngestionDone    IngestionStatus = 1
	IngestionFailed  IngestionStatus = 2
)

func (s IngestionStatus) Label() string {
	switch s {
	case IngestionDone:
		return "done"
	case IngestionFailed:
		return "failed"
	default:
		return "pending"
	}
}

// IngestionJob is a /DataIngestion row.
type IngestionJob struct {
	ID              int64           `json:"id,omitempty"`
	UserID          int64           `json:"userId"`
	DepartmentID    int64           `json:"departmentId"`
	VectorStore     string          `json:"vectorStore"`
	VectorIndex     string          `json:"vectorIndex"`
	FilesContainer  string          `json:"filesContainer"`
	ChunkingType    string          `json:"chunkingType"`
	EmbLLMType      string          `json:"embLLMType"`
	EmbLLMName      string          `json:"embLLMName"`
	Status          IngestionStatus `json:"status"`
	Error           string          `json:"error,omitempty"`
	UpdatedDateTime Timestamp       `json:"updatedDateTime"`
}

// IngestRequest is the body the ingestion pipeline expects.
type IngestRequest struct {
	IngestionID     int64  `json:"ingestion_id"`
	FilesContainer  string `json:"files_container"`
	IndexName       string `json:"index_name"`
	VectorStoreName string `json:"vector_store_name"`
	ChunkingType    string `json:"chunking_type"`
}

// IngestionStatusRow is a job annotated for the status table.
type IngestionStatusRow struct {
	IngestionJob
	DepartmentName string `json:"departmentName"`
	StatusLabel    string `json:"statusLabel"`
}
