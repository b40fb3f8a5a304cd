package directory

import (
	"context"

	"github.com/vartik/vartikgpt/internal/models"
)

// Narrow views of Client. Services depend on the smallest one they need.

type UserDirectory interface {
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	CreateUser(ctx context.Context, u models.User) (*models.User, error)
}

type SessionDirectory interface {
	GetSessionByUserID(ctx context.Context, userID int64) (*models.Session, error)
	CreateSession(ctx context.Context, s models.Session) (*models.Session, error)
	UpdateSession(ctx context.Context, userID int64, s models.Session) (*models.Session, error)
	UpdateSessionParameters(ctx context.Context, userID int64, p models.SessionParameters) error
	RotateSessionID(ctx context.Context, userID int64) (string, error)
}

type ChatDirectory interface {
	ListChatBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	ListChatByUser(ctx context.Context, userID int64) ([]models.ChatSessionRef, error)
	AppendChatMessage(ctx context.Context, m models.ChatMessage) (*models.ChatMessage, error)
	DeleteChatSession(ctx context.Context, sessionID string) error
}

type DepartmentDirectory interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	GetDepartment(ctx context.Context, id int64) (*models.Department, error)
	CreateDepartment(ctx context.Context, d models.Department) (*models.Department, error)
	DeleteDepartment(ctx context.Context, id int64) error
	DepartmentIDByCategory(ctx context.Context, categoryID int64) (int64, error)

	ListCategories(ctx context.Context) ([]models.Category, error)
	SearchCategories(ctx context.Context, name string) ([]models.Category, error)
	CreateCategory(ctx context.Context, c models.Category) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type VectorStoreDirectory interface {
	RegisterVectorStore(ctx context.Context, r models.VectorStoreRegistration) (*models.VectorStoreRegistration, error)
	DeregisterVectorStore(ctx context.Context, index, storeType string) error
	RegistrationsFor(ctx context.Context, storeType string, departmentID int64) ([]models.VectorStoreRegistration, error)
}

type ReferenceDirectory interface {
	ListLLMRefs(ctx context.Context) ([]models.ModelRef, error)
	ListEmbLLMRefs(ctx context.Context) ([]models.ModelRef, error)
}

type IngestionDirectory interface {
	CreateIngestion(ctx context.Context, j models.IngestionJob) (*models.IngestionJob, error)
	ListIngestions(ctx context.Context) ([]models.IngestionJob, error)
}

var (
	_ UserDirectory        = (*Client)(nil)
	_ SessionDirectory     = (*Client)(nil)
	_ ChatDirectory        = (*Client)(nil)
	_ DepartmentDirectory  = (*Client)(nil)
	_ VectorStoreDirectory = (*Client)(nil)
	_ ReferenceDirectory   = (*Client)(nil)
	_ IngestionDirectory   = (*Client)(nil)
)
