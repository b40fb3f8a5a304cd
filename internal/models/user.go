package models

// User is the directory row for a signed-in person. Identity fields never change after creation.
type User struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	UniqueAzureID string `json:"uniqueAzureId"`
	DepartmentID  int64  `json:"departmentId"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)
