package models

import "strings"

// AdminDepartment is the well-known department that unlocks the administrative screens.
const AdminDepartment = "ADMIN"

type Department struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CategoryID int64  `json:"categoryId"`
}

type Category struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PromptFile string `json:"promptFile,omitempty"`
}

// IsAdminDepartment reports whether name is exactly the ADMIN department.
func IsAdminDepartment(name string) bool { return name == AdminDepartment }

// RoleForDepartment maps a department name onto the application role.
func RoleForDepartment(name string) Role {
	if IsAdminDepartment(name) {
		return RoleAdmin
	}
	return RoleUser
}

// SettingsTabs lists the settings sections visible to a department.
func SettingsTabs(department string) []string {
	if IsAdminDepartment(department) {
		return []string{"General", "Vector DB", "Data Ingestion"}
	}
	return []string{"General"}
}

// HideAdmin drops the admin department (any case) from an administrative listing.
func HideAdmin(deps []Department) []Department {
	out := make([]Department, 0, len(deps))
	for _, d := range deps {
		if strings.EqualFold(d.Name, "admin") {
			continue
		}
		out = append(out, d)
	}
	return out
}
