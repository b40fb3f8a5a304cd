package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// AuditRecord is one administrative action with the outcome of each phase it touched.
type AuditRecord struct {
	ID        string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Actor     string         `gorm:"column:actor;type:text;index" json:"actor"`
	Action    string         `gorm:"column:action;type:text;index" json:"action"` // department.create|department.delete|index.create|index.delete|ingestion.submit
	Target    string         `gorm:"column:target;type:text" json:"target"`
	Outcome   string         `gorm:"column:outcome;type:text" json:"outcome"` // ok|partial|failed
	Phases    datatypes.JSON `gorm:"column:phases;type:jsonb" json:"phases"`
	Warnings  pq.StringArray `gorm:"column:warnings;type:text[]" json:"warnings"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (AuditRecord) TableName() string { return "admin_audit" }
