package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GeneratedReport records one successful PDF generation. The file itself
// lives in the public reports directory; this row is bookkeeping only.
type GeneratedReport struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	TemplateID  string         `gorm:"type:varchar(36);not null;index" json:"template_id"`
	FileName    string         `gorm:"type:varchar(255);not null" json:"file_name"`
	FileURL     string         `gorm:"type:varchar(512);not null" json:"file_url"`
	FileSize    int64          `json:"file_size"`
	DurationMs  int64          `json:"duration_ms"`
	RequestedBy string         `gorm:"type:varchar(36)" json:"requested_by"`
	Parameters  datatypes.JSON `json:"parameters"` // parameter map used for this run
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Template ReportTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
}

func (GeneratedReport) TableName() string {
	return "generated_reports"
}
