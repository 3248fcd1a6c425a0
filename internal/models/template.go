package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// ConditionalRule derives a boolean field per result row from a comparison
// of the form "<field> <operator> <value>".
type ConditionalRule struct {
	Name      string `json:"name"`
	Condition string `json:"condition"`
}

// FieldType is the semantic type inferred for one result column.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldNumber   FieldType = "number"
	FieldCurrency FieldType = "currency"
	FieldDate     FieldType = "date"
	FieldBoolean  FieldType = "boolean"
)

// ReportTemplate is an HTML+Handlebars document bound to one registered
// database routine. Read-only at generation time.
type ReportTemplate struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Content      string         `gorm:"type:text;not null" json:"content"`
	CSS          string         `gorm:"type:text" json:"css"`
	JS           string         `gorm:"type:text" json:"js"`
	Orientation  string         `gorm:"type:varchar(20);default:'portrait'" json:"orientation"`
	ProcedureID  string         `gorm:"type:varchar(36);index" json:"procedure_id"`
	Placeholders datatypes.JSON `json:"placeholders"` // JSON array of ConditionalRule
	FieldTypes   datatypes.JSON `json:"field_types"`  // cached column name -> FieldType
	CreatedBy    string         `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Procedure *Procedure `gorm:"foreignKey:ProcedureID" json:"procedure,omitempty"`
}

func (ReportTemplate) TableName() string {
	return "report_templates"
}

// ConditionalRules decodes the Placeholders column. A missing or empty
// column yields an empty slice.
func (t *ReportTemplate) ConditionalRules() ([]ConditionalRule, error) {
	if len(t.Placeholders) == 0 {
		return nil, nil
	}
	var rules []ConditionalRule
	if err := json.Unmarshal(t.Placeholders, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}
