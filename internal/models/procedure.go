package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoutineKindFunction  = "function"
	RoutineKindProcedure = "procedure"
)

// ProcedureParam is one declared parameter of a registered routine. Type is
// the declared database type name, e.g. "integer", "decimal(10,2)", "text".
type ProcedureParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Procedure is a registered database routine with a declared parameter
// schema. Created by admin tooling, consumed read-only at generation time.
type Procedure struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(128);not null;uniqueIndex" json:"name"`
	Kind        string         `gorm:"type:varchar(20);default:'function'" json:"kind"`
	Description string         `gorm:"type:text" json:"description"`
	Parameters  datatypes.JSON `json:"parameters"` // JSON array of ProcedureParam
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Procedure) TableName() string {
	return "procedures"
}

// ParamSchema decodes the Parameters column in declaration order.
func (p *Procedure) ParamSchema() ([]ProcedureParam, error) {
	if len(p.Parameters) == 0 {
		return nil, nil
	}
	var params []ProcedureParam
	if err := json.Unmarshal(p.Parameters, &params); err != nil {
		return nil, err
	}
	return params, nil
}
