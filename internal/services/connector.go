package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nhatro-app/report-service/internal/models"

	"gorm.io/gorm"
)

// routineNamePattern is the allow-list check applied before a routine name
// is spliced into SQL text. Names come from the trusted procedure registry,
// but a registry row edited by hand must still not be able to smuggle SQL.
var routineNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// Connector translates "invoke named routine with typed parameters" into
// one executed SQL statement. Values are bound through the driver; only the
// pre-validated routine name is formatted into the statement text.
type Connector struct {
	db *gorm.DB
}

func NewConnector(db *gorm.DB) *Connector {
	return &Connector{db: db}
}

// Execute invokes the routine with the supplied raw parameter values.
// Row-returning functions are wrapped in SELECT * FROM name(...) with an
// optional LIMIT; action procedures are invoked via CALL and answered with
// a synthetic single-element success record. An empty result set is a valid
// result, not an error.
func (c *Connector) Execute(ctx context.Context, proc *models.Procedure, params map[string]string, limit int) ([]map[string]interface{}, error) {
	if !routineNamePattern.MatchString(proc.Name) {
		return nil, procedureError(CodeProcedureInvalidName,
			fmt.Sprintf("routine name %q is not a valid identifier", proc.Name), nil)
	}

	schema, err := proc.ParamSchema()
	if err != nil {
		return nil, procedureError(CodeProcedureExecution, "invalid parameter schema", err)
	}

	args, err := coerceParams(schema, params)
	if err != nil {
		return nil, err
	}

	placeholders := make([]string, len(schema))
	for i := range schema {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	argList := strings.Join(placeholders, ", ")

	if proc.Kind == models.RoutineKindProcedure {
		statement := fmt.Sprintf("CALL %s(%s)", proc.Name, argList)
		if err := c.db.WithContext(ctx).Exec(statement, args...).Error; err != nil {
			return nil, procedureError(CodeProcedureExecution,
				fmt.Sprintf("routine %s failed", proc.Name), err)
		}
		return []map[string]interface{}{{"success": true}}, nil
	}

	statement := fmt.Sprintf("SELECT * FROM %s(%s)", proc.Name, argList)
	if limit > 0 {
		statement += " LIMIT " + strconv.Itoa(limit)
	}

	var rows []map[string]interface{}
	if err := c.db.WithContext(ctx).Raw(statement, args...).Scan(&rows).Error; err != nil {
		return nil, procedureError(CodeProcedureExecution,
			fmt.Sprintf("routine %s failed", proc.Name), err)
	}
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return rows, nil
}

// SampleRow executes the routine with empty parameters and limit 1. Used
// for design-time variable discovery; returns nil when the routine yields
// no rows.
func (c *Connector) SampleRow(ctx context.Context, proc *models.Procedure) (map[string]interface{}, error) {
	rows, err := c.Execute(ctx, proc, map[string]string{}, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// coerceParams converts raw string values by substring-matching each
// declared type name. Missing numeric parameters deliberately default to 0
// rather than null; partial parameter sets keep executing the way they
// always have.
func coerceParams(schema []models.ProcedureParam, params map[string]string) ([]interface{}, error) {
	args := make([]interface{}, 0, len(schema))
	for _, declared := range schema {
		raw, supplied := params[declared.Name]
		value, err := coerceParam(declared, raw, supplied)
		if err != nil {
			return nil, err
		}
		args = append(args, value)
	}
	return args, nil
}

func coerceParam(declared models.ProcedureParam, raw string, supplied bool) (interface{}, error) {
	typeName := strings.ToLower(declared.Type)

	switch {
	case strings.Contains(typeName, "int"):
		if !supplied || raw == "" {
			raw = "0"
		}
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, procedureError(CodeProcedureExecution,
				fmt.Sprintf("parameter %s: %q is not an integer", declared.Name, raw), err)
		}
		return parsed, nil
	case strings.Contains(typeName, "decimal"):
		if !supplied || raw == "" {
			raw = "0"
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, procedureError(CodeProcedureExecution,
				fmt.Sprintf("parameter %s: %q is not a decimal", declared.Name, raw), err)
		}
		return parsed, nil
	case strings.Contains(typeName, "bool"):
		return raw == "true", nil
	default:
		return raw, nil
	}
}
