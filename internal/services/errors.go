package services

import (
	"errors"
	"fmt"
)

// Error categories. Every error leaving the report pipeline belongs to
// exactly one of these.
const (
	CategoryTemplate   = "TEMPLATE"
	CategoryProcedure  = "PROCEDURE"
	CategoryGeneration = "GENERATION"
)

// Stable machine-readable error codes.
const (
	CodeTemplateNotFound      = "TEMPLATE_NOT_FOUND"
	CodeTemplateInvalidFormat = "TEMPLATE_INVALID_FORMAT"
	CodeProcedureNotFound     = "PROCEDURE_NOT_FOUND"
	CodeProcedureInvalidName  = "PROCEDURE_INVALID_NAME"
	CodeProcedureExecution    = "PROCEDURE_EXECUTION_ERROR"
	CodeGenerationCompile     = "GENERATION_COMPILE_ERROR"
	CodeGenerationRender      = "GENERATION_RENDER_ERROR"
	CodeGenerationFileSystem  = "GENERATION_FILE_SYSTEM_ERROR"
	CodeGenerationUnexpected  = "GENERATION_UNEXPECTED_ERROR"
)

// ReportError is the structured error returned by the report pipeline.
// Details carries driver-supplied diagnostics when available.
type ReportError struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`

	cause error
}

func (e *ReportError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ReportError) Unwrap() error {
	return e.cause
}

func newReportError(category, code, message string, cause error) *ReportError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &ReportError{
		Code:     code,
		Category: category,
		Message:  message,
		Details:  details,
		cause:    cause,
	}
}

func templateError(code, message string) *ReportError {
	return newReportError(CategoryTemplate, code, message, nil)
}

func procedureError(code, message string, cause error) *ReportError {
	return newReportError(CategoryProcedure, code, message, cause)
}

func generationError(code, message string, cause error) *ReportError {
	return newReportError(CategoryGeneration, code, message, cause)
}

// AsReportError unwraps err into a ReportError if one is in the chain.
func AsReportError(err error) (*ReportError, bool) {
	var reportErr *ReportError
	if errors.As(err, &reportErr) {
		return reportErr, true
	}
	return nil, false
}
