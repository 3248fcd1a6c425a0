package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aymerick/raymond"
	"github.com/google/uuid"

	"github.com/nhatro-app/report-service/internal/models"
	"github.com/nhatro-app/report-service/internal/storage"
	"github.com/nhatro-app/report-service/pkg/logger"
)

// defaultUserLabel is shown in report metadata when the requesting user is
// unauthenticated or could not be resolved.
const defaultUserLabel = "Người dùng"

// GenerationRequest is the ephemeral input of one generation. Nothing from
// it is persisted except the bookkeeping row written on success.
type GenerationRequest struct {
	TemplateID string            `json:"template_id"`
	Parameters map[string]string `json:"parameters"`
	UserID     string            `json:"user_id,omitempty"`
	UserName   string            `json:"user_name,omitempty"`
}

type GenerationResult struct {
	FileName         string `json:"file_name"`
	FileURL          string `json:"file_url"`
	GenerationTimeMs int64  `json:"generation_time_ms"`
}

// TemplateResolver loads a template with its bound procedure preloaded.
type TemplateResolver interface {
	ResolveForGeneration(ctx context.Context, templateID string) (*models.ReportTemplate, error)
}

// RoutineExecutor invokes a registered routine and returns raw rows.
type RoutineExecutor interface {
	Execute(ctx context.Context, proc *models.Procedure, params map[string]string, limit int) ([]map[string]interface{}, error)
}

// HTMLRenderer converts assembled HTML to a PDF buffer.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string, landscape bool) ([]byte, error)
}

// ReportStore persists a PDF buffer and returns (fileName, fileURL).
type ReportStore interface {
	SaveReport(templateName string, buffer []byte) (string, string, error)
}

// ReportArchiver keeps an off-site copy of generated PDFs.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, fileName string, buffer []byte) (*storage.ArchiveResult, error)
}

// GenerationRecorder writes the bookkeeping row for one generation.
type GenerationRecorder interface {
	Record(ctx context.Context, report *models.GeneratedReport) error
}

// Generator orchestrates one report generation end to end: template lookup,
// routine execution, conditional variables, Handlebars compilation, PDF
// rendering and persistence. Each call is one linear request-scoped pass.
type Generator struct {
	templates TemplateResolver
	executor  RoutineExecutor
	variables *VariableManager
	renderer  HTMLRenderer
	store     ReportStore
	archiver  ReportArchiver
	recorder  GenerationRecorder
	timeout   time.Duration
}

func NewGenerator(
	templates TemplateResolver,
	executor RoutineExecutor,
	variables *VariableManager,
	renderer HTMLRenderer,
	store ReportStore,
	timeout time.Duration,
) *Generator {
	return &Generator{
		templates: templates,
		executor:  executor,
		variables: variables,
		renderer:  renderer,
		store:     store,
		timeout:   timeout,
	}
}

// WithArchiver enables best-effort GCS archival of generated PDFs.
func (g *Generator) WithArchiver(archiver ReportArchiver) *Generator {
	g.archiver = archiver
	return g
}

// WithRecorder enables bookkeeping rows for successful generations.
func (g *Generator) WithRecorder(recorder GenerationRecorder) *Generator {
	g.recorder = recorder
	return g
}

// Generate produces a persisted PDF from a template and a parameter map.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	start := time.Now()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	tmpl, rows, rendered, err := g.assemble(ctx, req, false)
	if err != nil {
		return nil, g.classify(ctx, err)
	}

	buffer, err := g.renderer.RenderHTML(ctx, rendered, tmpl.Orientation == models.OrientationLandscape)
	if err != nil {
		return nil, g.classify(ctx, err)
	}

	fileName, fileURL, err := g.store.SaveReport(tmpl.Name, buffer)
	if err != nil {
		return nil, generationError(CodeGenerationFileSystem, "failed to persist report", err)
	}

	if g.archiver != nil {
		if _, archiveErr := g.archiver.ArchiveReport(ctx, fileName, buffer); archiveErr != nil {
			logger.Warn(ctx, "report archival failed", "file", fileName, "error", archiveErr)
		}
	}

	elapsed := time.Since(start).Milliseconds()
	g.record(ctx, req, tmpl, fileName, fileURL, int64(len(buffer)), elapsed, len(rows))

	return &GenerationResult{
		FileName:         fileName,
		FileURL:          fileURL,
		GenerationTimeMs: elapsed,
	}, nil
}

// Preview runs the pipeline up to asset injection and returns the assembled
// HTML. A Handlebars failure degrades to an inline error panel so the
// designer UI stays interactive; template and procedure errors stay typed.
func (g *Generator) Preview(ctx context.Context, req GenerationRequest) (string, error) {
	_, _, rendered, err := g.assemble(ctx, req, true)
	if err != nil {
		return "", g.classify(ctx, err)
	}
	return rendered, nil
}

// assemble runs steps shared by both paths: resolve, fetch, conditionals,
// compile, inject.
func (g *Generator) assemble(ctx context.Context, req GenerationRequest, preview bool) (*models.ReportTemplate, []map[string]interface{}, string, error) {
	tmpl, err := g.templates.ResolveForGeneration(ctx, req.TemplateID)
	if err != nil {
		return nil, nil, "", err
	}
	if tmpl.Procedure == nil {
		return nil, nil, "", templateError(CodeTemplateInvalidFormat, "template has no bound procedure")
	}

	rows, err := g.executor.Execute(ctx, tmpl.Procedure, req.Parameters, 0)
	if err != nil {
		return nil, nil, "", err
	}

	rules, err := tmpl.ConditionalRules()
	if err != nil {
		return nil, nil, "", templateError(CodeTemplateInvalidFormat, "template has malformed conditional variables")
	}
	if len(rules) > 0 {
		g.variables.ApplyConditionals(ctx, rules, rows)
	}

	compiled, err := raymond.Parse(tmpl.Content)
	if err != nil {
		if preview {
			return tmpl, rows, errorPanel(err), nil
		}
		return nil, nil, "", generationError(CodeGenerationCompile, "template compilation failed", err)
	}

	rendered, err := compiled.Exec(g.buildContext(tmpl, rows, req))
	if err != nil {
		if preview {
			return tmpl, rows, errorPanel(err), nil
		}
		return nil, nil, "", generationError(CodeGenerationCompile, "template rendering failed", err)
	}

	return tmpl, rows, InjectAssets(rendered, tmpl.CSS, tmpl.JS), nil
}

// buildContext exposes the first row's fields at top level for convenience,
// the full row list under "data", and generation metadata.
func (g *Generator) buildContext(tmpl *models.ReportTemplate, rows []map[string]interface{}, req GenerationRequest) map[string]interface{} {
	context := make(map[string]interface{})
	if len(rows) > 0 {
		for key, value := range rows[0] {
			context[key] = value
		}
	}

	generatedBy := strings.TrimSpace(req.UserName)
	if generatedBy == "" {
		generatedBy = defaultUserLabel
	}

	context["data"] = rows
	context["metadata"] = map[string]interface{}{
		"template_name": tmpl.Name,
		"generated_at":  time.Now().Format("15:04:05 02/01/2006"),
		"row_count":     len(rows),
		"generated_by":  generatedBy,
	}
	return context
}

func (g *Generator) record(ctx context.Context, req GenerationRequest, tmpl *models.ReportTemplate, fileName, fileURL string, size, elapsed int64, rowCount int) {
	if g.recorder == nil {
		return
	}

	paramsJSON, _ := json.Marshal(req.Parameters)
	report := &models.GeneratedReport{
		ID:          uuid.New().String(),
		TemplateID:  tmpl.ID,
		FileName:    fileName,
		FileURL:     fileURL,
		FileSize:    size,
		DurationMs:  elapsed,
		RequestedBy: req.UserID,
		Parameters:  paramsJSON,
	}
	if err := g.recorder.Record(ctx, report); err != nil {
		logger.Warn(ctx, "failed to record generation", "file", fileName, "error", err)
	}

	logger.Info(ctx, "report generated",
		"template", tmpl.Name, "file", fileName, "rows", rowCount, "duration_ms", elapsed)
}

// classify passes already-typed errors through unchanged and wraps anything
// unrecognized after logging it, so operators can tell expected domain
// failures from unexpected bugs.
func (g *Generator) classify(ctx context.Context, err error) error {
	if reportErr, ok := AsReportError(err); ok {
		return reportErr
	}
	logger.Error(ctx, "unexpected generation error", "error", err)
	return generationError(CodeGenerationUnexpected, "unexpected generation failure", err)
}

// InjectAssets splices raw CSS into a <style> tag before </head> and raw JS
// into a <script> tag before </body>. Template authors are trusted; no
// sanitization happens here. Empty inputs leave the HTML unchanged.
func InjectAssets(htmlContent, css, js string) string {
	if css != "" {
		styleTag := "<style>" + css + "</style>"
		if idx := strings.Index(htmlContent, "</head>"); idx >= 0 {
			htmlContent = htmlContent[:idx] + styleTag + htmlContent[idx:]
		} else {
			htmlContent = styleTag + htmlContent
		}
	}

	if js != "" {
		scriptTag := "<script>" + js + "</script>"
		if idx := strings.Index(htmlContent, "</body>"); idx >= 0 {
			htmlContent = htmlContent[:idx] + scriptTag + htmlContent[idx:]
		} else {
			htmlContent = htmlContent + scriptTag
		}
	}

	return htmlContent
}

func errorPanel(err error) string {
	return fmt.Sprintf(`<div style="border:2px solid #dc2626;background:#fef2f2;color:#991b1b;padding:16px;border-radius:8px;font-family:monospace;">
<strong>Lỗi biên dịch mẫu</strong>
<pre style="white-space:pre-wrap;margin:8px 0 0;">%s</pre>
</div>`, html.EscapeString(err.Error()))
}
