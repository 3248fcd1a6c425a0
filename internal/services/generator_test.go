package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/nhatro-app/report-service/internal/models"
)

type fakeResolver struct {
	tmpl *models.ReportTemplate
	err  error
}

func (f *fakeResolver) ResolveForGeneration(ctx context.Context, templateID string) (*models.ReportTemplate, error) {
	return f.tmpl, f.err
}

type fakeExecutor struct {
	rows  []map[string]interface{}
	err   error
	calls int
}

func (f *fakeExecutor) Execute(ctx context.Context, proc *models.Procedure, params map[string]string, limit int) ([]map[string]interface{}, error) {
	f.calls++
	return f.rows, f.err
}

type fakeRenderer struct {
	buffer    []byte
	err       error
	gotHTML   string
	landscape bool
}

func (f *fakeRenderer) RenderHTML(ctx context.Context, html string, landscape bool) ([]byte, error) {
	f.gotHTML = html
	f.landscape = landscape
	return f.buffer, f.err
}

type fakeStore struct {
	fileName string
	fileURL  string
	err      error
	saved    []byte
}

func (f *fakeStore) SaveReport(templateName string, buffer []byte) (string, string, error) {
	f.saved = buffer
	return f.fileName, f.fileURL, f.err
}

func newTestGenerator(resolver *fakeResolver, executor *fakeExecutor, renderer *fakeRenderer, store *fakeStore) *Generator {
	return NewGenerator(resolver, executor, NewVariableManager(), renderer, store, 0)
}

func boundTemplate(content string) *models.ReportTemplate {
	return &models.ReportTemplate{
		ID:          "tpl-1",
		Name:        "Báo Cáo Doanh Thu",
		Content:     content,
		Orientation: models.OrientationPortrait,
		ProcedureID: "proc-1",
		Procedure: &models.Procedure{
			ID:   "proc-1",
			Name: "thongke_doanhthu",
			Kind: models.RoutineKindFunction,
		},
	}
}

func TestGenerate_Success(t *testing.T) {
	resolver := &fakeResolver{tmpl: boundTemplate("<html><body>{{ten_phong}} - {{metadata.row_count}}</body></html>")}
	executor := &fakeExecutor{rows: []map[string]interface{}{
		{"ten_phong": "P101", "total": 2000000},
		{"ten_phong": "P102", "total": 500000},
	}}
	renderer := &fakeRenderer{buffer: []byte("%PDF-fake")}
	store := &fakeStore{fileName: "Report_Bao_Cao_Doanh_Thu_1.pdf", fileURL: "/reports/Report_Bao_Cao_Doanh_Thu_1.pdf"}

	g := newTestGenerator(resolver, executor, renderer, store)

	result, err := g.Generate(context.Background(), GenerationRequest{TemplateID: "tpl-1"})
	require.NoError(t, err)

	assert.Equal(t, "Report_Bao_Cao_Doanh_Thu_1.pdf", result.FileName)
	assert.Equal(t, "/reports/Report_Bao_Cao_Doanh_Thu_1.pdf", result.FileURL)
	assert.GreaterOrEqual(t, result.GenerationTimeMs, int64(0))

	// First row fields are spread at top level; metadata carries row count.
	assert.Contains(t, renderer.gotHTML, "P101 - 2")
	assert.False(t, renderer.landscape)
	assert.Equal(t, []byte("%PDF-fake"), store.saved)
}

func TestGenerate_LandscapeOrientation(t *testing.T) {
	tmpl := boundTemplate("<html></html>")
	tmpl.Orientation = models.OrientationLandscape

	renderer := &fakeRenderer{buffer: []byte("pdf")}
	g := newTestGenerator(&fakeResolver{tmpl: tmpl}, &fakeExecutor{}, renderer, &fakeStore{})

	_, err := g.Generate(context.Background(), GenerationRequest{TemplateID: "tpl-1"})
	require.NoError(t, err)
	assert.True(t, renderer.landscape)
}

func TestGenerate_ConditionalVariables(t *testing.T) {
	tmpl := boundTemplate("{{#if isVip}}VIP{{else}}Regular{{/if}}")
	tmpl.Placeholders = datatypes.JSON(`[{"name":"isVip","condition":"total > 1000000"}]`)

	renderer := &fakeRenderer{buffer: []byte("pdf")}
	executor := &fakeExecutor{rows: []map[string]interface{}{{"total": 2000000}}}
	g := newTestGenerator(&fakeResolver{tmpl: tmpl}, executor, renderer, &fakeStore{})

	_, err := g.Generate(context.Background(), GenerationRequest{TemplateID: "tpl-1"})
	require.NoError(t, err)
	assert.Contains(t, renderer.gotHTML, "VIP")
}

func TestGenerate_NoBoundProcedureNeverInvokesConnector(t *testing.T) {
	tmpl := boundTemplate("<html></html>")
	tmpl.Procedure = nil

	executor := &fakeExecutor{}
	g := newTestGenerator(&fakeResolver{tmpl: tmpl}, executor, &fakeRenderer{}, &fakeStore{})

	_, err := g.Generate(context.Background(), GenerationRequest{TemplateID: "tpl-1"})
	require.Error(t, err)

	reportErr, ok := AsReportError(err)
	require.True(t, ok)
	assert.Equal(t, CategoryTemplate, reportErr.Category)
	assert.Equal(t, CodeTemplateInvalidFormat, reportErr.Code)
	assert.Equal(t, 0, executor.calls)
}

func TestGenerate_TemplateNotFoundPassesThrough(t *testing.T) {
	resolver := &fakeResolver{err: templateError(CodeTemplateNotFound, "template tpl-x not found")}
	g := newTestGenerator(resolver, &fakeExecutor{}, &fakeRenderer{}, &fakeStore{})

	_, err := g.Generate(context.Background(), GenerationRequest{TemplateID: "tpl-x"})
	require.Error(t, err)

	reportErr, ok := AsReportError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTemplateNotFound, reportErr.Code)
}

func TestGenerate_ProcedureErrorPassesThroughVerbatim(t *testing.T) {
	execErr := procedureError(CodeProcedureExecution, "routine thongke_doanhthu failed", errors.New("relation does not exist"))
	g := newTestGenerator(&fakeResolver{tmpl: boundTemplate("x")}, &fakeExecutor{err: execErr}, &fakeRenderer{}, &fakeStore{})

	_, err := g.Generate(context.Background(), GenerationRequest{TemplateID: "tpl-1"})
	require.Error(t, err)

	reportErr, ok := AsReportError(err)
	require.True(t, ok)
	assert.Same(t, execErr, reportErr)
	assert.Contains(t, reportErr.Details, "relation does not exist")
}

func TestGenerate_CompileFailureIsGenerationError(t *testing.T) {
	tmpl := boundTemplate("{{#if}}")
	g := newTestGenerator(&fakeResolver{tmpl: tmpl}, &fakeExecutor{}, &fakeRenderer{}, &fakeStore{})

	_, err := g.Generate(context.Background(), GenerationRequest{TemplateID: "tpl-1"})
	require.Error(t, err)

	reportErr, ok := AsReportError(err)
	require.True(t, ok)
	assert.Equal(t, CategoryGeneration, reportErr.Category)
	assert.Equal(t, CodeGenerationCompile, reportErr.Code)
}

func TestGenerate_StoreFailureIsFileSystemError(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	g := newTestGenerator(&fakeResolver{tmpl: boundTemplate("x")}, &fakeExecutor{}, &fakeRenderer{buffer: []byte("pdf")}, store)

	_, err := g.Generate(context.Background(), GenerationRequest{TemplateID: "tpl-1"})
	require.Error(t, err)

	reportErr, ok := AsReportError(err)
	require.True(t, ok)
	assert.Equal(t, CodeGenerationFileSystem, reportErr.Code)
}

func TestGenerate_UnexpectedErrorIsWrapped(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("connection reset")}
	g := newTestGenerator(resolver, &fakeExecutor{}, &fakeRenderer{}, &fakeStore{})

	_, err := g.Generate(context.Background(), GenerationRequest{TemplateID: "tpl-1"})
	require.Error(t, err)

	reportErr, ok := AsReportError(err)
	require.True(t, ok)
	assert.Equal(t, CodeGenerationUnexpected, reportErr.Code)
}

func TestPreview_ReturnsAssembledHTML(t *testing.T) {
	tmpl := boundTemplate("<html><head></head><body>{{metadata.template_name}}</body></html>")
	tmpl.CSS = "body{margin:0}"
	tmpl.JS = "console.log(1)"

	g := newTestGenerator(&fakeResolver{tmpl: tmpl}, &fakeExecutor{}, &fakeRenderer{}, &fakeStore{})

	html, err := g.Preview(context.Background(), GenerationRequest{TemplateID: "tpl-1"})
	require.NoError(t, err)

	assert.Contains(t, html, "Báo Cáo Doanh Thu")
	assert.Contains(t, html, "<style>body{margin:0}</style></head>")
	assert.Contains(t, html, "<script>console.log(1)</script></body>")
}

func TestPreview_CompileErrorDegradesToInlinePanel(t *testing.T) {
	tmpl := boundTemplate("{{#each}}")
	g := newTestGenerator(&fakeResolver{tmpl: tmpl}, &fakeExecutor{}, &fakeRenderer{}, &fakeStore{})

	html, err := g.Preview(context.Background(), GenerationRequest{TemplateID: "tpl-1"})
	require.NoError(t, err)
	assert.Contains(t, html, "Lỗi biên dịch mẫu")
}

func TestPreview_TypedErrorsStayStructured(t *testing.T) {
	resolver := &fakeResolver{err: templateError(CodeTemplateNotFound, "template tpl-x not found")}
	g := newTestGenerator(resolver, &fakeExecutor{}, &fakeRenderer{}, &fakeStore{})

	_, err := g.Preview(context.Background(), GenerationRequest{TemplateID: "tpl-x"})
	require.Error(t, err)

	reportErr, ok := AsReportError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTemplateNotFound, reportErr.Code)
}

func TestBuildContext_UserFallback(t *testing.T) {
	g := newTestGenerator(&fakeResolver{}, &fakeExecutor{}, &fakeRenderer{}, &fakeStore{})
	tmpl := boundTemplate("x")

	ctx := g.buildContext(tmpl, nil, GenerationRequest{})
	metadata := ctx["metadata"].(map[string]interface{})
	assert.Equal(t, defaultUserLabel, metadata["generated_by"])
	assert.Equal(t, 0, metadata["row_count"])

	ctx = g.buildContext(tmpl, nil, GenerationRequest{UserName: "Nguyễn Văn A"})
	metadata = ctx["metadata"].(map[string]interface{})
	assert.Equal(t, "Nguyễn Văn A", metadata["generated_by"])
}

func TestInjectAssets(t *testing.T) {
	base := "<html><head></head><body>x</body></html>"

	t.Run("empty inputs leave html unchanged", func(t *testing.T) {
		assert.Equal(t, base, InjectAssets(base, "", ""))
	})

	t.Run("css before closing head", func(t *testing.T) {
		got := InjectAssets(base, "p{}", "")
		assert.Contains(t, got, "<style>p{}</style></head>")
	})

	t.Run("js before closing body", func(t *testing.T) {
		got := InjectAssets(base, "", "alert(1)")
		assert.Contains(t, got, "<script>alert(1)</script></body>")
	})

	t.Run("no head prepends style", func(t *testing.T) {
		got := InjectAssets("<p>x</p>", "p{}", "")
		assert.True(t, strings.HasPrefix(got, "<style>p{}</style>"))
	})

	t.Run("no body appends script", func(t *testing.T) {
		got := InjectAssets("<p>x</p>", "", "alert(1)")
		assert.True(t, strings.HasSuffix(got, "<script>alert(1)</script>"))
	})
}
