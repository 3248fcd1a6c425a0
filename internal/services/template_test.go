package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nhatro-app/report-service/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Procedure{},
		&models.ReportTemplate{},
		&models.GeneratedReport{},
	))
	return db
}

func seedProcedure(t *testing.T, db *gorm.DB) *models.Procedure {
	t.Helper()

	proc := &models.Procedure{
		ID:         uuid.New().String(),
		Name:       "thongke_doanhthu",
		Kind:       models.RoutineKindFunction,
		Parameters: []byte(`[{"name":"p_month","type":"integer"}]`),
	}
	require.NoError(t, db.Create(proc).Error)
	return proc
}

func newTestTemplateService(db *gorm.DB) *TemplateService {
	return NewTemplateService(db, NewConnector(db), NewVariableManager())
}

func TestTemplateService_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	proc := seedProcedure(t, db)
	svc := newTestTemplateService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, TemplateInput{
		Name:        "Báo Cáo Doanh Thu",
		Content:     "<html>{{ten_phong}}</html>",
		ProcedureID: proc.ID,
		Placeholders: []models.ConditionalRule{
			{Name: "isVip", Condition: "total > 1000000"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrientationPortrait, created.Orientation)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Báo Cáo Doanh Thu", got.Name)

	rules, err := got.ConditionalRules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "isVip", rules[0].Name)
}

func TestTemplateService_CreateRejectsUnknownProcedure(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTemplateService(db)

	_, err := svc.Create(context.Background(), TemplateInput{
		Name:        "x",
		Content:     "x",
		ProcedureID: "does-not-exist",
	})
	require.Error(t, err)

	reportErr, ok := AsReportError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTemplateInvalidFormat, reportErr.Code)
}

func TestTemplateService_CreateRejectsBadOrientation(t *testing.T) {
	db := newTestDB(t)
	proc := seedProcedure(t, db)
	svc := newTestTemplateService(db)

	_, err := svc.Create(context.Background(), TemplateInput{
		Name:        "x",
		Content:     "x",
		Orientation: "diagonal",
		ProcedureID: proc.ID,
	})
	require.Error(t, err)

	reportErr, ok := AsReportError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTemplateInvalidFormat, reportErr.Code)
}

func TestTemplateService_GetNotFoundIsTyped(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTemplateService(db)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)

	reportErr, ok := AsReportError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTemplateNotFound, reportErr.Code)
	assert.Equal(t, CategoryTemplate, reportErr.Category)
}

func TestTemplateService_ResolvePreloadsProcedure(t *testing.T) {
	db := newTestDB(t)
	proc := seedProcedure(t, db)
	svc := newTestTemplateService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, TemplateInput{
		Name:        "x",
		Content:     "x",
		ProcedureID: proc.ID,
	})
	require.NoError(t, err)

	resolved, err := svc.ResolveForGeneration(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved.Procedure)
	assert.Equal(t, "thongke_doanhthu", resolved.Procedure.Name)
}

func TestTemplateService_UpdateRebindClearsCachedTypes(t *testing.T) {
	db := newTestDB(t)
	proc := seedProcedure(t, db)
	other := &models.Procedure{
		ID:   uuid.New().String(),
		Name: "thongke_congno",
		Kind: models.RoutineKindFunction,
	}
	require.NoError(t, db.Create(other).Error)

	svc := newTestTemplateService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, TemplateInput{
		Name:        "x",
		Content:     "x",
		ProcedureID: proc.ID,
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(created).Update("field_types", []byte(`{"total":"currency"}`)).Error)

	updated, err := svc.Update(ctx, created.ID, TemplateInput{
		Name:        "x",
		Content:     "x",
		ProcedureID: other.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, updated.FieldTypes)
}

func TestHistoryService_RecordAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewHistoryService(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, &models.GeneratedReport{
			ID:         uuid.New().String(),
			TemplateID: "tpl-1",
			FileName:   "Report_x.pdf",
			FileURL:    "/reports/Report_x.pdf",
		}))
	}
	require.NoError(t, svc.Record(ctx, &models.GeneratedReport{
		ID:         uuid.New().String(),
		TemplateID: "tpl-2",
		FileName:   "Report_y.pdf",
		FileURL:    "/reports/Report_y.pdf",
	}))

	all, total, err := svc.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	filtered, total, err := svc.List(ctx, "tpl-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, filtered, 3)

	paged, _, err := svc.List(ctx, "", 2, 0)
	require.NoError(t, err)
	assert.Len(t, paged, 2)
}
