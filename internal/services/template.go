package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nhatro-app/report-service/internal/models"
)

// TemplateInput is the designer-facing shape for creating or updating a
// report template.
type TemplateInput struct {
	Name         string                   `json:"name" binding:"required"`
	Content      string                   `json:"content" binding:"required"`
	CSS          string                   `json:"css"`
	JS           string                   `json:"js"`
	Orientation  string                   `json:"orientation"`
	ProcedureID  string                   `json:"procedure_id" binding:"required"`
	Placeholders []models.ConditionalRule `json:"placeholders"`
}

// DiscoveredVariable is one column found by sampling the bound routine.
type DiscoveredVariable struct {
	Name      string           `json:"name"`
	Type      models.FieldType `json:"type"`
	Sample    interface{}      `json:"sample"`
	Formatted string           `json:"formatted"`
}

type TemplateService struct {
	db        *gorm.DB
	connector *Connector
	variables *VariableManager
}

func NewTemplateService(db *gorm.DB, connector *Connector, variables *VariableManager) *TemplateService {
	return &TemplateService{
		db:        db,
		connector: connector,
		variables: variables,
	}
}

func (s *TemplateService) Create(ctx context.Context, input TemplateInput) (*models.ReportTemplate, error) {
	if err := s.validate(ctx, &input); err != nil {
		return nil, err
	}

	placeholdersJSON, err := json.Marshal(input.Placeholders)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conditional variables: %w", err)
	}

	template := &models.ReportTemplate{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Content:      input.Content,
		CSS:          input.CSS,
		JS:           input.JS,
		Orientation:  input.Orientation,
		ProcedureID:  input.ProcedureID,
		Placeholders: placeholdersJSON,
	}

	if err := s.db.WithContext(ctx).Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	return template, nil
}

func (s *TemplateService) Update(ctx context.Context, templateID string, input TemplateInput) (*models.ReportTemplate, error) {
	template, err := s.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if err := s.validate(ctx, &input); err != nil {
		return nil, err
	}

	placeholdersJSON, err := json.Marshal(input.Placeholders)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conditional variables: %w", err)
	}

	template.Name = input.Name
	template.Content = input.Content
	template.CSS = input.CSS
	template.JS = input.JS
	template.Orientation = input.Orientation
	if template.ProcedureID != input.ProcedureID {
		// Rebinding invalidates the cached column types.
		template.ProcedureID = input.ProcedureID
		template.FieldTypes = nil
	}
	template.Placeholders = placeholdersJSON

	if err := s.db.WithContext(ctx).Save(template).Error; err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}

	return template, nil
}

func (s *TemplateService) Get(ctx context.Context, templateID string) (*models.ReportTemplate, error) {
	var template models.ReportTemplate
	err := s.db.WithContext(ctx).First(&template, "id = ?", templateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, templateError(CodeTemplateNotFound, fmt.Sprintf("template %s not found", templateID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	return &template, nil
}

func (s *TemplateService) List(ctx context.Context) ([]models.ReportTemplate, error) {
	var templates []models.ReportTemplate
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (s *TemplateService) Delete(ctx context.Context, templateID string) error {
	template, err := s.Get(ctx, templateID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(template).Error
}

// ResolveForGeneration loads a template with its bound procedure for one
// generation pass. The generator treats a missing bound procedure as a
// template-format failure before any routine is invoked.
func (s *TemplateService) ResolveForGeneration(ctx context.Context, templateID string) (*models.ReportTemplate, error) {
	var template models.ReportTemplate
	err := s.db.WithContext(ctx).Preload("Procedure").First(&template, "id = ?", templateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, templateError(CodeTemplateNotFound, fmt.Sprintf("template %s not found", templateID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	return &template, nil
}

// DiscoverVariables samples the bound routine once, infers a semantic type
// per column and caches the result on the template row. Inference is
// single-sample and heuristic; the designer surfaces it as a suggestion.
func (s *TemplateService) DiscoverVariables(ctx context.Context, templateID string) ([]DiscoveredVariable, error) {
	template, err := s.ResolveForGeneration(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if template.Procedure == nil {
		return nil, templateError(CodeTemplateInvalidFormat, "template has no bound procedure")
	}

	sample, err := s.connector.SampleRow(ctx, template.Procedure)
	if err != nil {
		return nil, err
	}
	if sample == nil {
		return []DiscoveredVariable{}, nil
	}

	types := s.variables.InferTypes(sample)

	if typesJSON, err := json.Marshal(types); err == nil {
		s.db.WithContext(ctx).Model(template).Update("field_types", typesJSON)
	}

	discovered := make([]DiscoveredVariable, 0, len(sample))
	for name, value := range sample {
		discovered = append(discovered, DiscoveredVariable{
			Name:      name,
			Type:      types[name],
			Sample:    value,
			Formatted: s.variables.FormatValue(value, types[name]),
		})
	}
	return discovered, nil
}

func (s *TemplateService) validate(ctx context.Context, input *TemplateInput) error {
	switch input.Orientation {
	case "":
		input.Orientation = models.OrientationPortrait
	case models.OrientationPortrait, models.OrientationLandscape:
	default:
		return templateError(CodeTemplateInvalidFormat,
			fmt.Sprintf("orientation must be portrait or landscape, got %q", input.Orientation))
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Procedure{}).
		Where("id = ?", input.ProcedureID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check bound procedure: %w", err)
	}
	if count == 0 {
		return templateError(CodeTemplateInvalidFormat,
			fmt.Sprintf("bound procedure %s does not exist", input.ProcedureID))
	}

	return nil
}
