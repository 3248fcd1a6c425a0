package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nhatro-app/report-service/internal/models"
)

// ProcedureService reads the routine registry. Rows are created and edited
// by admin tooling; this service is the trusted source of routine names for
// the connector.
type ProcedureService struct {
	db *gorm.DB
}

func NewProcedureService(db *gorm.DB) *ProcedureService {
	return &ProcedureService{db: db}
}

func (s *ProcedureService) List(ctx context.Context) ([]models.Procedure, error) {
	var procedures []models.Procedure
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&procedures).Error; err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	return procedures, nil
}

func (s *ProcedureService) Get(ctx context.Context, procedureID string) (*models.Procedure, error) {
	var procedure models.Procedure
	err := s.db.WithContext(ctx).First(&procedure, "id = ?", procedureID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, procedureError(CodeProcedureNotFound,
			fmt.Sprintf("procedure %s not found", procedureID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load procedure: %w", err)
	}
	return &procedure, nil
}

func (s *ProcedureService) GetByName(ctx context.Context, name string) (*models.Procedure, error) {
	var procedure models.Procedure
	err := s.db.WithContext(ctx).First(&procedure, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, procedureError(CodeProcedureNotFound,
			fmt.Sprintf("procedure %q not found", name), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load procedure: %w", err)
	}
	return &procedure, nil
}
