package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/nhatro-app/report-service/internal/models"
)

// HistoryService keeps the bookkeeping rows for generated reports.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

func (s *HistoryService) Record(ctx context.Context, report *models.GeneratedReport) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to save generation record: %w", err)
	}
	return nil
}

func (s *HistoryService) List(ctx context.Context, templateID string, limit, offset int) ([]models.GeneratedReport, int64, error) {
	var reports []models.GeneratedReport
	var total int64

	query := s.db.WithContext(ctx).Model(&models.GeneratedReport{})
	if templateID != "" {
		query = query.Where("template_id = ?", templateID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count generation records: %w", err)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Order("created_at DESC").Find(&reports).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch generation records: %w", err)
	}

	return reports, total, nil
}
