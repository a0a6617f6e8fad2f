package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thread-dump-analysis/pkg/model"
)

// GormReportStore implements ReportStore using GORM.
type GormReportStore struct {
	db         *gorm.DB
	maxReports int
}

// NewGormReportStore creates the store and migrates the reports table.
// maxReports <= 0 means unbounded.
func NewGormReportStore(db *gorm.DB, maxReports int) (*GormReportStore, error) {
	if err := db.AutoMigrate(&ReportRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate reports table: %w", err)
	}
	return &GormReportStore{db: db, maxReports: maxReports}, nil
}

// Save implements ReportStore.
func (s *GormReportStore) Save(ctx context.Context, report *model.Report) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidReport)
	}
	rec, err := NewReportRecord(report)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error; err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		return s.evict(tx)
	})
}

func (s *GormReportStore) evict(tx *gorm.DB) error {
	if s.maxReports <= 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&ReportRecord{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count reports: %w", err)
	}
	excess := int(count) - s.maxReports
	if excess <= 0 {
		return nil
	}

	var ids []string
	err := tx.Model(&ReportRecord{}).
		Order("created_at ASC").
		Order("id ASC").
		Limit(excess).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("failed to select reports to evict: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&ReportRecord{}).Error; err != nil {
		return fmt.Errorf("failed to evict reports: %w", err)
	}
	return nil
}

// Get implements ReportStore.
func (s *GormReportStore) Get(ctx context.Context, id string) (*model.Report, error) {
	var rec ReportRecord

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return rec.ToModel()
}

// List implements ReportStore.
func (s *GormReportStore) List(ctx context.Context, limit int) ([]model.ReportSummary, error) {
	var recs []ReportRecord

	query := s.db.WithContext(ctx).
		Omit("payload").
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	summaries := make([]model.ReportSummary, 0, len(recs))
	for i := range recs {
		summaries = append(summaries, recs[i].ToSummary())
	}
	return summaries, nil
}

// Delete implements ReportStore.
func (s *GormReportStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&ReportRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return nil
}

// Count implements ReportStore.
func (s *GormReportStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&ReportRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return int(count), nil
}

// Close closes the database connection.
func (s *GormReportStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck verifies the database connection is still alive.
func (s *GormReportStore) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
