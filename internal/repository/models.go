package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/thread-dump-analysis/pkg/model"
)

// ReportRecord represents the reports table.
type ReportRecord struct {
	ID           string             `gorm:"column:id;primaryKey;type:varchar(64)"`
	CreatedAt    time.Time          `gorm:"column:created_at;index"`
	Source       string             `gorm:"column:source;type:varchar(512)"`
	Status       model.ReportStatus `gorm:"column:status;type:varchar(16)"`
	Summary      string             `gorm:"column:summary;type:text"`
	FindingCount int                `gorm:"column:finding_count"`
	Payload      JSONField          `gorm:"column:payload;type:json"`
}

// TableName returns the table name for ReportRecord.
func (ReportRecord) TableName() string {
	return "reports"
}

// NewReportRecord converts a report to its row.
func NewReportRecord(r *model.Report) (*ReportRecord, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return &ReportRecord{
		ID:           r.ID,
		CreatedAt:    r.Timestamp.UTC(),
		Source:       r.Source,
		Status:       r.Status,
		Summary:      r.Summary,
		FindingCount: len(r.Findings),
		Payload:      payload,
	}, nil
}

// ToModel decodes the stored report. Finding details come back as raw maps.
func (r *ReportRecord) ToModel() (*model.Report, error) {
	var report model.Report
	if err := json.Unmarshal(r.Payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", r.ID, err)
	}
	return &report, nil
}

// ToSummary returns the listing entry without decoding the payload.
func (r *ReportRecord) ToSummary() model.ReportSummary {
	return model.ReportSummary{
		ID:           r.ID,
		Timestamp:    r.CreatedAt,
		Source:       r.Source,
		Status:       r.Status,
		Summary:      r.Summary,
		FindingCount: r.FindingCount,
	}
}

// JSONField is a custom type for JSON columns.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}
