package repository

import "errors"

var (
	// ErrReportNotFound is returned when no report has the requested id.
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidReport is returned when a report cannot be stored.
	ErrInvalidReport = errors.New("invalid report")
)
