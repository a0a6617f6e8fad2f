package analyzer

import "errors"

var (
	// ErrEmptyData is returned when the input holds no bytes at all.
	ErrEmptyData = errors.New("thread dump is empty")

	// ErrAnalysisFailed wraps a recovered pipeline fault.
	ErrAnalysisFailed = errors.New("analysis failed")
)
