package formatter

import "errors"

var (
	// ErrUnsupportedFormat is returned for unknown or unregistered formats.
	ErrUnsupportedFormat = errors.New("unsupported report format")

	// ErrNilReport is returned when there is nothing to format.
	ErrNilReport = errors.New("report is nil")
)
