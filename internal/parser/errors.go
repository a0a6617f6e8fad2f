package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned when structured input cannot be decoded.
	ErrInvalidFormat = errors.New("invalid input format")

	// ErrUnsupportedFormat is returned when no parser handles the format.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// UnsupportedFormatError names the format no parser was registered for.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("no parser registered for format %q", e.Format)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}
