// Package parser defines the record source interface and the registry that
// picks a source for a given dump.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"

	"github.com/thread-dump-analysis/pkg/model"
)

// Format names of the built-in record sources.
const (
	FormatJstack   = "jstack"
	FormatActuator = "actuator"
)

// Parser turns raw dump content into thread records.
type Parser interface {
	// Parse reads the whole dump from reader and returns its records in input order.
	Parse(ctx context.Context, reader io.Reader) ([]model.ThreadRecord, error)

	// SupportedFormats returns the formats supported by this parser.
	SupportedFormats() []string

	// Name returns the name of this parser.
	Name() string
}

// Registry holds parsers keyed by format name. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register registers p under every format it supports.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, format := range p.SupportedFormats() {
		r.parsers[format] = p
	}
}

// Get returns the parser for format.
func (r *Registry) Get(format string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[format]
	return p, ok
}

// Formats lists the registered format names in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// ForContent returns the parser matching Detect(data).
func (r *Registry) ForContent(data []byte) (Parser, error) {
	format := Detect(data)
	if p, ok := r.Get(format); ok {
		return p, nil
	}
	return nil, &UnsupportedFormatError{Format: format}
}

// Detect guesses the dump format: a JSON object carrying a "threads" array is an
// actuator dump, everything else is treated as jstack text.
func Detect(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return FormatJstack
	}
	var doc struct {
		Threads json.RawMessage `json:"threads"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return FormatJstack
	}
	if len(doc.Threads) > 0 && doc.Threads[0] == '[' {
		return FormatActuator
	}
	return FormatJstack
}
