// Package formatter renders diagnostic reports in the supported output formats.
package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thread-dump-analysis/pkg/model"
)

// ReportFormat is an output format for reports.
type ReportFormat string

const (
	FormatJSON  ReportFormat = "JSON"
	FormatXML   ReportFormat = "XML"
	FormatText  ReportFormat = "TEXT"
	FormatYAML  ReportFormat = "YAML"
	FormatSARIF ReportFormat = "SARIF"
)

type formatInfo struct {
	contentType string
	extension   string
}

var formatTable = map[ReportFormat]formatInfo{
	FormatJSON:  {"application/json", ".json"},
	FormatXML:   {"application/xml", ".xml"},
	FormatText:  {"text/plain", ".txt"},
	FormatYAML:  {"application/yaml", ".yaml"},
	FormatSARIF: {"application/sarif+json", ".sarif"},
}

// AllFormats returns every format in declaration order.
func AllFormats() []ReportFormat {
	return []ReportFormat{FormatJSON, FormatXML, FormatText, FormatYAML, FormatSARIF}
}

// String returns the format name.
func (f ReportFormat) String() string {
	return string(f)
}

// ContentType returns the MIME type of the format.
func (f ReportFormat) ContentType() string {
	return formatTable[f].contentType
}

// FileExtension returns the file suffix, including the dot.
func (f ReportFormat) FileExtension() string {
	return formatTable[f].extension
}

// ParseFormat parses a format name case-insensitively.
func ParseFormat(name string) (ReportFormat, error) {
	f := ReportFormat(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := formatTable[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return f, nil
}

// ReportFormatter renders a report in one format.
type ReportFormatter interface {
	// Format renders the report.
	Format(report *model.Report) ([]byte, error)

	// ReportFormat returns the format this formatter produces.
	ReportFormat() ReportFormat
}

// Registry manages formatter instances keyed by format.
type Registry struct {
	formatters map[ReportFormat]ReportFormatter
}

// NewRegistry creates a new formatter registry with default formatters.
func NewRegistry() *Registry {
	r := &Registry{
		formatters: make(map[ReportFormat]ReportFormatter),
	}

	r.Register(&JSONFormatter{})
	r.Register(&XMLFormatter{})
	r.Register(&TextFormatter{})
	r.Register(&YAMLFormatter{})
	r.Register(NewSARIFFormatter())

	return r
}

// Register registers a formatter, replacing any previous one for its format.
func (r *Registry) Register(f ReportFormatter) {
	r.formatters[f.ReportFormat()] = f
}

// Get returns the formatter for a format.
func (r *Registry) Get(format ReportFormat) (ReportFormatter, error) {
	f, ok := r.formatters[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return f, nil
}

// Format renders report in format.
func (r *Registry) Format(report *model.Report, format ReportFormat) ([]byte, error) {
	if report == nil {
		return nil, ErrNilReport
	}
	f, err := r.Get(format)
	if err != nil {
		return nil, err
	}
	return f.Format(report)
}

// Formats returns the registered formats in declaration order.
func (r *Registry) Formats() []ReportFormat {
	formats := make([]ReportFormat, 0, len(r.formatters))
	for f := range r.formatters {
		formats = append(formats, f)
	}
	order := make(map[ReportFormat]int)
	for i, f := range AllFormats() {
		order[f] = i
	}
	sort.Slice(formats, func(i, j int) bool {
		oi, iok := order[formats[i]]
		oj, jok := order[formats[j]]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return formats[i] < formats[j]
	})
	return formats
}
