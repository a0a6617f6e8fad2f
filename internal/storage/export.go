package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/thread-dump-analysis/internal/formatter"
	"github.com/thread-dump-analysis/pkg/compression"
	"github.com/thread-dump-analysis/pkg/model"
)

// ReportKey returns the key of a formatted report relative to the export
// prefix: <id>/report<ext>.
func ReportKey(reportID string, format formatter.ReportFormat, ct compression.Type) string {
	return path.Join(reportID, "report"+format.FileExtension()+ct.Extension())
}

// ArtifactContentType guesses the MIME type of an exported report from its
// key. Compressed artifacts are typed by their compression.
func ArtifactContentType(key string) string {
	switch {
	case strings.HasSuffix(key, compression.TypeGzip.Extension()):
		return "application/gzip"
	case strings.HasSuffix(key, compression.TypeZstd.Extension()):
		return "application/zstd"
	}
	for _, f := range formatter.AllFormats() {
		if strings.HasSuffix(key, f.FileExtension()) {
			return f.ContentType()
		}
	}
	return "application/octet-stream"
}

// cleanPrefix normalizes a key prefix, dropping surrounding slashes. Prefixes
// that climb out of the key space are rejected.
func cleanPrefix(prefix string) (string, error) {
	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return "", nil
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == ".." || seg == "." {
			return "", fmt.Errorf("invalid report key prefix: %q", prefix)
		}
	}
	return path.Clean(trimmed), nil
}

// Exporter renders reports and writes them to a Storage backend.
type Exporter struct {
	storage     Storage
	formatters  *formatter.Registry
	compression compression.Type
	prefix      string
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithKeyPrefix files every exported report under prefix. Invalid prefixes
// are ignored; ValidateConfig reports them at startup.
func WithKeyPrefix(prefix string) ExporterOption {
	return func(e *Exporter) {
		if p, err := cleanPrefix(prefix); err == nil {
			e.prefix = p
		}
	}
}

// NewExporter creates an exporter. A nil registry uses the default formatters.
func NewExporter(s Storage, formatters *formatter.Registry, ct compression.Type, opts ...ExporterOption) *Exporter {
	if formatters == nil {
		formatters = formatter.NewRegistry()
	}
	e := &Exporter{storage: s, formatters: formatters, compression: ct}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key is the full storage key the exporter uses for a report in format.
func (e *Exporter) Key(reportID string, format formatter.ReportFormat) string {
	key := ReportKey(reportID, format, e.compression)
	if e.prefix == "" {
		return key
	}
	return e.prefix + "/" + key
}

// Export formats report and uploads it. It returns the key and the backend URL.
func (e *Exporter) Export(ctx context.Context, report *model.Report, format formatter.ReportFormat) (string, string, error) {
	if report == nil {
		return "", "", formatter.ErrNilReport
	}
	if report.ID == "" {
		return "", "", fmt.Errorf("report has no id")
	}

	data, err := e.formatters.Format(report, format)
	if err != nil {
		return "", "", err
	}
	data, err = compression.Encode(e.compression, data)
	if err != nil {
		return "", "", fmt.Errorf("failed to compress report %s: %w", report.ID, err)
	}

	key := e.Key(report.ID, format)
	if err := e.storage.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return "", "", fmt.Errorf("failed to export report %s: %w", report.ID, err)
	}
	return key, e.storage.GetURL(key), nil
}

// ExportReport writes report to s uncompressed and unprefixed with the
// default formatters.
func ExportReport(ctx context.Context, s Storage, report *model.Report, format formatter.ReportFormat) (string, error) {
	key, _, err := NewExporter(s, nil, compression.TypeNone).Export(ctx, report, format)
	return key, err
}
