package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/thread-dump-analysis/internal/analyzer"
	"github.com/thread-dump-analysis/internal/formatter"
	"github.com/thread-dump-analysis/internal/mcp"
	"github.com/thread-dump-analysis/internal/repository"
	"github.com/thread-dump-analysis/pkg/compression"
	apperrors "github.com/thread-dump-analysis/pkg/errors"
	"github.com/thread-dump-analysis/pkg/model"
)

const (
	textInputSource    = "text-input"
	uploadedFileSource = "uploaded-file"
	defaultListLimit   = 50
)

var errUnavailable = errors.New("not configured on this server")

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type exportResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	format, ok := s.format(w, r)
	if !ok {
		return
	}
	s.logger.Info("Analyzing thread dump from text input, format: %s", format)

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeInvalidInput, "failed to read request body", err))
		return
	}
	if data, err = s.inflate(data); err != nil {
		s.writeError(w, err)
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.writeError(w, apperrors.Wrap(apperrors.CodeInvalidInput, "Thread dump content cannot be empty", analyzer.ErrEmptyData))
		return
	}

	report := s.deps.Analyzer.AnalyzeBytes(r.Context(), data, textInputSource)
	if !s.save(w, r, report) {
		return
	}
	s.writeReport(w, report, format, false)
}

func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	format, ok := s.format(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeInvalidInput, "multipart field \"file\" is required", err))
		return
	}
	defer file.Close()

	filename := header.Filename
	if filename == "" {
		filename = uploadedFileSource
	}
	s.logger.Info("Analyzing thread dump from file: %s, format: %s", filename, format)

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeInvalidInput, "failed to read uploaded file", err))
		return
	}
	if data, err = s.inflate(data); err != nil {
		s.writeError(w, err)
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.writeError(w, apperrors.Wrap(apperrors.CodeInvalidInput, "File cannot be empty", analyzer.ErrEmptyData))
		return
	}

	report := s.deps.Analyzer.AnalyzeBytes(r.Context(), data, filename)
	if !s.save(w, r, report) {
		return
	}
	s.writeReport(w, report, format, true)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Formatters.Formats())
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, apperrors.Newf(apperrors.CodeInvalidInput, "invalid limit: %q", raw))
			return
		}
		limit = n
	}

	summaries, err := s.deps.Store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeStoreError, "failed to list reports", err))
		return
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	format, ok := s.format(w, r)
	if !ok {
		return
	}
	report, err := s.deps.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeReport(w, report, format, false)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exporter == nil {
		s.writeError(w, fmt.Errorf("report export: %w", errUnavailable))
		return
	}
	format, ok := s.format(w, r)
	if !ok {
		return
	}
	report, err := s.deps.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	key, url, err := s.deps.Exporter.Export(r.Context(), report, format)
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeStorageError, "failed to export report", err))
		return
	}
	s.logger.Info("Exported report %s to %s", report.ID, url)
	s.writeJSON(w, http.StatusOK, exportResponse{Key: key, URL: url})
}

func (s *Server) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	if s.deps.Processes == nil {
		s.writeError(w, fmt.Errorf("process discovery: %w", errUnavailable))
		return
	}
	processes, err := s.deps.Processes.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, processes)
}

func (s *Server) handleDumpProcess(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dumps == nil {
		s.writeError(w, fmt.Errorf("thread dump generation: %w", errUnavailable))
		return
	}
	pid, err := strconv.ParseInt(r.PathValue("pid"), 10, 64)
	if err != nil || pid <= 0 {
		s.writeError(w, apperrors.Newf(apperrors.CodeInvalidInput, "invalid pid: %q", r.PathValue("pid")))
		return
	}

	analyze, _ := strconv.ParseBool(r.URL.Query().Get("analyze"))
	format, ok := s.format(w, r)
	if !ok {
		return
	}

	dump, err := s.deps.Dumps.Generate(r.Context(), pid)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if !analyze {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, dump)
		return
	}

	report := s.deps.Analyzer.AnalyzeBytes(r.Context(), []byte(dump), "pid-"+strconv.FormatInt(pid, 10))
	if !s.save(w, r, report) {
		return
	}
	s.writeReport(w, report, format, false)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health(r.Context()); err != nil {
			s.logger.Warn("Health check failed: %v", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseFormat reads ?format=, falling back to the server default.
func (s *Server) parseFormat(r *http.Request) (formatter.ReportFormat, error) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		return s.defaultFormat, nil
	}
	format, err := formatter.ParseFormat(raw)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnsupportedFormat, "Unsupported format: "+raw, err)
	}
	return format, nil
}

func (s *Server) format(w http.ResponseWriter, r *http.Request) (formatter.ReportFormat, bool) {
	format, err := s.parseFormat(r)
	if err != nil {
		s.writeError(w, err)
		return "", false
	}
	return format, true
}

// inflate decompresses gzip or zstd uploads under the upload limit. Corrupt
// archives pass through unchanged so the analyzer reports them.
func (s *Server) inflate(data []byte) ([]byte, error) {
	out, err := compression.DecodeLimit(data, s.maxUploadBytes)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, compression.ErrSizeLimitExceeded):
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("Decompressed thread dump exceeds %d bytes", s.maxUploadBytes), err)
	default:
		return data, nil
	}
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, report *model.Report) bool {
	if err := s.deps.Store.Save(r.Context(), report); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeStoreError, "failed to save report", err))
		return false
	}
	return true
}

func (s *Server) writeReport(w http.ResponseWriter, report *model.Report, format formatter.ReportFormat, attachment bool) {
	body, err := s.deps.Formatters.Format(report, format)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("X-Report-ID", report.ID)
	if attachment {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=\"report_%s%s\"", report.ID, format.FileExtension()))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed: %v", err)
	} else {
		s.logger.Debug("Request rejected: %v", err)
	}

	code := apperrors.GetErrorCode(err)
	message := apperrors.GetErrorMessage(err)
	switch {
	case errors.Is(err, repository.ErrReportNotFound):
		code, message = apperrors.CodeNotFound, err.Error()
	case errors.Is(err, formatter.ErrUnsupportedFormat) && code == apperrors.CodeUnknown:
		code, message = apperrors.CodeUnsupportedFormat, err.Error()
	}
	s.writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// statusFor maps error codes and sentinels to HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, compression.ErrSizeLimitExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, repository.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, formatter.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, errUnavailable), errors.Is(err, mcp.ErrDumpUnavailable):
		return http.StatusServiceUnavailable
	}

	switch apperrors.GetErrorCode(err) {
	case apperrors.CodeInvalidInput, apperrors.CodeUnsupportedFormat:
		return http.StatusBadRequest
	case apperrors.CodeNotFound, apperrors.CodeProcessNotFound:
		return http.StatusNotFound
	case apperrors.CodeDumpToolError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
