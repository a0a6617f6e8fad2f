package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/thread-dump-analysis/internal/mcp"
	apperrors "github.com/thread-dump-analysis/pkg/errors"
)

type toolDefinitions struct {
	Tools []mcp.Definition `json:"tools"`
}

// rpcRequest is the subset of a JSON-RPC MCP request the server understands.
type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcContent struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	MimeType string `json:"mimeType,omitempty"`
}

type rpcResult struct {
	Content []rpcContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

func (s *Server) tools(w http.ResponseWriter) (*mcp.Registry, bool) {
	if s.deps.Tools == nil {
		s.writeError(w, fmt.Errorf("MCP tools: %w", errUnavailable))
		return nil, false
	}
	return s.deps.Tools, true
}

// readArguments decodes a JSON object body, keeping numbers exact.
func (s *Server) readArguments(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeInvalidInput, "failed to read request body", err))
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeInvalidInput, "request body must be a JSON object", err))
		return false
	}
	return true
}

func (s *Server) handleToolDefinitions(w http.ResponseWriter, r *http.Request) {
	tools, ok := s.tools(w)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, toolDefinitions{Tools: tools.Definitions()})
}

func (s *Server) handleMCPAnalyze(w http.ResponseWriter, r *http.Request) {
	tools, ok := s.tools(w)
	if !ok {
		return
	}
	s.logger.Info("MCP endpoint: Analyzing thread dump")

	var args map[string]any
	if !s.readArguments(w, r, &args) {
		return
	}
	res, err := tools.Call(r.Context(), mcp.ToolAnalyzeThreadDump, args)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType())
	if res.ReportID != "" {
		w.Header().Set("X-Report-ID", res.ReportID)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Text)
}

// handleMCP serves tools/list and tools/call. Tool failures are reported in
// the result with isError set, not as HTTP errors.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	tools, ok := s.tools(w)
	if !ok {
		return
	}

	var req rpcRequest
	if !s.readArguments(w, r, &req) {
		return
	}

	switch req.Method {
	case mcp.MethodToolsList:
		s.writeJSON(w, http.StatusOK, toolDefinitions{Tools: tools.Definitions()})
	case mcp.MethodToolsCall:
		if tools.Get(req.Params.Name) == nil {
			s.writeError(w, apperrors.Newf(apperrors.CodeNotFound, "tool not found: %s", req.Params.Name))
			return
		}
		res, err := tools.Call(r.Context(), req.Params.Name, req.Params.Arguments)
		if err != nil {
			s.writeJSON(w, http.StatusOK, rpcResult{
				Content: []rpcContent{{Type: "text", Text: apperrors.GetErrorMessage(err)}},
				IsError: true,
			})
			return
		}
		s.writeJSON(w, http.StatusOK, rpcResult{
			Content: []rpcContent{{Type: "text", Text: res.Text, MimeType: res.ContentType()}},
		})
	default:
		s.writeError(w, apperrors.Newf(apperrors.CodeInvalidInput, "unsupported method: %s", req.Method))
	}
}
