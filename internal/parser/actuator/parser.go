// Package actuator reads Spring Boot actuator /threaddump JSON into thread records.
// Unlike jstack text, this source carries lock names and lock owners.
package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/thread-dump-analysis/internal/parser"
	"github.com/thread-dump-analysis/pkg/model"
)

// ThreadDump is the actuator threaddump document.
type ThreadDump struct {
	Threads []Thread `json:"threads"`
}

// Thread is one entry of the threads array.
type Thread struct {
	ThreadName    string       `json:"threadName"`
	ThreadID      int64        `json:"threadId"`
	ThreadState   string       `json:"threadState"`
	BlockedCount  int64        `json:"blockedCount"`
	WaitedCount   int64        `json:"waitedCount"`
	LockName      *string      `json:"lockName"`
	LockOwnerID   int64        `json:"lockOwnerId"`
	LockOwnerName *string      `json:"lockOwnerName"`
	Daemon        bool         `json:"daemon"`
	InNative      bool         `json:"inNative"`
	Suspended     bool         `json:"suspended"`
	Priority      int          `json:"priority"`
	StackTrace    []StackFrame `json:"stackTrace"`
}

// StackFrame mirrors java.lang.StackTraceElement.
type StackFrame struct {
	ClassName    string  `json:"className"`
	MethodName   string  `json:"methodName"`
	FileName     *string `json:"fileName"`
	LineNumber   *int    `json:"lineNumber"`
	NativeMethod bool    `json:"nativeMethod"`
}

// String renders the frame the way jstack prints it, including the "at " marker.
func (f StackFrame) String() string {
	var b strings.Builder
	b.WriteString("at ")
	b.WriteString(f.ClassName)
	b.WriteString(".")
	b.WriteString(f.MethodName)
	b.WriteString("(")
	switch {
	case f.NativeMethod:
		b.WriteString("Native Method")
	case f.FileName != nil && *f.FileName != "" && f.LineNumber != nil && *f.LineNumber >= 0:
		b.WriteString(*f.FileName)
		b.WriteString(":")
		b.WriteString(strconv.Itoa(*f.LineNumber))
	case f.FileName != nil && *f.FileName != "":
		b.WriteString(*f.FileName)
	default:
		b.WriteString("Unknown Source")
	}
	b.WriteString(")")
	return b.String()
}

// Parser implements parser.Parser for actuator JSON.
type Parser struct{}

var _ parser.Parser = (*Parser)(nil)

// NewParser creates a new actuator parser.
func NewParser() *Parser {
	return &Parser{}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "actuator"
}

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string {
	return []string{parser.FormatActuator, "json"}
}

// Parse decodes the document. Malformed JSON is an error wrapping parser.ErrInvalidFormat.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) ([]model.ThreadRecord, error) {
	var dump ThreadDump
	if err := json.NewDecoder(reader).Decode(&dump); err != nil {
		return nil, fmt.Errorf("%w: actuator thread dump: %v", parser.ErrInvalidFormat, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dump.Records(), nil
}

// Records converts the document into thread records in document order.
func (d *ThreadDump) Records() []model.ThreadRecord {
	records := make([]model.ThreadRecord, 0, len(d.Threads))
	for i := range d.Threads {
		records = append(records, d.Threads[i].Record())
	}
	return records
}

// Record converts one actuator thread.
func (t *Thread) Record() model.ThreadRecord {
	frames := make([]string, 0, len(t.StackTrace))
	for _, f := range t.StackTrace {
		frames = append(frames, f.String())
	}
	r := model.ThreadRecord{
		Name:       t.ThreadName,
		ID:         t.ThreadID,
		State:      model.ParseThreadState(t.ThreadState),
		Priority:   t.Priority,
		Daemon:     t.Daemon,
		StackTrace: frames,
	}
	if t.LockName != nil && *t.LockName != "" {
		r.LockName = model.StringPtr(*t.LockName)
	}
	if t.LockOwnerName != nil && *t.LockOwnerName != "" {
		r.LockOwner = model.StringPtr(*t.LockOwnerName)
	}
	return r
}
