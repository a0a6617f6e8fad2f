// Package jstack parses the plain-text thread dumps printed by jstack,
// jcmd Thread.print and kill -3.
package jstack

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/thread-dump-analysis/pkg/model"
)

var (
	// segmentStart marks the first line of a thread stanza: "<name>" #<id>.
	segmentStart = regexp.MustCompile(`(?m)^[ \t]*"[^"\n]*"[ \t]*#\d+`)

	headerPattern = regexp.MustCompile(`"([^"]+)"\s*#(\d+).*?prio=(\d+).*?tid=([0-9a-fx]+).*?nid=([0-9a-fx]+)\s+(\w+)`)

	statePattern = regexp.MustCompile(`java\.lang\.Thread\.State:\s*(\w+)`)
)

const framePrefix = "at "

// Parser implements the jstack text format. It never rejects input:
// malformed stanzas degrade to partially filled records.
type Parser struct{}

// NewParser creates a new jstack parser.
func NewParser() *Parser {
	return &Parser{}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "jstack"
}

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string {
	return []string{"jstack", "text"}
}

// Parse reads the dump and returns one record per thread stanza.
// Only read failures and context cancellation produce errors.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) ([]model.ThreadRecord, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read thread dump: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseText(string(data)), nil
}

// ParseText splits text into thread stanzas and extracts a record from each.
// Text before the first stanza is discarded. Empty input yields an empty slice.
func ParseText(text string) []model.ThreadRecord {
	records := make([]model.ThreadRecord, 0)
	if strings.TrimSpace(text) == "" {
		return records
	}

	for _, segment := range Segments(text) {
		records = append(records, ParseSegment(segment))
	}
	return records
}

// Segments returns the thread stanzas of text in input order.
func Segments(text string) []string {
	starts := segmentStart.FindAllStringIndex(text, -1)
	segments := make([]string, 0, len(starts))
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		segments = append(segments, text[loc[0]:end])
	}
	return segments
}

// ParseSegment extracts a record from one stanza.
// Fields that cannot be found keep their zero value; the state defaults to UNKNOWN.
func ParseSegment(segment string) model.ThreadRecord {
	record := model.ThreadRecord{
		State:      model.ThreadStateUnknown,
		StackTrace: extractStackTrace(segment),
		Daemon:     strings.Contains(segment, "daemon"),
	}

	if m := headerPattern.FindStringSubmatch(segment); m != nil {
		id, idErr := strconv.ParseInt(m[2], 10, 64)
		prio, prioErr := strconv.Atoi(m[3])
		// Overflowing numbers leave the whole header unparsed.
		if idErr == nil && prioErr == nil {
			record.Name = m[1]
			record.ID = id
			record.Priority = prio
		}
	}

	if m := statePattern.FindStringSubmatch(segment); m != nil {
		record.State = model.ParseThreadState(m[1])
	}

	return record
}

// extractStackTrace collects trimmed "at " lines, stopping at the first blank
// line once a frame has been seen.
func extractStackTrace(segment string) []string {
	frames := make([]string, 0)
	inStack := false
	for _, line := range strings.Split(segment, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, framePrefix):
			frames = append(frames, line)
			inStack = true
		case inStack && line == "":
			return frames
		}
	}
	return frames
}
