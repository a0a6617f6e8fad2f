package formatter

import (
	"encoding/xml"
	"fmt"
	"sort"
	"time"

	"github.com/thread-dump-analysis/pkg/model"
)

// yamlDocument is the YAML view of a report. Field order follows the JSON rendering.
type yamlDocument struct {
	ID             string          `yaml:"id"`
	Timestamp      string          `yaml:"timestamp"`
	Source         string          `yaml:"source"`
	Statistics     *yamlStatistics `yaml:"statistics,omitempty"`
	Findings       []yamlFinding   `yaml:"findings"`
	SuggestedFixes []string        `yaml:"suggestedFixes"`
	Status         string          `yaml:"status"`
	Summary        string          `yaml:"summary"`
}

type yamlStatistics struct {
	TotalThreads    int            `yaml:"totalThreads"`
	ThreadsByState  map[string]int `yaml:"threadsByState"`
	DaemonThreads   int            `yaml:"daemonThreads"`
	BlockedThreads  int            `yaml:"blockedThreads"`
	WaitingThreads  int            `yaml:"waitingThreads"`
	RunnableThreads int            `yaml:"runnableThreads"`
	ThreadGroups    map[string]int `yaml:"threadGroups"`
}

type yamlFinding struct {
	Type            string         `yaml:"type"`
	Description     string         `yaml:"description"`
	Severity        string         `yaml:"severity"`
	AffectedThreads []string       `yaml:"affectedThreads,omitempty"`
	Recommendation  string         `yaml:"recommendation"`
	Details         map[string]any `yaml:"details,omitempty"`
}

func newYAMLDocument(r *model.Report) yamlDocument {
	doc := yamlDocument{
		ID:             r.ID,
		Timestamp:      r.Timestamp.Format(time.RFC3339Nano),
		Source:         r.Source,
		Findings:       make([]yamlFinding, 0, len(r.Findings)),
		SuggestedFixes: nonNil(r.SuggestedFixes),
		Status:         string(r.Status),
		Summary:        r.Summary,
	}
	if s := r.Statistics; s != nil {
		byState := make(map[string]int, len(s.ThreadsByState))
		for state, n := range s.ThreadsByState {
			byState[string(state)] = n
		}
		doc.Statistics = &yamlStatistics{
			TotalThreads:    s.TotalThreads,
			ThreadsByState:  byState,
			DaemonThreads:   s.DaemonThreads,
			BlockedThreads:  s.BlockedThreads,
			WaitingThreads:  s.WaitingThreads,
			RunnableThreads: s.RunnableThreads,
			ThreadGroups:    s.ThreadGroups,
		}
	}
	for i := range r.Findings {
		f := &r.Findings[i]
		doc.Findings = append(doc.Findings, yamlFinding{
			Type:            string(f.Type),
			Description:     f.Description,
			Severity:        string(f.Severity),
			AffectedThreads: f.AffectedThreads,
			Recommendation:  f.Recommendation,
			Details:         f.DetailsMap(),
		})
	}
	return doc
}

// xmlDocument is the XML view of a report. Maps become lists of keyed entries.
type xmlDocument struct {
	XMLName        xml.Name       `xml:"DiagnosticReport"`
	ID             string         `xml:"id"`
	Timestamp      string         `xml:"timestamp"`
	Source         string         `xml:"source"`
	Statistics     *xmlStatistics `xml:"statistics,omitempty"`
	Findings       []xmlFinding   `xml:"findings>finding"`
	SuggestedFixes []string       `xml:"suggestedFixes>fix"`
	Status         string         `xml:"status"`
	Summary        string         `xml:"summary"`
}

type xmlStatistics struct {
	TotalThreads    int        `xml:"totalThreads"`
	ThreadsByState  []xmlEntry `xml:"threadsByState>entry"`
	DaemonThreads   int        `xml:"daemonThreads"`
	BlockedThreads  int        `xml:"blockedThreads"`
	WaitingThreads  int        `xml:"waitingThreads"`
	RunnableThreads int        `xml:"runnableThreads"`
	ThreadGroups    []xmlEntry `xml:"threadGroups>entry"`
}

type xmlFinding struct {
	Type            string     `xml:"type"`
	Description     string     `xml:"description"`
	Severity        string     `xml:"severity"`
	AffectedThreads []string   `xml:"affectedThreads>thread,omitempty"`
	Recommendation  string     `xml:"recommendation"`
	Details         []xmlEntry `xml:"details>entry,omitempty"`
}

// xmlEntry is one key of a map. Scalars fill Value, nested maps fill
// Entries and lists fill Items.
type xmlEntry struct {
	Key     string     `xml:"key,attr"`
	Value   string     `xml:",chardata"`
	Entries []xmlEntry `xml:"entry,omitempty"`
	Items   []string   `xml:"item,omitempty"`
}

func newXMLDocument(r *model.Report) xmlDocument {
	doc := xmlDocument{
		ID:             r.ID,
		Timestamp:      r.Timestamp.Format(time.RFC3339Nano),
		Source:         r.Source,
		Findings:       make([]xmlFinding, 0, len(r.Findings)),
		SuggestedFixes: r.SuggestedFixes,
		Status:         string(r.Status),
		Summary:        r.Summary,
	}
	if s := r.Statistics; s != nil {
		doc.Statistics = &xmlStatistics{
			TotalThreads:    s.TotalThreads,
			ThreadsByState:  stateEntries(s.ThreadsByState),
			DaemonThreads:   s.DaemonThreads,
			BlockedThreads:  s.BlockedThreads,
			WaitingThreads:  s.WaitingThreads,
			RunnableThreads: s.RunnableThreads,
			ThreadGroups:    groupEntries(s.ThreadGroups),
		}
	}
	for i := range r.Findings {
		f := &r.Findings[i]
		doc.Findings = append(doc.Findings, xmlFinding{
			Type:            string(f.Type),
			Description:     f.Description,
			Severity:        string(f.Severity),
			AffectedThreads: f.AffectedThreads,
			Recommendation:  f.Recommendation,
			Details:         mapEntries(f.DetailsMap()),
		})
	}
	return doc
}

func stateEntries(byState map[model.ThreadState]int) []xmlEntry {
	entries := make([]xmlEntry, 0, len(byState))
	for _, state := range model.AllThreadStates() {
		if n, ok := byState[state]; ok {
			entries = append(entries, xmlEntry{Key: string(state), Value: fmt.Sprint(n)})
		}
	}
	return entries
}

func groupEntries(groups map[string]int) []xmlEntry {
	entries := make([]xmlEntry, 0, len(groups))
	for _, category := range model.Categories() {
		if n, ok := groups[category]; ok {
			entries = append(entries, xmlEntry{Key: category, Value: fmt.Sprint(n)})
		}
	}
	return entries
}

func mapEntries(m map[string]any) []xmlEntry {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]xmlEntry, 0, len(keys))
	for _, k := range keys {
		entry := xmlEntry{Key: k}
		switch v := m[k].(type) {
		case map[string]any:
			entry.Entries = mapEntries(v)
		case []string:
			entry.Items = v
		case []any:
			for _, item := range v {
				entry.Items = append(entry.Items, fmt.Sprint(item))
			}
		default:
			entry.Value = fmt.Sprint(v)
		}
		entries = append(entries, entry)
	}
	return entries
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
