package mcp

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thread-dump-analysis/internal/formatter"
	apperrors "github.com/thread-dump-analysis/pkg/errors"
	"github.com/thread-dump-analysis/pkg/model"
)

type processView struct {
	PID                  int64  `json:"pid" xml:"pid" yaml:"pid"`
	MainClass            string `json:"mainClass" xml:"mainClass" yaml:"mainClass"`
	DisplayName          string `json:"displayName" xml:"displayName" yaml:"displayName"`
	JVMArguments         string `json:"jvmArguments" xml:"jvmArguments" yaml:"jvmArguments"`
	ApplicationArguments string `json:"applicationArguments" xml:"applicationArguments" yaml:"applicationArguments"`
}

type processList struct {
	XMLName   xml.Name      `json:"-" xml:"javaProcesses" yaml:"-"`
	Count     int           `json:"count" xml:"count,attr" yaml:"count"`
	Processes []processView `json:"javaProcesses" xml:"process" yaml:"javaProcesses"`
}

func newProcessList(processes []model.JavaProcess) processList {
	list := processList{Count: len(processes), Processes: make([]processView, 0, len(processes))}
	for _, p := range processes {
		list.Processes = append(list.Processes, processView(p))
	}
	return list
}

// RenderProcesses renders the process list as JSON, XML, YAML or text.
func RenderProcesses(processes []model.JavaProcess, format formatter.ReportFormat) (string, error) {
	switch format {
	case formatter.FormatJSON:
		data, err := json.MarshalIndent(newProcessList(processes), "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to render processes as JSON: %w", err)
		}
		return string(data), nil
	case formatter.FormatXML:
		data, err := xml.MarshalIndent(newProcessList(processes), "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to render processes as XML: %w", err)
		}
		return xml.Header + string(data), nil
	case formatter.FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(newProcessList(processes)); err != nil {
			return "", fmt.Errorf("failed to render processes as YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("failed to render processes as YAML: %w", err)
		}
		return buf.String(), nil
	case formatter.FormatText:
		return processText(processes), nil
	default:
		return "", apperrors.Wrap(apperrors.CodeUnsupportedFormat,
			"Unsupported format '"+format.String()+"' for process lists", formatter.ErrUnsupportedFormat)
	}
}

func processText(processes []model.JavaProcess) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Running Java Processes (%d found):\n", len(processes))
	b.WriteString("=====================================\n\n")
	for _, p := range processes {
		fmt.Fprintf(&b, "PID: %d\n", p.PID)
		fmt.Fprintf(&b, "Main Class: %s\n", p.MainClass)
		fmt.Fprintf(&b, "Display Name: %s\n", p.DisplayName)
		if p.JVMArguments != "" {
			fmt.Fprintf(&b, "JVM Arguments: %s\n", p.JVMArguments)
		}
		if p.ApplicationArguments != "" {
			fmt.Fprintf(&b, "Application Arguments: %s\n", p.ApplicationArguments)
		}
		b.WriteString("\n")
	}
	return b.String()
}
