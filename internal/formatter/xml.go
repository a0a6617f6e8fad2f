package formatter

import (
	"encoding/xml"
	"fmt"

	"github.com/thread-dump-analysis/pkg/model"
)

// XMLFormatter renders reports as indented XML.
type XMLFormatter struct{}

// ReportFormat returns FormatXML.
func (f *XMLFormatter) ReportFormat() ReportFormat { return FormatXML }

// Format renders the report.
func (f *XMLFormatter) Format(report *model.Report) ([]byte, error) {
	data, err := xml.MarshalIndent(newXMLDocument(report), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format report as XML: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}
