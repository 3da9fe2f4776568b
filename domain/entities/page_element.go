package entities

import (
	"fmt"
	"strings"
)

// Record is one marked rectangle as handed to the automation agent.
// Records come in label order; an element with several rects yields one record per rect under one label.
type Record struct {
	X           float64 `json:"x" yaml:"x"`
	Y           float64 `json:"y" yaml:"y"`
	Type        string  `json:"type" yaml:"type"`
	Text        string  `json:"text" yaml:"text"`
	AriaLabel   string  `json:"ariaLabel" yaml:"ariaLabel"`
	Name        string  `json:"name" yaml:"name"`
	Title       string  `json:"title" yaml:"title"`
	Placeholder string  `json:"placeholder" yaml:"placeholder"`
	Role        string  `json:"role" yaml:"role"`
}

// Content returns the most descriptive label of the record: aria-label, then text, then placeholder
func (r Record) Content() string {
	switch {
	case r.AriaLabel != "":
		return r.AriaLabel
	case r.Text != "":
		return r.Text
	default:
		return r.Placeholder
	}
}

// DescribeRecords renders records as a numbered plain-text list for prompts and terminals
func DescribeRecords(records []Record) string {
	blocks := make([]string, 0, len(records))
	for i, record := range records {
		blocks = append(blocks, fmt.Sprintf("element %d:\n  type: %s\n  content: \"%s\"\n", i, record.Type, record.Content()))
	}
	return strings.Join(blocks, "\n")
}
