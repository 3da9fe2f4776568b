package entities

import "time"

// SnapshotNode is one element of a recorded page, in document order
type SnapshotNode struct {
	// Parent is the index of the parent element, -1 for the root
	Parent int               `json:"parent" yaml:"parent"`
	Tag    string            `json:"tag" yaml:"tag"`
	Text   string            `json:"text,omitempty" yaml:"text,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	// OnClick is true when a native click handler property is set
	OnClick bool   `json:"onclick,omitempty" yaml:"onclick,omitempty"`
	Cursor  string `json:"cursor,omitempty" yaml:"cursor,omitempty"`
	Rects   []Rect `json:"rects,omitempty" yaml:"rects,omitempty"`
	// Hits holds, per rect, the index of the element found at the rect center (-1 when none)
	Hits []int `json:"hits,omitempty" yaml:"hits,omitempty"`
}

// PageSnapshot is a frozen copy of everything the marker reads from a live page
type PageSnapshot struct {
	URL        string         `json:"url,omitempty" yaml:"url,omitempty"`
	Title      string         `json:"title,omitempty" yaml:"title,omitempty"`
	Viewport   Viewport       `json:"viewport" yaml:"viewport"`
	Nodes      []SnapshotNode `json:"nodes" yaml:"nodes"`
	RecordedAt time.Time      `json:"recorded_at,omitempty" yaml:"recorded_at,omitempty"`
}

// Capture is the result of one mark-screenshot-unmark cycle
type Capture struct {
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Image          string   `json:"img"`
	Records        []Record `json:"bboxes"`
	ScreenshotPath string   `json:"screenshot_path,omitempty"`
}
