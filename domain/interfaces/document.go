package interfaces

import (
	"context"

	"page_marker/domain/entities"
)

// Node is one element of a rendered document. Identity is interface equality.
type Node interface {
	// Tag returns the lowercased tag name
	Tag() string

	// Attribute returns the attribute value, or "" when missing
	Attribute(name string) string

	// TextContent returns the raw text content of the element and its descendants
	TextContent() string

	// HasClickHandler reports whether a native click handler is attached
	HasClickHandler() bool

	// Cursor returns the computed cursor style
	Cursor() string

	// ClientRects returns the raw client rects in native enumeration order
	ClientRects() []entities.Rect
}

// Document is a queryable layout tree
type Document interface {
	// Nodes enumerates every element in document order
	Nodes() []Node

	// Viewport returns the visible viewport size
	Viewport() entities.Viewport

	// ElementAt returns the topmost element at p, or nil
	ElementAt(p entities.Point) Node

	// Contains reports whether node is ancestor or ancestor's descendant. Contains(n, n) is true.
	Contains(ancestor, node Node) bool
}

// DocumentSource produces a readable document for the current page
type DocumentSource interface {
	Document(ctx context.Context) (Document, error)
}

// Overlay draws and removes marker boxes on top of the page
type Overlay interface {
	// InjectStyle appends a global stylesheet to the page
	InjectStyle(ctx context.Context, css string) error

	// DrawMarkers injects one overlay per spec and returns the ids actually drawn
	DrawMarkers(ctx context.Context, specs []entities.MarkerSpec) ([]entities.MarkerID, error)

	// EraseMarkers removes the given overlays; unknown ids are ignored
	EraseMarkers(ctx context.Context, ids []entities.MarkerID) error
}

// Page is everything the marker needs from a rendered page
type Page interface {
	DocumentSource
	Overlay
}
