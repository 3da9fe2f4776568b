package dom

import (
	"page_marker/domain/entities"
)

// Box is one element of a synthetic layout: fixtures, demos and tests describe pages with
// boxes instead of driving a real browser.
type Box struct {
	Tag     string            `json:"tag" yaml:"tag"`
	Text    string            `json:"text,omitempty" yaml:"text,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	OnClick bool              `json:"onclick,omitempty" yaml:"onclick,omitempty"`
	Cursor  string            `json:"cursor,omitempty" yaml:"cursor,omitempty"`
	Rects   []entities.Rect   `json:"rects,omitempty" yaml:"rects,omitempty"`

	// Z orders painting; equal values paint in document order
	Z int `json:"z,omitempty" yaml:"z,omitempty"`

	// PassThrough boxes never receive hits, like pointer-events: none
	PassThrough bool `json:"pass_through,omitempty" yaml:"pass_through,omitempty"`

	Children []*Box `json:"children,omitempty" yaml:"children,omitempty"`
}

// El is shorthand for a box with a single rect
func El(tag string, left, top, width, height float64, children ...*Box) *Box {
	return &Box{
		Tag:      tag,
		Rects:    []entities.Rect{entities.NewRect(left, top, width, height)},
		Children: children,
	}
}

// WithCursor sets the computed cursor
func (b *Box) WithCursor(cursor string) *Box {
	b.Cursor = cursor
	return b
}

// WithText sets the box's own text
func (b *Box) WithText(text string) *Box {
	b.Text = text
	return b
}

// WithAttr sets an attribute
func (b *Box) WithAttr(name, value string) *Box {
	if b.Attrs == nil {
		b.Attrs = make(map[string]string)
	}
	b.Attrs[name] = value
	return b
}

// WithClick marks the box as having a click handler
func (b *Box) WithClick() *Box {
	b.OnClick = true
	return b
}

// WithZ sets the paint order
func (b *Box) WithZ(z int) *Box {
	b.Z = z
	return b
}

// Layout flattens a box tree into a snapshot. Hits are resolved geometrically: the
// element at a point is the painted-last box with a rect containing it, where higher Z
// paints later and equal Z paints in document order. Points outside the viewport hit nothing.
func Layout(viewport entities.Viewport, root *Box) *entities.PageSnapshot {
	snapshot := &entities.PageSnapshot{Viewport: viewport}
	var boxes []*Box

	var walk func(box *Box, parent int) string
	walk = func(box *Box, parent int) string {
		index := len(snapshot.Nodes)
		boxes = append(boxes, box)
		snapshot.Nodes = append(snapshot.Nodes, entities.SnapshotNode{
			Parent:  parent,
			Tag:     box.Tag,
			Attrs:   box.Attrs,
			OnClick: box.OnClick,
			Cursor:  box.Cursor,
			Rects:   box.Rects,
		})

		text := box.Text
		for _, child := range box.Children {
			text += walk(child, index)
		}
		snapshot.Nodes[index].Text = text
		return text
	}
	if root != nil {
		walk(root, -1)
	}

	for i := range snapshot.Nodes {
		node := &snapshot.Nodes[i]
		node.Hits = make([]int, len(node.Rects))
		for r, rect := range node.Rects {
			node.Hits[r] = hitTest(viewport, boxes, rect.Center())
		}
	}
	return snapshot
}

func hitTest(viewport entities.Viewport, boxes []*Box, p entities.Point) int {
	if p.X < 0 || p.Y < 0 || p.X >= viewport.Width || p.Y >= viewport.Height {
		return -1
	}

	hit := -1
	for i, box := range boxes {
		if box.PassThrough {
			continue
		}
		if hit >= 0 && box.Z < boxes[hit].Z {
			continue
		}
		for _, rect := range box.Rects {
			if rect.Contains(p) {
				hit = i
				break
			}
		}
	}
	return hit
}
