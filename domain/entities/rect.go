package entities

// Point is a position in viewport coordinates
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Viewport is the visible area of the document
type Viewport struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is a bounding rectangle in viewport coordinates
type Rect struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// NewRect builds a rect from its top-left corner and size
func NewRect(left, top, width, height float64) Rect {
	return Rect{
		Left:   left,
		Top:    top,
		Right:  left + width,
		Bottom: top + height,
		Width:  width,
		Height: height,
	}
}

// Center returns the geometric center of the rect
func (r Rect) Center() Point {
	return Point{
		X: r.Left + r.Width/2,
		Y: r.Top + r.Height/2,
	}
}

// Area returns width times height. Clipped rects outside the viewport may yield a non-positive area.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Contains reports whether p lies inside r, edges included on the top-left only
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right && p.Y >= r.Top && p.Y < r.Bottom
}

// Clip clamps the rect to the viewport and recomputes width and height from the clipped edges
func (r Rect) Clip(vp Viewport) Rect {
	clipped := Rect{
		Left:   max(0, r.Left),
		Top:    max(0, r.Top),
		Right:  min(vp.Width, r.Right),
		Bottom: min(vp.Height, r.Bottom),
	}
	clipped.Width = clipped.Right - clipped.Left
	clipped.Height = clipped.Bottom - clipped.Top
	return clipped
}
