package entities

// MarkerID identifies one overlay box injected into the page
type MarkerID string

// MarkerSpec describes one overlay box: the rect it frames, the label it shows and its color
type MarkerSpec struct {
	ID    MarkerID `json:"id"`
	Index int      `json:"index"`
	Rect  Rect     `json:"rect"`
	Color string   `json:"color"`
}
