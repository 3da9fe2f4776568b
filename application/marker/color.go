package marker

import "github.com/lucasb-eyer/go-colorful"

// ColorSource picks the outline and label color for the candidate at index
type ColorSource interface {
	Color(index int) string
}

// ColorFunc adapts a plain function to ColorSource
type ColorFunc func(index int) string

// Color - returns the color for index
func (f ColorFunc) Color(index int) string {
	return f(index)
}

// RandomColors - picks an independent random color per candidate
func RandomColors() ColorSource {
	return ColorFunc(func(int) string {
		return colorful.FastHappyColor().Hex()
	})
}

// PaletteColors - cycles through a fixed palette, for deterministic output
func PaletteColors(palette ...string) ColorSource {
	if len(palette) == 0 {
		palette = []string{"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4"}
	}
	return ColorFunc(func(index int) string {
		return palette[index%len(palette)]
	})
}

