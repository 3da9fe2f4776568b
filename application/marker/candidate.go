package marker

import (
	"regexp"
	"strings"

	"page_marker/domain/entities"
	"page_marker/domain/interfaces"
)

// MinVisibleArea is the smallest total visible area, in square viewport pixels, a candidate may have
const MinVisibleArea = 20

// actionableTags are the element types an agent can always act on
var actionableTags = map[string]bool{
	"input":    true,
	"textarea": true,
	"select":   true,
	"button":   true,
	"a":        true,
	"iframe":   true,
	"video":    true,
}

// space matches what a browser's \s does, NBSP and the other Unicode spaces included
const space = `[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]`

var (
	edgeSpace     = regexp.MustCompile(`^` + space + `+|` + space + `+$`)
	whitespaceRun = regexp.MustCompile(space + `{2,}`)
)

// Candidate is the per-element descriptor built during one scan
type Candidate struct {
	Node        interfaces.Node
	Include     bool
	Area        float64
	Rects       []entities.Rect
	Text        string
	Type        string
	AriaLabel   string
	Name        string
	Title       string
	Placeholder string
	Role        string
}

// describe builds the candidate for node
func describe(doc interfaces.Document, node interfaces.Node) Candidate {
	rects := visibleRects(doc, node)

	return Candidate{
		Node:        node,
		Include:     isActionable(node),
		Area:        totalArea(rects),
		Rects:       rects,
		Text:        normalizeText(node.TextContent()),
		Type:        strings.ToLower(node.Tag()),
		AriaLabel:   node.Attribute("aria-label"),
		Name:        node.Attribute("name"),
		Title:       node.Attribute("title"),
		Placeholder: node.Attribute("placeholder"),
		Role:        node.Attribute("role"),
	}
}

// visibleRects keeps the client rects whose center is not covered by another element,
// clipped to the viewport. Only the center pixel is tested: an element whose centers are
// covered counts as invisible even when most of it shows.
func visibleRects(doc interfaces.Document, node interfaces.Node) []entities.Rect {
	viewport := doc.Viewport()

	var rects []entities.Rect
	for _, raw := range node.ClientRects() {
		hit := doc.ElementAt(raw.Center())
		if hit == nil || !doc.Contains(node, hit) {
			continue
		}
		rects = append(rects, raw.Clip(viewport))
	}
	return rects
}

func totalArea(rects []entities.Rect) float64 {
	var area float64
	for _, rect := range rects {
		area += rect.Area()
	}
	return area
}

// isActionable - semantic tag, native click handler or pointer cursor
func isActionable(node interfaces.Node) bool {
	return actionableTags[strings.ToLower(node.Tag())] ||
		node.HasClickHandler() ||
		node.Cursor() == "pointer"
}

func normalizeText(text string) string {
	return whitespaceRun.ReplaceAllString(edgeSpace.ReplaceAllString(text, ""), " ")
}

// innermost drops every candidate that contains another candidate. The set is evaluated
// once, so a chain of nested candidates collapses to its leaf.
func innermost(doc interfaces.Document, candidates []Candidate) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for i, outer := range candidates {
		subsumes := false
		for j, inner := range candidates {
			if i != j && doc.Contains(outer.Node, inner.Node) {
				subsumes = true
				break
			}
		}
		if !subsumes {
			kept = append(kept, outer)
		}
	}
	return kept
}
