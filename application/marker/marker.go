// Package marker finds the actionable elements of a rendered page, frames each one with a
// numbered overlay box and reports their centers and surface attributes.
//
// A Marker owns the set of overlays it has drawn. The set is empty after New and after every
// Clear; after ScanAndMark it holds exactly one overlay per returned record.
package marker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"page_marker/domain/entities"
	"page_marker/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrPartialDraw is returned when the page draws fewer markers than requested
var ErrPartialDraw = errors.New("page drew a partial marker batch")

// ScrollbarCSS is the stylesheet injected once per page load
const ScrollbarCSS = `
    ::-webkit-scrollbar {
        width: 10px;
    }
    ::-webkit-scrollbar-track {
        background: #27272a;
    }
    ::-webkit-scrollbar-thumb {
        background: #888;
        border-radius: 0.375rem;
    }
    ::-webkit-scrollbar-thumb:hover {
        background: #555;
    }
`

type Marker struct {
	page   interfaces.Page
	colors ColorSource
	logger *logrus.Logger
	newID  func() entities.MarkerID

	mu   sync.Mutex
	live []entities.MarkerID
}

// Option configures a Marker
type Option func(*Marker)

// WithColors sets the color source, random by default
func WithColors(colors ColorSource) Option {
	return func(m *Marker) {
		m.colors = colors
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(m *Marker) {
		m.logger = logger
	}
}

// New - creates a marker for page with an empty marker set
func New(page interfaces.Page, opts ...Option) *Marker {
	m := &Marker{
		page:   page,
		colors: RandomColors(),
		newID: func() entities.MarkerID {
			return entities.MarkerID(uuid.NewString())
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logrus.New()
		m.logger.SetLevel(logrus.WarnLevel)
	}
	return m
}

// Prepare - injects the scrollbar stylesheet. Call once after each page load;
// repeated calls append duplicate style tags.
func (m *Marker) Prepare(ctx context.Context) error {
	if err := m.page.InjectStyle(ctx, ScrollbarCSS); err != nil {
		return fmt.Errorf("failed to inject stylesheet: %w", err)
	}
	return nil
}

// Live - returns the number of overlays currently drawn
func (m *Marker) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Clear - removes every overlay drawn by this marker. The marker set is empty
// afterwards even when the page refuses the removal.
func (m *Marker) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked(ctx)
}

func (m *Marker) clearLocked(ctx context.Context) error {
	if len(m.live) == 0 {
		return nil
	}

	ids := m.live
	m.live = nil

	if err := m.page.EraseMarkers(ctx, ids); err != nil {
		return fmt.Errorf("failed to erase %d markers: %w", len(ids), err)
	}
	m.logger.WithField("markers", len(ids)).Debug("Markers cleared")
	return nil
}

// ScanAndMark - clears previous overlays, selects the actionable elements of the page,
// draws one overlay per visible rect and returns one record per overlay
func (m *Marker) ScanAndMark(ctx context.Context) ([]entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.clearLocked(ctx); err != nil {
		return nil, err
	}

	doc, err := m.page.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	nodes := doc.Nodes()
	candidates := make([]Candidate, 0, len(nodes))
	for _, node := range nodes {
		candidate := describe(doc, node)
		if candidate.Include && candidate.Area >= MinVisibleArea {
			candidates = append(candidates, candidate)
		}
	}
	survivors := innermost(doc, candidates)

	specs, records := m.layout(survivors)
	if len(specs) > 0 {
		drawn, err := m.page.DrawMarkers(ctx, specs)
		m.live = drawn
		if err != nil {
			return nil, fmt.Errorf("failed to draw markers: %w", err)
		}
		if len(drawn) != len(specs) {
			if err := m.clearLocked(ctx); err != nil {
				m.logger.WithError(err).Warn("Failed to erase partially drawn markers")
			}
			return nil, fmt.Errorf("%w: drew %d of %d markers", ErrPartialDraw, len(drawn), len(specs))
		}
	}

	m.logger.WithFields(logrus.Fields{
		"nodes":      len(nodes),
		"candidates": len(candidates),
		"survivors":  len(survivors),
		"markers":    len(m.live),
	}).Debug("Page marked")

	return records, nil
}

// layout turns the surviving candidates into overlay specs and records, one of each per rect
func (m *Marker) layout(survivors []Candidate) ([]entities.MarkerSpec, []entities.Record) {
	var specs []entities.MarkerSpec
	records := make([]entities.Record, 0, len(survivors))

	for index, candidate := range survivors {
		color := m.colors.Color(index)
		for _, rect := range candidate.Rects {
			specs = append(specs, entities.MarkerSpec{
				ID:    m.newID(),
				Index: index,
				Rect:  rect,
				Color: color,
			})

			center := rect.Center()
			records = append(records, entities.Record{
				X:           center.X,
				Y:           center.Y,
				Type:        candidate.Type,
				Text:        candidate.Text,
				AriaLabel:   candidate.AriaLabel,
				Name:        candidate.Name,
				Title:       candidate.Title,
				Placeholder: candidate.Placeholder,
				Role:        candidate.Role,
			})
		}
	}
	return specs, records
}
