package dom

import (
	"context"
	"sync"

	"page_marker/domain/entities"
	"page_marker/domain/interfaces"
)

// RecordingOverlay keeps drawn markers in memory. It backs offline replay of
// snapshots and tests.
type RecordingOverlay struct {
	mu      sync.Mutex
	markers map[entities.MarkerID]entities.MarkerSpec
	order   []entities.MarkerID
	styles  []string
}

// NewRecordingOverlay - creates an empty in-memory overlay
func NewRecordingOverlay() *RecordingOverlay {
	return &RecordingOverlay{
		markers: make(map[entities.MarkerID]entities.MarkerSpec),
	}
}

func (o *RecordingOverlay) InjectStyle(ctx context.Context, css string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.styles = append(o.styles, css)
	return nil
}

func (o *RecordingOverlay) DrawMarkers(ctx context.Context, specs []entities.MarkerSpec) ([]entities.MarkerID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]entities.MarkerID, 0, len(specs))
	for _, spec := range specs {
		o.markers[spec.ID] = spec
		o.order = append(o.order, spec.ID)
		ids = append(ids, spec.ID)
	}
	return ids, nil
}

func (o *RecordingOverlay) EraseMarkers(ctx context.Context, ids []entities.MarkerID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, id := range ids {
		delete(o.markers, id)
	}
	kept := o.order[:0]
	for _, id := range o.order {
		if _, ok := o.markers[id]; ok {
			kept = append(kept, id)
		}
	}
	o.order = kept
	return nil
}

// Markers returns the markers currently on the page in drawing order
func (o *RecordingOverlay) Markers() []entities.MarkerSpec {
	o.mu.Lock()
	defer o.mu.Unlock()

	specs := make([]entities.MarkerSpec, 0, len(o.order))
	for _, id := range o.order {
		specs = append(specs, o.markers[id])
	}
	return specs
}

// Styles returns every stylesheet injected so far
func (o *RecordingOverlay) Styles() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.styles...)
}

// StaticPage serves a fixed snapshot and records markers in memory
type StaticPage struct {
	*RecordingOverlay
	snapshot *entities.PageSnapshot
}

// NewStaticPage - creates a page over a recorded or synthetic snapshot
func NewStaticPage(snapshot *entities.PageSnapshot) *StaticPage {
	return &StaticPage{
		RecordingOverlay: NewRecordingOverlay(),
		snapshot:         snapshot,
	}
}

func (p *StaticPage) Document(ctx context.Context) (interfaces.Document, error) {
	return FromSnapshot(p.snapshot), nil
}

// Snapshot returns the snapshot the page serves
func (p *StaticPage) Snapshot() *entities.PageSnapshot {
	return p.snapshot
}

var _ interfaces.Page = (*StaticPage)(nil)
