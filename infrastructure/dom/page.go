// Package dom adapts rendered pages to the marker: live pages through any JavaScript
// evaluator, recorded snapshots, and synthetic box layouts.
package dom

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"page_marker/domain/entities"
	"page_marker/domain/interfaces"
)

// Page reads and annotates a live page through a JavaScript evaluator.
// Every read takes a fresh snapshot; nothing is cached between calls.
type Page struct {
	eval interfaces.Evaluator
	now  func() time.Time
}

// NewPage - creates a live page over eval
func NewPage(eval interfaces.Evaluator) *Page {
	return &Page{
		eval: eval,
		now:  time.Now,
	}
}

// Snapshot - reads the full element tree, geometry and hit-test results in one round trip
func (p *Page) Snapshot(ctx context.Context) (*entities.PageSnapshot, error) {
	var snapshot entities.PageSnapshot
	if err := p.run(ctx, snapshotScript, nil, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to take snapshot: %w", err)
	}
	snapshot.RecordedAt = p.now()
	return &snapshot, nil
}

// Document - implements interfaces.DocumentSource
func (p *Page) Document(ctx context.Context) (interfaces.Document, error) {
	snapshot, err := p.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return FromSnapshot(snapshot), nil
}

// InjectStyle - appends a style tag to the document head
func (p *Page) InjectStyle(ctx context.Context, css string) error {
	return p.run(ctx, styleScript, css, nil)
}

// DrawMarkers - injects overlay boxes, returns the ids the page confirmed
func (p *Page) DrawMarkers(ctx context.Context, specs []entities.MarkerSpec) ([]entities.MarkerID, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	var drawn []entities.MarkerID
	if err := p.run(ctx, drawScript, specs, &drawn); err != nil {
		return nil, err
	}
	return drawn, nil
}

// EraseMarkers - removes overlay boxes by id
func (p *Page) EraseMarkers(ctx context.Context, ids []entities.MarkerID) error {
	if len(ids) == 0 {
		return nil
	}
	var removed int
	return p.run(ctx, eraseScript, ids, &removed)
}

// run evaluates fn(arg) and decodes its JSON string result into out
func (p *Page) run(ctx context.Context, fn string, arg any, out any) error {
	expression, err := call(fn, arg)
	if err != nil {
		return err
	}

	result, err := p.eval.Evaluate(ctx, expression)
	if err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(result), out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

var _ interfaces.Page = (*Page)(nil)
