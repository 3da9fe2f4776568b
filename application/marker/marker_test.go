package marker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"page_marker/domain/entities"
	"page_marker/domain/interfaces"
	"page_marker/infrastructure/dom"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var viewport = entities.Viewport{Width: 1280, Height: 720}

// page wraps children in html and body boxes covering the viewport
func page(children ...*dom.Box) *dom.StaticPage {
	body := dom.El("body", 0, 0, viewport.Width, viewport.Height, children...)
	html := dom.El("html", 0, 0, viewport.Width, viewport.Height, body)
	return dom.NewStaticPage(dom.Layout(viewport, html))
}

func scan(t *testing.T, p interfaces.Page) ([]entities.Record, *Marker) {
	t.Helper()
	m := New(p, WithColors(PaletteColors()))
	records, err := m.ScanAndMark(context.Background())
	require.NoError(t, err)
	return records, m
}

func TestScanAndMark_SingleButton(t *testing.T) {
	p := page(dom.El("button", 10, 10, 100, 50).WithText("Go"))

	records, m := scan(t, p)

	require.Len(t, records, 1)
	assert.Equal(t, 60.0, records[0].X)
	assert.Equal(t, 35.0, records[0].Y)
	assert.Equal(t, "button", records[0].Type)
	assert.Equal(t, "Go", records[0].Text)
	assert.Equal(t, 1, m.Live())
	assert.Len(t, p.Markers(), 1)
}

func TestScanAndMark_OccludedButton(t *testing.T) {
	p := page(
		dom.El("button", 10, 10, 100, 50),
		dom.El("div", 10, 10, 100, 50),
	)

	records, m := scan(t, p)

	assert.Empty(t, records)
	assert.Equal(t, 0, m.Live())
}

func TestScanAndMark_ChildCoveringCenterKeepsParent(t *testing.T) {
	icon := dom.El("i", 50, 25, 20, 20)
	p := page(dom.El("button", 10, 10, 100, 50, icon))

	records, _ := scan(t, p)

	require.Len(t, records, 1)
	assert.Equal(t, "button", records[0].Type)
}

func TestScanAndMark_AreaFloor(t *testing.T) {
	tests := []struct {
		name   string
		width  float64
		height float64
		want   int
	}{
		{name: "area 30 included", width: 6, height: 5, want: 1},
		{name: "area 20 included", width: 5, height: 4, want: 1},
		{name: "area 10 excluded", width: 5, height: 2, want: 0},
		{name: "zero size excluded", width: 0, height: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := page(dom.El("div", 100, 100, tt.width, tt.height).WithCursor("pointer"))

			records, _ := scan(t, p)

			assert.Len(t, records, tt.want)
		})
	}
}

func TestScanAndMark_Actionability(t *testing.T) {
	tests := []struct {
		name string
		box  *dom.Box
		want bool
	}{
		{name: "input", box: dom.El("input", 10, 10, 100, 20), want: true},
		{name: "textarea", box: dom.El("textarea", 10, 10, 100, 20), want: true},
		{name: "select", box: dom.El("select", 10, 10, 100, 20), want: true},
		{name: "anchor", box: dom.El("a", 10, 10, 100, 20), want: true},
		{name: "iframe", box: dom.El("iframe", 10, 10, 100, 20), want: true},
		{name: "video", box: dom.El("video", 10, 10, 100, 20), want: true},
		{name: "uppercase tag", box: dom.El("BUTTON", 10, 10, 100, 20), want: true},
		{name: "click handler", box: dom.El("div", 10, 10, 100, 20).WithClick(), want: true},
		{name: "pointer cursor", box: dom.El("li", 10, 10, 100, 20).WithCursor("pointer"), want: true},
		{name: "text cursor", box: dom.El("p", 10, 10, 100, 20).WithCursor("text"), want: false},
		{name: "plain div", box: dom.El("div", 10, 10, 100, 20), want: false},
		{name: "label", box: dom.El("label", 10, 10, 100, 20), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, _ := scan(t, page(tt.box))

			if tt.want {
				assert.Len(t, records, 1)
			} else {
				assert.Empty(t, records)
			}
		})
	}
}

func TestScanAndMark_InnermostWins(t *testing.T) {
	t.Run("pointer span inside button", func(t *testing.T) {
		span := dom.El("span", 20, 20, 40, 20).WithCursor("pointer").WithText("Save")
		p := page(dom.El("button", 10, 10, 100, 50, span))

		records, _ := scan(t, p)

		require.Len(t, records, 1)
		assert.Equal(t, "span", records[0].Type)
		assert.Equal(t, 40.0, records[0].X)
		assert.Equal(t, 30.0, records[0].Y)
	})

	t.Run("chain collapses to leaf", func(t *testing.T) {
		leaf := dom.El("a", 40, 40, 50, 20)
		middle := dom.El("div", 30, 30, 200, 100, leaf).WithCursor("pointer")
		outer := dom.El("div", 20, 20, 400, 300, middle).WithClick()

		records, _ := scan(t, page(outer))

		require.Len(t, records, 1)
		assert.Equal(t, "a", records[0].Type)
	})

	t.Run("ancestor with several descendants", func(t *testing.T) {
		first := dom.El("button", 30, 30, 80, 30).WithText("One")
		second := dom.El("button", 130, 30, 80, 30).WithText("Two")
		card := dom.El("div", 20, 20, 400, 300, first, second).WithCursor("pointer")

		records, _ := scan(t, page(card))

		require.Len(t, records, 2)
		assert.Equal(t, "One", records[0].Text)
		assert.Equal(t, "Two", records[1].Text)
	})
}

func TestScanAndMark_MultipleRects(t *testing.T) {
	link := &dom.Box{
		Tag: "a",
		Rects: []entities.Rect{
			entities.NewRect(600, 10, 100, 20),
			entities.NewRect(10, 30, 60, 20),
		},
	}
	p := page(dom.El("button", 300, 300, 100, 50), link)

	records, m := scan(t, p)

	require.Len(t, records, 3)
	assert.Equal(t, "button", records[0].Type)
	assert.Equal(t, entities.Point{X: 650, Y: 20}, entities.Point{X: records[1].X, Y: records[1].Y})
	assert.Equal(t, entities.Point{X: 40, Y: 40}, entities.Point{X: records[2].X, Y: records[2].Y})

	markers := p.Markers()
	require.Len(t, markers, 3)
	assert.Equal(t, 3, m.Live())
	assert.Equal(t, 0, markers[0].Index)
	assert.Equal(t, 1, markers[1].Index)
	assert.Equal(t, 1, markers[2].Index)
	assert.Equal(t, markers[1].Color, markers[2].Color)
	assert.NotEqual(t, markers[0].Color, markers[1].Color)
}

func TestScanAndMark_ClipsToViewport(t *testing.T) {
	p := page(
		dom.El("button", -20, 10, 100, 50),
		dom.El("button", 1200, 690, 100, 40),
		dom.El("button", 10, 700, 100, 100),
	)

	records, _ := scan(t, p)

	require.Len(t, records, 2)
	assert.Equal(t, 40.0, records[0].X)
	assert.Equal(t, 35.0, records[0].Y)
	assert.Equal(t, 1240.0, records[1].X)
	assert.Equal(t, 705.0, records[1].Y)

	for _, marker := range p.Markers() {
		assert.GreaterOrEqual(t, marker.Rect.Left, 0.0)
		assert.GreaterOrEqual(t, marker.Rect.Top, 0.0)
		assert.LessOrEqual(t, marker.Rect.Right, viewport.Width)
		assert.LessOrEqual(t, marker.Rect.Bottom, viewport.Height)
	}
}

func TestScanAndMark_SemanticFields(t *testing.T) {
	input := dom.El("input", 10, 10, 200, 30).
		WithAttr("aria-label", "Search").
		WithAttr("name", "q").
		WithAttr("title", "Search the site").
		WithAttr("placeholder", "Type here").
		WithAttr("role", "searchbox")
	link := dom.El("a", 10, 60, 200, 30).WithText("  Sign   in \n\n now ")
	nbsp := dom.El("a", 10, 110, 200, 30).WithText("\u00a0Sign\u00a0\u00a0in\v\vnow\ufeff")

	records, _ := scan(t, page(input, link, nbsp))

	require.Len(t, records, 3)
	assert.Equal(t, entities.Record{
		X:           110,
		Y:           25,
		Type:        "input",
		AriaLabel:   "Search",
		Name:        "q",
		Title:       "Search the site",
		Placeholder: "Type here",
		Role:        "searchbox",
	}, records[0])
	assert.Equal(t, "Sign in now", records[1].Text)
	assert.Equal(t, "Sign in now", records[2].Text)
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ascii runs", in: " a \t\n b ", want: "a b"},
		{name: "single space kept", in: "a b", want: "a b"},
		{name: "single nbsp kept", in: "a\u00a0b", want: "a\u00a0b"},
		{name: "nbsp run", in: "a\u00a0\u00a0b", want: "a b"},
		{name: "mixed unicode spaces", in: "a\u2003\u2028 b", want: "a b"},
		{name: "byte order mark trimmed", in: "\ufeffa\ufeff", want: "a"},
		{name: "only whitespace", in: "\u00a0\v ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}

func TestScanAndMark_RepeatedCallsDoNotAccumulate(t *testing.T) {
	p := page(
		dom.El("button", 10, 10, 100, 50),
		dom.El("a", 200, 10, 100, 50),
	)
	m := New(p)
	ctx := context.Background()

	first, err := m.ScanAndMark(ctx)
	require.NoError(t, err)
	second, err := m.ScanAndMark(ctx)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Len(t, second, 2)
	assert.Equal(t, 2, m.Live())
	assert.Len(t, p.Markers(), 2)
}

func TestClear(t *testing.T) {
	p := page(dom.El("button", 10, 10, 100, 50))
	m := New(p)
	ctx := context.Background()

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, m.Live())

	_, err := m.ScanAndMark(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, m.Live())

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, m.Live())
	assert.Empty(t, p.Markers())

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, m.Live())
}

func TestScanAndMark_Invariants(t *testing.T) {
	nested := dom.El("div", 500, 300, 300, 200,
		dom.El("button", 520, 320, 100, 40, dom.El("span", 530, 330, 50, 20).WithCursor("pointer")),
		dom.El("a", 650, 320, 100, 40),
	).WithClick()
	p := page(
		dom.El("input", 10, 10, 300, 30),
		dom.El("div", 10, 60, 3, 3).WithCursor("pointer"),
		dom.El("a", -50, 100, 120, 30),
		nested,
	)

	records, m := scan(t, p)

	assert.Equal(t, len(records), m.Live())
	assert.Len(t, p.Markers(), len(records))
	for _, record := range records {
		assert.GreaterOrEqual(t, record.X, 0.0)
		assert.LessOrEqual(t, record.X, viewport.Width)
		assert.GreaterOrEqual(t, record.Y, 0.0)
		assert.LessOrEqual(t, record.Y, viewport.Height)
	}

	doc, err := p.Document(context.Background())
	require.NoError(t, err)
	var survivors []Candidate
	for _, node := range doc.Nodes() {
		c := describe(doc, node)
		if c.Include && c.Area >= MinVisibleArea {
			survivors = append(survivors, c)
		}
	}
	survivors = innermost(doc, survivors)
	for i, x := range survivors {
		assert.GreaterOrEqual(t, x.Area, float64(MinVisibleArea))
		for j, y := range survivors {
			if i != j {
				assert.False(t, doc.Contains(x.Node, y.Node), "%s contains %s", x.Type, y.Type)
			}
		}
	}
}

func TestRecordJSON(t *testing.T) {
	data, err := json.Marshal(entities.Record{X: 1, Y: 2, Type: "a", AriaLabel: "home"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.ElementsMatch(t,
		[]string{"x", "y", "type", "text", "ariaLabel", "name", "title", "placeholder", "role"},
		keys(fields))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type failingPage struct {
	*dom.StaticPage
	docErr   error
	eraseErr error
	dropDraw int
}

// DrawMarkers draws every spec but reports dropDraw fewer ids
func (p *failingPage) DrawMarkers(ctx context.Context, specs []entities.MarkerSpec) ([]entities.MarkerID, error) {
	ids, err := p.StaticPage.DrawMarkers(ctx, specs)
	if err != nil || p.dropDraw == 0 {
		return ids, err
	}
	return ids[:len(ids)-p.dropDraw], nil
}

func (p *failingPage) Document(ctx context.Context) (interfaces.Document, error) {
	if p.docErr != nil {
		return nil, p.docErr
	}
	return p.StaticPage.Document(ctx)
}

func (p *failingPage) EraseMarkers(ctx context.Context, ids []entities.MarkerID) error {
	if p.eraseErr != nil {
		return p.eraseErr
	}
	return p.StaticPage.EraseMarkers(ctx, ids)
}

func TestClear_EmptiesSetWhenEraseFails(t *testing.T) {
	p := &failingPage{StaticPage: page(dom.El("button", 10, 10, 100, 50))}
	m := New(p)
	ctx := context.Background()

	_, err := m.ScanAndMark(ctx)
	require.NoError(t, err)

	p.eraseErr = errors.New("target closed")
	err = m.Clear(ctx)

	assert.ErrorIs(t, err, p.eraseErr)
	assert.Equal(t, 0, m.Live())
}

func TestScanAndMark_DocumentError(t *testing.T) {
	p := &failingPage{
		StaticPage: page(dom.El("button", 10, 10, 100, 50)),
		docErr:     errors.New("execution context was destroyed"),
	}

	records, err := New(p).ScanAndMark(context.Background())

	assert.ErrorIs(t, err, p.docErr)
	assert.Nil(t, records)
}

func TestScanAndMark_PartialDraw(t *testing.T) {
	p := &failingPage{
		StaticPage: page(
			dom.El("button", 10, 10, 100, 50),
			dom.El("a", 200, 10, 100, 50),
		),
		dropDraw: 1,
	}
	m := New(p)

	records, err := m.ScanAndMark(context.Background())

	assert.ErrorIs(t, err, ErrPartialDraw)
	assert.Contains(t, err.Error(), "drew 1 of 2 markers")
	assert.Nil(t, records)
	assert.Equal(t, 0, m.Live())
	// the marker whose id was reported is erased; the unreported one stays on the page
	assert.Len(t, p.Markers(), 1)
}

func TestPrepare(t *testing.T) {
	p := page()
	m := New(p)

	require.NoError(t, m.Prepare(context.Background()))
	require.NoError(t, m.Prepare(context.Background()))

	styles := p.Styles()
	require.Len(t, styles, 2)
	assert.Contains(t, styles[0], "::-webkit-scrollbar")
}
