package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"page_marker/application/marker"
	"page_marker/domain/entities"
	"page_marker/domain/interfaces"
	"page_marker/infrastructure/dom"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var png = []byte("\x89PNG\r\n\x1a\nmarked")

type fakeBrowser struct {
	navigated     []string
	waits         int
	screenshotErr error
	// markersAtShot records how many markers were on the page when the screenshot was taken
	markersAtShot int
	page          *flakyPage
}

func (b *fakeBrowser) Evaluate(ctx context.Context, expression string) (string, error) {
	return "", errors.New("not a live page")
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.navigated = append(b.navigated, url)
	return nil
}

func (b *fakeBrowser) WaitForLoad(ctx context.Context) error {
	b.waits++
	return nil
}

func (b *fakeBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	if b.screenshotErr != nil {
		return nil, b.screenshotErr
	}
	b.markersAtShot = len(b.page.Markers())
	return png, nil
}

func (b *fakeBrowser) CurrentURL(ctx context.Context) (string, error) {
	return "https://example.com/", nil
}

func (b *fakeBrowser) Title(ctx context.Context) (string, error) {
	return "Example", nil
}

func (b *fakeBrowser) Close() error {
	return nil
}

// flakyPage fails the first failures document reads
type flakyPage struct {
	*dom.StaticPage
	failures int
	reads    int
}

func (p *flakyPage) Document(ctx context.Context) (interfaces.Document, error) {
	p.reads++
	if p.reads <= p.failures {
		return nil, errors.New("page still rendering")
	}
	return p.StaticPage.Document(ctx)
}

func setup(t *testing.T, failures int, opts Options) (*Harness, *fakeBrowser, *flakyPage) {
	t.Helper()
	vp := entities.Viewport{Width: 800, Height: 600}
	root := dom.El("html", 0, 0, 800, 600,
		dom.El("body", 0, 0, 800, 600,
			dom.El("button", 10, 10, 100, 40).WithText("Save"),
			dom.El("a", 200, 10, 80, 20).WithText("Home"),
		),
	)
	page := &flakyPage{StaticPage: dom.NewStaticPage(dom.Layout(vp, root)), failures: failures}
	browser := &fakeBrowser{page: page}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	m := marker.New(page, marker.WithColors(marker.PaletteColors()), marker.WithLogger(logger))

	h := NewHarness(browser, m, opts, logger)
	h.newID = func() string { return "capture-1" }
	return h, browser, page
}

func TestHarness_Open(t *testing.T) {
	h, browser, page := setup(t, 0, Options{MarkAttempts: 1})

	require.NoError(t, h.Open(context.Background(), "https://example.com"))

	assert.Equal(t, []string{"https://example.com"}, browser.navigated)
	assert.Equal(t, 1, browser.waits)
	assert.Equal(t, []string{marker.ScrollbarCSS}, page.Styles())
}

func TestHarness_Capture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	h, browser, page := setup(t, 0, Options{MarkAttempts: 1, ScreenshotDir: dir})

	capture, err := h.Capture(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "capture-1", capture.ID)
	assert.Equal(t, "https://example.com/", capture.URL)
	assert.Equal(t, "Example", capture.Title)
	assert.Equal(t, base64.StdEncoding.EncodeToString(png), capture.Image)
	require.Len(t, capture.Records, 2)
	assert.Equal(t, "Save", capture.Records[0].Text)
	assert.Equal(t, "Home", capture.Records[1].Text)

	// markers are on the screenshot and gone afterwards
	assert.Equal(t, 2, browser.markersAtShot)
	assert.Empty(t, page.Markers())

	assert.Equal(t, filepath.Join(dir, "mark1.png"), capture.ScreenshotPath)
	data, err := os.ReadFile(capture.ScreenshotPath)
	require.NoError(t, err)
	assert.Equal(t, png, data)

	_, err = h.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, h.Count())
	assert.FileExists(t, filepath.Join(dir, "mark2.png"))
}

func TestHarness_CaptureWithoutDir(t *testing.T) {
	h, _, _ := setup(t, 0, Options{MarkAttempts: 1})

	capture, err := h.Capture(context.Background())

	require.NoError(t, err)
	assert.Empty(t, capture.ScreenshotPath)
	assert.Equal(t, 1, h.Count())
}

func TestHarness_RetriesMarking(t *testing.T) {
	h, _, page := setup(t, 2, Options{MarkAttempts: 3, RetryDelay: time.Millisecond})

	capture, err := h.Capture(context.Background())

	require.NoError(t, err)
	assert.Len(t, capture.Records, 2)
	assert.Equal(t, 3, page.reads)
}

func TestHarness_GivesUpAfterAttempts(t *testing.T) {
	h, browser, page := setup(t, 5, Options{MarkAttempts: 3, RetryDelay: time.Millisecond})

	_, err := h.Capture(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "page still rendering")
	assert.Equal(t, 3, page.reads)
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, 0, browser.markersAtShot)
}

func TestHarness_CanceledWhileRetrying(t *testing.T) {
	h, _, page := setup(t, 5, Options{MarkAttempts: 3, RetryDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := h.Capture(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, page.reads)
}

func TestHarness_ScreenshotFailureClearsMarkers(t *testing.T) {
	h, browser, page := setup(t, 0, Options{MarkAttempts: 1})
	browser.screenshotErr = errors.New("tab crashed")

	_, err := h.Capture(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tab crashed")
	assert.Empty(t, page.Markers())
	assert.Equal(t, 0, h.Count())
}
