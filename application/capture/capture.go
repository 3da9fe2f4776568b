// Package capture runs the mark, screenshot, unmark cycle against a live browser.
package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"page_marker/application/marker"
	"page_marker/domain/entities"
	"page_marker/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options tune the capture cycle
type Options struct {
	// MarkAttempts is how many times marking is tried before giving up
	MarkAttempts int
	// RetryDelay separates failed marking attempts
	RetryDelay time.Duration
	// ScreenshotDir receives mark<N>.png files; empty disables saving
	ScreenshotDir string
}

type Harness struct {
	browser interfaces.Browser
	marker  *marker.Marker
	opts    Options
	logger  *logrus.Logger

	mu    sync.Mutex
	count int
	newID func() string
}

// NewHarness - creates a harness over browser, marking through m
func NewHarness(browser interfaces.Browser, m *marker.Marker, opts Options, logger *logrus.Logger) *Harness {
	if opts.MarkAttempts <= 0 {
		opts.MarkAttempts = 1
	}
	return &Harness{
		browser: browser,
		marker:  m,
		opts:    opts,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// Open - navigates to url, waits for the page to settle and prepares it for marking
func (h *Harness) Open(ctx context.Context, url string) error {
	h.logger.Infof("Opening %s", url)
	if err := h.browser.Navigate(ctx, url); err != nil {
		return err
	}
	if err := h.browser.WaitForLoad(ctx); err != nil {
		h.logger.Warnf("Page did not settle: %v", err)
	}
	return h.marker.Prepare(ctx)
}

// Capture - marks the page, screenshots it with the markers on, then removes them.
// Marking is retried because pages still rendering may fail mid-snapshot.
func (h *Harness) Capture(ctx context.Context) (*entities.Capture, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.browser.WaitForLoad(ctx); err != nil {
		h.logger.Warnf("Page did not settle: %v", err)
	}

	records, err := h.markWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	img, err := h.browser.Screenshot(ctx)
	if err != nil {
		h.clear(ctx)
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	h.count++

	capture := &entities.Capture{
		ID:      h.newID(),
		Image:   base64.StdEncoding.EncodeToString(img),
		Records: records,
	}

	if h.opts.ScreenshotDir != "" {
		path, err := h.save(img)
		if err != nil {
			h.clear(ctx)
			return nil, err
		}
		capture.ScreenshotPath = path
	}

	h.clear(ctx)

	if capture.URL, err = h.browser.CurrentURL(ctx); err != nil {
		h.logger.Warnf("Failed to read page URL: %v", err)
	}
	if capture.Title, err = h.browser.Title(ctx); err != nil {
		h.logger.Warnf("Failed to read page title: %v", err)
	}

	h.logger.WithFields(logrus.Fields{
		"capture":  capture.ID,
		"elements": len(records),
		"path":     capture.ScreenshotPath,
	}).Info("Page captured")
	return capture, nil
}

// Count - returns the number of screenshots taken so far
func (h *Harness) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Harness) markWithRetry(ctx context.Context) ([]entities.Record, error) {
	var lastErr error
	for attempt := 1; attempt <= h.opts.MarkAttempts; attempt++ {
		records, err := h.marker.ScanAndMark(ctx)
		if err == nil {
			return records, nil
		}
		lastErr = err
		h.logger.WithField("attempt", attempt).Warnf("Marking failed: %v", err)

		if attempt == h.opts.MarkAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("marking canceled: %w", ctx.Err())
		case <-time.After(h.opts.RetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to mark page after %d attempts: %w", h.opts.MarkAttempts, lastErr)
}

func (h *Harness) save(img []byte) (string, error) {
	if err := os.MkdirAll(h.opts.ScreenshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	path := filepath.Join(h.opts.ScreenshotDir, fmt.Sprintf("mark%d.png", h.count))
	if err := os.WriteFile(path, img, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return path, nil
}

// clear removes the markers; a failure leaves stale boxes on the page but not in the marker
func (h *Harness) clear(ctx context.Context) {
	if err := h.marker.Clear(ctx); err != nil {
		h.logger.Warnf("Failed to remove markers: %v", err)
	}
}
