package browser

import (
	"context"
	"fmt"
	"time"

	"page_marker/domain/interfaces"
	"page_marker/infrastructure/cdp"
	"page_marker/infrastructure/config"

	"github.com/sirupsen/logrus"
)

const loadPollInterval = 150 * time.Millisecond

type cdpBrowser struct {
	client      *cdp.Client
	loadTimeout time.Duration
	logger      *logrus.Logger
}

// NewCDPBrowser - attaches to the first page of a Chrome already running with remote debugging
func NewCDPBrowser(ctx context.Context, cfg config.Config, logger *logrus.Logger) (interfaces.Browser, error) {
	client, err := cdp.Dial(ctx, cfg.CDPURL)
	if err != nil {
		return nil, fmt.Errorf("failed to attach to %s: %w", cfg.CDPURL, err)
	}
	logger.Infof("Attached to browser at %s", cfg.CDPURL)

	if err := client.SetViewport(ctx, cfg.ViewportWidth, cfg.ViewportHeight); err != nil {
		logger.Warnf("Failed to set viewport: %v", err)
	}

	return &cdpBrowser{
		client:      client,
		loadTimeout: cfg.LoadTimeout,
		logger:      logger,
	}, nil
}

// Navigate - starts navigation and waits for the document to load
func (c *cdpBrowser) Navigate(ctx context.Context, url string) error {
	if err := c.client.Navigate(ctx, url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return c.WaitForLoad(ctx)
}

// WaitForLoad - polls document.readyState until complete
func (c *cdpBrowser) WaitForLoad(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()

	for {
		state, err := c.client.EvaluateString(waitCtx, "document.readyState")
		if err == nil && state == "complete" {
			return nil
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("timeout waiting for page load: %w", waitCtx.Err())
		case <-time.After(loadPollInterval):
		}
	}
}

func (c *cdpBrowser) Evaluate(ctx context.Context, expression string) (string, error) {
	return c.client.EvaluateString(ctx, expression)
}

func (c *cdpBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	return c.client.CaptureScreenshot(ctx)
}

func (c *cdpBrowser) CurrentURL(ctx context.Context) (string, error) {
	return c.client.EvaluateString(ctx, "window.location.href")
}

func (c *cdpBrowser) Title(ctx context.Context) (string, error) {
	return c.client.EvaluateString(ctx, "document.title")
}

// Close - detaches from the page, leaving the browser running
func (c *cdpBrowser) Close() error {
	if err := c.client.Close(); err != nil && !isClosedErr(err) {
		return err
	}
	return nil
}
