package browser

import (
	"context"
	"fmt"
	"time"

	"page_marker/domain/interfaces"
	"page_marker/infrastructure/config"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

type chromedpBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	loadTimeout   time.Duration
	logger        *logrus.Logger
}

// NewChromedpBrowser - starts Chrome through a chromedp exec allocator
func NewChromedpBrowser(ctx context.Context, cfg config.Config, logger *logrus.Logger) (interfaces.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if bin := findChromeBinary(cfg.ChromeBinary); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Debugf),
		chromedp.WithErrorf(logger.Errorf),
	)

	c := &chromedpBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		loadTimeout:   cfg.LoadTimeout,
		logger:        logger,
	}

	// the first Run starts the browser and must not use a shorter-lived context
	if err := chromedp.Run(browserCtx, chromedp.EmulateViewport(int64(cfg.ViewportWidth), int64(cfg.ViewportHeight))); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return c, nil
}

// run executes actions on the browser tab, cancelled together with ctx
func (c *chromedpBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate - navigates and waits for the load event
func (c *chromedpBrowser) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()

	if err := c.run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForLoad - waits until the body is ready
func (c *chromedpBrowser) WaitForLoad(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()

	return c.run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery))
}

// Evaluate - runs expression and decodes its string value
func (c *chromedpBrowser) Evaluate(ctx context.Context, expression string) (string, error) {
	var result string
	if err := c.run(ctx, chromedp.Evaluate(expression, &result)); err != nil {
		return "", err
	}
	return result, nil
}

// Screenshot - takes a PNG screenshot of the viewport
func (c *chromedpBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := c.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *chromedpBrowser) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (c *chromedpBrowser) Title(ctx context.Context) (string, error) {
	var title string
	if err := c.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Close - closes the tab, then the browser process
func (c *chromedpBrowser) Close() error {
	if c.browserCancel != nil {
		c.browserCancel()
		c.browserCancel = nil
	}
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
	}
	return nil
}
