package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"page_marker/domain/interfaces"
	"page_marker/infrastructure/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"
)

type rodBrowser struct {
	browser     *rod.Browser
	page        *rod.Page
	lnch        *launcher.Launcher
	loadTimeout time.Duration
	logger      *logrus.Logger
}

// NewRodBrowser - launches a local Chrome, or connects to cfg.CDPURL when it is a websocket URL,
// and opens one tab, stealthy when cfg.Stealth is set
func NewRodBrowser(ctx context.Context, cfg config.Config, logger *logrus.Logger) (interfaces.Browser, error) {
	r := &rodBrowser{
		loadTimeout: cfg.LoadTimeout,
		logger:      logger,
	}

	var wsURL string
	if strings.HasPrefix(cfg.CDPURL, "ws://") || strings.HasPrefix(cfg.CDPURL, "wss://") {
		wsURL = cfg.CDPURL
		logger.Infof("Connecting to remote browser: %s", wsURL)
	} else {
		l := launcher.New().Headless(cfg.Headless)
		if bin := findChromeBinary(cfg.ChromeBinary); bin != "" {
			l = l.Bin(bin)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")
		l = l.Set("window-size", fmt.Sprintf("%d,%d", cfg.ViewportWidth, cfg.ViewportHeight))

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		wsURL = u
		r.lnch = l
		logger.Infof("Launched local browser: %s", wsURL)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		r.cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	// later calls use their own contexts
	r.browser = b.Context(context.Background())

	var page *rod.Page
	var err error
	if cfg.Stealth {
		page, err = stealth.Page(r.browser)
	} else {
		page, err = r.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		logger.Warnf("Failed to set viewport: %v", err)
	}
	r.page = page

	return r, nil
}

// Navigate - navigates the tab and waits for the load event
func (r *rodBrowser) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	defer cancel()

	if err := r.page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := r.page.Context(navCtx).WaitLoad(); err != nil {
		r.logger.Warnf("Wait load timeout for %s: %v", url, err)
	}
	return nil
}

// WaitForLoad - waits for the load event, then for the network to settle
func (r *rodBrowser) WaitForLoad(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	defer cancel()

	page := r.page.Context(waitCtx)
	if err := page.WaitLoad(); err != nil {
		return err
	}
	return page.WaitIdle(time.Second)
}

// Evaluate - runs expression in the tab and returns its string value
func (r *rodBrowser) Evaluate(ctx context.Context, expression string) (string, error) {
	res, err := r.page.Context(ctx).Eval("() => " + expression)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Screenshot - takes a PNG screenshot of the viewport
func (r *rodBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	return r.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (r *rodBrowser) CurrentURL(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (r *rodBrowser) Title(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

// Close - closes the browser and removes the launched process
func (r *rodBrowser) Close() error {
	var closeErr error
	if r.browser != nil {
		if err := r.browser.Close(); err != nil && !isClosedErr(err) {
			closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
		r.browser = nil
	}
	r.cleanup()
	return closeErr
}

func (r *rodBrowser) cleanup() {
	if r.lnch != nil {
		r.lnch.Kill()
		r.lnch.Cleanup()
		r.lnch = nil
	}
}
