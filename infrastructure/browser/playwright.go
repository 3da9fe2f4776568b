package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"page_marker/domain/interfaces"
	"page_marker/infrastructure/config"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

type playwrightBrowser struct {
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	page        playwright.Page
	pages       []playwright.Page
	pagesMutex  sync.Mutex
	loadTimeout time.Duration
	logger      *logrus.Logger
}

// NewPlaywrightBrowser - installs the driver if needed and launches Chromium through playwright
func NewPlaywrightBrowser(cfg config.Config, logger *logrus.Logger) (interfaces.Browser, error) {
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args: []string{
			"--disable-popup-blocking",
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-infobars",
			"--disable-notifications",
		},
	}
	if cfg.ChromeBinary != "" {
		launchOpts.ExecutablePath = playwright.String(cfg.ChromeBinary)
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  cfg.ViewportWidth,
			Height: cfg.ViewportHeight,
		},
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
		BypassCSP:         playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	b := &playwrightBrowser{
		pw:          pw,
		browser:     browser,
		context:     context,
		page:        page,
		pages:       []playwright.Page{page},
		loadTimeout: cfg.LoadTimeout,
		logger:      logger,
	}
	b.track(page)

	// popups become the marked page
	context.OnPage(func(newPage playwright.Page) {
		b.pagesMutex.Lock()
		b.pages = append(b.pages, newPage)
		b.page = newPage
		b.pagesMutex.Unlock()

		b.logger.Infof("Switched to new tab: %s", newPage.URL())
		b.track(newPage)
	})

	return b, nil
}

// track accepts dialogs on p and falls back to the first tab when p closes
func (b *playwrightBrowser) track(p playwright.Page) {
	p.OnDialog(func(dialog playwright.Dialog) {
		dialog.Accept()
	})

	p.OnClose(func(closedPage playwright.Page) {
		b.pagesMutex.Lock()
		defer b.pagesMutex.Unlock()

		for i, candidate := range b.pages {
			if candidate == closedPage {
				b.pages = append(b.pages[:i], b.pages[i+1:]...)
				break
			}
		}
		if b.page == closedPage && len(b.pages) > 0 {
			b.page = b.pages[0]
		}
	})
}

func (b *playwrightBrowser) current() playwright.Page {
	b.pagesMutex.Lock()
	defer b.pagesMutex.Unlock()
	return b.page
}

// Navigate - navigates to the specified URL
func (b *playwrightBrowser) Navigate(ctx context.Context, url string) error {
	_, err := b.current().Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(timeoutMillis(ctx, b.loadTimeout)),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForLoad - waits for the network to go idle
func (b *playwrightBrowser) WaitForLoad(ctx context.Context) error {
	return b.current().WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(timeoutMillis(ctx, b.loadTimeout)),
	})
}

// Evaluate - runs expression in the current tab
func (b *playwrightBrowser) Evaluate(ctx context.Context, expression string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result, err := b.current().Evaluate(expression)
	if err != nil {
		return "", err
	}
	return resultString(result)
}

// Screenshot - takes a PNG screenshot of the viewport
func (b *playwrightBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	return b.current().Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
}

func (b *playwrightBrowser) CurrentURL(ctx context.Context) (string, error) {
	return b.current().URL(), nil
}

func (b *playwrightBrowser) Title(ctx context.Context) (string, error) {
	return b.current().Title()
}

// Close - closes the context, the browser and the driver
func (b *playwrightBrowser) Close() error {
	var closeErr error

	if b.context != nil {
		if err := b.context.Close(); err != nil && !isClosedErr(err) {
			closeErr = fmt.Errorf("failed to close context: %w", err)
		}
		b.context = nil
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil && !isClosedErr(err) {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to close browser: %w", err))
		}
		b.browser = nil
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to stop playwright: %w", err))
		}
		b.pw = nil
	}

	return closeErr
}
