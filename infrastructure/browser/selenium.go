package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"page_marker/domain/interfaces"
	"page_marker/infrastructure/config"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

type SeleniumBrowser struct {
	wd          selenium.WebDriver
	service     *selenium.Service
	logger      *logrus.Logger
	loadTimeout time.Duration
}

// findChromeDriver - finds ChromeDriver executable path
func findChromeDriver(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
	}

	commonPaths := []string{
		"/usr/local/bin/chromedriver",
		"/usr/bin/chromedriver",
		"/opt/homebrew/bin/chromedriver",
		filepath.Join(os.Getenv("HOME"), "bin", "chromedriver"),
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath("chromedriver"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("chromedriver not found. Please install it or set BROWSER_DRIVER_PATH environment variable")
}

// findChromeBinary - finds Chrome/Chromium browser executable path
func findChromeBinary(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	chromePaths := []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	}

	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}

// chromeArgs returns the Chrome command line flags for the selenium backend
func chromeArgs(cfg config.Config) []string {
	args := []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
		"--no-sandbox",
		fmt.Sprintf("--window-size=%d,%d", cfg.ViewportWidth, cfg.ViewportHeight),
	}
	if cfg.Headless {
		args = append(args, "--headless=new")
	}
	return args
}

// NewSeleniumBrowser - starts chromedriver and opens a Chrome session through it
func NewSeleniumBrowser(cfg config.Config, logger *logrus.Logger) (*SeleniumBrowser, error) {
	driverPath, err := findChromeDriver(cfg.ChromeDriverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find chromedriver: %w", err)
	}

	logger.Infof("Using ChromeDriver at: %s", driverPath)

	chromeBinary := findChromeBinary(cfg.ChromeBinary)
	if chromeBinary != "" {
		logger.Infof("Using Chrome binary at: %s", chromeBinary)
	}

	service, err := selenium.NewChromeDriverService(driverPath, cfg.ChromeDriverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	caps := selenium.Capabilities{
		"browserName": "chrome",
	}

	chromeCaps := chrome.Capabilities{
		Args: chromeArgs(cfg),
	}
	if chromeBinary != "" {
		chromeCaps.Path = chromeBinary
	}

	caps.AddChrome(chromeCaps)

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", cfg.ChromeDriverPort))
	if err != nil {
		service.Stop()
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("failed to create webdriver: Chrome browser not found. Please install Google Chrome or set CHROME_BINARY_PATH environment variable. Error: %w", err)
		}
		return nil, fmt.Errorf("failed to create webdriver: %w", err)
	}

	return &SeleniumBrowser{
		wd:          wd,
		service:     service,
		logger:      logger,
		loadTimeout: cfg.LoadTimeout,
	}, nil
}

// Navigate - navigates browser to specified URL
func (s *SeleniumBrowser) Navigate(ctx context.Context, url string) error {
	s.logger.Infof("Navigating to: %s", url)
	if err := s.wd.Get(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForLoad - polls document.readyState until the page reports complete
func (s *SeleniumBrowser) WaitForLoad(ctx context.Context) error {
	timeout := time.Duration(timeoutMillis(ctx, s.loadTimeout)) * time.Millisecond
	return s.wd.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		state, err := wd.ExecuteScript("return document.readyState;", nil)
		if err != nil {
			return false, nil
		}
		return state == "complete", nil
	}, timeout)
}

// Evaluate - runs expression through ExecuteScript
func (s *SeleniumBrowser) Evaluate(ctx context.Context, expression string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result, err := s.wd.ExecuteScript("return "+expression+";", nil)
	if err != nil {
		return "", err
	}
	return resultString(result)
}

// Screenshot - takes a PNG screenshot of the window
func (s *SeleniumBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	return s.wd.Screenshot()
}

func (s *SeleniumBrowser) CurrentURL(ctx context.Context) (string, error) {
	return s.wd.CurrentURL()
}

func (s *SeleniumBrowser) Title(ctx context.Context) (string, error) {
	return s.wd.Title()
}

// Close - ends the webdriver session and stops chromedriver
func (s *SeleniumBrowser) Close() error {
	var closeErr error
	if s.wd != nil {
		if err := s.wd.Quit(); err != nil && !isClosedErr(err) {
			closeErr = fmt.Errorf("failed to quit webdriver: %w", err)
		}
		s.wd = nil
	}
	if s.service != nil {
		if err := s.service.Stop(); err != nil {
			s.logger.Warnf("Failed to stop chromedriver: %v", err)
		}
		s.service = nil
	}
	return closeErr
}

// Ensure SeleniumBrowser implements Browser interface
var _ interfaces.Browser = (*SeleniumBrowser)(nil)
