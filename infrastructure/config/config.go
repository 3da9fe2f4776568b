package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported browser backends
const (
	BackendPlaywright = "playwright"
	BackendSelenium   = "selenium"
	BackendRod        = "rod"
	BackendChromedp   = "chromedp"
	BackendCDP        = "cdp"
)

// FileEnv names the environment variable pointing at an optional YAML config file
const FileEnv = "PAGE_MARKER_CONFIG"

type Config struct {
	Backend        string `yaml:"backend"`
	Headless       bool   `yaml:"headless"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
	StartURL       string `yaml:"start_url"`

	ScreenshotDir string `yaml:"screenshot_dir"`
	SnapshotDir   string `yaml:"snapshot_dir"`

	MarkAttempts int           `yaml:"mark_attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	LoadTimeout  time.Duration `yaml:"load_timeout"`

	// CDPURL is the DevTools endpoint of an already running Chrome (cdp backend),
	// or a control websocket URL for rod
	CDPURL           string `yaml:"cdp_url"`
	ChromeDriverPath string `yaml:"chromedriver_path"`
	ChromeDriverPort int    `yaml:"chromedriver_port"`
	ChromeBinary     string `yaml:"chrome_binary"`
	Stealth          bool   `yaml:"stealth"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Backend:          BackendPlaywright,
		Headless:         false,
		ViewportWidth:    1280,
		ViewportHeight:   720,
		ScreenshotDir:    "screenshots",
		SnapshotDir:      "snapshots",
		MarkAttempts:     10,
		RetryDelay:       3 * time.Second,
		LoadTimeout:      60 * time.Second,
		CDPURL:           "http://127.0.0.1:9222",
		ChromeDriverPort: 9515,
		LogLevel:         "info",
	}
}

// Load - reads .env, then the YAML file named by PAGE_MARKER_CONFIG, then environment overrides
func Load() (Config, error) {
	// .env file is optional
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from environment variables found by lookup
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("BROWSER_BACKEND", &c.Backend)
	str("START_URL", &c.StartURL)
	str("SCREENSHOT_DIR", &c.ScreenshotDir)
	str("SNAPSHOT_DIR", &c.SnapshotDir)
	str("CDP_URL", &c.CDPURL)
	str("BROWSER_DRIVER_PATH", &c.ChromeDriverPath)
	str("CHROME_BINARY_PATH", &c.ChromeBinary)
	str("LOG_LEVEL", &c.LogLevel)

	ints := map[string]*int{
		"VIEWPORT_WIDTH":    &c.ViewportWidth,
		"VIEWPORT_HEIGHT":   &c.ViewportHeight,
		"MARK_ATTEMPTS":     &c.MarkAttempts,
		"CHROMEDRIVER_PORT": &c.ChromeDriverPort,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"HEADLESS": &c.Headless,
		"STEALTH":  &c.Stealth,
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = b
	}

	durations := map[string]*time.Duration{
		"RETRY_DELAY":  &c.RetryDelay,
		"LOAD_TIMEOUT": &c.LoadTimeout,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = d
	}
	return nil
}

// Validate - rejects unknown backends and unusable sizes
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendPlaywright, BackendSelenium, BackendRod, BackendChromedp, BackendCDP:
	default:
		return fmt.Errorf("unknown browser backend %q", c.Backend)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.MarkAttempts <= 0 {
		return fmt.Errorf("mark attempts must be positive, got %d", c.MarkAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay)
	}
	return nil
}
