// Package browser holds the browser automation backends. Each one drives a real browser
// and exposes the page to the marker through JavaScript evaluation.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"page_marker/domain/interfaces"
	"page_marker/infrastructure/config"

	"github.com/sirupsen/logrus"
)

// ErrUnknownBackend is returned by New for a backend name it does not know
var ErrUnknownBackend = errors.New("unknown browser backend")

// New - starts the browser backend selected in cfg
func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (interfaces.Browser, error) {
	logger.WithFields(logrus.Fields{
		"backend":  cfg.Backend,
		"headless": cfg.Headless,
		"viewport": fmt.Sprintf("%dx%d", cfg.ViewportWidth, cfg.ViewportHeight),
	}).Info("Starting browser")

	switch cfg.Backend {
	case config.BackendPlaywright:
		return NewPlaywrightBrowser(cfg, logger)
	case config.BackendSelenium:
		b, err := NewSeleniumBrowser(cfg, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendRod:
		return NewRodBrowser(ctx, cfg, logger)
	case config.BackendChromedp:
		return NewChromedpBrowser(ctx, cfg, logger)
	case config.BackendCDP:
		return NewCDPBrowser(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// resultString converts a decoded evaluation result to the string the page scripts return
func resultString(v any) (string, error) {
	switch value := v.(type) {
	case string:
		return value, nil
	case nil:
		return "null", nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("unexpected script result %T: %w", v, err)
		}
		return string(data), nil
	}
}

// timeoutMillis returns fallback in milliseconds, shortened to the context deadline if one is closer
func timeoutMillis(ctx context.Context, fallback time.Duration) float64 {
	timeout := fallback
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = max(remaining, time.Millisecond)
		}
	}
	return float64(timeout.Milliseconds())
}

// isClosedErr reports errors raised when closing something already gone
func isClosedErr(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}
