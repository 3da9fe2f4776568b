package interfaces

import "context"

// Evaluator runs a JavaScript expression in the page. The expression must evaluate
// to a string, which is returned as-is (scripts return JSON.stringify output).
type Evaluator interface {
	Evaluate(ctx context.Context, expression string) (string, error)
}

// Browser defines the interface for the browser automation backends
type Browser interface {
	Evaluator

	// Navigate navigates to a URL
	Navigate(ctx context.Context, url string) error

	// WaitForLoad waits until the page is loaded and the network is idle
	WaitForLoad(ctx context.Context) error

	// Screenshot takes a PNG screenshot of the viewport
	Screenshot(ctx context.Context) ([]byte, error)

	// CurrentURL returns the current page URL
	CurrentURL(ctx context.Context) (string, error)

	// Title returns the current page title
	Title(ctx context.Context) (string, error)

	// Close closes the browser
	Close() error
}
