// Package cdp is a minimal Chrome DevTools Protocol client for attaching to a page of an
// already running browser.
package cdp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// DefaultURL is the DevTools HTTP endpoint Chrome listens on with --remote-debugging-port=9222
const DefaultURL = "http://127.0.0.1:9222"

const defaultCallTimeout = 20 * time.Second

// Client multiplexes protocol calls over one websocket. A single reader goroutine owns the
// read side and hands each response to the call waiting on its id.
type Client struct {
	conn *websocket.Conn

	mu        sync.Mutex
	idCounter int64
	pending   map[int64]chan envelope
	enabled   map[string]bool
	readErr   error

	done chan struct{}
}

type targetResponse struct {
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

type envelope struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *responseError  `json:"error,omitempty"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Dial attaches to the first page target listed by the DevTools endpoint at baseURL
func Dial(ctx context.Context, baseURL string) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = DefaultURL
	}
	trimmed = strings.TrimSuffix(trimmed, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed+"/json/list", nil)
	if err != nil {
		return nil, fmt.Errorf("build target request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query cdp target endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cdp target endpoint returned status %d", resp.StatusCode)
	}

	var targets []targetResponse
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, fmt.Errorf("decode cdp target response: %w", err)
	}

	var pageSocketURL string
	for _, target := range targets {
		if target.Type == "page" && strings.TrimSpace(target.WebSocketDebuggerURL) != "" {
			pageSocketURL = target.WebSocketDebuggerURL
			break
		}
	}
	if pageSocketURL == "" {
		return nil, fmt.Errorf("no page target websocket found")
	}

	conn, _, err := websocket.Dial(ctx, pageSocketURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial cdp websocket: %w", err)
	}
	// snapshots of large pages exceed the default 32KiB frame limit
	conn.SetReadLimit(64 << 20)

	c := &Client{
		conn:    conn,
		pending: make(map[int64]chan envelope),
		enabled: make(map[string]bool),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// readLoop dispatches responses until the connection fails or is closed. Events and
// responses nobody waits for any more are dropped.
func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, message, err := c.conn.Read(context.Background())
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil || env.ID == 0 {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		delete(c.pending, env.ID)
		c.mu.Unlock()
		if ok {
			ch <- env
		}
	}
}

func (c *Client) connErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return c.readErr
	}
	return errors.New("connection closed")
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}

// Enable turns on a protocol domain once per connection
func (c *Client) Enable(ctx context.Context, domain string) error {
	c.mu.Lock()
	done := c.enabled[domain]
	c.mu.Unlock()
	if done {
		return nil
	}

	if err := c.Call(ctx, domain+".enable", nil, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.enabled[domain] = true
	c.mu.Unlock()
	return nil
}

func (c *Client) Navigate(ctx context.Context, targetURL string) error {
	if err := c.Enable(ctx, "Page"); err != nil {
		return err
	}
	var response struct {
		ErrorText string `json:"errorText"`
	}
	if err := c.Call(ctx, "Page.navigate", map[string]any{"url": targetURL}, &response); err != nil {
		return err
	}
	if response.ErrorText != "" {
		return fmt.Errorf("navigate %s: %s", targetURL, response.ErrorText)
	}
	return nil
}

// SetViewport overrides the page's device metrics
func (c *Client) SetViewport(ctx context.Context, width, height int) error {
	return c.Call(ctx, "Emulation.setDeviceMetricsOverride", map[string]any{
		"width":             width,
		"height":            height,
		"deviceScaleFactor": 1,
		"mobile":            false,
	}, nil)
}

// CaptureScreenshot returns the viewport as decoded PNG bytes
func (c *Client) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	if err := c.Enable(ctx, "Page"); err != nil {
		return nil, err
	}
	var response struct {
		Data string `json:"data"`
	}
	if err := c.Call(ctx, "Page.captureScreenshot", map[string]any{"format": "png"}, &response); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(response.Data)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return data, nil
}

func (c *Client) EvaluateString(ctx context.Context, expression string) (string, error) {
	value, err := c.EvaluateAny(ctx, expression)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", nil
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

func (c *Client) EvaluateAny(ctx context.Context, expression string) (any, error) {
	if err := c.Enable(ctx, "Runtime"); err != nil {
		return nil, err
	}
	var response struct {
		Result struct {
			Value any `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := c.Call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  true,
	}, &response); err != nil {
		return nil, err
	}
	if details := response.ExceptionDetails; details != nil {
		message := details.Text
		if details.Exception != nil && details.Exception.Description != "" {
			message = details.Exception.Description
		}
		return nil, fmt.Errorf("script threw: %s", message)
	}
	return response.Result.Value, nil
}

// Call sends one protocol command and waits for its result, decoding it into out. When ctx
// ends first the call is abandoned and its late response dropped; the connection stays usable.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cdp %s: %w", method, err)
	}

	ch := make(chan envelope, 1)
	c.mu.Lock()
	if c.readErr != nil {
		err := c.readErr
		c.mu.Unlock()
		return fmt.Errorf("read cdp response: %w", err)
	}
	c.idCounter++
	requestID := c.idCounter
	c.pending[requestID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
	}()

	payload := map[string]any{
		"id":     requestID,
		"method": method,
	}
	if params != nil {
		payload["params"] = params
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode cdp request: %w", err)
	}

	deadline := time.Now().Add(defaultCallTimeout)
	if explicit, ok := ctx.Deadline(); ok {
		deadline = explicit
	}
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	// the websocket closes itself when a write context ends, so writes get their own timeout
	writeCtx, cancelWrite := context.WithTimeout(context.Background(), defaultCallTimeout)
	err = c.conn.Write(writeCtx, websocket.MessageText, raw)
	cancelWrite()
	if err != nil {
		return fmt.Errorf("write cdp request: %w", err)
	}

	var env envelope
	select {
	case env = <-ch:
	case <-c.done:
		return fmt.Errorf("read cdp response: %w", c.connErr())
	case <-callCtx.Done():
		return fmt.Errorf("wait for cdp %s response: %w", method, callCtx.Err())
	}

	if env.Error != nil {
		return fmt.Errorf("cdp %s failed (%d): %s", method, env.Error.Code, env.Error.Message)
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode %s response: %w", method, err)
		}
	}
	return nil
}
