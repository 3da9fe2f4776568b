package terminal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"page_marker/application/capture"
	"page_marker/application/marker"
	"page_marker/domain/entities"
	"page_marker/domain/interfaces"
	"page_marker/infrastructure/browser"
	"page_marker/infrastructure/config"
	"page_marker/infrastructure/dom"
	"page_marker/infrastructure/storage"

	"github.com/sirupsen/logrus"
)

const helpText = `Commands:
  open <url>      navigate and prepare the page
  mark            mark actionable elements and list them
  clear           remove the markers
  capture         mark, screenshot, unmark
  json            print the last result as JSON
  record <name>   save a snapshot of the page
  replay <name>   mark a saved snapshot offline
  snapshots       list saved snapshots
  help            show this help
  quit            exit`

// livePage is the browser page as seen by the terminal: markable and recordable
type livePage interface {
	interfaces.Page
	Snapshot(ctx context.Context) (*entities.PageSnapshot, error)
}

type TerminalInterface struct {
	browser  interfaces.Browser
	page     livePage
	marker   *marker.Marker
	harness  *capture.Harness
	store    interfaces.SnapshotStore
	logger   *logrus.Logger
	reader   *bufio.Reader
	out      io.Writer
	startURL string

	// last holds the result of the latest mark, capture or replay for the json command
	last any
}

// NewTerminalInterface - starts the configured browser and wires the marker around it
func NewTerminalInterface(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*TerminalInterface, error) {
	store, err := storage.NewSnapshotStore(cfg.SnapshotDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot storage: %w", err)
	}

	browserCtrl, err := browser.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	t := newTerminal(browserCtrl, dom.NewPage(browserCtrl), store, cfg, logger, os.Stdin, os.Stdout)
	return t, nil
}

func newTerminal(b interfaces.Browser, page livePage, store interfaces.SnapshotStore, cfg config.Config, logger *logrus.Logger, in io.Reader, out io.Writer) *TerminalInterface {
	m := marker.New(page, marker.WithLogger(logger))
	harness := capture.NewHarness(b, m, capture.Options{
		MarkAttempts:  cfg.MarkAttempts,
		RetryDelay:    cfg.RetryDelay,
		ScreenshotDir: cfg.ScreenshotDir,
	}, logger)

	return &TerminalInterface{
		browser:  b,
		page:     page,
		marker:   m,
		harness:  harness,
		store:    store,
		logger:   logger,
		reader:   bufio.NewReader(in),
		out:      out,
		startURL: cfg.StartURL,
	}
}

// Run - reads commands until quit or end of input
func (t *TerminalInterface) Run(ctx context.Context) error {
	fmt.Fprintln(t.out, "Page Marker")
	fmt.Fprintln(t.out, "===========")
	fmt.Fprintln(t.out, "Type 'help' for commands, or 'quit' to exit")
	fmt.Fprintln(t.out)

	if t.startURL != "" {
		if err := t.harness.Open(ctx, t.startURL); err != nil {
			fmt.Fprintf(t.out, "Failed to open %s: %v\n", t.startURL, err)
		}
	}

	for {
		fmt.Fprint(t.out, "> ")
		input, err := t.reader.ReadString('\n')
		if err != nil && input == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		quit, cmdErr := t.execute(ctx, input)
		if quit {
			fmt.Fprintln(t.out, "Bye!")
			return nil
		}
		if cmdErr != nil {
			fmt.Fprintf(t.out, "Error: %v\n", cmdErr)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// execute runs one command line and reports whether the loop should stop
func (t *TerminalInterface) execute(ctx context.Context, input string) (bool, error) {
	command, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(command) {
	case "quit", "exit", "q":
		return true, nil

	case "help":
		fmt.Fprintln(t.out, helpText)

	case "open":
		if arg == "" {
			return false, errors.New("usage: open <url>")
		}
		return false, t.harness.Open(ctx, arg)

	case "mark":
		records, err := t.marker.ScanAndMark(ctx)
		if err != nil {
			return false, err
		}
		t.last = records
		t.printRecords(records)

	case "clear":
		return false, t.marker.Clear(ctx)

	case "capture":
		result, err := t.harness.Capture(ctx)
		if err != nil {
			return false, err
		}
		t.last = result
		if result.ScreenshotPath != "" {
			fmt.Fprintf(t.out, "Screenshot saved to %s\n", result.ScreenshotPath)
		}
		t.printRecords(result.Records)

	case "json":
		if t.last == nil {
			return false, errors.New("nothing marked yet")
		}
		data, err := json.MarshalIndent(t.last, "", "  ")
		if err != nil {
			return false, err
		}
		fmt.Fprintln(t.out, string(data))

	case "record":
		if arg == "" {
			return false, errors.New("usage: record <name>")
		}
		snapshot, err := t.page.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		if err := t.store.Save(arg, snapshot); err != nil {
			return false, fmt.Errorf("failed to save snapshot: %w", err)
		}
		fmt.Fprintf(t.out, "Recorded %d elements of %s as %s\n", len(snapshot.Nodes), snapshot.URL, arg)

	case "replay":
		if arg == "" {
			return false, errors.New("usage: replay <name>")
		}
		return false, t.replay(ctx, arg)

	case "snapshots":
		names, err := t.store.List()
		if err != nil {
			return false, err
		}
		if len(names) == 0 {
			fmt.Fprintln(t.out, "No snapshots")
		}
		for _, name := range names {
			fmt.Fprintln(t.out, name)
		}

	default:
		return false, fmt.Errorf("unknown command %q, type 'help'", command)
	}
	return false, nil
}

// replay marks a stored snapshot without touching the browser
func (t *TerminalInterface) replay(ctx context.Context, name string) error {
	snapshot, err := t.store.Load(name)
	if err != nil {
		return err
	}

	offline := marker.New(dom.NewStaticPage(snapshot), marker.WithLogger(t.logger))
	records, err := offline.ScanAndMark(ctx)
	if err != nil {
		return err
	}
	t.last = records

	fmt.Fprintf(t.out, "Snapshot %s of %s (%s)\n", name, snapshot.URL, snapshot.RecordedAt.Format("2006-01-02 15:04:05"))
	t.printRecords(records)
	return nil
}

func (t *TerminalInterface) printRecords(records []entities.Record) {
	if len(records) == 0 {
		fmt.Fprintln(t.out, "No actionable elements found")
		return
	}
	fmt.Fprintln(t.out, entities.DescribeRecords(records))
}

func (t *TerminalInterface) Close() error {
	return t.browser.Close()
}
