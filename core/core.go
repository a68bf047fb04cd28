// Package core is the entry point for front ends: it queues document assembly on a
// background runner, counts tokens and keeps the last document for saving.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/lexandro/contextor-mcp/assemble"
	"github.com/lexandro/contextor-mcp/browse"
	"github.com/lexandro/contextor-mcp/cache"
	"github.com/lexandro/contextor-mcp/ignore"
	"github.com/lexandro/contextor-mcp/task"
	"github.com/lexandro/contextor-mcp/tokens"
)

// DefaultDepth asks SubmitAssembly and Assemble for the configured recursion limit.
// Any negative depth does the same; 0 renders selected directories as headers only.
const DefaultDepth = -1

// ErrNothingToSave is returned by Save before any assembly has completed.
var ErrNothingToSave = errors.New("no assembled document to save")

// Document is the product of one assembly.
type Document struct {
	Markdown string
	Tokens   int
}

// Result is delivered once per submitted assembly. Markdown holds the document, the
// cancelled sentinel or an error message, whichever a user should see.
type Result struct {
	Markdown string
	Tokens   int
	Status   task.Status
	Err      error
	Elapsed  time.Duration
}

// Options configures a Core.
type Options struct {
	Root        string // directory display paths are relative to
	MaxDepth    *int   // default recursion limit, nil means assemble.DefaultMaxDepth
	ShowIgnored bool

	Rules   *ignore.RuleSet
	Store   *cache.Store
	Counter *tokens.Counter
	Logger  *slog.Logger

	OnProgress func(message string)
	Dispatch   func(func())
}

// Core wires the assembler, the token counter and the task runner together.
type Core struct {
	root        string
	maxDepth    int
	showIgnored bool

	assembler *assemble.Assembler
	counter   *tokens.Counter
	runner    *task.Runner[Document]
	logger    *slog.Logger

	mu           sync.Mutex
	lastMarkdown string
}

// New creates a Core and starts its background runner.
func New(options Options) (*Core, error) {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	root, err := filepath.Abs(options.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", options.Root, err)
	}
	maxDepth := assemble.DefaultMaxDepth
	if options.MaxDepth != nil {
		if *options.MaxDepth < 0 {
			return nil, fmt.Errorf("invalid max depth %d", *options.MaxDepth)
		}
		maxDepth = *options.MaxDepth
	}
	if options.Counter == nil {
		options.Counter = tokens.NewCounterWithBackend(tokens.RegexBackend{}, tokens.Options{Logger: options.Logger})
	}

	return &Core{
		root:        root,
		maxDepth:    maxDepth,
		showIgnored: options.ShowIgnored,
		assembler: assemble.New(assemble.Options{
			Rules:  options.Rules,
			Store:  options.Store,
			Logger: options.Logger,
		}),
		counter: options.Counter,
		runner: task.NewRunner[Document](task.Options{
			Logger:     options.Logger,
			OnProgress: options.OnProgress,
			Dispatch:   options.Dispatch,
		}),
		logger: options.Logger,
	}, nil
}

// Root returns the absolute root directory.
func (c *Core) Root() string { return c.root }

// MaxDepth returns the default recursion limit.
func (c *Core) MaxDepth() int { return c.maxDepth }

// ShowIgnored returns the default for including ignored entries.
func (c *Core) ShowIgnored() bool { return c.showIgnored }

// Store returns the listing and content caches.
func (c *Core) Store() *cache.Store { return c.assembler.Store() }

// Rules returns the ignore rules.
func (c *Core) Rules() *ignore.RuleSet { return c.assembler.Rules() }

// Counter returns the token counter.
func (c *Core) Counter() *tokens.Counter { return c.counter }

// Busy reports whether an assembly is running.
func (c *Core) Busy() bool { return c.runner.Busy() }

// Pending returns the number of queued assemblies.
func (c *Core) Pending() int { return c.runner.Pending() }

// SubmitAssembly queues an assembly and returns immediately. onComplete is called
// exactly once. A negative maxDepth (DefaultDepth) uses the configured default.
func (c *Core) SubmitAssembly(selections []string, maxDepth int, showIgnored bool, onComplete func(Result)) error {
	return c.submit(context.Background(), selections, maxDepth, showIgnored, onComplete)
}

// Assemble queues an assembly and waits for its result. Cancelling ctx cancels this
// assembly only.
func (c *Core) Assemble(ctx context.Context, selections []string, maxDepth int, showIgnored bool) Result {
	done := make(chan Result, 1)
	if err := c.submit(ctx, selections, maxDepth, showIgnored, func(r Result) { done <- r }); err != nil {
		return Result{Markdown: "Error: " + err.Error(), Status: task.StatusFailed, Err: err}
	}
	return <-done
}

// CancelCurrentAssembly cancels the running assembly, or the next queued one.
func (c *Core) CancelCurrentAssembly() bool {
	return c.runner.Cancel()
}

// CountTokens counts tokens synchronously.
func (c *Core) CountTokens(text string) int {
	return c.counter.Count(text)
}

// LastMarkdown returns the most recently completed document.
func (c *Core) LastMarkdown() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMarkdown
}

// Save writes the last document verbatim to path, or to <root>/llm.txt when path is
// empty, and returns the path written.
func (c *Core) Save(path string) (string, error) {
	markdown := c.LastMarkdown()
	if markdown == "" {
		return "", ErrNothingToSave
	}
	if path == "" {
		path = filepath.Join(c.root, browse.DefaultOutputName)
	}
	if err := browse.SaveText(path, markdown); err != nil {
		return "", err
	}
	c.logger.Info("saved document", "path", path, "bytes", len(markdown))
	return path, nil
}

// Close stops the runner. Queued assemblies complete as cancelled.
func (c *Core) Close() {
	c.runner.Close()
}

func (c *Core) submit(ctx context.Context, selections []string, maxDepth int, showIgnored bool, onComplete func(Result)) error {
	if len(selections) == 0 {
		return errors.New("no paths selected")
	}
	if maxDepth < 0 {
		maxDepth = c.maxDepth
	}
	job := assemble.Job{
		Root:        c.root,
		Selections:  append([]string(nil), selections...),
		MaxDepth:    maxDepth,
		ShowIgnored: showIgnored,
	}

	work := func(runCtx context.Context) (Document, error) {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		jobCtx, cancel := context.WithCancel(runCtx)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		markdown, err := c.assembler.RenderSelections(jobCtx, job)
		if err != nil {
			return Document{}, err
		}
		return Document{Markdown: markdown, Tokens: c.counter.Count(markdown)}, nil
	}

	return c.runner.Submit(describe(selections), work, func(o task.Outcome[Document]) {
		result := Result{Status: o.Status, Err: o.Err, Elapsed: o.Elapsed}
		switch o.Status {
		case task.StatusCompleted:
			result.Markdown = o.Value.Markdown
			result.Tokens = o.Value.Tokens
			c.mu.Lock()
			c.lastMarkdown = o.Value.Markdown
			c.mu.Unlock()
		case task.StatusCancelled:
			result.Markdown = assemble.CancelledMessage
		default:
			result.Markdown = "Error: " + o.Err.Error()
		}
		if onComplete != nil {
			onComplete(result)
		}
	})
}

func describe(selections []string) string {
	if len(selections) == 1 {
		return "assembly of " + filepath.Base(selections[0])
	}
	return fmt.Sprintf("assembly of %d selections", len(selections))
}
