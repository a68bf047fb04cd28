// Package assemble renders selected files and directories into one Markdown document.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexandro/contextor-mcp/cache"
	"github.com/lexandro/contextor-mcp/ignore"
	"github.com/lexandro/contextor-mcp/language"
	"github.com/lexandro/contextor-mcp/metrics"
)

// CancelledMessage replaces the whole document when a render is cancelled.
const CancelledMessage = "Operation cancelled."

// BinaryPlaceholder stands in for the code block of a file that is not text.
const BinaryPlaceholder = "*Binary content omitted*"

// DefaultMaxDepth is the directory recursion limit used when none is configured.
const DefaultMaxDepth = 3

// ErrSymlinkCycle is reported for a directory that resolves to one of its own ancestors.
var ErrSymlinkCycle = errors.New("symlink cycle")

// Job describes one render request.
type Job struct {
	// Root anchors display paths. Empty means each selection's parent directory.
	Root        string
	Selections  []string
	MaxDepth    int
	ShowIgnored bool
}

// Options configures an Assembler.
type Options struct {
	Rules  *ignore.RuleSet
	Store  *cache.Store
	Logger *slog.Logger
}

// Assembler walks selections and produces Markdown, reading through the shared caches.
type Assembler struct {
	rules  *ignore.RuleSet
	store  *cache.Store
	logger *slog.Logger
}

// New creates an Assembler. Nil rules and store get the defaults.
func New(options Options) *Assembler {
	if options.Rules == nil {
		options.Rules = ignore.DefaultRuleSet()
	}
	if options.Store == nil {
		options.Store = cache.NewStore(cache.StoreOptions{})
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Assembler{rules: options.Rules, store: options.Store, logger: options.Logger}
}

// Store returns the caches the assembler reads through.
func (a *Assembler) Store() *cache.Store { return a.store }

// Rules returns the ignore rules in effect.
func (a *Assembler) Rules() *ignore.RuleSet { return a.rules }

// RenderSelections renders every selection in order and joins the fragments. Unreadable
// files and folders are reported inline. When ctx is cancelled the partial document is
// discarded and CancelledMessage is returned with the context error.
func (a *Assembler) RenderSelections(ctx context.Context, job Job) (string, error) {
	start := time.Now()

	root := ""
	if job.Root != "" {
		absRoot, err := filepath.Abs(job.Root)
		if err != nil {
			return "", fmt.Errorf("resolving root %s: %w", job.Root, err)
		}
		root = absRoot
	}

	var sb strings.Builder
	for _, selection := range job.Selections {
		if ctx.Err() != nil {
			return CancelledMessage, ctx.Err()
		}

		path, err := filepath.Abs(selection)
		if err != nil {
			return "", fmt.Errorf("resolving selection %s: %w", selection, err)
		}

		w := walk{
			Assembler:   a,
			ctx:         ctx,
			out:         &sb,
			root:        root,
			maxDepth:    job.MaxDepth,
			showIgnored: job.ShowIgnored,
		}
		if w.root == "" {
			w.root = filepath.Dir(path)
		}
		w.rootName = filepath.Base(w.root)

		if err := w.render(path, 0); err != nil {
			a.logger.Info("render cancelled", "selection", path, "elapsed", time.Since(start))
			return CancelledMessage, err
		}
	}

	doc := sb.String()
	metrics.RecordDocument(len(doc))
	a.logger.Debug("render complete",
		"selections", len(job.Selections),
		"bytes", len(doc),
		"elapsed", time.Since(start),
	)
	return doc, nil
}

// walk carries the state of one selection's traversal.
type walk struct {
	*Assembler
	ctx         context.Context
	out         *strings.Builder
	root        string
	rootName    string
	maxDepth    int
	showIgnored bool

	// ancestors holds the directories on the current recursion path.
	ancestors []os.FileInfo
}

// render appends the fragment for path. The only error it returns is the context
// error after cancellation.
func (w *walk) render(path string, depth int) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if w.showIgnored || !w.rules.ShouldIgnoreEntry(filepath.Base(path), false, false) {
			fmt.Fprintf(w.out, "## %s\n\n*Cannot read file: %v*\n\n", w.display(path), err)
		}
		return nil
	}

	isDir := info.IsDir()
	isFile := info.Mode().IsRegular()
	if !w.showIgnored && w.rules.ShouldIgnoreEntry(filepath.Base(path), isDir, isFile) {
		return nil
	}

	switch {
	case isFile:
		w.renderFile(path, info.Size())
		return nil
	case isDir:
		return w.renderDir(path, info, depth)
	default:
		return nil
	}
}

func (w *walk) renderFile(path string, size int64) {
	fmt.Fprintf(w.out, "## %s\n\n*%s*\n\n", w.display(path), FormatSize(size))

	content, err := w.readContent(path)
	switch {
	case errors.Is(err, language.ErrBinaryContent):
		w.out.WriteString(BinaryPlaceholder + "\n\n")
	case err != nil:
		w.logger.Warn("cannot read file", "path", path, "error", err)
		fmt.Fprintf(w.out, "*Cannot read file: %v*\n\n", err)
	default:
		fmt.Fprintf(w.out, "```%s\n%s\n```\n\n", language.FenceTag(path), content)
	}
}

func (w *walk) renderDir(path string, info os.FileInfo, depth int) error {
	fmt.Fprintf(w.out, "## %s/\n\n", w.display(path))

	if w.onPath(info) {
		w.logger.Warn("cannot read folder", "path", path, "error", ErrSymlinkCycle)
		fmt.Fprintf(w.out, "*Cannot read folder: %v*\n\n", ErrSymlinkCycle)
		return nil
	}
	if depth >= w.maxDepth {
		fmt.Fprintf(w.out, "*Directory content not shown due to depth limit (%d)*\n\n", w.maxDepth)
		return nil
	}

	entries, err := ListDir(w.store, w.rules, path, w.showIgnored)
	if err != nil {
		w.logger.Warn("cannot read folder", "path", path, "error", err)
		fmt.Fprintf(w.out, "*Cannot read folder: %v*\n\n", errors.Unwrap(err))
		return nil
	}

	w.ancestors = append(w.ancestors, info)
	defer func() { w.ancestors = w.ancestors[:len(w.ancestors)-1] }()

	dirs, files := splitEntries(entries)
	if len(dirs)+len(files) > 0 {
		fmt.Fprintf(w.out, "*Contains: %d folders, %d files*\n\n", len(dirs), len(files))
	}

	for _, group := range [][]cache.Entry{dirs, files} {
		for _, child := range group {
			if err := w.render(child.Path, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// onPath reports whether info is the same directory as one being expanded above it.
func (w *walk) onPath(info os.FileInfo) bool {
	for _, ancestor := range w.ancestors {
		if os.SameFile(ancestor, info) {
			return true
		}
	}
	return false
}

// readContent returns the decoded text of a file through the content cache.
func (w *walk) readContent(path string) (string, error) {
	if content, ok := w.store.Contents.Get(path); ok {
		return content, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content, encoding, err := language.Decode(data)
	if err != nil {
		return "", err
	}
	if encoding != language.EncodingUTF8 {
		w.logger.Debug("decoded file with fallback encoding", "path", path, "encoding", encoding)
	}

	w.store.Contents.Put(path, content)
	return content, nil
}

// display returns "<root name>/<path relative to root>" with forward slashes.
// The root itself displays as its bare name.
func (w *walk) display(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = path
	}
	if rel == "." {
		return w.rootName
	}
	return w.rootName + "/" + filepath.ToSlash(rel)
}
