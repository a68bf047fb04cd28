// Package browse navigates a directory tree bounded by a base directory.
package browse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lexandro/contextor-mcp/assemble"
	"github.com/lexandro/contextor-mcp/cache"
	"github.com/lexandro/contextor-mcp/ignore"
)

// DefaultOutputName is the file a document is saved to when no path is given.
const DefaultOutputName = "llm.txt"

// Browser tracks a current directory that never leaves its base directory.
// Safe for concurrent use.
type Browser struct {
	base  string
	store *cache.Store
	rules *ignore.RuleSet

	mu          sync.Mutex
	current     string
	showIgnored bool
}

// NewBrowser creates a browser positioned at base, which must be a directory.
func NewBrowser(base string, store *cache.Store, rules *ignore.RuleSet) (*Browser, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolving base %s: %w", base, err)
	}
	info, err := os.Stat(absBase)
	if err != nil {
		return nil, fmt.Errorf("opening base %s: %w", absBase, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base %s is not a directory", absBase)
	}
	return &Browser{base: absBase, current: absBase, store: store, rules: rules}, nil
}

// Base returns the absolute base directory.
func (b *Browser) Base() string { return b.base }

// Current returns the absolute current directory.
func (b *Browser) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// CanGoUp reports whether the current directory is below the base.
func (b *Browser) CanGoUp() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current != b.base
}

// GoUp moves to the parent directory unless already at the base.
func (b *Browser) GoUp() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == b.base {
		return false
	}
	b.current = filepath.Dir(b.current)
	return true
}

// Enter moves into a subdirectory of the current directory.
func (b *Browser) Enter(name string) error {
	b.mu.Lock()
	current := b.current
	b.mu.Unlock()

	target, err := b.resolveFrom(current, name)
	if err != nil {
		return err
	}
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("entering %s: %w", name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("entering %s: not a directory", name)
	}

	b.mu.Lock()
	b.current = target
	b.mu.Unlock()
	return nil
}

// SetShowIgnored toggles whether listings include ignored entries.
func (b *Browser) SetShowIgnored(show bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.showIgnored = show
}

// ShowIgnored reports whether listings include ignored entries.
func (b *Browser) ShowIgnored() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.showIgnored
}

// List returns the entries of the current directory, directories first. A non-empty
// filter keeps names containing it, case-insensitively; a filter with glob
// metacharacters (*, ?, [, {) is matched as a glob against the whole name instead.
func (b *Browser) List(filter string) ([]cache.Entry, error) {
	b.mu.Lock()
	current, showIgnored := b.current, b.showIgnored
	b.mu.Unlock()

	entries, err := assemble.ListDir(b.store, b.rules, current, showIgnored)
	if err != nil {
		return nil, err
	}
	return FilterEntries(entries, filter)
}

// FilterEntries applies a List name filter to entries, keeping their order.
func FilterEntries(entries []cache.Entry, filter string) ([]cache.Entry, error) {
	if filter == "" {
		return entries, nil
	}

	match, err := nameMatcher(filter)
	if err != nil {
		return nil, err
	}
	filtered := make([]cache.Entry, 0, len(entries))
	for _, e := range entries {
		if match(e.Name) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Resolve turns a path relative to the current directory (or an absolute path) into
// an absolute path, rejecting anything outside the base directory.
func (b *Browser) Resolve(path string) (string, error) {
	return b.resolveFrom(b.Current(), path)
}

// DefaultOutputPath returns <base>/llm.txt.
func (b *Browser) DefaultOutputPath() string {
	return filepath.Join(b.base, DefaultOutputName)
}

func (b *Browser) resolveFrom(dir, path string) (string, error) {
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	target = filepath.Clean(target)

	if !Within(b.base, target) {
		return "", fmt.Errorf("path %s is outside %s", path, b.base)
	}
	return target, nil
}

// Within reports whether target is base or lies below it. Both must be clean absolute paths.
func Within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func nameMatcher(filter string) (func(string) bool, error) {
	lowered := strings.ToLower(filter)
	if !strings.ContainsAny(filter, "*?[{") {
		return func(name string) bool {
			return strings.Contains(strings.ToLower(name), lowered)
		}, nil
	}
	if !doublestar.ValidatePattern(lowered) {
		return nil, fmt.Errorf("invalid filter pattern %q", filter)
	}
	return func(name string) bool {
		ok, _ := doublestar.Match(lowered, strings.ToLower(name))
		return ok
	}, nil
}
