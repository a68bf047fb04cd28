package ignore

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RuleSet decides whether a filesystem entry is excluded from traversal and output.
// A path is ignored when any of three independent predicates holds:
//   - it is a directory whose lowercase name is in the directory set
//   - it is a file whose lowercase extension is in the extension set
//   - its name starts with "." and is not a listed hidden-file exception
//
// A RuleSet is immutable after construction and safe for concurrent use.
type RuleSet struct {
	directoryNames       map[string]struct{}
	fileExtensions       map[string]struct{}
	hiddenFileExceptions map[string]struct{}
}

// RuleSetOptions configures a RuleSet. Directory names and extensions are matched
// case-insensitively; hidden-file exceptions are matched exactly.
type RuleSetOptions struct {
	DirectoryNames       []string
	FileExtensions       []string // with leading dot, e.g. ".log" or ".tar.gz"
	HiddenFileExceptions []string // e.g. ".gitignore"
}

// NewRuleSet builds an immutable rule set from the given options.
func NewRuleSet(options RuleSetOptions) *RuleSet {
	rules := &RuleSet{
		directoryNames:       make(map[string]struct{}, len(options.DirectoryNames)),
		fileExtensions:       make(map[string]struct{}, len(options.FileExtensions)),
		hiddenFileExceptions: make(map[string]struct{}, len(options.HiddenFileExceptions)),
	}
	for _, name := range options.DirectoryNames {
		name = strings.TrimSpace(name)
		if name != "" {
			rules.directoryNames[strings.ToLower(name)] = struct{}{}
		}
	}
	for _, ext := range options.FileExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		rules.fileExtensions[ext] = struct{}{}
	}
	for _, name := range options.HiddenFileExceptions {
		if name != "" {
			rules.hiddenFileExceptions[name] = struct{}{}
		}
	}
	return rules
}

// DefaultRuleSet returns the built-in rules: build output, dependency and VCS
// directories, temporary and binary extensions, and hidden files.
func DefaultRuleSet() *RuleSet {
	return NewRuleSet(DefaultOptions())
}

// Extend returns a new rule set with the extra directory names and extensions added.
func (r *RuleSet) Extend(directoryNames, fileExtensions []string) *RuleSet {
	options := r.Options()
	options.DirectoryNames = append(options.DirectoryNames, directoryNames...)
	options.FileExtensions = append(options.FileExtensions, fileExtensions...)
	return NewRuleSet(options)
}

// Options returns the rule set's contents in sorted order.
func (r *RuleSet) Options() RuleSetOptions {
	return RuleSetOptions{
		DirectoryNames:       sortedKeys(r.directoryNames),
		FileExtensions:       sortedKeys(r.fileExtensions),
		HiddenFileExceptions: sortedKeys(r.hiddenFileExceptions),
	}
}

// ShouldIgnore reports whether the path is excluded. It stats the path to learn whether
// it is a file or a directory; paths that cannot be stat'ed are never ignored, since
// enumeration is where I/O errors surface.
func (r *RuleSet) ShouldIgnore(absolutePath string) bool {
	info, err := os.Stat(absolutePath)
	if err != nil {
		return false
	}
	return r.ShouldIgnoreEntry(filepath.Base(absolutePath), info.IsDir(), info.Mode().IsRegular())
}

// ShouldIgnoreEntry is ShouldIgnore for callers that already know the entry's kind.
func (r *RuleSet) ShouldIgnoreEntry(name string, isDir bool, isFile bool) bool {
	ignored := false

	if isDir {
		if _, ok := r.directoryNames[strings.ToLower(name)]; ok {
			ignored = true
		}
	}

	if isFile && r.matchesExtension(name) {
		ignored = true
	}

	if strings.HasPrefix(name, ".") {
		if _, ok := r.hiddenFileExceptions[name]; !ok {
			ignored = true
		}
	}

	return ignored
}

// matchesExtension checks every dot-suffix of the name ("a.tar.gz" yields ".tar.gz" and
// ".gz"), skipping a leading dot so ".env" has no extension.
func (r *RuleSet) matchesExtension(name string) bool {
	lower := strings.ToLower(name)
	for i := 1; i < len(lower); i++ {
		if lower[i] != '.' {
			continue
		}
		if _, ok := r.fileExtensions[lower[i:]]; ok {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
