package assemble

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexandro/contextor-mcp/cache"
	"github.com/lexandro/contextor-mcp/ignore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAssembler() *Assembler {
	return New(Options{
		Rules:  ignore.DefaultRuleSet(),
		Store:  cache.NewStore(cache.StoreOptions{}),
		Logger: testLogger(),
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// sampleTree creates root/a.py, root/sub/b.txt and an ignored root/sub/__pycache__.
func sampleTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "project")
	writeFile(t, filepath.Join(root, "a.py"), "print(1)")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "hi")
	writeFile(t, filepath.Join(root, "sub", "__pycache__", "b.cpython-312.pyc"), "bytecode")
	return root
}

func Test_Assembler_RenderSampleTree(t *testing.T) {
	root := sampleTree(t)
	a := newTestAssembler()

	got, err := a.RenderSelections(context.Background(), Job{
		Root:       root,
		Selections: []string{root},
		MaxDepth:   3,
	})
	if err != nil {
		t.Fatalf("RenderSelections: %v", err)
	}

	want := "## project/\n\n" +
		"*Contains: 1 folders, 1 files*\n\n" +
		"## project/sub/\n\n" +
		"*Contains: 0 folders, 1 files*\n\n" +
		"## project/sub/b.txt\n\n" +
		"*2 B*\n\n" +
		"```txt\nhi\n```\n\n" +
		"## project/a.py\n\n" +
		"*8 B*\n\n" +
		"```python\nprint(1)\n```\n\n"
	if got != want {
		t.Errorf("unexpected document:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
	if strings.Contains(got, "__pycache__") {
		t.Error("ignored directory leaked into the document")
	}
}

func Test_Assembler_ShowIgnoredIncludesIgnoredDirectories(t *testing.T) {
	root := sampleTree(t)
	a := newTestAssembler()

	got, err := a.RenderSelections(context.Background(), Job{
		Root:        root,
		Selections:  []string{root},
		MaxDepth:    3,
		ShowIgnored: true,
	})
	if err != nil {
		t.Fatalf("RenderSelections: %v", err)
	}
	if !strings.Contains(got, "## project/sub/__pycache__/") {
		t.Errorf("expected __pycache__ fragment, got:\n%s", got)
	}
	if !strings.Contains(got, "*Contains: 1 folders, 1 files*\n\n## project/sub/__pycache__/") {
		t.Errorf("expected sub summary to count __pycache__, got:\n%s", got)
	}
}

func Test_Assembler_Deterministic(t *testing.T) {
	root := sampleTree(t)
	writeFile(t, filepath.Join(root, "Zeta.md"), "# z")
	writeFile(t, filepath.Join(root, "alpha", "x.go"), "package x")

	job := Job{Root: root, Selections: []string{root}, MaxDepth: 3}
	first, _ := newTestAssembler().RenderSelections(context.Background(), job)
	second, _ := newTestAssembler().RenderSelections(context.Background(), job)

	if first != second {
		t.Error("expected byte-identical output for identical inputs")
	}
}

func Test_Assembler_DepthLimit(t *testing.T) {
	root := filepath.Join(t.TempDir(), "deep")
	writeFile(t, filepath.Join(root, "l1", "l2", "l3", "deep.txt"), "buried")
	writeFile(t, filepath.Join(root, "l1", "shallow.txt"), "visible")
	a := newTestAssembler()

	got, err := a.RenderSelections(context.Background(), Job{Root: root, Selections: []string{root}, MaxDepth: 2})
	if err != nil {
		t.Fatalf("RenderSelections: %v", err)
	}

	if !strings.Contains(got, "## deep/l1/l2/\n\n*Directory content not shown due to depth limit (2)*\n\n") {
		t.Errorf("expected depth notice for l2, got:\n%s", got)
	}
	if strings.Contains(got, "deep.txt") || strings.Contains(got, "l3") {
		t.Errorf("expected no descendants past the depth limit, got:\n%s", got)
	}
	if !strings.Contains(got, "visible") {
		t.Errorf("expected file within the limit to be rendered, got:\n%s", got)
	}
}

func Test_Assembler_DepthZeroShowsOnlyHeader(t *testing.T) {
	root := sampleTree(t)
	got, _ := newTestAssembler().RenderSelections(context.Background(), Job{Root: root, Selections: []string{root}, MaxDepth: 0})

	want := "## project/\n\n*Directory content not shown due to depth limit (0)*\n\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func Test_Assembler_Cancelled(t *testing.T) {
	root := sampleTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := newTestAssembler().RenderSelections(ctx, Job{Root: root, Selections: []string{root}, MaxDepth: 3})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if got != CancelledMessage {
		t.Errorf("expected cancelled sentinel, got %q", got)
	}
}

// countdownContext reports cancellation after a fixed number of Err checks.
type countdownContext struct {
	context.Context
	remaining int
}

func (c *countdownContext) Err() error {
	if c.remaining <= 0 {
		return context.Canceled
	}
	c.remaining--
	return nil
}

func Test_Assembler_CancelledMidwayDiscardsPartialOutput(t *testing.T) {
	root := sampleTree(t)
	ctx := &countdownContext{Context: context.Background(), remaining: 3}

	got, err := newTestAssembler().RenderSelections(ctx, Job{Root: root, Selections: []string{root}, MaxDepth: 3})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if got != CancelledMessage {
		t.Errorf("expected only the cancelled sentinel, got %q", got)
	}
}

func Test_Assembler_SelectionsRenderedInOrder(t *testing.T) {
	root := sampleTree(t)
	got, err := newTestAssembler().RenderSelections(context.Background(), Job{
		Root:       root,
		Selections: []string{filepath.Join(root, "a.py"), filepath.Join(root, "sub", "b.txt")},
		MaxDepth:   3,
	})
	if err != nil {
		t.Fatalf("RenderSelections: %v", err)
	}
	ia := strings.Index(got, "## project/a.py")
	ib := strings.Index(got, "## project/sub/b.txt")
	if ia < 0 || ib < 0 || ia > ib {
		t.Errorf("expected a.py before sub/b.txt, got:\n%s", got)
	}
}

func Test_Assembler_EmptyRootUsesSelectionParent(t *testing.T) {
	root := sampleTree(t)
	got, err := newTestAssembler().RenderSelections(context.Background(), Job{
		Selections: []string{filepath.Join(root, "a.py")},
		MaxDepth:   3,
	})
	if err != nil {
		t.Fatalf("RenderSelections: %v", err)
	}
	if !strings.HasPrefix(got, "## project/a.py\n\n") {
		t.Errorf("expected display path relative to the parent, got %q", got)
	}
}

func Test_Assembler_IgnoredSelectionContributesNothing(t *testing.T) {
	root := sampleTree(t)
	got, err := newTestAssembler().RenderSelections(context.Background(), Job{
		Root:       root,
		Selections: []string{filepath.Join(root, "sub", "__pycache__"), filepath.Join(root, "missing.txt")},
		MaxDepth:   3,
	})
	if err != nil {
		t.Fatalf("RenderSelections: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty document, got %q", got)
	}
}

func Test_Assembler_HiddenFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "hidden")
	writeFile(t, filepath.Join(root, ".env"), "SECRET=1")
	writeFile(t, filepath.Join(root, ".gitignore"), "bin/")

	got, _ := newTestAssembler().RenderSelections(context.Background(), Job{Root: root, Selections: []string{root}, MaxDepth: 3})

	if strings.Contains(got, "SECRET") {
		t.Error("expected hidden .env to be skipped")
	}
	if !strings.Contains(got, "## hidden/.gitignore") || !strings.Contains(got, "```gitignore\nbin/\n```") {
		t.Errorf("expected .gitignore exception to be rendered, got:\n%s", got)
	}
}

func Test_Assembler_EmptyDirectoryHasNoSummary(t *testing.T) {
	root := filepath.Join(t.TempDir(), "empty")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	got, _ := newTestAssembler().RenderSelections(context.Background(), Job{Root: root, Selections: []string{root}, MaxDepth: 3})
	if got != "## empty/\n\n" {
		t.Errorf("got %q", got)
	}
}

func Test_Assembler_BinaryFilePlaceholder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "binary")
	writeFile(t, filepath.Join(root, "blob.xyz"), "ab\x00cd")

	got, _ := newTestAssembler().RenderSelections(context.Background(), Job{Root: root, Selections: []string{root}, MaxDepth: 3})

	want := "## binary/blob.xyz\n\n*5 B*\n\n" + BinaryPlaceholder + "\n\n"
	if !strings.Contains(got, want) {
		t.Errorf("expected binary placeholder fragment, got:\n%s", got)
	}
}

func Test_Assembler_LegacyEncoding(t *testing.T) {
	root := filepath.Join(t.TempDir(), "legacy")
	writeFile(t, filepath.Join(root, "notes.txt"), "caf\xe9")

	got, _ := newTestAssembler().RenderSelections(context.Background(), Job{Root: root, Selections: []string{root}, MaxDepth: 3})
	if !strings.Contains(got, "```txt\ncafé\n```") {
		t.Errorf("expected Windows-1252 text to be decoded, got:\n%s", got)
	}
}

func symlinkOrSkip(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
}

func Test_Assembler_SymlinkCycleNotExpanded(t *testing.T) {
	root := filepath.Join(t.TempDir(), "project")
	writeFile(t, filepath.Join(root, "a", "secret.go"), "package main")
	symlinkOrSkip(t, root, filepath.Join(root, "a", "loop"))

	got, err := newTestAssembler().RenderSelections(context.Background(), Job{Root: root, Selections: []string{root}, MaxDepth: 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "## project/\n\n*Contains: 1 folders, 0 files*\n\n" +
		"## project/a/\n\n*Contains: 1 folders, 1 files*\n\n" +
		"## project/a/loop/\n\n*Cannot read folder: symlink cycle*\n\n" +
		"## project/a/secret.go\n\n*12 B*\n\n```go\npackage main\n```\n\n"
	if got != want {
		t.Errorf("render mismatch\n got: %q\nwant: %q", got, want)
	}
}

func Test_Assembler_SymlinkToSiblingStillExpanded(t *testing.T) {
	root := filepath.Join(t.TempDir(), "project")
	writeFile(t, filepath.Join(root, "a", "one.txt"), "1")
	if err := os.MkdirAll(filepath.Join(root, "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	symlinkOrSkip(t, filepath.Join(root, "a"), filepath.Join(root, "b", "link"))

	got, _ := newTestAssembler().RenderSelections(context.Background(), Job{Root: root, Selections: []string{root}, MaxDepth: 3})

	if strings.Contains(got, "symlink cycle") {
		t.Errorf("expected a link to a sibling not to be treated as a cycle:\n%s", got)
	}
	if strings.Count(got, "```txt\n1\n```") != 2 {
		t.Errorf("expected one.txt under a/ and b/link/, got:\n%s", got)
	}
}

func Test_Assembler_UsesContentCache(t *testing.T) {
	root := sampleTree(t)
	a := newTestAssembler()
	job := Job{Root: root, Selections: []string{filepath.Join(root, "a.py")}, MaxDepth: 3}

	first, _ := a.RenderSelections(context.Background(), job)
	writeFile(t, filepath.Join(root, "a.py"), "print(2)")
	second, _ := a.RenderSelections(context.Background(), job)

	if !strings.Contains(second, "print(1)") {
		t.Errorf("expected cached content on second render, got:\n%s", second)
	}
	if first == "" {
		t.Fatal("expected first render to produce output")
	}

	a.Store().Invalidate(filepath.Join(root, "a.py"))
	third, _ := a.RenderSelections(context.Background(), job)
	if !strings.Contains(third, "print(2)") {
		t.Errorf("expected fresh content after invalidation, got:\n%s", third)
	}
}

func Test_ListDir_SortsDirectoriesFirstCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "B.txt"), "")
	writeFile(t, filepath.Join(dir, "a.txt"), "")
	writeFile(t, filepath.Join(dir, "A.txt"), "")
	writeFile(t, filepath.Join(dir, "C", "keep"), "")
	writeFile(t, filepath.Join(dir, "b", "keep"), "")

	entries, err := ListDir(cache.NewStore(cache.StoreOptions{}), ignore.DefaultRuleSet(), dir, false)
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := []string{"b", "C", "A.txt", "a.txt", "B.txt"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("ListDir order = %v, want %v", names, want)
	}
}

func Test_ListDir_CachesPerVariant(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "node_modules", "x.js"), "")
	writeFile(t, filepath.Join(dir, "main.go"), "")
	store := cache.NewStore(cache.StoreOptions{})
	rules := ignore.DefaultRuleSet()

	filtered, _ := ListDir(store, rules, dir, false)
	all, _ := ListDir(store, rules, dir, true)

	if len(filtered) != 1 || len(all) != 2 {
		t.Errorf("expected 1 filtered and 2 unfiltered entries, got %d and %d", len(filtered), len(all))
	}
	if store.Listings.Len() != 2 {
		t.Errorf("expected two cached listing variants, got %d", store.Listings.Len())
	}
}

func Test_ListDir_MissingDirectory(t *testing.T) {
	_, err := ListDir(cache.NewStore(cache.StoreOptions{}), ignore.DefaultRuleSet(), filepath.Join(t.TempDir(), "nope"), false)
	if err == nil {
		t.Error("expected error for missing directory")
	}
}

func Test_FormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
		{2048 * 1024 * 1024 * 1024, "2048.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.size); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
