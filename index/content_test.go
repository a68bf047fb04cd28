package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/lexandro/contextor-mcp/ignore"
)

func newTestContentIndex(t *testing.T) *ContentIndex {
	t.Helper()
	ci, err := NewContentIndex()
	if err != nil {
		t.Fatalf("failed to create content index: %v", err)
	}
	t.Cleanup(func() { ci.Close() })
	return ci
}

func Test_ContentIndex_AddAndSearch(t *testing.T) {
	ci := newTestContentIndex(t)
	err := ci.Add("main.go", "package main\n\nfunc main() {\n\tfmt.Println(\"hello world\")\n}", "go", 60)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, total, err := ci.Search(SearchOptions{Query: "hello"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || total != 1 {
		t.Fatalf("expected 1 hit with 1 match, got %d hits, %d matches", len(hits), total)
	}
	if hits[0].RelativePath != "main.go" || hits[0].FenceTag != "go" {
		t.Errorf("unexpected hit %+v", hits[0])
	}
	if hits[0].Matches[0].LineNumber != 4 {
		t.Errorf("expected match on line 4, got %d", hits[0].Matches[0].LineNumber)
	}
}

func Test_ContentIndex_PhraseSearch(t *testing.T) {
	ci := newTestContentIndex(t)
	ci.Add("a.txt", "hello brave world", "txt", 17)
	ci.Add("b.txt", "hello world", "txt", 11)

	hits, _, err := ci.Search(SearchOptions{Query: `"hello world"`})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].RelativePath != "b.txt" {
		t.Errorf("expected only b.txt to match the phrase, got %+v", hits)
	}
}

func Test_ContentIndex_RegexSearch(t *testing.T) {
	ci := newTestContentIndex(t)
	ci.Add("handlers.go", "func handleRequest() {}\nfunc other() {}", "go", 40)

	hits, total, err := ci.Search(SearchOptions{Query: "/handle.*/"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || total != 1 {
		t.Fatalf("expected one matching line, got %d hits, %d matches", len(hits), total)
	}
	if hits[0].Matches[0].LineText != "func handleRequest() {}" {
		t.Errorf("unexpected line %q", hits[0].Matches[0].LineText)
	}
}

func Test_ContentIndex_InvalidRegex(t *testing.T) {
	ci := newTestContentIndex(t)
	if _, _, err := ci.Search(SearchOptions{Query: "/([/"}); err == nil {
		t.Error("expected error for invalid regex")
	}
}

func Test_ContentIndex_EmptyQuery(t *testing.T) {
	ci := newTestContentIndex(t)
	if _, _, err := ci.Search(SearchOptions{Query: "  "}); err == nil {
		t.Error("expected error for empty query")
	}
}

func Test_ContentIndex_FileGlob(t *testing.T) {
	ci := newTestContentIndex(t)
	ci.Add("src/app/main.go", "token here", "go", 10)
	ci.Add("docs/notes.md", "token here", "markdown", 10)

	hits, _, err := ci.Search(SearchOptions{Query: "token", FileGlob: "src/**/*.go"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].RelativePath != "src/app/main.go" {
		t.Errorf("expected only the Go file, got %+v", hits)
	}

	if _, _, err := ci.Search(SearchOptions{Query: "token", FileGlob: "[bad"}); err == nil {
		t.Error("expected error for malformed glob")
	}
}

func Test_ContentIndex_ContextLines(t *testing.T) {
	ci := newTestContentIndex(t)
	ci.Add("example.txt", "line1\nline2\nline3 target\nline4\nline5", "txt", 35)

	hits, _, err := ci.Search(SearchOptions{Query: "target", ContextLines: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	m := hits[0].Matches[0]
	if len(m.ContextBefore) != 1 || m.ContextBefore[0] != "line2" {
		t.Errorf("unexpected context before: %v", m.ContextBefore)
	}
	if len(m.ContextAfter) != 1 || m.ContextAfter[0] != "line4" {
		t.Errorf("unexpected context after: %v", m.ContextAfter)
	}
}

func Test_ContentIndex_MaxResults(t *testing.T) {
	ci := newTestContentIndex(t)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		ci.Add(name, "shared word", "txt", 11)
	}

	hits, _, _ := ci.Search(SearchOptions{Query: "shared", MaxResults: 2})
	if len(hits) != 2 {
		t.Errorf("expected 2 hits, got %d", len(hits))
	}
}

func Test_ContentIndex_RemoveAndClear(t *testing.T) {
	ci := newTestContentIndex(t)
	ci.Add("a.txt", "alpha", "txt", 5)
	ci.Add("b.txt", "alpha", "txt", 5)

	if err := ci.Remove("a.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := ci.Remove("never-indexed.txt"); err != nil {
		t.Errorf("expected removing unknown path to succeed, got %v", err)
	}
	hits, _, _ := ci.Search(SearchOptions{Query: "alpha"})
	if len(hits) != 1 || hits[0].RelativePath != "b.txt" {
		t.Errorf("expected only b.txt after removal, got %+v", hits)
	}

	if err := ci.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ci.Len() != 0 {
		t.Errorf("expected empty index after Clear, got %d", ci.Len())
	}
}

func Test_ContentIndex_Stats(t *testing.T) {
	ci := newTestContentIndex(t)
	ci.Add("a.go", "package a", "go", 9)
	ci.Add("b.go", "package b", "go", 9)
	ci.Add("c.py", "pass", "python", 4)

	stats := ci.Stats()
	if stats.Files != 3 || stats.TotalBytes != 22 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.FenceTags["go"] != 2 || stats.FenceTags["python"] != 1 {
		t.Errorf("unexpected fence tag counts %v", stats.FenceTags)
	}
	if paths := ci.Paths(); len(paths) != 3 || paths[0] != "a.go" {
		t.Errorf("unexpected paths %v", paths)
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestBuilder(t *testing.T, root string) *Builder {
	return &Builder{
		Root:   root,
		Index:  newTestContentIndex(t),
		Rules:  ignore.DefaultRuleSet(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func Test_Builder_BuildSkipsIgnoredAndBinary(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":               "package main",
		"src/util.py":           "def util(): pass",
		"node_modules/x/x.js":   "module.exports = 1",
		".hidden/secret.txt":    "secret",
		"image.raw":             "ab\x00cd",
		"archive.zip":           "PK",
		"src/__pycache__/u.pyc": "junk",
	})

	b := newTestBuilder(t, root)
	stats, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	paths := b.Index.Paths()
	want := []string{"main.go", "src/util.py"}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("indexed %v, want %v", paths, want)
	}
	if stats.Files != 2 || stats.Skipped != 1 {
		t.Errorf("expected 2 indexed and 1 skipped (binary), got %+v", stats)
	}
}

func Test_Builder_SizeLimit(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"big.txt": "0123456789", "small.txt": "01"})

	b := newTestBuilder(t, root)
	b.MaxFileSize = 5
	b.Build(context.Background())

	if paths := b.Index.Paths(); len(paths) != 1 || paths[0] != "small.txt" {
		t.Errorf("expected only small.txt, got %v", paths)
	}
	if err := b.IndexFile(filepath.Join(root, "big.txt")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func Test_Builder_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestBuilder(t, root).Build(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func Test_Builder_IndexAndRemoveFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"pkg/a.go": "package pkg"})
	b := newTestBuilder(t, root)

	path := filepath.Join(root, "pkg", "a.go")
	if err := b.IndexFile(path); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	if paths := b.Index.Paths(); len(paths) != 1 || paths[0] != "pkg/a.go" {
		t.Errorf("expected slash-separated key, got %v", paths)
	}
	if err := b.RemoveFile(path); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if b.Index.Len() != 0 {
		t.Error("expected file to be removed")
	}
}
