package watcher

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/lexandro/contextor-mcp/ignore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingInvalidator struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingInvalidator) Invalidate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

type recordingUpdater struct {
	indexed []string
	removed []string
	fail    bool
}

func (r *recordingUpdater) IndexFile(path string) error {
	if r.fail {
		return errors.New("boom")
	}
	r.indexed = append(r.indexed, path)
	return nil
}

func (r *recordingUpdater) RemoveFile(path string) error {
	r.removed = append(r.removed, path)
	return nil
}

func Test_Apply_InvalidatesAndUpdatesIndex(t *testing.T) {
	dir := t.TempDir()
	written := filepath.Join(dir, "a.go")
	if err := os.WriteFile(written, []byte("package a"), 0o644); err != nil {
		t.Fatal(err)
	}
	removed := filepath.Join(dir, "gone.go")

	inv := &recordingInvalidator{}
	upd := &recordingUpdater{}
	Apply([]Change{{Path: written, Op: OpWrite}, {Path: removed, Op: OpRemove}, {Path: dir, Op: OpCreate}}, inv, upd, testLogger())

	if len(inv.paths) != 3 {
		t.Errorf("expected every change to invalidate, got %v", inv.paths)
	}
	if len(upd.indexed) != 1 || upd.indexed[0] != written {
		t.Errorf("expected only the written file to be indexed, got %v", upd.indexed)
	}
	if len(upd.removed) != 1 || upd.removed[0] != removed {
		t.Errorf("expected removed file to leave the index, got %v", upd.removed)
	}
}

func Test_Apply_WithoutIndex(t *testing.T) {
	inv := &recordingInvalidator{}
	Apply([]Change{{Path: "/x/y", Op: OpWrite}}, inv, nil, testLogger())
	if len(inv.paths) != 1 {
		t.Errorf("expected invalidation without an index, got %v", inv.paths)
	}
}

func Test_Apply_IndexErrorsAreSwallowed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	os.WriteFile(path, []byte("x"), 0o644)

	inv := &recordingInvalidator{}
	Apply([]Change{{Path: path, Op: OpCreate}}, inv, &recordingUpdater{fail: true}, testLogger())
	if len(inv.paths) != 1 {
		t.Error("expected invalidation despite index failure")
	}
}

func Test_Watcher_ReportsChanges(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := New(Options{Root: root, Rules: ignore.DefaultRuleSet(), Interval: 20 * time.Millisecond, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	go w.Start()

	target := filepath.Join(root, "main.go")
	if err := os.WriteFile(target, []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(root, "node_modules", "x.js"), []byte("x"), 0o644)

	deadline := time.After(5 * time.Second)
	var seen []string
	for {
		select {
		case batch := <-w.Changes():
			for _, c := range batch {
				seen = append(seen, c.Path)
			}
			sort.Strings(seen)
			for _, p := range seen {
				if p == target {
					for _, other := range seen {
						if filepath.Base(filepath.Dir(other)) == "node_modules" {
							t.Errorf("expected ignored directory not to be watched, saw %s", other)
						}
					}
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s, saw %v", target, seen)
		}
	}
}
