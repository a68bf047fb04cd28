package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lexandro/contextor-mcp/ignore"
	"github.com/lexandro/contextor-mcp/language"
)

// DefaultMaxFileSize is the largest file the index accepts.
const DefaultMaxFileSize = 1024 * 1024

const defaultWorkers = 8

// ErrTooLarge is returned by IndexFile for files above the size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// Builder fills a ContentIndex from the files under a root directory.
type Builder struct {
	Root        string
	Index       *ContentIndex
	Rules       *ignore.RuleSet
	MaxFileSize int64 // default 1MB
	Workers     int   // default 8
	Logger      *slog.Logger
}

// BuildStats reports what a build indexed.
type BuildStats struct {
	Files      int
	TotalBytes int64
	Skipped    int
	Elapsed    time.Duration
}

// Build walks Root, skipping ignored entries, and indexes every text file with a
// bounded pool of workers. It stops early when ctx is cancelled.
func (b *Builder) Build(ctx context.Context) (BuildStats, error) {
	start := time.Now()
	workers := b.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	type indexJob struct {
		path string
		size int64
	}
	jobs := make(chan indexJob, 100)

	var indexed, skipped atomic.Int64
	var totalBytes atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if err := b.IndexFile(job.path); err != nil {
					b.logger().Debug("skipped file", "path", job.path, "error", err)
					skipped.Add(1)
					continue
				}
				indexed.Add(1)
				totalBytes.Add(job.size)
			}
		}()
	}

	walkErr := filepath.WalkDir(b.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil
		}
		if path == b.Root {
			return nil
		}
		if d.IsDir() {
			if b.Rules.ShouldIgnoreEntry(d.Name(), true, false) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || b.Rules.ShouldIgnoreEntry(d.Name(), false, true) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > b.maxFileSize() {
			skipped.Add(1)
			return nil
		}

		select {
		case jobs <- indexJob{path: path, size: info.Size()}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	close(jobs)
	wg.Wait()

	stats := BuildStats{
		Files:      int(indexed.Load()),
		TotalBytes: totalBytes.Load(),
		Skipped:    int(skipped.Load()),
		Elapsed:    time.Since(start),
	}
	if walkErr != nil {
		return stats, fmt.Errorf("walking %s: %w", b.Root, walkErr)
	}
	return stats, nil
}

// IndexFile reads, decodes and indexes one absolute path. Binary files and files
// above the size limit are rejected.
func (b *Builder) IndexFile(absolutePath string) error {
	info, err := os.Stat(absolutePath)
	if err != nil {
		return err
	}
	if info.Size() > b.maxFileSize() {
		return ErrTooLarge
	}

	data, err := readFileWithRetry(absolutePath)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	content, _, err := language.Decode(data)
	if err != nil {
		return err
	}

	relativePath, err := b.Relative(absolutePath)
	if err != nil {
		return err
	}
	return b.Index.Add(relativePath, content, language.FenceTag(absolutePath), info.Size())
}

// RemoveFile drops an absolute path from the index.
func (b *Builder) RemoveFile(absolutePath string) error {
	relativePath, err := b.Relative(absolutePath)
	if err != nil {
		return err
	}
	return b.Index.Remove(relativePath)
}

// Relative converts an absolute path under Root to the index key.
func (b *Builder) Relative(absolutePath string) (string, error) {
	rel, err := filepath.Rel(b.Root, absolutePath)
	if err != nil {
		return "", fmt.Errorf("relativizing %s: %w", absolutePath, err)
	}
	return filepath.ToSlash(rel), nil
}

func (b *Builder) maxFileSize() int64 {
	if b.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return b.MaxFileSize
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

// readFileWithRetry retries once after a short delay, for files locked by an
// editor mid-save on Windows.
func readFileWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		time.Sleep(50 * time.Millisecond)
		return os.ReadFile(path)
	}
	return data, nil
}
