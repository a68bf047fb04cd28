// Package index keeps an in-memory full-text index of the files under the root, used
// to find files worth selecting for a document.
package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// storedFile is what the index keeps per file next to the Bleve document.
type storedFile struct {
	content  string
	fenceTag string
	size     int64
}

// bleveDocument is the document structure stored in Bleve.
type bleveDocument struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	FenceTag string `json:"fence"`
}

// ContentIndex is a Bleve in-memory index keyed by slash-separated relative path.
type ContentIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	files map[string]storedFile
}

// NewContentIndex creates an empty index.
func NewContentIndex() (*ContentIndex, error) {
	bleveIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &ContentIndex{index: bleveIndex, files: make(map[string]storedFile)}, nil
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Content lives in files; Bleve only needs the terms.
	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	contentField.IncludeInAll = true
	docMapping.AddFieldMappingsAt("content", contentField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Store = true
	pathField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathField)

	fenceField := bleve.NewKeywordFieldMapping()
	fenceField.Store = true
	fenceField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("fence", fenceField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Add indexes or replaces a file.
func (ci *ContentIndex) Add(relativePath, content, fenceTag string, size int64) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	doc := bleveDocument{Content: content, Path: relativePath, FenceTag: fenceTag}
	if err := ci.index.Index(relativePath, doc); err != nil {
		return fmt.Errorf("indexing %s: %w", relativePath, err)
	}
	ci.files[relativePath] = storedFile{content: content, fenceTag: fenceTag, size: size}
	return nil
}

// Remove drops a file. Removing an unknown path is not an error.
func (ci *ContentIndex) Remove(relativePath string) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	if _, ok := ci.files[relativePath]; !ok {
		return nil
	}
	delete(ci.files, relativePath)
	if err := ci.index.Delete(relativePath); err != nil {
		return fmt.Errorf("removing %s from index: %w", relativePath, err)
	}
	return nil
}

// Len returns the number of indexed files.
func (ci *ContentIndex) Len() int {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return len(ci.files)
}

// Stats summarizes the indexed files.
type Stats struct {
	Files      int
	TotalBytes int64
	FenceTags  map[string]int
}

// Stats returns file counts per fence tag and the total size.
func (ci *ContentIndex) Stats() Stats {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	stats := Stats{Files: len(ci.files), FenceTags: make(map[string]int)}
	for _, f := range ci.files {
		stats.TotalBytes += f.size
		stats.FenceTags[f.fenceTag]++
	}
	return stats
}

// Paths returns the indexed relative paths in sorted order.
func (ci *ContentIndex) Paths() []string {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	paths := make([]string, 0, len(ci.files))
	for p := range ci.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clear drops every document by recreating the Bleve index.
func (ci *ContentIndex) Clear() error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	if err := ci.index.Close(); err != nil {
		return fmt.Errorf("closing old index: %w", err)
	}
	newIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("creating new index: %w", err)
	}
	ci.index = newIndex
	ci.files = make(map[string]storedFile)
	return nil
}

// Close releases the Bleve index.
func (ci *ContentIndex) Close() error {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.index.Close()
}
