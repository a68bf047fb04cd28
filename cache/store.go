package cache

import (
	"path/filepath"
	"time"
)

// Default sizes, matching the listing-heavy / content-light access pattern of a traversal.
const (
	DefaultListingMaxSize = 200
	DefaultContentMaxSize = 50
	DefaultTTL            = 5 * time.Minute
)

// Entry is one child of a directory listing.
type Entry struct {
	Path   string // absolute path
	Name   string
	IsDir  bool
	IsFile bool // regular file (symlinks are followed)
	Size   int64
}

// ListingKey identifies a cached directory listing. Listings filtered by the
// ignore rules and unfiltered listings are cached separately.
type ListingKey struct {
	Path        string
	ShowIgnored bool
}

// StoreOptions configures both caches of a Store.
type StoreOptions struct {
	ListingMaxSize int
	ListingTTL     time.Duration
	ContentMaxSize int
	ContentTTL     time.Duration
	Now            func() time.Time
}

// Store holds the two independent caches consulted during traversal:
// directory listings and decoded file contents.
type Store struct {
	Listings *Cache[ListingKey, []Entry]
	Contents *Cache[string, string]
}

// NewStore creates a store, filling zero options with the defaults.
func NewStore(options StoreOptions) *Store {
	if options.ListingMaxSize <= 0 {
		options.ListingMaxSize = DefaultListingMaxSize
	}
	if options.ContentMaxSize <= 0 {
		options.ContentMaxSize = DefaultContentMaxSize
	}
	if options.ListingTTL == 0 {
		options.ListingTTL = DefaultTTL
	}
	if options.ContentTTL == 0 {
		options.ContentTTL = DefaultTTL
	}

	return &Store{
		Listings: New[ListingKey, []Entry](Options{
			Name:    "listings",
			MaxSize: options.ListingMaxSize,
			TTL:     options.ListingTTL,
			Now:     options.Now,
		}),
		Contents: New[string, string](Options{
			Name:    "contents",
			MaxSize: options.ContentMaxSize,
			TTL:     options.ContentTTL,
			Now:     options.Now,
		}),
	}
}

// ClearListings empties the listing cache only.
func (s *Store) ClearListings() { s.Listings.Clear() }

// ClearContents empties the content cache only.
func (s *Store) ClearContents() { s.Contents.Clear() }

// Clear empties both caches.
func (s *Store) Clear() {
	s.Listings.Clear()
	s.Contents.Clear()
}

// Invalidate drops what a change to path can make stale: its cached content,
// its own listings and its parent's listings.
func (s *Store) Invalidate(path string) {
	path = filepath.Clean(path)
	parent := filepath.Dir(path)

	s.Contents.Delete(path)
	s.Listings.DeleteFunc(func(key ListingKey) bool {
		return key.Path == path || key.Path == parent
	})
}

// Stats returns snapshots of both caches, listings first.
func (s *Store) Stats() []Stats {
	return []Stats{s.Listings.Stats(), s.Contents.Stats()}
}
