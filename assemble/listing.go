package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lexandro/contextor-mcp/cache"
	"github.com/lexandro/contextor-mcp/ignore"
)

// ListDir returns the children of dir that are directories or regular files,
// directories first, each group sorted case-insensitively by name. Unless
// showIgnored is set, entries matched by rules are left out. Results are cached
// in store per (dir, showIgnored); enumeration errors are returned and not cached.
func ListDir(store *cache.Store, rules *ignore.RuleSet, dir string, showIgnored bool) ([]cache.Entry, error) {
	key := cache.ListingKey{Path: dir, ShowIgnored: showIgnored}
	if entries, ok := store.Listings.Get(key); ok {
		return entries, nil
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	entries := make([]cache.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		childPath := filepath.Join(dir, de.Name())
		// Stat follows symlinks; broken links and special files are dropped.
		info, err := os.Stat(childPath)
		if err != nil {
			continue
		}
		isDir := info.IsDir()
		isFile := info.Mode().IsRegular()
		if !isDir && !isFile {
			continue
		}
		if !showIgnored && rules.ShouldIgnoreEntry(de.Name(), isDir, isFile) {
			continue
		}
		entries = append(entries, cache.Entry{
			Path:   childPath,
			Name:   de.Name(),
			IsDir:  isDir,
			IsFile: isFile,
			Size:   info.Size(),
		})
	}

	SortEntries(entries)
	store.Listings.Put(key, entries)
	return entries, nil
}

// SortEntries orders entries directories first, then by lowercase name, then by exact name.
func SortEntries(entries []cache.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}

// splitEntries partitions a sorted listing into directories and files.
func splitEntries(entries []cache.Entry) (dirs, files []cache.Entry) {
	for _, e := range entries {
		switch {
		case e.IsDir:
			dirs = append(dirs, e)
		case e.IsFile:
			files = append(files, e)
		}
	}
	return dirs, files
}
