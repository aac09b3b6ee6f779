// Package library knows the shape of the media tree: how destinations are
// named, how existing artifacts are indexed for already-have detection, and
// how metadata sidecars are written.
package library

import (
	"context"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Themolx/Privateer/internal/logger"
)

var mediaExt = map[string]struct{}{
	"mp4": {}, "mkv": {}, "webm": {}, "m4v": {}, "mov": {},
	"avi": {}, "flv": {}, "wmv": {}, "ts": {}, "m2ts": {},
	"mpg": {}, "mpeg": {},
}

var (
	episodeStemPattern = regexp.MustCompile(`(?i)^s(\d{1,2})\s*e(\d{1,3})$`)
	seasonDirPattern   = regexp.MustCompile(`(?i)^season\s*(\d{1,2})$`)
)

// Index answers "is something with this name already in the library". Keys
// are aggressively normalized filenames, so lookups tolerate punctuation,
// case and diacritic differences. Safe for concurrent reads after build.
type Index struct {
	keys   map[string]struct{}
	sorted []string
}

// BuildIndex walks every root concurrently and indexes recognized media
// files larger than minSize. Missing roots are skipped; partial downloads
// (.part/.ytdl/.tmp/.temp) are ignored.
func BuildIndex(ctx context.Context, roots []string, minSize int64) (*Index, error) {
	var (
		mu   sync.Mutex
		keys = make(map[string]struct{})
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		root := root // per-iteration copy; required for Go <1.22 loop semantics
		g.Go(func() error {
			return indexRoot(ctx, root, minSize, func(key string) {
				mu.Lock()
				keys[key] = struct{}{}
				mu.Unlock()
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	return &Index{keys: keys, sorted: sorted}, nil
}

func indexRoot(ctx context.Context, root string, minSize int64, add func(string)) error {
	// Walk errors, the root included, only shrink index coverage. The sole
	// error that aborts a walk is context cancellation.
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees reduce index coverage, nothing more.
			logger.Debug("index walk skipping entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".part") || strings.HasSuffix(lower, ".ytdl") ||
			strings.HasSuffix(lower, ".tmp") || strings.HasSuffix(lower, ".temp") {
			return nil
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
		if _, ok := mediaExt[ext]; !ok {
			return nil
		}
		if minSize > 0 {
			info, err := d.Info()
			if err != nil || info.Size() < minSize {
				return nil
			}
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if key := normalizeKey(stem); key != "" {
			add(key)
		}
		for _, key := range episodeKeys(path, stem) {
			add(key)
		}
		return nil
	})
}

// episodeKeys handles layouts where the filename is a bare episode code
// (Show/Season 01/S01E01.mkv). The code alone identifies nothing, so keys
// are synthesized from the surrounding directories.
func episodeKeys(path, stem string) []string {
	if !episodeStemPattern.MatchString(strings.TrimSpace(stem)) {
		return nil
	}
	code := normalizeKey(stem)
	if code == "" {
		return nil
	}

	var keys []string
	parentDir := filepath.Dir(path)
	parent := filepath.Base(parentDir)
	if pk := normalizeKey(parent); pk != "" {
		keys = append(keys, pk+code)
	}
	if seasonDirPattern.MatchString(strings.TrimSpace(parent)) {
		grand := filepath.Base(filepath.Dir(parentDir))
		if gk := normalizeKey(grand); gk != "" && grand != "." && grand != string(filepath.Separator) {
			keys = append(keys, gk+code)
		}
	}
	return keys
}

// Contains reports whether the index holds q exactly or any stored key that
// begins with q. The prefix rule lets "Show S02E05" match
// "Show - S02E05 - Pilot".
func (ix *Index) Contains(q string) bool {
	key := normalizeKey(q)
	if key == "" {
		return false
	}
	if _, ok := ix.keys[key]; ok {
		return true
	}
	i := sort.SearchStrings(ix.sorted, key)
	return i < len(ix.sorted) && strings.HasPrefix(ix.sorted[i], key)
}

// Len reports how many distinct keys the index holds.
func (ix *Index) Len() int { return len(ix.keys) }

var keyStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeKey lowercases, folds diacritics and drops everything that is not
// a letter or digit: "Amélie (2001)" and "amelie 2001" share a key.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(keyStripper, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
