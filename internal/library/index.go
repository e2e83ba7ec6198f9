// Package library is the read-only catalog of available media clips and
// audio tracks. Entries are indexed once and never mutated; the resolver
// references them, never owns them.
package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

// catalog is the on-disk shape of one *.json catalog file.
type catalog struct {
	SchemaVersion int                  `json:"schema_version"`
	Entries       []model.LibraryEntry `json:"entries"`
}

// Index holds the loaded catalogs with a small query cache. Filters
// repeat across beats in a run, so identical queries hit the cache.
type Index struct {
	entries []model.LibraryEntry
	byID    map[string]model.LibraryEntry
	queries *gocache.Cache
}

// LoadDir loads every *.json catalog under dir.
func LoadDir(dir string) (*Index, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files in %s", dir)
	}
	sort.Strings(paths)

	idx := &Index{
		byID:    make(map[string]model.LibraryEntry),
		queries: gocache.New(5*time.Minute, 10*time.Minute),
	}
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var cat catalog
		if err := json.Unmarshal(raw, &cat); err != nil {
			return nil, model.WrapError(model.KindSchemaViolation, "library", err,
				fmt.Sprintf("unparseable catalog %s", filepath.Base(path)))
		}
		if cat.SchemaVersion != model.SchemaVersion {
			return nil, model.NewError(model.KindSchemaViolation, "library",
				"catalog %s: unsupported schema_version %d", filepath.Base(path), cat.SchemaVersion)
		}
		for i := range cat.Entries {
			e := cat.Entries[i]
			if err := e.Validate(); err != nil {
				return nil, err
			}
			if _, dup := idx.byID[e.ID]; dup {
				return nil, model.NewError(model.KindSchemaViolation, "library",
					"duplicate entry id %s", e.ID)
			}
			idx.byID[e.ID] = e
			idx.entries = append(idx.entries, e)
		}
	}
	return idx, nil
}

// NewIndex builds an index from in-memory entries, used by tests and by
// callers that assemble catalogs programmatically.
func NewIndex(entries []model.LibraryEntry) (*Index, error) {
	idx := &Index{
		byID:    make(map[string]model.LibraryEntry, len(entries)),
		queries: gocache.New(5*time.Minute, 10*time.Minute),
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := idx.byID[e.ID]; dup {
			return nil, model.NewError(model.KindSchemaViolation, "library", "duplicate entry id %s", e.ID)
		}
		idx.byID[e.ID] = e
		idx.entries = append(idx.entries, e)
	}
	return idx, nil
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Get returns an entry by ID.
func (idx *Index) Get(id string) (model.LibraryEntry, bool) {
	e, ok := idx.byID[id]
	return e, ok
}

// Filter selects entries by kind, tags, orientation, and composition.
// Zero-valued fields match everything.
type Filter struct {
	Kind        model.MediaKind
	Tags        []string // every tag must be present
	AnyTag      []string // at least one tag must be present
	Orientation string
	Composition string
	Mood        string
	MinDuration float64
}

func (f Filter) key() string {
	return strings.Join([]string{
		string(f.Kind),
		strings.Join(f.Tags, ","),
		strings.Join(f.AnyTag, ","),
		f.Orientation, f.Composition, f.Mood,
		fmt.Sprintf("%g", f.MinDuration),
	}, "|")
}

// Query returns entries matching the filter, in stable ID order.
func (idx *Index) Query(f Filter) []model.LibraryEntry {
	key := f.key()
	if cached, found := idx.queries.Get(key); found {
		return cached.([]model.LibraryEntry)
	}

	var out []model.LibraryEntry
	for _, e := range idx.entries {
		if matches(e, f) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	idx.queries.Set(key, out, gocache.DefaultExpiration)
	return out
}

func matches(e model.LibraryEntry, f Filter) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	for _, tag := range f.Tags {
		if !e.HasTag(tag) {
			return false
		}
	}
	if len(f.AnyTag) > 0 {
		found := false
		for _, tag := range f.AnyTag {
			if e.HasTag(tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Orientation != "" && !strings.EqualFold(e.Orientation, f.Orientation) {
		return false
	}
	if f.Composition != "" && !strings.EqualFold(e.Composition, f.Composition) {
		return false
	}
	if f.Mood != "" && !strings.EqualFold(e.Mood, f.Mood) {
		return false
	}
	if f.MinDuration > 0 && e.Duration < f.MinDuration {
		return false
	}
	return true
}
