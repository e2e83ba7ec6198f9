package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

func clip(id string, tags ...string) model.LibraryEntry {
	return model.LibraryEntry{
		ID: id, ContentHash: "h-" + id, Kind: model.MediaClip,
		Duration: 10, Tags: tags, Orientation: "portrait",
	}
}

func testEntries() []model.LibraryEntry {
	a := clip("clip-a", "city", "night")
	a.Composition = "wide"
	b := clip("clip-b", "city", "day")
	b.Composition = "closeup"
	c := clip("clip-c", "money")
	c.Duration = 4
	return []model.LibraryEntry{
		a, b, c,
		{ID: "track-a", ContentHash: "h-ta", Kind: model.MediaAudio, Duration: 60, Mood: "tense"},
		{ID: "track-b", ContentHash: "h-tb", Kind: model.MediaAudio, Duration: 60, Mood: "uplifting"},
	}
}

func TestNewIndex_RejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []model.LibraryEntry
	}{
		{"duplicate id", []model.LibraryEntry{clip("same"), clip("same")}},
		{"missing hash", []model.LibraryEntry{{ID: "x", Kind: model.MediaClip, Duration: 5}}},
		{"unknown kind", []model.LibraryEntry{{ID: "x", ContentHash: "h", Kind: "hologram", Duration: 5}}},
		{"zero duration", []model.LibraryEntry{{ID: "x", ContentHash: "h", Kind: model.MediaClip}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewIndex(tt.entries); !model.IsKind(err, model.KindSchemaViolation) {
				t.Errorf("expected SchemaViolation, got %v", err)
			}
		})
	}
}

func TestQuery_Filters(t *testing.T) {
	idx, err := NewIndex(testEntries())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"by kind", Filter{Kind: model.MediaAudio}, []string{"track-a", "track-b"}},
		{"all tags must match", Filter{Kind: model.MediaClip, Tags: []string{"city", "night"}}, []string{"clip-a"}},
		{"tags are case-insensitive", Filter{Kind: model.MediaClip, Tags: []string{"CITY"}}, []string{"clip-a", "clip-b"}},
		{"any tag", Filter{Kind: model.MediaClip, AnyTag: []string{"money", "night"}}, []string{"clip-a", "clip-c"}},
		{"composition", Filter{Composition: "closeup"}, []string{"clip-b"}},
		{"mood", Filter{Kind: model.MediaAudio, Mood: "tense"}, []string{"track-a"}},
		{"min duration", Filter{Kind: model.MediaClip, MinDuration: 8}, []string{"clip-a", "clip-b"}},
		{"no match", Filter{Tags: []string{"ocean"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Query(tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("Query(%+v) returned %d entries, want %d", tt.filter, len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("result[%d] = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestQuery_StableOrderAndCache(t *testing.T) {
	// Entries arrive out of ID order; results must come back sorted, and a
	// repeated query must return the identical slice from cache.
	entries := testEntries()
	entries[0], entries[1] = entries[1], entries[0]
	idx, err := NewIndex(entries)
	if err != nil {
		t.Fatal(err)
	}

	f := Filter{Kind: model.MediaClip, Tags: []string{"city"}}
	first := idx.Query(f)
	if len(first) != 2 || first[0].ID != "clip-a" || first[1].ID != "clip-b" {
		t.Fatalf("expected ID-sorted results, got %v", first)
	}
	second := idx.Query(f)
	if &first[0] != &second[0] {
		t.Error("repeated query should hit the cache")
	}
}

func TestGet(t *testing.T) {
	idx, err := NewIndex(testEntries())
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := idx.Get("clip-c"); !ok || e.Duration != 4 {
		t.Errorf("Get(clip-c) = %+v, %v", e, ok)
	}
	if _, ok := idx.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeCatalog := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeCatalog("clips.json", `{
		"schema_version": 1,
		"entries": [
			{"id": "clip-a", "content_hash": "h1", "kind": "clip", "duration": 10, "tags": ["city"]}
		]
	}`)
	writeCatalog("audio.json", `{
		"schema_version": 1,
		"entries": [
			{"id": "track-a", "content_hash": "h2", "kind": "audio", "duration": 60, "mood": "tense"}
		]
	}`)

	idx, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
	if _, ok := idx.Get("track-a"); !ok {
		t.Error("audio catalog not merged into the index")
	}
}

func TestLoadDir_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrong schema version", `{"schema_version": 2, "entries": []}`},
		{"malformed json", `{"schema_version": 1, "entries": [`},
		{"invalid entry", `{"schema_version": 1, "entries": [{"id": "", "kind": "clip"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "cat.json"), []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadDir(dir); !model.IsKind(err, model.KindSchemaViolation) {
				t.Errorf("expected SchemaViolation, got %v", err)
			}
		})
	}
}

func TestLoadDir_EmptyDir(t *testing.T) {
	if _, err := LoadDir(t.TempDir()); err == nil {
		t.Error("a directory without catalogs must fail")
	}
}
