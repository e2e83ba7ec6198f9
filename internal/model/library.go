package model

import "strings"

// MediaKind distinguishes the two library catalogs.
type MediaKind string

const (
	MediaClip  MediaKind = "clip"
	MediaAudio MediaKind = "audio"
)

// LibraryEntry is one available clip or track. Entries are created when
// indexed and are effectively immutable; the resolver references them,
// never owns them.
type LibraryEntry struct {
	ID          string    `json:"id"`
	ContentHash string    `json:"content_hash"`
	Kind        MediaKind `json:"kind"`
	Duration    float64   `json:"duration"` // seconds
	Tags        []string  `json:"tags,omitempty"`
	Orientation string    `json:"orientation,omitempty"`
	Composition string    `json:"composition,omitempty"` // composition class
	Motion      string    `json:"motion,omitempty"`      // "static", "pan", "handheld"
	Mood        string    `json:"mood,omitempty"`        // audio only
}

// Validate checks the entry's shape when the catalog is loaded.
func (e *LibraryEntry) Validate() error {
	if e.ID == "" {
		return NewError(KindSchemaViolation, "library", "entry with empty id")
	}
	if e.ContentHash == "" {
		return NewError(KindSchemaViolation, "library", "entry %s: missing content_hash", e.ID)
	}
	if e.Kind != MediaClip && e.Kind != MediaAudio {
		return NewError(KindSchemaViolation, "library", "entry %s: unknown kind %q", e.ID, e.Kind)
	}
	if e.Duration <= 0 {
		return NewError(KindSchemaViolation, "library", "entry %s: non-positive duration", e.ID)
	}
	return nil
}

// HasTag reports whether the entry carries the given tag (case-insensitive).
func (e *LibraryEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Category returns the bucket used for in-run diversity scoring: the
// composition class when set, otherwise the first tag.
func (e *LibraryEntry) Category() string {
	if e.Composition != "" {
		return e.Composition
	}
	if len(e.Tags) > 0 {
		return strings.ToLower(e.Tags[0])
	}
	return ""
}
