package model

import "fmt"

// SlotType is the tagged-union discriminator for a visual slot. Unknown
// types are a schema violation, never duck-typed.
type SlotType string

const (
	SlotClip    SlotType = "clip"    // library footage
	SlotChart   SlotType = "chart"   // rendered chart, bounded duration
	SlotStill   SlotType = "still"   // static image from the library
	SlotOverlay SlotType = "overlay" // text card over prior visual
)

// KnownSlotType reports whether t is one of the enumerated slot types.
func KnownSlotType(t SlotType) bool {
	switch t {
	case SlotClip, SlotChart, SlotStill, SlotOverlay:
		return true
	}
	return false
}

// VisualSlot describes what category of media must fill a beat.
type VisualSlot struct {
	Type        SlotType `json:"type"`
	Tags        []string `json:"tags,omitempty"`        // required descriptive tags
	Orientation string   `json:"orientation,omitempty"` // "portrait" or "landscape"
	Composition string   `json:"composition,omitempty"` // composition class, e.g. "closeup"
}

// BeatEvent is a timed event inside a beat (caption flash, chart reveal).
type BeatEvent struct {
	At   float64 `json:"at"` // seconds from sheet start
	Name string  `json:"name"`
}

// Beat is one timed unit of the production spec. Read-only to the core.
type Beat struct {
	ID        string      `json:"id"`
	Start     float64     `json:"start"` // seconds
	End       float64     `json:"end"`   // seconds, exclusive
	Narration string      `json:"narration"`
	Slot      VisualSlot  `json:"slot"`
	Events    []BeatEvent `json:"events,omitempty"`
}

// Duration returns the beat's length in seconds.
func (b *Beat) Duration() float64 {
	return b.End - b.Start
}

// MusicSlot is the single per-run audio request.
type MusicSlot struct {
	Mood string `json:"mood"` // mood tag, e.g. "tense", "uplifting"
}

// BeatSheet is the ordered, timed collection of beats forming a complete
// production spec. It is immutable after timing validation passes.
type BeatSheet struct {
	SchemaVersion int       `json:"schema_version"`
	TotalDuration float64   `json:"total_duration"` // seconds
	Beats         []Beat    `json:"beats"`
	Music         MusicSlot `json:"music"`
}

// Validate checks shape only. Timing invariants are the sanity checker's
// job; this rejects structurally invalid sheets before any timing math.
func (s *BeatSheet) Validate() error {
	if s.SchemaVersion != SchemaVersion {
		return NewError(KindSchemaViolation, "beatsheet", "unsupported schema_version %d", s.SchemaVersion)
	}
	if s.TotalDuration <= 0 {
		return NewError(KindSchemaViolation, "beatsheet", "non-positive total_duration %g", s.TotalDuration)
	}
	if len(s.Beats) == 0 {
		return NewError(KindSchemaViolation, "beatsheet", "empty beat list")
	}
	seen := make(map[string]bool, len(s.Beats))
	for i := range s.Beats {
		b := &s.Beats[i]
		if b.ID == "" {
			return NewError(KindSchemaViolation, "beatsheet", "beat %d: missing id", i)
		}
		if seen[b.ID] {
			return NewError(KindSchemaViolation, "beatsheet", "duplicate beat id %s", b.ID)
		}
		seen[b.ID] = true
		if !KnownSlotType(b.Slot.Type) {
			return NewError(KindSchemaViolation, "beatsheet",
				"beat %s: unknown slot type %q", b.ID, b.Slot.Type)
		}
	}
	return nil
}

// String renders a compact one-line summary, used in verbose output.
func (s *BeatSheet) String() string {
	return fmt.Sprintf("beatsheet: %d beats, %.2fs", len(s.Beats), s.TotalDuration)
}
