package model

// ManifestEntry is a resolved assignment of a library entry to a beat,
// including the selected time window within the source asset.
type ManifestEntry struct {
	BeatID      string    `json:"beat_id,omitempty"` // empty for the run's audio entry
	EntryID     string    `json:"entry_id"`
	Kind        MediaKind `json:"kind"`
	Category    string    `json:"category,omitempty"` // diversity bucket, recorded for usage history
	WindowStart float64   `json:"window_start"`       // seconds into the source asset
	WindowEnd   float64   `json:"window_end"`
	Fallback    bool      `json:"fallback,omitempty"` // filled from the generic fallback tier
}

// UnresolvedSlot flags a slot no library entry could satisfy. The run
// completes; incompleteness is surfaced, never silently substituted.
type UnresolvedSlot struct {
	BeatID string `json:"beat_id"`
	Reason string `json:"reason"`
}

// AssetManifest is the complete resolution output for one run.
type AssetManifest struct {
	SchemaVersion int              `json:"schema_version"`
	RunID         string           `json:"run_id"`
	Entries       []ManifestEntry  `json:"entries"`
	Audio         *ManifestEntry   `json:"audio,omitempty"`
	Unresolved    []UnresolvedSlot `json:"unresolved,omitempty"`
}

// Complete reports whether every slot, including audio, was resolved.
func (m *AssetManifest) Complete() bool {
	return len(m.Unresolved) == 0 && m.Audio != nil
}

// UsedEntryIDs returns every library entry referenced by the manifest,
// audio included.
func (m *AssetManifest) UsedEntryIDs() []string {
	ids := make([]string, 0, len(m.Entries)+1)
	for _, e := range m.Entries {
		ids = append(ids, e.EntryID)
	}
	if m.Audio != nil {
		ids = append(ids, m.Audio.EntryID)
	}
	return ids
}
