package model

import "time"

// AssetUsage is one resolved asset reference inside a ledger entry. Usage
// rows feed the resolver's recency-exclusion queries on later runs.
type AssetUsage struct {
	EntryID     string    `json:"entry_id"`
	Kind        MediaKind `json:"kind"`
	Category    string    `json:"category,omitempty"`
	WindowStart float64   `json:"window_start"`
	WindowEnd   float64   `json:"window_end"`
}

// LedgerEntry is the permanent record of what a past run selected.
// Entries are appended once per completed run and never updated or deleted.
type LedgerEntry struct {
	SchemaVersion int          `json:"schema_version"`
	RunID         string       `json:"run_id"`
	Scope         string       `json:"scope"`
	PrimaryTag    string       `json:"primary_tag"`
	StatHash      string       `json:"stat_hash,omitempty"`
	Takeaway      string       `json:"takeaway"`
	TakeawayVec   []float32    `json:"-"` // stored as a BLOB, not serialized
	ProofAnchors  []string     `json:"proof_anchors,omitempty"`
	ScriptPass    bool         `json:"script_pass"`
	DroppedLines  int          `json:"dropped_lines"`
	Assets        []AssetUsage `json:"assets"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Validate checks the entry's shape before commit.
func (e *LedgerEntry) Validate() error {
	if e.SchemaVersion != SchemaVersion {
		return NewError(KindSchemaViolation, "ledger", "unsupported schema_version %d", e.SchemaVersion)
	}
	if e.RunID == "" {
		return NewError(KindSchemaViolation, "ledger", "missing run_id")
	}
	if e.Scope == "" {
		return NewError(KindSchemaViolation, "ledger", "missing scope")
	}
	if e.PrimaryTag == "" {
		return NewError(KindSchemaViolation, "ledger", "missing primary_tag")
	}
	return nil
}
