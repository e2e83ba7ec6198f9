package model

import "time"

// RunState is the lifecycle position of a run. No stage is re-entrant and
// a failed gate never hands partial output to the next stage.
type RunState string

const (
	StateInit            RunState = "INIT"
	StateClaimLocked     RunState = "CLAIM_LOCKED"
	StateScriptVerified  RunState = "SCRIPT_VERIFIED"
	StateBeatSheetValid  RunState = "BEATSHEET_VALID"
	StateAssetsResolved  RunState = "ASSETS_RESOLVED"
	StateLedgerCommitted RunState = "LEDGER_COMMITTED" // terminal success
	StateAborted         RunState = "ABORTED"          // terminal failure, reachable from any gate
)

// next is the only legal forward transition per state.
var next = map[RunState]RunState{
	StateInit:           StateClaimLocked,
	StateClaimLocked:    StateScriptVerified,
	StateScriptVerified: StateBeatSheetValid,
	StateBeatSheetValid: StateAssetsResolved,
	StateAssetsResolved: StateLedgerCommitted,
}

// CanAdvance reports whether from→to is a legal transition. ABORTED is
// reachable from every non-terminal state.
func CanAdvance(from, to RunState) bool {
	if to == StateAborted {
		return from != StateLedgerCommitted && from != StateAborted
	}
	return next[from] == to
}

// Terminal reports whether the state ends the run.
func (s RunState) Terminal() bool {
	return s == StateLedgerCommitted || s == StateAborted
}

// TakeawayRecord is one prior run's takeaway with its stored embedding.
type TakeawayRecord struct {
	RunID    string
	Takeaway string
	Vec      []float32
}

// RunContext is the immutable pre-run snapshot of everything the gates are
// allowed to know about history. It is captured once at run start and
// never re-queried mid-run, so every decision is reproducible from it.
type RunContext struct {
	RunID string
	Scope string
	Now   time.Time

	// Dedupe exclusion windows.
	RecentScopedTags []string         // primary tags of the last N runs in scope
	RecentStatHashes map[string]bool  // stat hashes of the last M runs globally
	RecentTakeaways  []TakeawayRecord // last K takeaways with embeddings
	CoveredAnchors   map[string]bool  // paragraph IDs already claimed in scope

	// Resolver windows. LastUsed maps cover the hard exclusion cutoff;
	// UseCount maps cover the wider novelty horizon.
	ClipLastUsed  map[string]time.Time
	ClipUseCount  map[string]int
	AudioLastUsed map[string]time.Time
	AudioUseCount map[string]int
}

// RunReport is the provenance record attached to a finished or aborted run.
type RunReport struct {
	SchemaVersion int       `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Scope         string    `json:"scope"`
	State         RunState  `json:"state"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	FailedStage   string    `json:"failed_stage,omitempty"`
	FailureKind   Kind      `json:"failure_kind,omitempty"`
	FailureDetail string    `json:"failure_detail,omitempty"`
}
