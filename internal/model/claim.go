package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SchemaVersion is the current version stamped on every boundary artifact.
// Artifacts carrying a different version are rejected, never coerced.
const SchemaVersion = 1

// CoreStat is the optional numeric statistic at the center of a claim.
type CoreStat struct {
	Value float64 `json:"value"`          // numeric value as parsed
	Unit  string  `json:"unit,omitempty"` // "%", "$", "x", or empty
	Raw   string  `json:"raw"`            // original surface form, e.g. "99%"
}

// Hash returns a stable digest of the normalized stat, used for global
// repetition checks across runs.
func (s *CoreStat) Hash() string {
	if s == nil {
		return ""
	}
	norm := fmt.Sprintf("%g|%s", s.Value, strings.ToLower(strings.TrimSpace(s.Unit)))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:8])
}

// ClaimCandidate is a proposed on-screen assertion produced by the upstream
// generator. Candidates are consumed and discarded by the dedupe gate.
type ClaimCandidate struct {
	SchemaVersion int       `json:"schema_version"`
	ID            string    `json:"id"`
	Text          string    `json:"text"`               // the on-screen assertion
	Takeaway      string    `json:"takeaway"`           // one-sentence viewer takeaway
	PrimaryTag    string    `json:"primary_tag"`        // topical tag, e.g. "compounding"
	CoreStat      *CoreStat `json:"core_stat,omitempty"`
	ProofAnchors  []string  `json:"proof_anchors"` // paragraph IDs in the source document
}

// Validate checks the candidate's shape at the boundary.
func (c *ClaimCandidate) Validate() error {
	if c.SchemaVersion != SchemaVersion {
		return NewError(KindSchemaViolation, "candidate", "unsupported schema_version %d", c.SchemaVersion)
	}
	if c.ID == "" {
		return NewError(KindSchemaViolation, "candidate", "missing id")
	}
	if strings.TrimSpace(c.Text) == "" {
		return NewError(KindSchemaViolation, "candidate", "candidate %s: empty text", c.ID)
	}
	if strings.TrimSpace(c.Takeaway) == "" {
		return NewError(KindSchemaViolation, "candidate", "candidate %s: empty takeaway", c.ID)
	}
	if c.PrimaryTag == "" {
		return NewError(KindSchemaViolation, "candidate", "candidate %s: missing primary_tag", c.ID)
	}
	if len(c.ProofAnchors) == 0 {
		return NewError(KindSchemaViolation, "candidate", "candidate %s: no proof anchors", c.ID)
	}
	return nil
}

// CandidateSet is the boundary artifact wrapping an ordered candidate list.
type CandidateSet struct {
	SchemaVersion int              `json:"schema_version"`
	Scope         string           `json:"scope"` // production scope, usually the source document ID
	Candidates    []ClaimCandidate `json:"candidates"`
}

// Validate checks the set and every candidate in it.
func (s *CandidateSet) Validate() error {
	if s.SchemaVersion != SchemaVersion {
		return NewError(KindSchemaViolation, "candidates", "unsupported schema_version %d", s.SchemaVersion)
	}
	if s.Scope == "" {
		return NewError(KindSchemaViolation, "candidates", "missing scope")
	}
	if len(s.Candidates) == 0 {
		return NewError(KindSchemaViolation, "candidates", "empty candidate list")
	}
	seen := make(map[string]bool, len(s.Candidates))
	for i := range s.Candidates {
		if err := s.Candidates[i].Validate(); err != nil {
			return err
		}
		if seen[s.Candidates[i].ID] {
			return NewError(KindSchemaViolation, "candidates", "duplicate candidate id %s", s.Candidates[i].ID)
		}
		seen[s.Candidates[i].ID] = true
	}
	return nil
}

// RejectRule identifies which dedupe rule rejected a candidate.
type RejectRule string

const (
	RejectTagRecency  RejectRule = "tag_recency"  // primary tag used in last N scoped runs
	RejectStatRecency RejectRule = "stat_recency" // stat hash used in last M global runs
	RejectSimilarity  RejectRule = "similarity"   // takeaway too close to a recent takeaway
	RejectInvalid     RejectRule = "invalid"      // failed shape validation
)

// CandidateDecision records why one candidate was accepted or rejected.
type CandidateDecision struct {
	CandidateID string     `json:"candidate_id"`
	Accepted    bool       `json:"accepted"`
	Rule        RejectRule `json:"rule,omitempty"`
	Detail      string     `json:"detail,omitempty"`
}

// DedupeReport is the structured accept/reject trail for one gate pass.
type DedupeReport struct {
	SchemaVersion int                 `json:"schema_version"`
	Decisions     []CandidateDecision `json:"decisions"`
	RegenAttempts int                 `json:"regen_attempts"`  // regeneration rounds consumed
	ForcedClaim   bool                `json:"forced_claim"`    // micro-claim fallback was taken
}

// LockedClaim is the claim selected for this run. It is immutable once
// written and enters the ledger's exclusion windows on commit.
type LockedClaim struct {
	SchemaVersion int       `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Scope         string    `json:"scope"`
	CandidateID   string    `json:"candidate_id"`
	Text          string    `json:"text"`
	Takeaway      string    `json:"takeaway"`
	PrimaryTag    string    `json:"primary_tag"`
	CoreStat      *CoreStat `json:"core_stat,omitempty"`
	ProofAnchors  []string  `json:"proof_anchors"`
	Justification string    `json:"justification"` // why this candidate won the gate
	TakeawayVec   []float32 `json:"-"`             // embedding, persisted to the ledger only
}
