package model

import "strings"

// ScriptLine is one narration line with its proof-anchor references.
type ScriptLine struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Anchors []string `json:"anchors,omitempty"` // paragraph IDs backing this line
}

// ScriptCandidate is the unverified script produced by the upstream generator.
type ScriptCandidate struct {
	SchemaVersion int          `json:"schema_version"`
	Lines         []ScriptLine `json:"lines"`
}

// Validate checks the script's shape at the boundary.
func (s *ScriptCandidate) Validate() error {
	if s.SchemaVersion != SchemaVersion {
		return NewError(KindSchemaViolation, "script", "unsupported schema_version %d", s.SchemaVersion)
	}
	if len(s.Lines) == 0 {
		return NewError(KindSchemaViolation, "script", "empty script")
	}
	for i, line := range s.Lines {
		if strings.TrimSpace(line.Text) == "" {
			return NewError(KindSchemaViolation, "script", "line %d: empty text", i)
		}
	}
	return nil
}

// LineOutcome describes what the verification gate did to one flagged line.
type LineOutcome string

const (
	LineKept      LineOutcome = "kept"      // passed without modification
	LineRewritten LineOutcome = "rewritten" // weakened to an explicitly anchored form
	LineDropped   LineOutcome = "dropped"   // could not be matched to proof text
)

// LineAnnotation records the gate's decision for one claim-bearing line.
type LineAnnotation struct {
	Index    int         `json:"index"`
	Outcome  LineOutcome `json:"outcome"`
	Original string      `json:"original,omitempty"` // set when rewritten or dropped
	Reason   string      `json:"reason,omitempty"`
	Attempts int         `json:"attempts"` // rewrite attempts consumed (max 2)
}

// VerifiedScript is the narration with every claim checked against proof
// text. It is immutable and the sole script artifact handed downstream.
type VerifiedScript struct {
	SchemaVersion int              `json:"schema_version"`
	Pass          bool             `json:"pass"` // false when any line was dropped
	Lines         []ScriptLine     `json:"lines"`
	Annotations   []LineAnnotation `json:"annotations,omitempty"`
}

// DroppedCount returns how many lines the gate removed.
func (v *VerifiedScript) DroppedCount() int {
	n := 0
	for _, a := range v.Annotations {
		if a.Outcome == LineDropped {
			n++
		}
	}
	return n
}
