package run

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

// LoadCandidates reads and shape-validates a candidate set artifact.
func LoadCandidates(path string) (*model.CandidateSet, error) {
	var set model.CandidateSet
	if err := loadJSON(path, "candidates", &set); err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// LoadScript reads and shape-validates a script candidate artifact.
func LoadScript(path string) (*model.ScriptCandidate, error) {
	var script model.ScriptCandidate
	if err := loadJSON(path, "script", &script); err != nil {
		return nil, err
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

// LoadBeatSheet reads and shape-validates a beat sheet artifact. Timing
// invariants are checked later by the sanity checker.
func LoadBeatSheet(path string) (*model.BeatSheet, error) {
	var sheet model.BeatSheet
	if err := loadJSON(path, "beatsheet", &sheet); err != nil {
		return nil, err
	}
	if err := sheet.Validate(); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// loadJSON rejects malformed artifacts at the boundary, never coercing.
func loadJSON(path, stage string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", stage, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return model.WrapError(model.KindSchemaViolation, stage, err, "unparseable artifact "+path)
	}
	return nil
}
