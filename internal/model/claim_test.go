package model

import "testing"

func validCandidate() ClaimCandidate {
	return ClaimCandidate{
		SchemaVersion: SchemaVersion,
		ID:            "c1",
		Text:          "Compounding doubles savings in roughly a decade at 7%.",
		Takeaway:      "Compounding doubles savings in about ten years",
		PrimaryTag:    "compounding",
		CoreStat:      &CoreStat{Value: 7, Unit: "%", Raw: "7%"},
		ProofAnchors:  []string{"doc#p0001"},
	}
}

func TestClaimCandidate_Validate(t *testing.T) {
	cand := validCandidate()
	if err := cand.Validate(); err != nil {
		t.Fatalf("valid candidate rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ClaimCandidate)
	}{
		{"wrong schema version", func(c *ClaimCandidate) { c.SchemaVersion = 99 }},
		{"missing id", func(c *ClaimCandidate) { c.ID = "" }},
		{"empty text", func(c *ClaimCandidate) { c.Text = "  " }},
		{"empty takeaway", func(c *ClaimCandidate) { c.Takeaway = "" }},
		{"missing tag", func(c *ClaimCandidate) { c.PrimaryTag = "" }},
		{"no anchors", func(c *ClaimCandidate) { c.ProofAnchors = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !IsKind(err, KindSchemaViolation) {
				t.Errorf("expected SchemaViolation, got %v", KindOf(err))
			}
		})
	}
}

func TestCandidateSet_Validate_DuplicateID(t *testing.T) {
	set := CandidateSet{
		SchemaVersion: SchemaVersion,
		Scope:         "doc",
		Candidates:    []ClaimCandidate{validCandidate(), validCandidate()},
	}
	if err := set.Validate(); err == nil {
		t.Fatal("expected duplicate id rejection")
	}
}

func TestCoreStat_Hash(t *testing.T) {
	a := &CoreStat{Value: 99, Unit: "%", Raw: "99%"}
	b := &CoreStat{Value: 99, Unit: "%", Raw: "99 percent"}
	c := &CoreStat{Value: 99, Unit: "$", Raw: "$99"}

	if a.Hash() != b.Hash() {
		t.Error("same normalized stat should hash identically regardless of surface form")
	}
	if a.Hash() == c.Hash() {
		t.Error("different units should hash differently")
	}

	var nilStat *CoreStat
	if nilStat.Hash() != "" {
		t.Error("nil stat should hash to empty string")
	}
}
