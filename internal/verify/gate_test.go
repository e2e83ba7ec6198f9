package verify

import (
	"strings"
	"testing"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/source"
)

func verifyDoc() *source.Document {
	return source.New("doc", []string{
		"Most people struggle to save consistently because spending feels easier than planning.",
		"At a 7% annual return, invested money doubles in roughly ten years.",
		"Index funds spread risk across hundreds of companies.",
	})
}

func scriptOf(lines ...model.ScriptLine) *model.ScriptCandidate {
	return &model.ScriptCandidate{SchemaVersion: model.SchemaVersion, Lines: lines}
}

func claimAnchored(anchors ...string) *model.LockedClaim {
	return &model.LockedClaim{ProofAnchors: anchors}
}

func TestVerify_UnflaggedLinePassesUntouched(t *testing.T) {
	gate := NewGate()
	script := scriptOf(model.ScriptLine{Index: 0, Text: "Saving early matters when building a habit.", Anchors: []string{"doc#p0000"}})

	out, err := gate.Verify(script, claimAnchored("doc#p0000"), verifyDoc())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !out.Pass || len(out.Lines) != 1 || out.Lines[0].Text != script.Lines[0].Text {
		t.Errorf("unflagged line must pass through unchanged: %+v", out)
	}
	if len(out.Annotations) != 0 {
		t.Errorf("unflagged line must not be annotated: %+v", out.Annotations)
	}
}

func TestVerify_ProvenNumberKept(t *testing.T) {
	gate := NewGate()
	script := scriptOf(model.ScriptLine{
		Index: 0, Text: "Invested money doubles in roughly ten years at a 7% annual return.",
		Anchors: []string{"doc#p0001"},
	})

	out, err := gate.Verify(script, claimAnchored("doc#p0001"), verifyDoc())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !out.Pass || len(out.Lines) != 1 {
		t.Fatalf("expected the line kept, got %+v", out)
	}
	if len(out.Annotations) != 1 || out.Annotations[0].Outcome != model.LineKept || out.Annotations[0].Attempts != 0 {
		t.Errorf("expected a kept annotation with zero attempts, got %+v", out.Annotations)
	}
}

func TestVerify_UnprovenNumberNeverSurvives(t *testing.T) {
	// The unproven "99%" must not appear anywhere in the output, in any
	// form: the line is rewritten without it or dropped entirely.
	gate := NewGate()
	script := scriptOf(model.ScriptLine{
		Index: 0, Text: "99% of people fail to build wealth.",
		Anchors: []string{"doc#p0000"},
	})

	out, err := gate.Verify(script, claimAnchored("doc#p0000"), verifyDoc())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	for _, line := range out.Lines {
		if strings.Contains(line.Text, "99") {
			t.Fatalf("unproven number survived verification: %q", line.Text)
		}
	}
	if len(out.Annotations) != 1 {
		t.Fatalf("expected one annotation, got %+v", out.Annotations)
	}
	ann := out.Annotations[0]
	if ann.Outcome != model.LineDropped {
		t.Errorf("expected the line dropped, got %+v", ann)
	}
	if ann.Attempts != 2 {
		t.Errorf("drop must consume both rewrite attempts, got %d", ann.Attempts)
	}
	if ann.Index != -1 {
		t.Errorf("dropped lines have no output position, got index %d", ann.Index)
	}
	if out.Pass {
		t.Error("a dropped line must clear the pass flag")
	}
}

func TestVerify_AuthorityPhraseRewritten(t *testing.T) {
	gate := NewGate()
	script := scriptOf(model.ScriptLine{
		Index: 0, Text: "Studies show index funds spread risk across hundreds of companies.",
		Anchors: []string{"doc#p0002"},
	})

	out, err := gate.Verify(script, claimAnchored("doc#p0002"), verifyDoc())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(out.Lines) != 1 {
		t.Fatalf("expected the line rewritten, not dropped: %+v", out)
	}
	got := out.Lines[0].Text
	if !strings.HasPrefix(got, "In this example, ") {
		t.Errorf("first rewrite must qualify the line, got %q", got)
	}
	if strings.Contains(strings.ToLower(got), "studies show") {
		t.Errorf("authority phrasing must be stripped, got %q", got)
	}
	ann := out.Annotations[0]
	if ann.Outcome != model.LineRewritten || ann.Attempts != 1 {
		t.Errorf("expected rewrite on first attempt, got %+v", ann)
	}
	if ann.Original != script.Lines[0].Text {
		t.Errorf("annotation must record the original text, got %q", ann.Original)
	}
}

func TestVerify_SubjectMismatchDropped(t *testing.T) {
	gate := NewGate()
	script := scriptOf(model.ScriptLine{
		Index: 0, Text: "Quantum computing will transform cryptography in 5 years.",
		Anchors: []string{"doc#p0001"},
	})

	out, err := gate.Verify(script, claimAnchored("doc#p0001"), verifyDoc())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(out.Lines) != 0 || out.Pass || out.DroppedCount() != 1 {
		t.Errorf("off-subject line must be dropped: %+v", out)
	}
}

func TestVerify_InheritsClaimAnchors(t *testing.T) {
	gate := NewGate()
	script := scriptOf(model.ScriptLine{
		Index: 0, Text: "Invested money doubles in roughly ten years at a 7% annual return.",
	})

	out, err := gate.Verify(script, claimAnchored("doc#p0001"), verifyDoc())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(out.Lines) != 1 || len(out.Lines[0].Anchors) != 1 || out.Lines[0].Anchors[0] != "doc#p0001" {
		t.Errorf("anchor-less line must inherit the claim's anchors: %+v", out.Lines)
	}
}

func TestVerify_UnknownAnchorIsSchemaViolation(t *testing.T) {
	gate := NewGate()
	script := scriptOf(model.ScriptLine{
		Index: 0, Text: "Invested money doubles at a 7% annual return.",
		Anchors: []string{"doc#p9999"},
	})

	_, err := gate.Verify(script, claimAnchored("doc#p0001"), verifyDoc())
	if !model.IsKind(err, model.KindSchemaViolation) {
		t.Errorf("expected SchemaViolation for unknown anchor, got %v", err)
	}
}

func TestVerify_Deterministic(t *testing.T) {
	gate := NewGate()
	script := scriptOf(
		model.ScriptLine{Index: 0, Text: "Studies show index funds spread risk across hundreds of companies.", Anchors: []string{"doc#p0002"}},
		model.ScriptLine{Index: 1, Text: "99% of people fail to build wealth.", Anchors: []string{"doc#p0000"}},
	)

	first, err := gate.Verify(script, claimAnchored("doc#p0000"), verifyDoc())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	second, err := gate.Verify(script, claimAnchored("doc#p0000"), verifyDoc())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(first.Lines) != len(second.Lines) {
		t.Fatalf("same input produced different line counts")
	}
	for i := range first.Lines {
		if first.Lines[i].Text != second.Lines[i].Text {
			t.Errorf("line %d differs between identical runs", i)
		}
	}
}

func TestRewriteQualify(t *testing.T) {
	got := rewriteQualify("Studies show sugar causes crashes.")
	if strings.Contains(strings.ToLower(got), "studies show") {
		t.Errorf("authority phrase not stripped: %q", got)
	}
	if strings.Contains(strings.ToLower(got), "causes") {
		t.Errorf("causal phrasing not softened: %q", got)
	}
	if !strings.Contains(got, "is linked to") {
		t.Errorf("expected softened causal form, got %q", got)
	}
	if !strings.HasPrefix(got, "In this example, ") {
		t.Errorf("expected qualifier prefix, got %q", got)
	}
}

func TestNumericTokens(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"returns 7% a year", []string{"7%"}},
		{"costs $1,000 up front", []string{"$1000"}},
		{"1,000 % is the same as 1000%", []string{"1000%", "1000%"}},
		{"grew 3x then fell by half", []string{"3x", "half"}},
		{"no numbers here", nil},
	}
	for _, tt := range tests {
		got := numericTokens(tt.text)
		if len(got) != len(tt.want) {
			t.Errorf("numericTokens(%q) = %v, want %v", tt.text, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("numericTokens(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
			}
		}
	}
}

func TestFlag(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"plain narration about saving", ""},
		{"save 10% every month", "numeric"},
		{"double your savings", "numeric"},
		{"stress leads to overspending", "causal"},
		{"experts say you should budget", "authority"},
		{"research shows 40% overspend because of stress", "numeric+causal+authority"},
	}
	for _, tt := range tests {
		if got := flag(tt.text).String(); got != tt.want {
			t.Errorf("flag(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
