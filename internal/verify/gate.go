// Package verify validates generated script text against immutable
// source-document proof anchors. The gate is a pure function of (script,
// proof text): no generative calls, same input, same verified output.
package verify

import (
	"fmt"
	"strings"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/source"
)

// maxRewriteAttempts is a hard bound, not a tunable. Unbounded rewriting
// would make verification non-terminating.
const maxRewriteAttempts = 2

// Gate is the deterministic verification gate.
type Gate struct{}

// NewGate creates a verification gate.
func NewGate() *Gate {
	return &Gate{}
}

// Verify checks every claim-bearing line against its proof-anchor snippet.
// Lines without their own anchors inherit the locked claim's anchors.
// Failed lines get at most two rewrite attempts, then are dropped; a drop
// is a local recovery, never fatal to the run.
func (g *Gate) Verify(script *model.ScriptCandidate, claim *model.LockedClaim, doc *source.Document) (*model.VerifiedScript, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}

	out := &model.VerifiedScript{
		SchemaVersion: model.SchemaVersion,
		Pass:          true,
	}

	for _, line := range script.Lines {
		anchors := line.Anchors
		if len(anchors) == 0 {
			anchors = claim.ProofAnchors
		}
		for _, a := range anchors {
			if _, ok := doc.Paragraph(a); !ok {
				return nil, model.NewError(model.KindSchemaViolation, "verify",
					"line %d: unknown proof anchor %s", line.Index, a)
			}
		}
		snippet := doc.Snippet(anchors)

		reasons := flag(line.Text)
		if !reasons.any() {
			out.Lines = append(out.Lines, model.ScriptLine{
				Index: len(out.Lines), Text: line.Text, Anchors: anchors,
			})
			continue
		}

		text, outcome, attempts, reason := g.checkLine(line.Text, snippet)
		ann := model.LineAnnotation{
			Index:    len(out.Lines),
			Outcome:  outcome,
			Attempts: attempts,
			Reason:   reason,
		}
		switch outcome {
		case model.LineKept:
			out.Lines = append(out.Lines, model.ScriptLine{
				Index: len(out.Lines), Text: line.Text, Anchors: anchors,
			})
		case model.LineRewritten:
			ann.Original = line.Text
			out.Lines = append(out.Lines, model.ScriptLine{
				Index: len(out.Lines), Text: text, Anchors: anchors,
			})
		case model.LineDropped:
			ann.Index = -1 // dropped lines have no position in the output
			ann.Original = line.Text
			out.Pass = false
		}
		out.Annotations = append(out.Annotations, ann)
	}

	return out, nil
}

// checkLine verifies one flagged line, attempting bounded rewrites on
// failure. Returns the surviving text, the outcome, attempts consumed,
// and the reason recorded on the annotation.
func (g *Gate) checkLine(text, snippet string) (string, model.LineOutcome, int, string) {
	if reason, ok := match(text, snippet); ok {
		return text, model.LineKept, 0, ""
	} else {
		current := text
		for attempt := 1; attempt <= maxRewriteAttempts; attempt++ {
			switch attempt {
			case 1:
				current = rewriteQualify(text)
			case 2:
				current = rewriteStripUnproven(text, snippet)
			}
			if current == "" {
				break
			}
			if _, ok := match(current, snippet); ok {
				return current, model.LineRewritten, attempt,
					fmt.Sprintf("original failed (%s); rewrite %d verified", reason, attempt)
			}
		}
		return "", model.LineDropped, maxRewriteAttempts, reason
	}
}

// match checks a line against its proof snippet: (i) every normalized
// numeric token must appear in the snippet, (ii) the subject keywords
// must overlap the snippet. Returns a failure reason when not ok.
func match(text, snippet string) (string, bool) {
	reasons := flag(text)

	if reasons.numeric {
		snippetTokens := tokenSet(numericTokens(snippet))
		for _, tok := range numericTokens(text) {
			if !snippetTokens[tok] {
				return fmt.Sprintf("numeric token %q not in proof snippet", tok), false
			}
		}
	}

	if reasons.authority {
		// Unattributed authority phrasing is only acceptable when the
		// snippet itself carries the attribution wording.
		lowerSnippet := strings.ToLower(snippet)
		for _, p := range authorityPhrases {
			if strings.Contains(strings.ToLower(text), p) && !strings.Contains(lowerSnippet, p) {
				return fmt.Sprintf("unattributed authority phrase %q", p), false
			}
		}
	}

	if !subjectOverlap(text, snippet) {
		return "subject keywords not found in proof snippet", false
	}

	return "", true
}

// rewriteQualify is the first rewrite: strip authority phrasing, soften
// causal wording to its explicitly weaker form, and anchor the line with
// an "In this example" qualifier.
func rewriteQualify(text string) string {
	lower := strings.ToLower(text)

	for _, p := range authorityPhrases {
		if idx := strings.Index(lower, p); idx >= 0 {
			text = text[:idx] + text[idx+len(p):]
			lower = strings.ToLower(text)
		}
	}
	for phrase, softened := range causalSoftened {
		if containsWord(lower, phrase) {
			text = replaceWord(text, phrase, softened)
			lower = strings.ToLower(text)
		}
	}

	text = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(text), ",;:"))
	if text == "" {
		return ""
	}
	return "In this example, " + lowerFirst(text)
}

// rewriteStripUnproven is the second rewrite: additionally remove numeric
// tokens the snippet cannot prove. A line reduced below three words is
// not worth keeping.
func rewriteStripUnproven(text, snippet string) string {
	qualified := rewriteQualify(text)
	if qualified == "" {
		return ""
	}
	snippetTokens := tokenSet(numericTokens(snippet))
	for _, m := range numberPattern.FindAllString(qualified, -1) {
		norm := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(m, ",", ""), " ", ""))
		if !snippetTokens[norm] {
			qualified = strings.Replace(qualified, m, "", 1)
		}
	}
	for _, w := range relativeWords {
		if !snippetTokens[w] && containsWord(strings.ToLower(qualified), w) {
			qualified = replaceWord(qualified, w, "")
		}
	}

	qualified = strings.Join(strings.Fields(qualified), " ")
	if len(strings.Fields(qualified)) < 3 {
		return ""
	}
	return qualified
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// replaceWord replaces phrase with repl on word boundaries, case-insensitively.
func replaceWord(text, phrase, repl string) string {
	lower := strings.ToLower(text)
	idx := 0
	for {
		i := strings.Index(lower[idx:], phrase)
		if i < 0 {
			return text
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordByte(lower[start-1])
		afterOK := end == len(lower) || !isWordByte(lower[end])
		if beforeOK && afterOK {
			text = text[:start] + repl + text[end:]
			lower = strings.ToLower(text)
			idx = start + len(repl)
			if idx > len(lower) {
				return text
			}
			continue
		}
		idx = start + 1
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'A' && s[0] <= 'Z' {
		return string(s[0]+'a'-'A') + s[1:]
	}
	return s
}
