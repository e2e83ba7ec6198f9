package verify

import (
	"regexp"
	"strings"
)

// numberPattern matches numeric claim tokens: plain numbers, percentages,
// currency, and multiplier forms like "3x".
var numberPattern = regexp.MustCompile(`\$?\d[\d,]*(?:\.\d+)?\s*(?:%|x\b)?`)

// relativeWords are number-like relative terms treated as numeric tokens.
var relativeWords = []string{"half", "double", "twice", "triple", "quarter"}

// causalPhrases flag causal claims that must be backed by proof text.
var causalPhrases = []string{
	"causes", "cause", "leads to", "lead to", "results in", "result in",
	"due to", "because of", "drives", "triggers",
}

// authorityPhrases flag unattributed appeals to authority.
var authorityPhrases = []string{
	"studies show", "study shows", "research indicates", "research shows",
	"experts say", "experts agree", "scientists say", "data shows",
	"it is proven", "proven to",
}

// causalSoftened maps causal phrasing to its explicitly weaker form used
// by the first rewrite attempt.
var causalSoftened = map[string]string{
	"causes":     "is linked to",
	"cause":      "are linked to",
	"leads to":   "is associated with",
	"lead to":    "are associated with",
	"results in": "is associated with",
	"result in":  "are associated with",
	"drives":     "is linked to",
	"triggers":   "is linked to",
}

// flagReasons describes why a line is claim-bearing.
type flagReasons struct {
	numeric   bool
	causal    bool
	authority bool
}

func (f flagReasons) any() bool {
	return f.numeric || f.causal || f.authority
}

func (f flagReasons) String() string {
	var parts []string
	if f.numeric {
		parts = append(parts, "numeric")
	}
	if f.causal {
		parts = append(parts, "causal")
	}
	if f.authority {
		parts = append(parts, "authority")
	}
	return strings.Join(parts, "+")
}

// flag scans one line for claim-bearing patterns.
func flag(text string) flagReasons {
	lower := strings.ToLower(text)
	var f flagReasons

	if numberPattern.MatchString(text) {
		f.numeric = true
	}
	if !f.numeric {
		for _, w := range relativeWords {
			if containsWord(lower, w) {
				f.numeric = true
				break
			}
		}
	}
	for _, p := range causalPhrases {
		if containsWord(lower, p) {
			f.causal = true
			break
		}
	}
	for _, p := range authorityPhrases {
		if strings.Contains(lower, p) {
			f.authority = true
			break
		}
	}
	return f
}

// numericTokens extracts normalized numeric tokens from text. "1,000 %"
// and "1000%" normalize identically so exact matching works.
func numericTokens(text string) []string {
	var tokens []string
	for _, m := range numberPattern.FindAllString(text, -1) {
		norm := strings.ReplaceAll(m, ",", "")
		norm = strings.ReplaceAll(norm, " ", "")
		tokens = append(tokens, strings.ToLower(norm))
	}
	lower := strings.ToLower(text)
	for _, w := range relativeWords {
		if containsWord(lower, w) {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// containsWord reports whether phrase appears in text on word boundaries.
func containsWord(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// stopwords excluded from subject keyword overlap.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "in": true, "on": true,
	"to": true, "and": true, "or": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "that": true, "this": true, "it": true,
	"for": true, "with": true, "as": true, "at": true, "by": true,
	"from": true, "but": true, "not": true, "you": true, "your": true,
	"will": true, "can": true, "have": true, "has": true, "more": true,
	"most": true, "people": true,
}

// keywords returns the subject keywords of a line: lowercase words, no
// stopwords, no pure numbers, length > 2.
func keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) <= 2 || stopwords[f] {
			continue
		}
		if strings.IndexFunc(f, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
			continue // pure number, handled by numeric matching
		}
		out = append(out, f)
	}
	return out
}

// subjectOverlap reports whether enough of the line's subject keywords
// appear in the proof snippet. The bar is deliberately low: this check
// catches lines about a different subject than their anchors, not wording
// differences.
func subjectOverlap(text, snippet string) bool {
	kws := keywords(text)
	if len(kws) == 0 {
		return false
	}
	lowerSnippet := strings.ToLower(snippet)
	hits := 0
	for _, kw := range kws {
		if strings.Contains(lowerSnippet, kw) {
			hits++
		}
	}
	need := 2
	if len(kws) < need {
		need = len(kws)
	}
	return hits >= need
}
