// Package dedupe filters claim candidates against ledger history and
// semantic similarity, locking exactly one claim per run.
package dedupe

import (
	"context"
	"fmt"
	"strings"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/generator"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/source"
)

// Gate is the dedupe gate. It reads only the run context snapshot, never
// the live ledger, so a run's selection is reproducible.
type Gate struct {
	cfg      model.DedupeConfig
	embedder generator.Embedder
	gen      generator.Client // nil disables regeneration
}

// NewGate creates a dedupe gate.
func NewGate(cfg model.DedupeConfig, embedder generator.Embedder, gen generator.Client) *Gate {
	return &Gate{cfg: cfg, embedder: embedder, gen: gen}
}

// survivor pairs an accepted candidate with its takeaway embedding.
type survivor struct {
	cand model.ClaimCandidate
	vec  []float32
}

// Lock selects exactly one claim. The candidate list is ordered by
// upstream preference; the first survivor wins. When fewer than the
// configured minimum survive, the gate requests bounded regeneration with
// an explicit avoid-list, then falls back to a micro-claim derived from an
// unreferenced source section. Only a fully covered document aborts.
func (g *Gate) Lock(ctx context.Context, runCtx *model.RunContext, set *model.CandidateSet, doc *source.Document) (*model.LockedClaim, *model.DedupeReport, error) {
	if err := set.Validate(); err != nil {
		return nil, nil, err
	}
	if set.Scope != runCtx.Scope {
		return nil, nil, model.NewError(model.KindSchemaViolation, "dedupe",
			"candidate scope %q does not match run scope %q", set.Scope, runCtx.Scope)
	}

	report := &model.DedupeReport{SchemaVersion: model.SchemaVersion}

	survivors, rejected, err := g.filter(ctx, runCtx, set.Candidates, report)
	if err != nil {
		return nil, nil, err
	}

	// Bounded regeneration. Each round extends the avoid-list with
	// everything rejected so far, this run's casualties included.
	for len(survivors) < g.cfg.MinSurvivors && report.RegenAttempts < g.cfg.MaxRegenAttempts && g.gen != nil {
		report.RegenAttempts++

		resp, err := g.gen.GenerateCandidates(ctx, generator.CandidateRequest{
			Scope:         runCtx.Scope,
			SourceExcerpt: excerpt(doc),
			Avoid:         g.avoidList(runCtx, rejected),
			Count:         g.cfg.MinSurvivors * 2,
		})
		if err != nil {
			// A failed round consumes an attempt; the forced fallback
			// below guarantees termination either way.
			report.Decisions = append(report.Decisions, model.CandidateDecision{
				CandidateID: fmt.Sprintf("regen-%d", report.RegenAttempts),
				Accepted:    false,
				Rule:        model.RejectInvalid,
				Detail:      fmt.Sprintf("regeneration failed: %v", err),
			})
			continue
		}

		fresh, freshRejected, err := g.filter(ctx, runCtx, resp.Candidates, report)
		if err != nil {
			return nil, nil, err
		}
		survivors = append(survivors, fresh...)
		rejected = append(rejected, freshRejected...)
	}

	if len(survivors) > 0 {
		best := survivors[0]
		locked := g.lock(runCtx, best.cand, best.vec,
			fmt.Sprintf("first of %d survivors after %d regeneration rounds",
				len(survivors), report.RegenAttempts))
		return locked, report, nil
	}

	// Forced fallback: a micro-claim from an as-yet-unreferenced section.
	// An unused section always exists unless the document is fully covered.
	para, ok := doc.FirstUncovered(runCtx.CoveredAnchors)
	if !ok {
		return nil, report, model.NewError(model.KindDedupeExhausted, "dedupe",
			"document %s fully covered; no candidate and no unreferenced section remains", doc.ID)
	}

	sentence := source.FirstSentence(para.Text)
	micro := model.ClaimCandidate{
		SchemaVersion: model.SchemaVersion,
		ID:            "micro-" + para.ID,
		Text:          sentence,
		Takeaway:      sentence,
		PrimaryTag:    "micro:" + doc.ID,
		ProofAnchors:  []string{para.ID},
	}
	vec, err := g.embedder.Embed(ctx, micro.Takeaway)
	if err != nil {
		return nil, report, fmt.Errorf("embed micro-claim: %w", err)
	}

	report.ForcedClaim = true
	report.Decisions = append(report.Decisions, model.CandidateDecision{
		CandidateID: micro.ID,
		Accepted:    true,
		Detail:      "forced micro-claim from unreferenced section " + para.ID,
	})
	locked := g.lock(runCtx, micro, vec, "forced micro-claim: all candidates rejected and regeneration exhausted")
	return locked, report, nil
}

// filter applies the three rejection rules in order, recording a decision
// per candidate. Rejected well-formed candidates are returned so later
// regeneration rounds can avoid repeating them.
func (g *Gate) filter(ctx context.Context, runCtx *model.RunContext, candidates []model.ClaimCandidate, report *model.DedupeReport) ([]survivor, []model.ClaimCandidate, error) {
	var survivors []survivor
	var rejected []model.ClaimCandidate

	for i := range candidates {
		cand := candidates[i]

		if err := cand.Validate(); err != nil {
			report.Decisions = append(report.Decisions, model.CandidateDecision{
				CandidateID: cand.ID, Rule: model.RejectInvalid, Detail: err.Error(),
			})
			continue
		}

		if tagUsedRecently(cand.PrimaryTag, runCtx.RecentScopedTags) {
			report.Decisions = append(report.Decisions, model.CandidateDecision{
				CandidateID: cand.ID, Rule: model.RejectTagRecency,
				Detail: fmt.Sprintf("tag %q used within last %d runs for scope", cand.PrimaryTag, g.cfg.ScopedTagRuns),
			})
			rejected = append(rejected, cand)
			continue
		}

		if h := cand.CoreStat.Hash(); h != "" && runCtx.RecentStatHashes[h] {
			report.Decisions = append(report.Decisions, model.CandidateDecision{
				CandidateID: cand.ID, Rule: model.RejectStatRecency,
				Detail: fmt.Sprintf("core stat %s used within last %d runs globally", cand.CoreStat.Raw, g.cfg.GlobalStatRuns),
			})
			rejected = append(rejected, cand)
			continue
		}

		vec, err := g.embedder.Embed(ctx, cand.Takeaway)
		if err != nil {
			return nil, nil, fmt.Errorf("embed takeaway for %s: %w", cand.ID, err)
		}
		if rec, sim, hit := g.tooSimilar(vec, runCtx.RecentTakeaways); hit {
			report.Decisions = append(report.Decisions, model.CandidateDecision{
				CandidateID: cand.ID, Rule: model.RejectSimilarity,
				Detail: fmt.Sprintf("takeaway similarity %.3f to run %s exceeds %.2f", sim, rec.RunID, g.cfg.SimilarityThreshold),
			})
			rejected = append(rejected, cand)
			continue
		}

		report.Decisions = append(report.Decisions, model.CandidateDecision{
			CandidateID: cand.ID, Accepted: true,
		})
		survivors = append(survivors, survivor{cand: cand, vec: vec})
	}

	return survivors, rejected, nil
}

// tooSimilar reports the first recent takeaway above the threshold.
func (g *Gate) tooSimilar(vec []float32, recent []model.TakeawayRecord) (model.TakeawayRecord, float64, bool) {
	for _, rec := range recent {
		if sim := Cosine(vec, rec.Vec); sim > g.cfg.SimilarityThreshold {
			return rec, sim, true
		}
	}
	return model.TakeawayRecord{}, 0, false
}

func (g *Gate) lock(runCtx *model.RunContext, cand model.ClaimCandidate, vec []float32, justification string) *model.LockedClaim {
	return &model.LockedClaim{
		SchemaVersion: model.SchemaVersion,
		RunID:         runCtx.RunID,
		Scope:         runCtx.Scope,
		CandidateID:   cand.ID,
		Text:          cand.Text,
		Takeaway:      cand.Takeaway,
		PrimaryTag:    cand.PrimaryTag,
		CoreStat:      cand.CoreStat,
		ProofAnchors:  cand.ProofAnchors,
		Justification: justification,
		TakeawayVec:   vec,
	}
}

// avoidList collects everything a regeneration round must not repeat:
// the snapshot's history plus candidates this run has already rejected.
func (g *Gate) avoidList(runCtx *model.RunContext, rejected []model.ClaimCandidate) generator.AvoidList {
	var avoid generator.AvoidList

	seenTags := make(map[string]bool)
	for _, t := range runCtx.RecentScopedTags {
		avoid.Tags = append(avoid.Tags, t)
		seenTags[strings.ToLower(t)] = true
	}
	for h := range runCtx.RecentStatHashes {
		avoid.StatHashes = append(avoid.StatHashes, h)
	}
	for _, rec := range runCtx.RecentTakeaways {
		avoid.Takeaways = append(avoid.Takeaways, rec.Takeaway)
	}

	for _, cand := range rejected {
		if lower := strings.ToLower(cand.PrimaryTag); cand.PrimaryTag != "" && !seenTags[lower] {
			avoid.Tags = append(avoid.Tags, cand.PrimaryTag)
			seenTags[lower] = true
		}
		if h := cand.CoreStat.Hash(); h != "" && !runCtx.RecentStatHashes[h] {
			avoid.StatHashes = append(avoid.StatHashes, h)
		}
		if cand.Takeaway != "" {
			avoid.Takeaways = append(avoid.Takeaways, cand.Takeaway)
		}
	}
	return avoid
}

func tagUsedRecently(tag string, recent []string) bool {
	for _, t := range recent {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// excerpt bounds the grounding text sent to the generator.
func excerpt(doc *source.Document) string {
	var b strings.Builder
	for _, p := range doc.Paragraphs {
		if b.Len() > 6000 {
			break
		}
		fmt.Fprintf(&b, "[%s] %s\n", p.ID, p.Text)
	}
	return b.String()
}
