package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/generator"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/source"
)

func testGateCfg() model.DedupeConfig {
	return model.DefaultConfig().Dedupe
}

func testDoc() *source.Document {
	return source.New("doc", []string{
		"Compound interest grows savings exponentially over long periods.",
		"At a 7% annual return, invested money doubles in roughly ten years.",
		"Fees of 1% can consume a quarter of lifetime returns.",
	})
}

func testRunCtx() *model.RunContext {
	return &model.RunContext{
		RunID:            "run-1",
		Scope:            "doc",
		Now:              time.Now().UTC(),
		RecentStatHashes: map[string]bool{},
		CoveredAnchors:   map[string]bool{},
	}
}

func candidate(id, tag, takeaway string) model.ClaimCandidate {
	return model.ClaimCandidate{
		SchemaVersion: model.SchemaVersion,
		ID:            id,
		Text:          takeaway + ".",
		Takeaway:      takeaway,
		PrimaryTag:    tag,
		ProofAnchors:  []string{"doc#p0001"},
	}
}

func candidateSet(cands ...model.ClaimCandidate) *model.CandidateSet {
	return &model.CandidateSet{
		SchemaVersion: model.SchemaVersion,
		Scope:         "doc",
		Candidates:    cands,
	}
}

// fakeGen is a scripted generator client.
type fakeGen struct {
	calls     int
	lastAvoid generator.AvoidList
	responses [][]model.ClaimCandidate
}

func (f *fakeGen) Name() string { return "fake" }

func (f *fakeGen) GenerateCandidates(_ context.Context, req generator.CandidateRequest) (*generator.CandidateResponse, error) {
	f.lastAvoid = req.Avoid
	var out []model.ClaimCandidate
	if f.calls < len(f.responses) {
		out = f.responses[f.calls]
	}
	f.calls++
	return &generator.CandidateResponse{Candidates: out}, nil
}

func newTestGate(t *testing.T, gen generator.Client) *Gate {
	t.Helper()
	embedder, err := generator.NewEmbedder(model.EmbeddingConfig{Provider: "local"}, model.GeneratorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	return NewGate(testGateCfg(), embedder, gen)
}

func TestGate_Lock_PrefersFirstSurvivor(t *testing.T) {
	gate := newTestGate(t, nil)
	set := candidateSet(
		candidate("c1", "compounding", "Doubling takes about ten years at seven percent"),
		candidate("c2", "fees", "Small fees quietly consume a quarter of returns"),
	)

	locked, report, err := gate.Lock(context.Background(), testRunCtx(), set, testDoc())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked.CandidateID != "c1" {
		t.Errorf("expected first survivor c1, got %s", locked.CandidateID)
	}
	if len(locked.TakeawayVec) == 0 {
		t.Error("locked claim must carry its takeaway embedding")
	}
	if report.ForcedClaim {
		t.Error("no fallback should be needed")
	}
	accepted := 0
	for _, d := range report.Decisions {
		if d.Accepted {
			accepted++
		}
	}
	if accepted != 2 {
		t.Errorf("expected 2 accepted decisions, got %d", accepted)
	}
}

func TestGate_Lock_RejectsRecentTag(t *testing.T) {
	// Scenario: the same primary tag was used in each of the last 3 runs
	// for this scope; all candidates with that tag are rejected and a
	// previously-unused candidate is locked instead.
	gate := newTestGate(t, nil)
	runCtx := testRunCtx()
	runCtx.RecentScopedTags = []string{"compounding", "compounding", "compounding"}

	set := candidateSet(
		candidate("c1", "compounding", "Doubling takes about ten years at seven percent"),
		candidate("c2", "Compounding", "Compounding beats timing for most savers"),
		candidate("c3", "fees", "Small fees quietly consume a quarter of returns"),
	)

	locked, report, err := gate.Lock(context.Background(), runCtx, set, testDoc())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked.CandidateID != "c3" {
		t.Errorf("expected c3 locked, got %s", locked.CandidateID)
	}
	for _, d := range report.Decisions {
		if (d.CandidateID == "c1" || d.CandidateID == "c2") &&
			(d.Accepted || d.Rule != model.RejectTagRecency) {
			t.Errorf("candidate %s should be rejected by tag recency: %+v", d.CandidateID, d)
		}
	}
}

func TestGate_Lock_RejectsRecentStat(t *testing.T) {
	gate := newTestGate(t, nil)
	stat := &model.CoreStat{Value: 99, Unit: "%", Raw: "99%"}

	runCtx := testRunCtx()
	runCtx.RecentStatHashes[stat.Hash()] = true

	withStat := candidate("c1", "failure-rates", "Most people fail at this")
	withStat.CoreStat = stat

	set := candidateSet(
		withStat,
		candidate("c2", "fees", "Small fees quietly consume a quarter of returns"),
	)

	locked, report, err := gate.Lock(context.Background(), runCtx, set, testDoc())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked.CandidateID != "c2" {
		t.Errorf("expected c2 locked, got %s", locked.CandidateID)
	}
	if report.Decisions[0].Rule != model.RejectStatRecency {
		t.Errorf("expected stat recency rejection, got %+v", report.Decisions[0])
	}
}

func TestGate_Lock_RejectsSimilarTakeaway(t *testing.T) {
	embedder, err := generator.NewEmbedder(model.EmbeddingConfig{Provider: "local"}, model.GeneratorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	gate := NewGate(testGateCfg(), embedder, nil)

	repeated := "Doubling takes about ten years at seven percent"
	vec, err := embedder.Embed(context.Background(), repeated)
	if err != nil {
		t.Fatal(err)
	}

	runCtx := testRunCtx()
	runCtx.RecentTakeaways = []model.TakeawayRecord{{RunID: "old-run", Takeaway: repeated, Vec: vec}}

	set := candidateSet(
		candidate("c1", "compounding", repeated), // identical takeaway, similarity 1.0
		candidate("c2", "fees", "Small fees quietly consume a quarter of returns"),
	)

	locked, report, err := gate.Lock(context.Background(), runCtx, set, testDoc())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked.CandidateID != "c2" {
		t.Errorf("expected c2 locked, got %s", locked.CandidateID)
	}
	if report.Decisions[0].Rule != model.RejectSimilarity {
		t.Errorf("expected similarity rejection, got %+v", report.Decisions[0])
	}
}

func TestGate_Lock_RegeneratesWithAvoidList(t *testing.T) {
	gen := &fakeGen{responses: [][]model.ClaimCandidate{
		{candidate("fresh-1", "fees", "Small fees quietly consume a quarter of returns")},
	}}
	gate := newTestGate(t, gen)

	runCtx := testRunCtx()
	runCtx.RecentScopedTags = []string{"compounding"}

	// Single candidate, rejected by tag: below the survivor minimum, so
	// the gate must regenerate.
	set := candidateSet(candidate("c1", "compounding", "Doubling takes about ten years"))

	locked, report, err := gate.Lock(context.Background(), runCtx, set, testDoc())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if gen.calls == 0 {
		t.Fatal("expected regeneration to be requested")
	}
	if len(gen.lastAvoid.Tags) == 0 || gen.lastAvoid.Tags[0] != "compounding" {
		t.Errorf("avoid-list must carry the recent tag, got %v", gen.lastAvoid.Tags)
	}
	if locked.CandidateID != "fresh-1" {
		t.Errorf("expected regenerated candidate locked, got %s", locked.CandidateID)
	}
	if report.RegenAttempts == 0 {
		t.Error("report must count regeneration attempts")
	}
}

func TestGate_Lock_AvoidListAccumulatesRunRejections(t *testing.T) {
	// Candidates rejected during this run, not just the snapshot's
	// history, must feed later regeneration avoid-lists.
	gen := &fakeGen{responses: [][]model.ClaimCandidate{
		{candidate("f1", "compounding", "Another compounding angle")},
		{candidate("fresh-1", "fees", "Small fees quietly consume a quarter of returns")},
	}}
	gate := newTestGate(t, gen)

	stat := &model.CoreStat{Value: 4, Unit: "%", Raw: "4%"}
	runCtx := testRunCtx()
	runCtx.RecentScopedTags = []string{"compounding"}
	runCtx.RecentStatHashes[stat.Hash()] = true

	seed := candidate("c1", "withdrawal-rates", "A four percent withdrawal rate survives most markets")
	seed.CoreStat = stat

	locked, _, err := gate.Lock(context.Background(), runCtx, candidateSet(seed), testDoc())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked.CandidateID != "fresh-1" {
		t.Fatalf("expected regenerated candidate locked, got %s", locked.CandidateID)
	}
	if gen.calls < 2 {
		t.Fatalf("expected at least 2 regeneration rounds, got %d", gen.calls)
	}

	if !tagUsedRecently("withdrawal-rates", gen.lastAvoid.Tags) {
		t.Errorf("avoid-list must carry the stat-rejected candidate's tag, got %v", gen.lastAvoid.Tags)
	}
	compounding := 0
	for _, tag := range gen.lastAvoid.Tags {
		if tag == "compounding" {
			compounding++
		}
	}
	if compounding != 1 {
		t.Errorf("tag already in history must not repeat, got %v", gen.lastAvoid.Tags)
	}
	foundTakeaway := false
	for _, tw := range gen.lastAvoid.Takeaways {
		if tw == seed.Takeaway {
			foundTakeaway = true
		}
	}
	if !foundTakeaway {
		t.Errorf("avoid-list must carry the rejected takeaway, got %v", gen.lastAvoid.Takeaways)
	}
	foundHash := false
	for _, h := range gen.lastAvoid.StatHashes {
		if h == stat.Hash() {
			foundHash = true
		}
	}
	if !foundHash {
		t.Errorf("avoid-list must carry the rejected stat hash, got %v", gen.lastAvoid.StatHashes)
	}
}

func TestGate_Lock_BoundedRegeneration(t *testing.T) {
	// Generator keeps returning candidates that fail the tag filter; the
	// gate must stop at the attempt bound and take the forced fallback.
	gen := &fakeGen{responses: [][]model.ClaimCandidate{
		{candidate("f1", "compounding", "Another compounding angle one")},
		{candidate("f2", "compounding", "Another compounding angle two")},
		{candidate("f3", "compounding", "Another compounding angle three")},
		{candidate("f4", "compounding", "Another compounding angle four")},
	}}
	gate := newTestGate(t, gen)

	runCtx := testRunCtx()
	runCtx.RecentScopedTags = []string{"compounding"}

	set := candidateSet(candidate("c1", "compounding", "Doubling takes about ten years"))

	locked, report, err := gate.Lock(context.Background(), runCtx, set, testDoc())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if gen.calls != testGateCfg().MaxRegenAttempts {
		t.Errorf("expected exactly %d regeneration rounds, got %d", testGateCfg().MaxRegenAttempts, gen.calls)
	}
	if !report.ForcedClaim {
		t.Error("expected forced micro-claim after bounded regeneration")
	}
	if locked.PrimaryTag != "micro:doc" {
		t.Errorf("unexpected micro-claim tag %s", locked.PrimaryTag)
	}
}

func TestGate_Lock_ForcedMicroClaim(t *testing.T) {
	gate := newTestGate(t, nil) // regeneration disabled

	runCtx := testRunCtx()
	runCtx.RecentScopedTags = []string{"compounding"}
	runCtx.CoveredAnchors = map[string]bool{"doc#p0000": true}

	set := candidateSet(candidate("c1", "compounding", "Doubling takes about ten years"))

	locked, report, err := gate.Lock(context.Background(), runCtx, set, testDoc())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !report.ForcedClaim {
		t.Error("expected forced fallback")
	}
	// First uncovered paragraph is p0001.
	if len(locked.ProofAnchors) != 1 || locked.ProofAnchors[0] != "doc#p0001" {
		t.Errorf("micro-claim should anchor the first uncovered paragraph, got %v", locked.ProofAnchors)
	}
}

func TestGate_Lock_DedupeExhausted(t *testing.T) {
	gate := newTestGate(t, nil)

	runCtx := testRunCtx()
	runCtx.RecentScopedTags = []string{"compounding"}
	runCtx.CoveredAnchors = map[string]bool{
		"doc#p0000": true, "doc#p0001": true, "doc#p0002": true,
	}

	set := candidateSet(candidate("c1", "compounding", "Doubling takes about ten years"))

	_, _, err := gate.Lock(context.Background(), runCtx, set, testDoc())
	if err == nil {
		t.Fatal("fully covered document must abort")
	}
	if !model.IsKind(err, model.KindDedupeExhausted) {
		t.Errorf("expected DedupeExhausted, got %v", err)
	}
}

func TestGate_Lock_ScopeMismatch(t *testing.T) {
	gate := newTestGate(t, nil)
	set := candidateSet(candidate("c1", "fees", "Small fees consume returns"))
	set.Scope = "wrong-doc"

	_, _, err := gate.Lock(context.Background(), testRunCtx(), set, testDoc())
	if !model.IsKind(err, model.KindSchemaViolation) {
		t.Errorf("expected SchemaViolation on scope mismatch, got %v", err)
	}
}

func TestCosine(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	if got := Cosine(a, a); got < 0.999 {
		t.Errorf("self similarity should be 1, got %f", got)
	}
	if got := Cosine(a, b); got != 0 {
		t.Errorf("orthogonal similarity should be 0, got %f", got)
	}
	if got := Cosine(a, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched dims should compare as 0, got %f", got)
	}
	if got := Cosine(nil, nil); got != 0 {
		t.Errorf("empty vectors should compare as 0, got %f", got)
	}
}
