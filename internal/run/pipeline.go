// Package run sequences the production-integrity gates for one run. The
// pipeline is strictly sequential: each gate's output is a hard
// precondition for the next, no stage is re-entrant, and a failed gate
// never hands partial output onward.
package run

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/dedupe"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/ledger"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/resolve"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/source"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/timing"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/verify"
)

// Input is everything one run consumes. Candidates, script, and beat
// sheet come from external generators; the core only validates them.
type Input struct {
	RunID      string // empty: a new UUID; reuse an ID for idempotent retry
	Doc        *source.Document
	Candidates *model.CandidateSet
	Script     *model.ScriptCandidate
	BeatSheet  *model.BeatSheet
}

// Result is the complete output of one run.
type Result struct {
	Report       model.RunReport
	LockedClaim  *model.LockedClaim
	DedupeReport *model.DedupeReport
	Script       *model.VerifiedScript
	TimingReport *timing.Report
	Manifest     *model.AssetManifest
	Committed    bool // false when the ledger saw a duplicate run ID
}

// Pipeline wires the gates together.
type Pipeline struct {
	store    *ledger.Store
	dedupe   *dedupe.Gate
	verify   *verify.Gate
	timing   *timing.Checker
	resolver *resolve.Resolver
	cfg      *model.Config
	logW     io.Writer // verbose progress; nil silences
}

// NewPipeline creates a pipeline from pre-built gates.
func NewPipeline(store *ledger.Store, dg *dedupe.Gate, vg *verify.Gate, tc *timing.Checker, rs *resolve.Resolver, cfg *model.Config, logW io.Writer) *Pipeline {
	return &Pipeline{
		store:    store,
		dedupe:   dg,
		verify:   vg,
		timing:   tc,
		resolver: rs,
		cfg:      cfg,
		logW:     logW,
	}
}

// Execute drives one run through every gate. Fatal gate errors abort with
// the state machine parked in ABORTED and the failing stage recorded on
// the report; the partially filled Result is still returned for
// diagnostics.
func (p *Pipeline) Execute(ctx context.Context, in Input) (*Result, error) {
	runID := in.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	res := &Result{
		Report: model.RunReport{
			SchemaVersion: model.SchemaVersion,
			RunID:         runID,
			Scope:         in.Doc.ID,
			State:         model.StateInit,
			StartedAt:     time.Now().UTC(),
		},
	}

	// One snapshot per run; gates never re-query the ledger mid-run.
	runCtx, err := p.store.Snapshot(runID, in.Doc.ID, res.Report.StartedAt, p.cfg)
	if err != nil {
		return p.abort(res, "snapshot", err)
	}

	p.logf("run %s: scope %s (doc version %s)\n", runID, in.Doc.ID, in.Doc.Version)

	// Dedupe gate.
	locked, dedupeReport, err := p.dedupe.Lock(ctx, runCtx, in.Candidates, in.Doc)
	res.DedupeReport = dedupeReport
	if err != nil {
		return p.abort(res, "dedupe", err)
	}
	res.LockedClaim = locked
	if err := p.advance(res, model.StateClaimLocked); err != nil {
		return p.abort(res, "dedupe", err)
	}
	p.logf("claim locked: %q (tag %s, %s)\n", locked.Takeaway, locked.PrimaryTag, locked.Justification)

	// Verification gate.
	verified, err := p.verify.Verify(in.Script, locked, in.Doc)
	if err != nil {
		return p.abort(res, "verify", err)
	}
	res.Script = verified
	if err := p.advance(res, model.StateScriptVerified); err != nil {
		return p.abort(res, "verify", err)
	}
	p.logf("script verified: %d lines kept, %d dropped\n", len(verified.Lines), verified.DroppedCount())

	// Timing sanity checker.
	timingReport, err := p.timing.Check(in.BeatSheet)
	res.TimingReport = timingReport
	if err != nil {
		return p.abort(res, "timing", err)
	}
	if err := p.advance(res, model.StateBeatSheetValid); err != nil {
		return p.abort(res, "timing", err)
	}
	p.logf("%s validated\n", in.BeatSheet)

	// Asset resolver.
	manifest, err := p.resolver.Resolve(ctx, runCtx, in.BeatSheet)
	if err != nil {
		return p.abort(res, "resolve", err)
	}
	res.Manifest = manifest
	if err := p.advance(res, model.StateAssetsResolved); err != nil {
		return p.abort(res, "resolve", err)
	}
	p.logf("assets resolved: %d entries, %d unresolved\n", len(manifest.Entries), len(manifest.Unresolved))

	// Ledger commit, idempotent on run ID.
	entry := buildLedgerEntry(runID, locked, verified, manifest, res.Report.StartedAt)
	switch err := p.store.Append(entry); {
	case err == nil:
		res.Committed = true
	case model.IsKind(err, model.KindLedgerWriteConflict):
		// Retried commit of an already recorded run: logged, not an error.
		p.logf("ledger: %v\n", err)
	default:
		return p.abort(res, "ledger", err)
	}
	if err := p.advance(res, model.StateLedgerCommitted); err != nil {
		return p.abort(res, "ledger", err)
	}

	res.Report.FinishedAt = time.Now().UTC()
	return res, nil
}

// advance moves the state machine forward, rejecting illegal transitions.
func (p *Pipeline) advance(res *Result, to model.RunState) error {
	if !model.CanAdvance(res.Report.State, to) {
		return fmt.Errorf("illegal state transition %s -> %s", res.Report.State, to)
	}
	res.Report.State = to
	return nil
}

// abort parks the run in ABORTED and attaches the failure to the report.
func (p *Pipeline) abort(res *Result, stage string, err error) (*Result, error) {
	res.Report.State = model.StateAborted
	res.Report.FailedStage = stage
	res.Report.FailureKind = model.KindOf(err)
	res.Report.FailureDetail = err.Error()
	res.Report.FinishedAt = time.Now().UTC()
	p.logf("run aborted at %s: %v\n", stage, err)
	return res, err
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.logW != nil {
		fmt.Fprintf(p.logW, format, args...)
	}
}

// buildLedgerEntry assembles the permanent record of the run's decisions.
func buildLedgerEntry(runID string, claim *model.LockedClaim, script *model.VerifiedScript, manifest *model.AssetManifest, at time.Time) model.LedgerEntry {
	entry := model.LedgerEntry{
		SchemaVersion: model.SchemaVersion,
		RunID:         runID,
		Scope:         claim.Scope,
		PrimaryTag:    claim.PrimaryTag,
		StatHash:      claim.CoreStat.Hash(),
		Takeaway:      claim.Takeaway,
		TakeawayVec:   claim.TakeawayVec,
		ProofAnchors:  claim.ProofAnchors,
		ScriptPass:    script.Pass,
		DroppedLines:  script.DroppedCount(),
		CreatedAt:     at,
	}
	for _, m := range manifest.Entries {
		entry.Assets = append(entry.Assets, model.AssetUsage{
			EntryID:     m.EntryID,
			Kind:        m.Kind,
			Category:    m.Category,
			WindowStart: m.WindowStart,
			WindowEnd:   m.WindowEnd,
		})
	}
	if manifest.Audio != nil {
		entry.Assets = append(entry.Assets, model.AssetUsage{
			EntryID:     manifest.Audio.EntryID,
			Kind:        model.MediaAudio,
			Category:    manifest.Audio.Category,
			WindowStart: manifest.Audio.WindowStart,
			WindowEnd:   manifest.Audio.WindowEnd,
		})
	}
	return entry
}
