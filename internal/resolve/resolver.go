// Package resolve maps each timed slot of a validated beat sheet to a
// concrete library entry or an explicit fallback, honoring recency
// exclusion, a hard no-repeat-within-run invariant, and diversity
// scoring. A slot that cannot be filled is flagged, never silently
// substituted, and never aborts the rest of the manifest.
package resolve

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/library"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

// Resolver resolves visual and audio slots against the library index.
type Resolver struct {
	idx *library.Index
	cfg model.ResolveConfig
}

// NewResolver creates a resolver over the given index.
func NewResolver(idx *library.Index, cfg model.ResolveConfig) *Resolver {
	return &Resolver{idx: idx, cfg: cfg}
}

// runState is the shared mutable state of one resolution pass. Candidate
// scoring fans out read-only; updates go through the mutex so the
// no-repeat-within-run invariant holds even with concurrent scoring.
type runState struct {
	mu       sync.Mutex
	used     map[string]bool
	catCount map[string]int
}

func (s *runState) commit(e model.LibraryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used[e.ID] = true
	s.catCount[e.Category()]++
}

func (s *runState) isUsed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used[id]
}

// categories returns a point-in-time copy for diversity scoring.
func (s *runState) categories() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.catCount))
	for k, v := range s.catCount {
		out[k] = v
	}
	return out
}

// Resolve produces the asset manifest for a validated beat sheet. Visual
// slots resolve in beat order; chart and overlay slots are rendered
// downstream and take no library entry. Audio resolves once per run.
func (r *Resolver) Resolve(ctx context.Context, runCtx *model.RunContext, sheet *model.BeatSheet) (*model.AssetManifest, error) {
	manifest := &model.AssetManifest{
		SchemaVersion: model.SchemaVersion,
		RunID:         runCtx.RunID,
	}
	state := &runState{
		used:     make(map[string]bool),
		catCount: make(map[string]int),
	}

	for i := range sheet.Beats {
		beat := &sheet.Beats[i]
		switch beat.Slot.Type {
		case model.SlotChart, model.SlotOverlay:
			continue
		}

		entry, fallback, err := r.resolveSlot(ctx, runCtx, state, beat)
		if err != nil {
			if model.IsKind(err, model.KindResolverExhausted) {
				manifest.Unresolved = append(manifest.Unresolved, model.UnresolvedSlot{
					BeatID: beat.ID,
					Reason: err.Error(),
				})
				continue
			}
			return nil, err
		}

		state.commit(entry)
		start := windowStart(runCtx.RunID, beat.ID, entry, beat.Duration())
		manifest.Entries = append(manifest.Entries, model.ManifestEntry{
			BeatID:      beat.ID,
			EntryID:     entry.ID,
			Kind:        model.MediaClip,
			Category:    entry.Category(),
			WindowStart: start,
			WindowEnd:   start + beat.Duration(),
			Fallback:    fallback,
		})
	}

	audio, err := r.resolveAudio(ctx, runCtx, state, sheet)
	if err != nil {
		if model.IsKind(err, model.KindResolverExhausted) {
			manifest.Unresolved = append(manifest.Unresolved, model.UnresolvedSlot{
				BeatID: "music",
				Reason: err.Error(),
			})
		} else {
			return nil, err
		}
	} else {
		state.commit(audio.entry)
		manifest.Audio = &model.ManifestEntry{
			EntryID:     audio.entry.ID,
			Kind:        model.MediaAudio,
			Category:    audio.entry.Category(),
			WindowStart: 0,
			WindowEnd:   audio.window,
		}
	}

	return manifest, nil
}

// resolveSlot fills one visual slot: primary pool first, then the generic
// fallback tier, then an explicit ResolverExhausted flag.
func (r *Resolver) resolveSlot(ctx context.Context, runCtx *model.RunContext, state *runState, beat *model.Beat) (model.LibraryEntry, bool, error) {
	primary := library.Filter{
		Kind:        model.MediaClip,
		Tags:        beat.Slot.Tags,
		Orientation: beat.Slot.Orientation,
		Composition: beat.Slot.Composition,
		MinDuration: beat.Duration(),
	}
	if entry, ok, err := r.pick(ctx, runCtx, state, beat.Slot, primary); err != nil {
		return model.LibraryEntry{}, false, err
	} else if ok {
		return entry, false, nil
	}

	// Secondary tier: intentionally generic/abstract pool, orientation
	// preserved, tag and composition constraints dropped.
	fallback := library.Filter{
		Kind:        model.MediaClip,
		AnyTag:      r.cfg.FallbackTags,
		Orientation: beat.Slot.Orientation,
		MinDuration: beat.Duration(),
	}
	if entry, ok, err := r.pick(ctx, runCtx, state, beat.Slot, fallback); err != nil {
		return model.LibraryEntry{}, false, err
	} else if ok {
		return entry, true, nil
	}

	return model.LibraryEntry{}, false, model.NewError(model.KindResolverExhausted, "resolve",
		"beat %s: no eligible entry in primary or fallback pool", beat.ID)
}

// pick scores the eligible candidates of one pool concurrently and
// returns the winner. Exclusion runs before scoring: recent ledger usage
// and the within-run used set are hard filters, not score penalties.
func (r *Resolver) pick(ctx context.Context, runCtx *model.RunContext, state *runState, slot model.VisualSlot, f library.Filter) (model.LibraryEntry, bool, error) {
	candidates := r.idx.Query(f)

	eligible := candidates[:0:0]
	for _, e := range candidates {
		if _, recent := runCtx.ClipLastUsed[e.ID]; recent {
			continue
		}
		if state.isUsed(e.ID) {
			continue
		}
		eligible = append(eligible, e)
	}
	if len(eligible) == 0 {
		return model.LibraryEntry{}, false, nil
	}

	cats := state.categories()
	scores := make([]float64, len(eligible))

	g, gctx := errgroup.WithContext(ctx)
	workers := r.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i := range eligible {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			scores[i] = scoreEntry(eligible[i], slot, runCtx.ClipUseCount[eligible[i].ID], cats)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.LibraryEntry{}, false, fmt.Errorf("score candidates: %w", err)
	}

	// Candidates arrive in stable ID order, so ties break deterministically
	// toward the smaller ID.
	best := 0
	for i := 1; i < len(eligible); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return eligible[best], true, nil
}

type audioPick struct {
	entry  model.LibraryEntry
	window float64
}

// resolveAudio selects the run's single music track by mood tag with the
// same exclusion-and-scoring pattern, independent of visual resolution.
func (r *Resolver) resolveAudio(ctx context.Context, runCtx *model.RunContext, state *runState, sheet *model.BeatSheet) (*audioPick, error) {
	pools := []library.Filter{
		{Kind: model.MediaAudio, Mood: sheet.Music.Mood, MinDuration: sheet.TotalDuration},
		{Kind: model.MediaAudio, MinDuration: sheet.TotalDuration}, // mood constraint dropped
	}

	for _, f := range pools {
		var bestEntry *model.LibraryEntry
		bestScore := -1.0
		for _, e := range r.idx.Query(f) {
			if _, recent := runCtx.AudioLastUsed[e.ID]; recent {
				continue
			}
			if state.isUsed(e.ID) {
				continue
			}
			score := 1.0 / float64(1+runCtx.AudioUseCount[e.ID])
			if score > bestScore {
				bestScore = score
				entry := e
				bestEntry = &entry
			}
		}
		if bestEntry != nil {
			return &audioPick{entry: *bestEntry, window: sheet.TotalDuration}, nil
		}
	}

	return nil, model.NewError(model.KindResolverExhausted, "resolve",
		"no eligible audio track for mood %q within %d-day window", sheet.Music.Mood, r.cfg.AudioRecencyDays)
}

// windowStart derives a deterministic offset into the source asset. The
// hash spreads window choices across runs without sacrificing replay.
func windowStart(runID, beatID string, e model.LibraryEntry, need float64) float64 {
	slack := e.Duration - need
	if slack <= 0 {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(runID))
	h.Write([]byte("|"))
	h.Write([]byte(beatID))
	h.Write([]byte("|"))
	h.Write([]byte(e.ID))
	// Quantize to tenths of a second so windows are edit-friendly.
	steps := uint64(slack * 10)
	if steps == 0 {
		return 0
	}
	return float64(h.Sum64()%(steps+1)) / 10
}
