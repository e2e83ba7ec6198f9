package ledger

import (
	"fmt"
	"time"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

// Snapshot captures the immutable run context: everything the gates are
// allowed to know about history, read once at run start. Gates never
// touch the store again mid-run, so a run's decisions are reproducible
// from its snapshot alone.
func (s *Store) Snapshot(runID, scope string, now time.Time, cfg *model.Config) (*model.RunContext, error) {
	tags, err := s.RecentScopedTags(scope, cfg.Dedupe.ScopedTagRuns)
	if err != nil {
		return nil, fmt.Errorf("snapshot tags: %w", err)
	}
	stats, err := s.RecentStatHashes(cfg.Dedupe.GlobalStatRuns)
	if err != nil {
		return nil, fmt.Errorf("snapshot stats: %w", err)
	}
	takeaways, err := s.RecentTakeaways(cfg.Dedupe.TakeawayRuns)
	if err != nil {
		return nil, fmt.Errorf("snapshot takeaways: %w", err)
	}
	covered, err := s.CoveredAnchors(scope)
	if err != nil {
		return nil, fmt.Errorf("snapshot anchors: %w", err)
	}

	// Exclusion windows are short and hard; the novelty horizon is wider
	// so usage just outside the exclusion window still dampens scoring.
	clipCutoff := now.AddDate(0, 0, -cfg.Resolve.ClipRecencyDays)
	clipLast, _, err := s.UsageSince(model.MediaClip, clipCutoff)
	if err != nil {
		return nil, fmt.Errorf("snapshot clip usage: %w", err)
	}
	audioCutoff := now.AddDate(0, 0, -cfg.Resolve.AudioRecencyDays)
	audioLast, _, err := s.UsageSince(model.MediaAudio, audioCutoff)
	if err != nil {
		return nil, fmt.Errorf("snapshot audio usage: %w", err)
	}
	noveltyCutoff := now.AddDate(0, 0, -cfg.Resolve.NoveltyDays)
	_, clipCount, err := s.UsageSince(model.MediaClip, noveltyCutoff)
	if err != nil {
		return nil, fmt.Errorf("snapshot clip novelty: %w", err)
	}
	_, audioCount, err := s.UsageSince(model.MediaAudio, noveltyCutoff)
	if err != nil {
		return nil, fmt.Errorf("snapshot audio novelty: %w", err)
	}

	return &model.RunContext{
		RunID:            runID,
		Scope:            scope,
		Now:              now,
		RecentScopedTags: tags,
		RecentStatHashes: stats,
		RecentTakeaways:  takeaways,
		CoveredAnchors:   covered,
		ClipLastUsed:     clipLast,
		ClipUseCount:     clipCount,
		AudioLastUsed:    audioLast,
		AudioUseCount:    audioCount,
	}, nil
}
