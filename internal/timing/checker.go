// Package timing validates the structural invariants of a beat sheet
// before any asset work. The checker is fail-fast: the first violation
// aborts, because resolution cannot reason about an inconsistent timeline.
package timing

import (
	"fmt"
	"math"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

// Violation names the first invariant a beat sheet broke.
type Violation struct {
	Invariant string `json:"invariant"`
	BeatID    string `json:"beat_id,omitempty"`
	Detail    string `json:"detail"`
}

// Report is the checker's pass/fail output.
type Report struct {
	Pass      bool       `json:"pass"`
	Violation *Violation `json:"violation,omitempty"`
}

// Checker validates beat sheet timing.
type Checker struct {
	cfg model.TimingConfig
}

// NewChecker creates a checker with the given tolerances.
func NewChecker(cfg model.TimingConfig) *Checker {
	return &Checker{cfg: cfg}
}

// Check validates every timing invariant, stopping at the first failure.
// A failed check returns both the diagnostic report and a fatal
// TimingInvariantViolation error.
func (c *Checker) Check(sheet *model.BeatSheet) (*Report, error) {
	if err := sheet.Validate(); err != nil {
		return nil, err
	}

	if v := c.check(sheet); v != nil {
		return &Report{Pass: false, Violation: v},
			model.NewError(model.KindTimingInvariantViolation, "timing",
				"%s: %s", v.Invariant, v.Detail)
	}
	return &Report{Pass: true}, nil
}

func (c *Checker) check(sheet *model.BeatSheet) *Violation {
	beats := sheet.Beats

	for i := range beats {
		b := &beats[i]

		if b.End <= b.Start {
			return &Violation{
				Invariant: "beat_end_after_start",
				BeatID:    b.ID,
				Detail:    fmt.Sprintf("beat %s: end %.3f <= start %.3f", b.ID, b.End, b.Start),
			}
		}

		if i > 0 {
			prev := &beats[i-1]
			if b.Start <= prev.Start {
				return &Violation{
					Invariant: "beats_strictly_ordered",
					BeatID:    b.ID,
					Detail:    fmt.Sprintf("beat %s starts at %.3f, not after %s at %.3f", b.ID, b.Start, prev.ID, prev.Start),
				}
			}
			if prev.End > b.Start {
				return &Violation{
					Invariant: "beats_no_overlap",
					BeatID:    b.ID,
					Detail:    fmt.Sprintf("beat %s ends at %.3f, overlapping %s starting at %.3f", prev.ID, prev.End, b.ID, b.Start),
				}
			}
		}

		if b.Slot.Type == model.SlotChart && b.Duration() > c.cfg.ChartSlotMaxSec {
			return &Violation{
				Invariant: "chart_slot_ceiling",
				BeatID:    b.ID,
				Detail:    fmt.Sprintf("beat %s: chart slot %.2fs exceeds %.0fs ceiling", b.ID, b.Duration(), c.cfg.ChartSlotMaxSec),
			}
		}

		for _, ev := range b.Events {
			if ev.At < 0 || ev.At > sheet.TotalDuration {
				return &Violation{
					Invariant: "event_within_total",
					BeatID:    b.ID,
					Detail:    fmt.Sprintf("beat %s: event %q at %.3f outside [0, %.3f]", b.ID, ev.Name, ev.At, sheet.TotalDuration),
				}
			}
			if ev.At < b.Start || ev.At > b.End {
				return &Violation{
					Invariant: "event_within_beat",
					BeatID:    b.ID,
					Detail:    fmt.Sprintf("beat %s: event %q at %.3f outside beat [%.3f, %.3f]", b.ID, ev.Name, ev.At, b.Start, b.End),
				}
			}
		}
	}

	last := &beats[len(beats)-1]
	if math.Abs(last.End-sheet.TotalDuration) > c.cfg.EndTolerance {
		return &Violation{
			Invariant: "final_end_matches_total",
			BeatID:    last.ID,
			Detail: fmt.Sprintf("final beat ends at %.3f, declared total %.3f (tolerance %.2f)",
				last.End, sheet.TotalDuration, c.cfg.EndTolerance),
		}
	}

	return nil
}
