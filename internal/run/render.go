package run

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteJSON writes any artifact as indented JSON, the interchange format
// for the downstream packaging step.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// RenderSummary prints a human summary of a finished run.
func RenderSummary(w io.Writer, res *Result) {
	fmt.Fprintf(w, "Run:      %s (%s)\n", res.Report.RunID, res.Report.State)
	fmt.Fprintf(w, "Scope:    %s\n", res.Report.Scope)

	if res.LockedClaim != nil {
		fmt.Fprintf(w, "Claim:    %s [tag %s]\n", res.LockedClaim.Takeaway, res.LockedClaim.PrimaryTag)
		if res.DedupeReport != nil && res.DedupeReport.ForcedClaim {
			fmt.Fprintf(w, "          (forced micro-claim fallback)\n")
		}
	}
	if res.Script != nil {
		fmt.Fprintf(w, "Script:   %d lines", len(res.Script.Lines))
		if dropped := res.Script.DroppedCount(); dropped > 0 {
			fmt.Fprintf(w, ", %d dropped", dropped)
		}
		fmt.Fprintln(w)
	}
	if res.Manifest != nil {
		fmt.Fprintf(w, "Assets:   %d resolved", len(res.Manifest.Entries))
		if res.Manifest.Audio != nil {
			fmt.Fprintf(w, " + audio %s", res.Manifest.Audio.EntryID)
		}
		fmt.Fprintln(w)
		for _, u := range res.Manifest.Unresolved {
			fmt.Fprintf(w, "  UNRESOLVED %s: %s\n", u.BeatID, u.Reason)
		}
	}
	if res.Report.FailedStage != "" {
		fmt.Fprintf(w, "Failure:  %s at %s: %s\n", res.Report.FailureKind, res.Report.FailedStage, res.Report.FailureDetail)
	}
	if !res.Committed && res.Report.FailedStage == "" {
		fmt.Fprintf(w, "Ledger:   duplicate run ID, prior record stands\n")
	}
}
