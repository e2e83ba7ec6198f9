package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/run"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/timing"
)

// checkBeatsCmd represents the check-beats command
var checkBeatsCmd = &cobra.Command{
	Use:   "check-beats <beats.json>",
	Short: "Validate beat sheet timing without running the pipeline",
	Long: `Check-beats runs only the timing sanity checker against a beat sheet
and reports the first failing invariant, if any. Useful for debugging
upstream beat-sheet generation before committing to a full run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		sheet, err := run.LoadBeatSheet(args[0])
		if err != nil {
			return err
		}

		report, err := timing.NewChecker(cfg.Timing).Check(sheet)
		if err != nil {
			if report != nil && report.Violation != nil {
				fmt.Printf("FAIL %s\n  %s\n", report.Violation.Invariant, report.Violation.Detail)
			}
			return err
		}

		fmt.Printf("OK   %s\n", sheet)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkBeatsCmd)
}
