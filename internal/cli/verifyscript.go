package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/run"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/source"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/verify"
)

var (
	vsSource  string
	vsAnchors []string
	vsOut     string
)

// verifyScriptCmd represents the verify-script command
var verifyScriptCmd = &cobra.Command{
	Use:   "verify-script <script.json>",
	Short: "Verify a script against source proof anchors in isolation",
	Long: `Verify-script runs only the deterministic verification gate. Lines
without their own anchors are checked against the anchors given with
--anchor. The gate is a pure function of (script, proof text): the same
inputs always produce the same verified output.

Example:
  motion verify-script out/script.json --source sources/doc.html --anchor doc#p0002`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := source.Load(vsSource)
		if err != nil {
			return err
		}
		script, err := run.LoadScript(args[0])
		if err != nil {
			return err
		}

		anchors := vsAnchors
		if len(anchors) == 0 {
			// Default to the whole document as proof text.
			for _, p := range doc.Paragraphs {
				anchors = append(anchors, p.ID)
			}
		}
		claim := &model.LockedClaim{
			SchemaVersion: model.SchemaVersion,
			Scope:         doc.ID,
			ProofAnchors:  anchors,
		}

		verified, err := verify.NewGate().Verify(script, claim, doc)
		if err != nil {
			return err
		}

		for _, ann := range verified.Annotations {
			switch ann.Outcome {
			case model.LineRewritten:
				fmt.Fprintf(os.Stderr, "rewrote: %q (%s)\n", ann.Original, ann.Reason)
			case model.LineDropped:
				fmt.Fprintf(os.Stderr, "dropped: %q (%s)\n", ann.Original, ann.Reason)
			}
		}
		fmt.Printf("pass=%v kept=%d dropped=%d\n", verified.Pass, len(verified.Lines), verified.DroppedCount())

		if vsOut != "" {
			return run.WriteJSON(vsOut, verified)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyScriptCmd)

	verifyScriptCmd.Flags().StringVar(&vsSource, "source", "", "source document path")
	verifyScriptCmd.Flags().StringArrayVar(&vsAnchors, "anchor", nil, "proof anchor paragraph ID (repeatable)")
	verifyScriptCmd.Flags().StringVar(&vsOut, "out", "", "verified script output path (optional)")
	_ = verifyScriptCmd.MarkFlagRequired("source")
}
