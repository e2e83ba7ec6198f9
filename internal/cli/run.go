package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/cache"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/dedupe"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/generator"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/ledger"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/library"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/resolve"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/run"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/source"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/timing"
	"github.com/hsalehi78/arcanomy-motion-sub000/internal/verify"
)

var (
	runID          string
	sourcePath     string
	candidatesPath string
	scriptPath     string
	beatsPath      string
	manifestOut    string
	scriptOut      string
	reportOut      string
	runTimeout     time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one full production-integrity run",
	Long: `Run drives one source document through every gate:

- lock a non-repeating, provable claim (dedupe gate)
- verify the generated script against proof anchors
- validate beat sheet timing
- resolve every visual slot and the music slot to library assets
- commit the run to the history ledger (idempotent on run ID)

Example:
  motion run --source sources/compounding.html \
    --candidates out/candidates.json --script out/script.json \
    --beats out/beats.json --manifest out/manifest.json`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runID, "run-id", "", "run identifier (reuse to retry a commit idempotently)")
	runCmd.Flags().StringVar(&sourcePath, "source", "", "source document path (.html, .md, .txt)")
	runCmd.Flags().StringVar(&candidatesPath, "candidates", "", "claim candidates JSON path")
	runCmd.Flags().StringVar(&scriptPath, "script", "", "script candidate JSON path")
	runCmd.Flags().StringVar(&beatsPath, "beats", "", "beat sheet JSON path")
	runCmd.Flags().StringVar(&manifestOut, "manifest", "manifest.json", "asset manifest output path")
	runCmd.Flags().StringVar(&scriptOut, "verified-script", "verified_script.json", "verified script output path")
	runCmd.Flags().StringVar(&reportOut, "report", "run_report.json", "run report output path (claim, dedupe decisions, timing)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "overall run timeout")

	_ = runCmd.MarkFlagRequired("source")
	_ = runCmd.MarkFlagRequired("candidates")
	_ = runCmd.MarkFlagRequired("script")
	_ = runCmd.MarkFlagRequired("beats")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	cfg.Output.Verbose = cfg.Output.Verbose || verbose

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	doc, err := source.Load(sourcePath)
	if err != nil {
		return err
	}
	candidates, err := run.LoadCandidates(candidatesPath)
	if err != nil {
		return err
	}
	script, err := run.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	sheet, err := run.LoadBeatSheet(beatsPath)
	if err != nil {
		return err
	}

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	idx, err := library.LoadDir(cfg.Library.Dir)
	if err != nil {
		return err
	}

	gen, err := generator.New(cfg.Generator)
	if err != nil {
		return err
	}
	embedder, err := generator.NewEmbedder(cfg.Embedding, cfg.Generator)
	if err != nil {
		return err
	}
	if cfg.Cache.Enabled && cfg.Cache.Dir != "" {
		embedder = dedupe.NewCachedEmbedder(embedder,
			cache.NewLayered(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL))
	}

	var logW io.Writer
	if cfg.Output.Verbose {
		logW = os.Stderr
	}

	pipeline := run.NewPipeline(
		store,
		dedupe.NewGate(cfg.Dedupe, embedder, gen),
		verify.NewGate(),
		timing.NewChecker(cfg.Timing),
		resolve.NewResolver(idx, cfg.Resolve),
		cfg,
		logW,
	)

	res, err := pipeline.Execute(ctx, run.Input{
		RunID:      runID,
		Doc:        doc,
		Candidates: candidates,
		Script:     script,
		BeatSheet:  sheet,
	})
	if res != nil {
		run.RenderSummary(os.Stdout, res)
	}
	if err != nil {
		return err
	}

	if err := run.WriteJSON(manifestOut, res.Manifest); err != nil {
		return err
	}
	if err := run.WriteJSON(scriptOut, res.Script); err != nil {
		return err
	}
	if reportOut != "" {
		audit := struct {
			Report    model.RunReport     `json:"report"`
			Claim     *model.LockedClaim  `json:"claim,omitempty"`
			Dedupe    *model.DedupeReport `json:"dedupe,omitempty"`
			Timing    *timing.Report      `json:"timing,omitempty"`
			Committed bool                `json:"committed"`
		}{res.Report, res.LockedClaim, res.DedupeReport, res.TimingReport, res.Committed}
		if err := run.WriteJSON(reportOut, audit); err != nil {
			return err
		}
	}
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote manifest: %s\n✓ Wrote verified script: %s\n", manifestOut, scriptOut)
	}
	return nil
}
