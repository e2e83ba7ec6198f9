package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/ledger"
)

var ledgerLimit int

// ledgerCmd represents the ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the run history ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		store, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(ledgerLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("ledger is empty")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSCOPE\tTAG\tTAKEAWAY\tDROPPED\tWHEN")
		for _, e := range entries {
			takeaway := e.Takeaway
			if len(takeaway) > 48 {
				takeaway = takeaway[:45] + "..."
			}
			fmt.Fprintf(w, "%.8s\t%s\t%s\t%s\t%d\t%s\n",
				e.RunID, e.Scope, e.PrimaryTag, takeaway, e.DroppedLines,
				e.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	ledgerListCmd.Flags().IntVar(&ledgerLimit, "limit", 20, "maximum runs to list")
	ledgerCmd.AddCommand(ledgerListCmd)
	rootCmd.AddCommand(ledgerCmd)
}
