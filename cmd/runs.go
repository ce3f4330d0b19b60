package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mentionscope/scanner/internal/model"
	"github.com/mentionscope/scanner/internal/store"
)

var (
	runsStatus string
	runsDomain string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent scan runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListScanRuns(cmd.Context(), store.RunFilter{
			Status: model.ScanStatus(runsStatus),
			Domain: runsDomain,
			Limit:  runsLimit,
		})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tDOMAIN\tSTATUS\tPROGRESS\tENRICHMENT\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
				r.ID, r.Domain, r.Status, r.Progress, r.EnrichmentStatus,
				r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status")
	runsCmd.Flags().StringVar(&runsDomain, "domain", "", "filter by domain")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum rows")
	rootCmd.AddCommand(runsCmd)
}
