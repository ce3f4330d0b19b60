package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mentionscope/scanner/internal/model"
)

var (
	scanEmail     string
	scanLeadID    string
	scanSubID     string
	scanSkipEmail bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <domain>",
	Short: "Start a visibility scan for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		runID, err := env.Starter.StartScan(cmd.Context(), model.ScanRequest{
			Domain:               args[0],
			Email:                scanEmail,
			LeadID:               scanLeadID,
			DomainSubscriptionID: scanSubID,
			SkipEmail:            scanSkipEmail,
		})
		if err != nil {
			return err
		}

		zap.L().Info("scan started", zap.String("run_id", runID), zap.String("domain", args[0]))
		cmd.Println(runID)
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanEmail, "email", "", "lead email (creates a free lead if unknown)")
	scanCmd.Flags().StringVar(&scanLeadID, "lead", "", "existing lead id")
	scanCmd.Flags().StringVar(&scanSubID, "subscription", "", "domain subscription id")
	scanCmd.Flags().BoolVar(&scanSkipEmail, "skip-email", true, "do not send the report email (pass --skip-email=false to send)")
	rootCmd.AddCommand(scanCmd)
}
