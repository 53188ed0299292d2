package cmd

import (
	"github.com/spf13/cobra"

	"workflow-backup/internal/logging"
	"workflow-backup/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the structural validity of every backup set",
	Long: `Scan the backup directory and check each discoverable backup set:
the workflow export must parse, the database dump must decompress
cleanly, and the manifest should be present (a missing manifest is only
a warning).

Verification is advisory and read-only: broken sets are reported but do
not fail the command. Only an empty backup directory exits nonzero.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: logLevel(cfg)})
	if err != nil {
		return err
	}
	disp := newDisplay(cfg)

	svc := verify.NewService(cfg.Backup.Dir, logger, disp)
	reports, err := svc.Run()
	if err != nil {
		disp.Errorf("%v", err)
		return err
	}

	healthy := 0
	for i := range reports {
		if reports[i].Healthy() {
			healthy++
		}
	}
	disp.Infof("Checked %d backup set(s), %d healthy", len(reports), healthy)
	return nil
}
