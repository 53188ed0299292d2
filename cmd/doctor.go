package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"workflow-backup/internal/diag"
	"workflow-backup/internal/logging"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Cross-check the record-counting strategies against a live export",
	Long: `Run the workflow export twice and compare the record counts produced
by the structural decoder (ground truth), a JSON path query, a regexp
over the raw text, and a brace scanner. Divergence means the export
format changed in a way the cheaper counters cannot follow.

This is a developer self-check, not part of the backup pipeline.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: logLevel(cfg)})
	if err != nil {
		return err
	}
	disp := newDisplay(cfg)
	rt := newRuntime(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probe := diag.NewProbe(cfg, rt, logger, disp)
	report, err := probe.Run(ctx)
	if err != nil {
		disp.Errorf("Probe failed: %v", err)
		return err
	}
	if !report.Agreement {
		return fmt.Errorf("counting strategies diverge: %v", report.Counts)
	}
	return nil
}
