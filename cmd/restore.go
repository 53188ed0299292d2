package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"workflow-backup/internal/confirmation"
	"workflow-backup/internal/display"
	"workflow-backup/internal/logging"
	"workflow-backup/internal/restore"
)

var restoreYes bool

var restoreCmd = &cobra.Command{
	Use:   "restore <timestamp>",
	Short: "Restore one backup set by timestamp key",
	Long: `Restore the workflow definitions and the database from the backup set
identified by a timestamp key (for example 20260823_031500).

The operation is destructive and requires typing an exact confirmation
phrase; anything else cancels without touching the system. The two
restore actions run independently with no rollback across them, and the
engine container must be restarted manually afterwards.

Examples:
  workflow-backup restore 20260823_031500
  workflow-backup restore 20260823_031500 --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreYes, "yes", false, "skip the confirmation prompt (automation only)")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
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
	confirmer := confirmation.New(os.Stdin, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := restore.NewService(cfg, rt, logger, disp, confirmer)

	if len(args) == 0 {
		disp.Errorf("A timestamp key is required.")
		printAvailable(svc, disp)
		return fmt.Errorf("missing timestamp argument")
	}

	if _, err := svc.Run(ctx, args[0], restoreYes); err != nil {
		disp.Errorf("Restore failed: %v", err)
		printAvailable(svc, disp)
		return err
	}
	return nil
}

func printAvailable(svc *restore.Service, disp *display.Display) {
	keys := svc.AvailableTimestamps()
	if len(keys) == 0 {
		disp.Infof("No backup sets available.")
		return
	}
	disp.Infof("Available backup sets:")
	for _, key := range keys {
		disp.Detailf("%s", key)
	}
}
