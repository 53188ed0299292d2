package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"workflow-backup/internal/backup"
	"workflow-backup/internal/logging"
)

var (
	backupDryRun bool
	backupRetain int
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a new backup set",
	Long: `Create one timestamped backup set: a validated workflow export, a
compressed database dump, and a best-effort manifest. The set is staged
in a private temporary directory, validated, published into the backup
directory, and old sets beyond the retention count are rotated out.

Any pre-flight or artifact-production failure aborts the run with a
nonzero exit; nothing is retried.

Examples:
  workflow-backup backup
  workflow-backup backup --dry-run
  workflow-backup backup --retain 14 --verbose`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().BoolVar(&backupDryRun, "dry-run", false, "run checks and print planned actions without writing anything")
	backupCmd.Flags().IntVar(&backupRetain, "retain", 0, "override the configured retention count")
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	timestamp := backup.NewTimestamp(time.Now())

	// One plain-text session log per invocation, alongside the console.
	logger, err := logging.New(logging.Config{
		Level:   logLevel(cfg),
		LogFile: filepath.Join(cfg.Backup.LogDir, logging.SessionLogName(timestamp)),
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	disp := newDisplay(cfg)
	rt := newRuntime(cfg, logger)

	stats := backup.NewSQLStatsCollector(cfg.Database)
	replication, err := backup.NewReplicationService(cfg.Replication, logger)
	if err != nil {
		return err
	}

	// Interrupts cancel the context so the manager's cleanup still runs.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := backup.NewManager(cfg, rt, logger, disp, stats, replication, version)
	if _, err := manager.Run(ctx, backup.Options{
		DryRun:    backupDryRun,
		Retain:    backupRetain,
		Timestamp: timestamp,
	}); err != nil {
		logger.Errorf("Backup failed: %v", err)
		disp.Errorf("Backup failed: %v", err)
		return err
	}
	return nil
}
