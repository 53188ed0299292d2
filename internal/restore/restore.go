// Package restore re-imports one backup set into the live system. The
// operation is destructive, interactive, and scoped to a single timestamp
// key; the two restore actions are independent, with no rollback across
// them.
package restore

import (
	"context"
	"os"
	"path/filepath"

	"workflow-backup/internal/backup"
	"workflow-backup/internal/config"
	"workflow-backup/internal/confirmation"
	"workflow-backup/internal/display"
	"workflow-backup/internal/logging"
	"workflow-backup/internal/runtime"
)

// Result reports a restore run.
type Result struct {
	// Cancelled is set when the operator declined the confirmation; the
	// system was left untouched and the exit code is success.
	Cancelled bool

	Timestamp         string
	WorkflowsRestored bool
	DatabaseRestored  bool
}

// Service performs single-set restores.
type Service struct {
	cfg       *config.Config
	runtime   runtime.Runtime
	logger    *logging.Logger
	display   *display.Display
	confirmer *confirmation.Confirmer
}

// NewService creates a restore service.
func NewService(cfg *config.Config, rt runtime.Runtime, logger *logging.Logger, disp *display.Display, confirmer *confirmation.Confirmer) *Service {
	if logger == nil {
		logger = logging.NewDefault()
	}
	if disp == nil {
		disp = display.New(false, true)
	}
	return &Service{cfg: cfg, runtime: rt, logger: logger, display: disp, confirmer: confirmer}
}

// AvailableTimestamps lists the timestamp keys of discoverable sets,
// newest first. Printed when the requested set cannot be resolved.
func (s *Service) AvailableTimestamps() []string {
	sets, err := backup.DiscoverSets(s.cfg.Backup.Dir)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(sets))
	for _, set := range sets {
		keys = append(keys, set.Timestamp)
	}
	return keys
}

// Run restores the backup set identified by timestamp. autoApprove skips
// the interactive confirmation (test driver and automation only).
func (s *Service) Run(ctx context.Context, timestamp string, autoApprove bool) (*Result, error) {
	set, err := backup.FindSet(s.cfg.Backup.Dir, timestamp)
	if err != nil {
		return nil, err
	}
	if !set.Complete() {
		return nil, backup.NewNotFoundError("backup set "+timestamp+" is missing its database dump", nil)
	}

	s.display.Header("Restore " + timestamp)
	s.display.Warnf("This OVERWRITES the current workflows and database with the %s backup.", timestamp)

	confirmed, err := s.confirmer.ConfirmPhrase(
		"All workflow definitions and database contents will be replaced.",
		"restore "+timestamp,
		autoApprove,
	)
	if err != nil {
		return nil, backup.NewRestoreError("confirmation failed", err)
	}
	if !confirmed {
		// Explicit cancellation is a success path by contract.
		s.display.Infof("Restore cancelled; nothing was changed.")
		s.logger.Info("Restore cancelled by operator")
		return &Result{Cancelled: true, Timestamp: timestamp}, nil
	}

	result := &Result{Timestamp: timestamp}

	if err := s.restoreWorkflows(ctx, set); err != nil {
		return result, err
	}
	result.WorkflowsRestored = true
	s.display.Successf("Workflow definitions imported")

	// A failure past this point leaves mixed-generation state: workflows
	// from the backup, database from before. There is no rollback.
	if err := s.restoreDatabase(ctx, set); err != nil {
		return result, err
	}
	result.DatabaseRestored = true
	s.display.Successf("Database dump replayed")

	s.display.Warnf("Restart the %s container to pick up the restored state; this tool does not restart it.", s.cfg.App.Container)
	s.logger.WithField("timestamp", timestamp).Info("Restore completed")
	return result, nil
}

func (s *Service) restoreWorkflows(ctx context.Context, set *backup.Set) error {
	containerPath := s.cfg.App.ExportPath
	if err := s.runtime.CopyTo(ctx, set.WorkflowFile, s.cfg.App.Container, containerPath); err != nil {
		return backup.WrapExternal(backup.ErrorKindRestore, "failed to copy workflow export into container", err)
	}
	cmd := backup.ImportCommand(s.cfg, containerPath)
	if _, err := s.runtime.Exec(ctx, s.cfg.App.Container, cmd...); err != nil {
		return backup.WrapExternal(backup.ErrorKindRestore, "workflow import command failed", err)
	}
	return nil
}

func (s *Service) restoreDatabase(ctx context.Context, set *backup.Set) error {
	tmp, err := os.MkdirTemp("", "workflow-restore-*")
	if err != nil {
		return backup.NewStorageError("failed to create restore staging directory", err)
	}
	defer os.RemoveAll(tmp)

	plain := filepath.Join(tmp, "dump.sql")
	if err := backup.DecompressFile(set.DatabaseFile, plain); err != nil {
		return err
	}

	f, err := os.Open(plain)
	if err != nil {
		return backup.NewStorageError("failed to open decompressed dump", err)
	}
	defer f.Close()

	cmd := backup.ReplayCommand(s.cfg)
	if err := s.runtime.ExecInput(ctx, s.cfg.Database.Container, f, cmd...); err != nil {
		return backup.WrapExternal(backup.ErrorKindRestore, "database replay failed", err)
	}
	return nil
}
