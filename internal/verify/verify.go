// Package verify implements the read-only inspection of existing backup
// sets. Verification is advisory: broken sets are reported, but only an
// empty backup directory fails the command.
package verify

import (
	"os"

	"workflow-backup/internal/backup"
	"workflow-backup/internal/display"
	"workflow-backup/internal/logging"
)

// Status of one artifact check.
type Status string

const (
	StatusOK      Status = "ok"
	StatusBroken  Status = "broken"
	StatusMissing Status = "missing"
)

// SetReport is the verification outcome for one backup set.
type SetReport struct {
	Timestamp string `json:"timestamp"`

	WorkflowStatus Status `json:"workflow_status"`
	WorkflowDetail string `json:"workflow_detail,omitempty"`
	WorkflowSize   int64  `json:"workflow_size"`
	RecordCount    int    `json:"record_count"`

	DatabaseStatus Status `json:"database_status"`
	DatabaseDetail string `json:"database_detail,omitempty"`
	DumpSize       int64  `json:"dump_size"`

	ManifestPresent bool `json:"manifest_present"`
}

// Healthy reports whether both required artifacts passed.
func (r *SetReport) Healthy() bool {
	return r.WorkflowStatus == StatusOK && r.DatabaseStatus == StatusOK
}

// Service scans and checks backup sets.
type Service struct {
	dir     string
	logger  *logging.Logger
	display *display.Display
}

// NewService creates a verify service for a backup directory.
func NewService(dir string, logger *logging.Logger, disp *display.Display) *Service {
	if logger == nil {
		logger = logging.NewDefault()
	}
	if disp == nil {
		disp = display.New(false, true)
	}
	return &Service{dir: dir, logger: logger, display: disp}
}

// Run verifies every discoverable backup set. Discovery is anchored on the
// workflow export, so a dump or manifest without one is invisible here. It
// returns an error only when no sets exist at all.
func (s *Service) Run() ([]SetReport, error) {
	sets, err := backup.DiscoverSets(s.dir)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, backup.NewNotFoundError("no backup sets found in "+s.dir, nil)
	}

	reports := make([]SetReport, 0, len(sets))
	for i := range sets {
		report := s.checkSet(&sets[i])
		s.render(&report)
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *Service) checkSet(set *backup.Set) SetReport {
	report := SetReport{Timestamp: set.Timestamp}

	// Workflow export: must exist and parse as a record list.
	data, err := os.ReadFile(set.WorkflowFile)
	if err != nil {
		report.WorkflowStatus = StatusMissing
		report.WorkflowDetail = err.Error()
	} else {
		report.WorkflowSize = int64(len(data))
		count, err := backup.CountRecords(data)
		if err != nil {
			report.WorkflowStatus = StatusBroken
			report.WorkflowDetail = err.Error()
		} else {
			report.WorkflowStatus = StatusOK
			report.RecordCount = count
		}
	}

	// Database dump: must exist and decompress cleanly end to end.
	if set.DatabaseFile == "" {
		report.DatabaseStatus = StatusMissing
		report.DatabaseDetail = "dump artifact not found"
	} else {
		size, err := backup.CheckIntegrity(set.DatabaseFile)
		if err != nil {
			report.DatabaseStatus = StatusBroken
			report.DatabaseDetail = err.Error()
		} else {
			report.DatabaseStatus = StatusOK
			report.DumpSize = size
		}
	}

	// Manifest absence is a warning, never a failure.
	report.ManifestPresent = set.ManifestFile != ""

	return report
}

func (s *Service) render(r *SetReport) {
	if r.WorkflowStatus == StatusOK {
		s.display.Successf("%s workflows: %d records (%s)", r.Timestamp, r.RecordCount, display.HumanSize(r.WorkflowSize))
	} else {
		s.display.Errorf("%s workflows: %s (%s)", r.Timestamp, r.WorkflowStatus, r.WorkflowDetail)
	}
	if r.DatabaseStatus == StatusOK {
		s.display.Successf("%s database: dump intact (%s uncompressed)", r.Timestamp, display.HumanSize(r.DumpSize))
	} else {
		s.display.Errorf("%s database: %s (%s)", r.Timestamp, r.DatabaseStatus, r.DatabaseDetail)
	}
	if !r.ManifestPresent {
		s.display.Warnf("%s manifest: missing", r.Timestamp)
	}
}
