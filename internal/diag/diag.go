// Package diag cross-checks the record-counting strategies used by the
// backup pipeline. It is a developer self-check, not part of the
// operational pipeline: the structural decode is the ground truth, and the
// cheaper text-based strategies must agree with it on real exports.
package diag

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/tidwall/gjson"

	"workflow-backup/internal/backup"
	"workflow-backup/internal/config"
	"workflow-backup/internal/display"
	"workflow-backup/internal/logging"
	"workflow-backup/internal/runtime"
)

// Strategy names, in report order.
const (
	StrategyStructural = "structural"
	StrategyQuery      = "query"
	StrategyRegexp     = "regexp"
	StrategyBraces     = "braces"
)

var idKeyPattern = regexp.MustCompile(`"id"\s*:`)

// CountStructural decodes the export and counts records. Ground truth.
func CountStructural(data []byte) (int, error) {
	return backup.CountRecords(data)
}

// CountQuery counts array elements with a gjson length query.
func CountQuery(data []byte) int {
	result := gjson.GetBytes(data, "#")
	return int(result.Int())
}

// CountRegexp counts `"id":` keys in the raw text. Over-counts when nested
// objects carry their own id field; that divergence is exactly what this
// probe exists to catch.
func CountRegexp(data []byte) int {
	return len(idKeyPattern.FindAll(data, -1))
}

// CountBraces counts objects opening at array depth, tracking strings and
// escapes so braces inside values are ignored.
func CountBraces(data []byte) int {
	depth := 0
	count := 0
	inString := false
	escaped := false
	for _, c := range data {
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 1 {
					count++
				}
				depth++
			}
		case '}':
			if !inString {
				depth--
			}
		case '[':
			if !inString {
				depth++
			}
		case ']':
			if !inString {
				depth--
			}
		}
	}
	return count
}

// Report is the outcome of one probe run.
type Report struct {
	Counts    map[string]int `json:"counts"`
	Agreement bool           `json:"agreement"`
	Runs      int            `json:"runs"`
}

// CrossCheck applies every strategy to one export and reports agreement
// with the structural count.
func CrossCheck(data []byte) (*Report, error) {
	truth, err := CountStructural(data)
	if err != nil {
		return nil, err
	}
	report := &Report{
		Counts: map[string]int{
			StrategyStructural: truth,
			StrategyQuery:      CountQuery(data),
			StrategyRegexp:     CountRegexp(data),
			StrategyBraces:     CountBraces(data),
		},
		Runs: 1,
	}
	report.Agreement = true
	for _, n := range report.Counts {
		if n != truth {
			report.Agreement = false
		}
	}
	return report, nil
}

// Probe exercises the live export path twice and cross-checks the
// strategies on both results. Exporting twice is wasteful but mirrors the
// production counting paths exactly.
type Probe struct {
	cfg     *config.Config
	runtime runtime.Runtime
	logger  *logging.Logger
	display *display.Display
}

// NewProbe creates a diagnostic probe.
func NewProbe(cfg *config.Config, rt runtime.Runtime, logger *logging.Logger, disp *display.Display) *Probe {
	if logger == nil {
		logger = logging.NewDefault()
	}
	if disp == nil {
		disp = display.New(false, true)
	}
	return &Probe{cfg: cfg, runtime: rt, logger: logger, display: disp}
}

// Run performs the double-export cross-check.
func (p *Probe) Run(ctx context.Context) (*Report, error) {
	tmp, err := os.MkdirTemp("", "workflow-diag-*")
	if err != nil {
		return nil, backup.NewStorageError("failed to create probe staging directory", err)
	}
	defer os.RemoveAll(tmp)

	exporter := backup.NewWorkflowExporter(p.cfg, p.runtime, p.logger)

	var combined *Report
	for i := 0; i < 2; i++ {
		dst := filepath.Join(tmp, "probe.json")
		if _, err := exporter.Export(ctx, dst); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(dst)
		if err != nil {
			return nil, backup.NewStorageError("failed to read probe export", err)
		}
		report, err := CrossCheck(data)
		if err != nil {
			return nil, err
		}
		if combined == nil {
			combined = report
		} else {
			combined.Runs++
			if !report.Agreement {
				combined.Agreement = false
			}
			for k, v := range report.Counts {
				if combined.Counts[k] != v {
					combined.Agreement = false
				}
			}
		}
	}

	p.render(combined)
	return combined, nil
}

func (p *Probe) render(r *Report) {
	p.display.Header("Count strategy cross-check")
	for _, name := range []string{StrategyStructural, StrategyQuery, StrategyRegexp, StrategyBraces} {
		p.display.KeyValue(name, strconv.Itoa(r.Counts[name]))
	}
	if r.Agreement {
		p.display.Successf("All strategies agree across %d export runs", r.Runs)
	} else {
		p.display.Errorf("Strategies diverge; inspect the export format")
	}
}
