package backup

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"workflow-backup/internal/config"
)

// TableStat is one row of the manifest's largest-table report.
type TableStat struct {
	Name       string `json:"name" yaml:"name"`
	Rows       int64  `json:"rows" yaml:"rows"`
	DataBytes  int64  `json:"data_bytes" yaml:"data_bytes"`
	IndexBytes int64  `json:"index_bytes" yaml:"index_bytes"`
}

// TableStatsCollector reports the largest tables of the backed-up database.
// It is only used by the best-effort manifest step, so callers treat every
// error as degradable.
type TableStatsCollector interface {
	LargestTables(ctx context.Context, limit int) ([]TableStat, error)
}

// SQLStatsCollector queries information_schema over a direct connection.
type SQLStatsCollector struct {
	cfg config.DatabaseConfig
	// open is swappable in tests.
	open func(driver, dsn string) (*sql.DB, error)
}

// NewSQLStatsCollector creates a collector for the configured database.
func NewSQLStatsCollector(cfg config.DatabaseConfig) *SQLStatsCollector {
	return &SQLStatsCollector{cfg: cfg, open: sql.Open}
}

const largestTablesQuery = `
SELECT table_name, table_rows, data_length, index_length
FROM information_schema.tables
WHERE table_schema = ?
ORDER BY data_length + index_length DESC
LIMIT ?`

// LargestTables returns the top tables by data plus index size.
func (c *SQLStatsCollector) LargestTables(ctx context.Context, limit int) ([]TableStat, error) {
	db, err := c.open("mysql", c.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, largestTablesQuery, c.cfg.Name, limit)
	if err != nil {
		return nil, fmt.Errorf("table size query failed: %w", err)
	}
	defer rows.Close()

	var stats []TableStat
	for rows.Next() {
		var s TableStat
		if err := rows.Scan(&s.Name, &s.Rows, &s.DataBytes, &s.IndexBytes); err != nil {
			return nil, fmt.Errorf("failed to scan table stats row: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table size query failed: %w", err)
	}
	return stats, nil
}

// QueryWith lets tests inject a pre-opened connection factory.
func (c *SQLStatsCollector) QueryWith(open func(driver, dsn string) (*sql.DB, error)) *SQLStatsCollector {
	c.open = open
	return c
}
