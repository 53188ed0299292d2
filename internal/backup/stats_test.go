package backup

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLargestTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("workflows", 2).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_rows", "data_length", "index_length"}).
			AddRow("execution_entity", 90000, 1<<30, 1<<24).
			AddRow("workflow_entity", 120, 1<<20, 1<<18))
	mock.ExpectClose()

	cfg := testConfig(t)
	collector := NewSQLStatsCollector(cfg.Database).QueryWith(func(driver, dsn string) (*sql.DB, error) {
		return db, nil
	})

	stats, err := collector.LargestTables(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "execution_entity", stats[0].Name)
	assert.Equal(t, int64(90000), stats[0].Rows)
	assert.Equal(t, int64(1<<30), stats[0].DataBytes)
	assert.Equal(t, "workflow_entity", stats[1].Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLargestTablesQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectClose()

	cfg := testConfig(t)
	collector := NewSQLStatsCollector(cfg.Database).QueryWith(func(driver, dsn string) (*sql.DB, error) {
		return db, nil
	})

	_, err = collector.LargestTables(context.Background(), 5)
	require.Error(t, err)
}
