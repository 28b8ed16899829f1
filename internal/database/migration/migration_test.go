package migration

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dkn/internal/logger"
)

func sentinel(mock sqlmock.Sqlmock) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(regexp.QuoteMeta(sentinelQuery))
}

func TestEnsureMigrated_RunsAllSteps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentinel(mock).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	for _, step := range steps {
		mock.ExpectExec(regexp.QuoteMeta(step.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	var buf bytes.Buffer
	log, err := logger.NewWithWriter(&buf, "info", time.UTC)
	require.NoError(t, err)

	require.NoError(t, EnsureMigrated(context.Background(), db, log, "db.internal"))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, buf.String(), `"msg":"db_migration_success"`)
	assert.Contains(t, buf.String(), `"db_host":"db.internal"`)
}

func TestEnsureMigrated_SkipsExistingSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentinel(mock).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	require.NoError(t, EnsureMigrated(context.Background(), db, zap.NewNop(), "localhost"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_StopsOnFailedStep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentinel(mock).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(steps[0].SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(steps[1].SQL)).WillReturnError(errors.New("permission denied"))

	err = EnsureMigrated(context.Background(), db, zap.NewNop(), "localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration step create_table_documents failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_SentinelError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentinel(mock).WillReturnError(errors.New("connection refused"))

	err = EnsureMigrated(context.Background(), db, zap.NewNop(), "localhost")
	assert.ErrorContains(t, err, "failed to check sentinel table")
}

func TestSteps_CreateTablesBeforeIndexes(t *testing.T) {
	seenIndex := false
	for _, step := range steps {
		isTable := regexp.MustCompile(`^create_table_`).MatchString(step.Name)
		if isTable {
			assert.False(t, seenIndex, "table step %s after an index step", step.Name)
		} else {
			seenIndex = true
		}
	}
}

func TestSteps_DownloadLogSurvivesDocumentDelete(t *testing.T) {
	var ddl string
	for _, step := range steps {
		if step.Name == "create_table_downloads" {
			ddl = step.SQL
		}
	}
	require.NotEmpty(t, ddl)
	assert.NotContains(t, ddl, "REFERENCES documents")
	assert.NotContains(t, ddl, "ON DELETE")
	assert.Contains(t, ddl, "REFERENCES users (id)")
}
