package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// steps are idempotent and run in order. users is created here so the
// service can start against an empty database; accounts are owned elsewhere.
var steps = []migrationStep{
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id          BIGSERIAL   PRIMARY KEY,
  name        TEXT        NOT NULL,
  email       TEXT        NOT NULL UNIQUE,
  department  TEXT,
  region      TEXT,
  expertise   TEXT,
  role        TEXT,
  is_reviewer BOOLEAN     NOT NULL DEFAULT false,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id             BIGSERIAL   PRIMARY KEY,
  title          TEXT        NOT NULL CHECK (length(btrim(title)) > 0),
  description    TEXT,
  file_name      TEXT        NOT NULL,
  file_path      TEXT        NOT NULL UNIQUE,
  file_size      BIGINT      NOT NULL CHECK (file_size >= 0),
  content_type   TEXT        NOT NULL,
  tags           TEXT,
  department     TEXT,
  region         TEXT,
  project_type   TEXT,
  uploader_id    BIGINT      NOT NULL REFERENCES users (id),
  upload_date    TIMESTAMPTZ NOT NULL DEFAULT now(),
  download_count BIGINT      NOT NULL DEFAULT 0 CHECK (download_count >= 0),
  status         TEXT        NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
  reviewed_by    BIGINT      REFERENCES users (id),
  reviewed_at    TIMESTAMPTZ,
  review_comment TEXT,
  CONSTRAINT documents_reviewed_chk CHECK (status = 'pending' OR (reviewed_by IS NOT NULL AND reviewed_at IS NOT NULL))
);`,
	},
	{
		Name: "create_table_downloads",
		// document_id has no foreign key so the log outlives deleted documents.
		SQL: `CREATE TABLE IF NOT EXISTS downloads (
  id            BIGSERIAL   PRIMARY KEY,
  document_id   BIGINT      NOT NULL,
  user_id       BIGINT      NOT NULL REFERENCES users (id),
  downloaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_upload_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_upload_date ON documents (upload_date);`,
	},
	{
		Name: "create_index_documents_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status);`,
	},
	{
		Name: "create_index_documents_uploader_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_uploader_id ON documents (uploader_id);`,
	},
	{
		Name: "create_index_downloads_document_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_downloads_document_id ON downloads (document_id);`,
	},
}

// sentinelQuery reports whether the last table of the schema exists.
const sentinelQuery = "SELECT to_regclass('public.downloads') IS NOT NULL"

// EnsureMigrated runs every step unless the schema is already present.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))
	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("reason", "schema already exists"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"), zap.Int("steps", len(steps)))
	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
