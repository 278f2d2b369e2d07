package database

import (
	"database/sql"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// Open connects to the dashboard's own database (the import journal lives
// there; entity data stays in the upstream services).
func Open(conf *core.Config) (*sqlx.DB, error) {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     url.UserPassword(conf.Database.User, conf.Database.Password),
		Host:     conf.DatabaseAddress(),
		Path:     conf.Database.Name,
		RawQuery: q.Encode(),
	}
	db, err := sqlx.Open(conf.Database.Engine, u.String())
	if err != nil {
		return nil, errors.Wrap(err, "opening DB")
	}
	if err = ping(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS import_log (
		id              UUID PRIMARY KEY,
		entity          TEXT NOT NULL,
		file_name       TEXT NOT NULL,
		idempotency_key UUID NOT NULL,
		total_rows      INT NOT NULL,
		created_count   INT NOT NULL,
		failed_count    INT NOT NULL,
		row_error_count INT NOT NULL,
		row_errors      JSONB NOT NULL DEFAULT '[]',
		created_at      TIMESTAMPTZ NOT NULL,
		duration_ms     BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS import_log_entity_idx ON import_log (entity, created_at DESC)`,
}

func Migrate(db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return errors.Wrap(err, "migrating DB")
		}
	}
	return nil
}
