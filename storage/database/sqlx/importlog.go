package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/importer"
	"github.com/trezcool/darasa/core/importlog"
)

type importLogRepository struct {
	db *sqlx.DB
}

var _ importlog.Repository = (*importLogRepository)(nil) // interface compliance check

func NewImportLogRepository(db *sqlx.DB) importlog.Repository {
	return &importLogRepository{db: db}
}

// importLogRow mirrors the import_log table; row_errors is stored as JSONB.
type importLogRow struct {
	ID             string    `db:"id"`
	Entity         string    `db:"entity"`
	FileName       string    `db:"file_name"`
	IdempotencyKey string    `db:"idempotency_key"`
	TotalRows      int       `db:"total_rows"`
	CreatedCount   int       `db:"created_count"`
	FailedCount    int       `db:"failed_count"`
	RowErrorCount  int       `db:"row_error_count"`
	RowErrors      []byte    `db:"row_errors"`
	CreatedAt      time.Time `db:"created_at"`
	DurationMS     int64     `db:"duration_ms"`
}

func (repo *importLogRepository) CreateEntry(ctx context.Context, entry importlog.Entry) (importlog.Entry, error) {
	rowErrs, err := json.Marshal(entry.RowErrors)
	if err != nil {
		return importlog.Entry{}, errors.Wrap(err, "encoding row errors")
	}
	const q = `
		INSERT INTO import_log (
			id, entity, file_name, idempotency_key, total_rows,
			created_count, failed_count, row_error_count, row_errors, created_at, duration_ms
		) VALUES (
			:id, :entity, :file_name, :idempotency_key, :total_rows,
			:created_count, :failed_count, :row_error_count, :row_errors, :created_at, :duration_ms
		)`
	row := importLogRow{
		ID:             entry.ID,
		Entity:         entry.Entity,
		FileName:       entry.FileName,
		IdempotencyKey: entry.IdempotencyKey,
		TotalRows:      entry.TotalRows,
		CreatedCount:   entry.CreatedCount,
		FailedCount:    entry.FailedCount,
		RowErrorCount:  entry.RowErrorCount,
		RowErrors:      rowErrs,
		CreatedAt:      entry.CreatedAt,
		DurationMS:     entry.Duration.Milliseconds(),
	}
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return importlog.Entry{}, errors.Wrap(err, "inserting import log entry")
	}
	return entry, nil
}

func (repo *importLogRepository) QueryAllEntries(ctx context.Context) ([]importlog.Entry, error) {
	const q = `SELECT * FROM import_log ORDER BY created_at DESC`
	var rows []importLogRow
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying import log")
	}

	entries := make([]importlog.Entry, 0, len(rows))
	for _, row := range rows {
		var rowErrs []importer.RowError
		if len(row.RowErrors) > 0 {
			if err := json.Unmarshal(row.RowErrors, &rowErrs); err != nil {
				return nil, errors.Wrap(err, "decoding row errors")
			}
		}
		entries = append(entries, importlog.Entry{
			ID:             row.ID,
			Entity:         row.Entity,
			FileName:       row.FileName,
			IdempotencyKey: row.IdempotencyKey,
			TotalRows:      row.TotalRows,
			CreatedCount:   row.CreatedCount,
			FailedCount:    row.FailedCount,
			RowErrorCount:  row.RowErrorCount,
			RowErrors:      rowErrs,
			CreatedAt:      row.CreatedAt,
			Duration:       time.Duration(row.DurationMS) * time.Millisecond,
		})
	}
	return entries, nil
}
