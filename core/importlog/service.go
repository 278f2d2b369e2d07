package importlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/importer"
)

type (
	// Entry is the audit record of one bulk-import submission: how many rows
	// the file held, how many records the upstream service created, and which
	// rows it rejected.
	Entry struct {
		ID             string              `json:"id"`
		Entity         string              `json:"entity"`
		FileName       string              `json:"file_name"`
		IdempotencyKey string              `json:"idempotency_key"`
		TotalRows      int                 `json:"total_rows"`
		CreatedCount   int                 `json:"created_count"`
		FailedCount    int                 `json:"failed_count"`
		RowErrorCount  int                 `json:"row_error_count"`
		RowErrors      []importer.RowError `json:"row_errors,omitempty"`
		CreatedAt      time.Time           `json:"created_at"`
		Duration       time.Duration       `json:"duration"`
	}

	Repository interface {
		CreateEntry(ctx context.Context, entry Entry) (Entry, error)
		QueryAllEntries(ctx context.Context) ([]Entry, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record journals one completed submission.
func (svc *Service) Record(
	ctx context.Context,
	entity, fileName, idempotencyKey string,
	parse importer.ParseResult,
	res importer.ImportResult,
	took time.Duration,
) (Entry, error) {
	entry := Entry{
		ID:             uuid.New().String(),
		Entity:         entity,
		FileName:       fileName,
		IdempotencyKey: idempotencyKey,
		TotalRows:      len(parse.Records) + len(parse.Errors),
		CreatedCount:   res.CreatedCount,
		FailedCount:    len(res.FailedRecords),
		RowErrorCount:  len(parse.Errors),
		RowErrors:      parse.Errors,
		CreatedAt:      time.Now().UTC(),
		Duration:       took,
	}
	created, err := svc.repo.CreateEntry(ctx, entry)
	if err != nil {
		return Entry{}, errors.Wrap(err, "journaling import")
	}
	return created, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Entry, error) {
	return svc.repo.QueryAllEntries(ctx)
}
