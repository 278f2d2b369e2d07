package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/importlog"
)

type row = importlog.Entry

type importLogRepository struct {
	db *importLogTable
}

var _ importlog.Repository = (*importLogRepository)(nil) // interface compliance check

func NewImportLogRepository(db *DB) importlog.Repository {
	return &importLogRepository{db: db.importLog}
}

func (repo *importLogRepository) CreateEntry(_ context.Context, entry importlog.Entry) (importlog.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.rows = append(repo.db.rows, entry)
	return entry, nil
}

func (repo *importLogRepository) QueryAllEntries(_ context.Context) ([]importlog.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]importlog.Entry, len(repo.db.rows))
	copy(entries, repo.db.rows)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}
