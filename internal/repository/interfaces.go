package repository

import (
	"context"

	"github.com/rpggio/inventory/internal/domain/inventory"
)

// MetadataRepository reads client, project and database records from the
// service store. The metadata cache only ever caches its results.
type MetadataRepository interface {
	GetClient(ctx context.Context, id int) (*inventory.Client, error)
	GetClientProject(ctx context.Context, id int) (*inventory.ClientProject, error)
	GetProjectDatabase(ctx context.Context, id int) (*inventory.ProjectDatabase, error)
}

// UploadRepository enumerates uploads recorded in the main store.
type UploadRepository interface {
	ListUploads(ctx context.Context) ([]inventory.Upload, error)
}

// HistoryRow is one persisted scan as stored, before the summary blob is decoded.
type HistoryRow struct {
	ID           int64
	RunID        string
	ScanTime     string
	SummaryBlob  []byte
	ScanDuration string
	Success      bool
	Error        string
}

// HistoryRepository persists scan history rows.
type HistoryRepository interface {
	Insert(ctx context.Context, row *HistoryRow) error
	List(ctx context.Context, limit int) ([]HistoryRow, error)
	Get(ctx context.Context, id int64) (*HistoryRow, error)
}
