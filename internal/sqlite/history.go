package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/inventory/internal/repository"
)

// HistoryRepository implements repository.HistoryRepository for SQLite
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// MigrateHistory creates the scan_history table if absent and adds columns
// introduced after the first release.
func (db *DB) MigrateHistory(ctx context.Context) error {
	if err := db.RunMigrations(HistorySchema); err != nil {
		return err
	}

	var hasRunID int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('scan_history') WHERE name = 'run_id'`,
	).Scan(&hasRunID)
	if err != nil {
		return fmt.Errorf("failed to inspect scan_history: %w", err)
	}
	if hasRunID == 0 {
		if _, err := db.ExecContext(ctx, `ALTER TABLE scan_history ADD COLUMN run_id TEXT`); err != nil {
			return fmt.Errorf("failed to add run_id column: %w", err)
		}
	}
	return nil
}

// Insert appends a scan row and sets its ID
func (r *HistoryRepository) Insert(ctx context.Context, row *repository.HistoryRow) error {
	query := `
		INSERT INTO scan_history (run_id, scan_time, summary_json, scan_duration, success, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	success := 0
	if row.Success {
		success = 1
	}

	result, err := r.db.ExecContext(ctx, query,
		row.RunID,
		row.ScanTime,
		string(row.SummaryBlob),
		row.ScanDuration,
		success,
		row.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan history: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		row.ID = id
	}
	return nil
}

// List returns up to limit rows, most recent first
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]repository.HistoryRow, error) {
	query := `
		SELECT id, run_id, scan_time, summary_json, scan_duration, success, error
		FROM scan_history
		ORDER BY scan_time DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan history: %w", err)
	}
	defer rows.Close()

	var out []repository.HistoryRow
	for rows.Next() {
		row, err := scanHistoryRow(rows)
		if err != nil {
			// A single unreadable row does not fail the listing.
			continue
		}
		out = append(out, *row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan history rows: %w", err)
	}

	return out, nil
}

// Get retrieves a single row by ID
func (r *HistoryRepository) Get(ctx context.Context, id int64) (*repository.HistoryRow, error) {
	query := `
		SELECT id, run_id, scan_time, summary_json, scan_duration, success, error
		FROM scan_history
		WHERE id = ?
	`

	row, err := scanHistoryRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	return row, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryRow(s rowScanner) (*repository.HistoryRow, error) {
	var row repository.HistoryRow
	var runID, duration, errText sql.NullString
	var summary string
	var success int
	if err := s.Scan(&row.ID, &runID, &row.ScanTime, &summary, &duration, &success, &errText); err != nil {
		return nil, err
	}
	row.RunID = runID.String
	row.SummaryBlob = []byte(summary)
	row.ScanDuration = duration.String
	row.Success = success == 1
	row.Error = errText.String
	return &row, nil
}
