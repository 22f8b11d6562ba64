package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/inventory/internal/domain/inventory"
)

// UploadRepository implements repository.UploadRepository over the main store
type UploadRepository struct {
	db *DB
}

// NewUploadRepository creates a new UploadRepository
func NewUploadRepository(db *DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// ListUploads returns every upload in insertion order
func (r *UploadRepository) ListUploads(ctx context.Context) ([]inventory.Upload, error) {
	query := `
		SELECT id, upload_uuid, config_name, status, started_at, completed_at,
		       database_id, client_id, project_id
		FROM uploads
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []inventory.Upload
	for rows.Next() {
		var u inventory.Upload
		var configName sql.NullString
		var startedAt, completedAt sql.NullTime
		var databaseID, clientID, projectID sql.NullInt64
		if err := rows.Scan(
			&u.ID,
			&u.UploadUUID,
			&configName,
			&u.Status,
			&startedAt,
			&completedAt,
			&databaseID,
			&clientID,
			&projectID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		u.ConfigName = configName.String
		if startedAt.Valid {
			u.StartedAt = startedAt.Time
		}
		if completedAt.Valid {
			t := completedAt.Time
			u.CompletedAt = &t
		}
		u.DatabaseID = nullableInt(databaseID)
		u.ClientID = nullableInt(clientID)
		u.ProjectID = nullableInt(projectID)
		uploads = append(uploads, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating upload rows: %w", err)
	}

	return uploads, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
