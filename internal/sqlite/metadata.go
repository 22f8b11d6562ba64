package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/inventory/internal/domain/inventory"
	"github.com/rpggio/inventory/internal/repository"
)

// MetadataRepository implements repository.MetadataRepository over the service store
type MetadataRepository struct {
	db *DB
}

// NewMetadataRepository creates a new MetadataRepository
func NewMetadataRepository(db *DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// GetClient retrieves a client by ID
func (r *MetadataRepository) GetClient(ctx context.Context, id int) (*inventory.Client, error) {
	query := `
		SELECT id, name, legal_name, description, contact_email, tax_id, country,
		       status, created_at, updated_at
		FROM clients
		WHERE id = ?
	`

	var c inventory.Client
	var legalName, description, email, taxID, country sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&legalName,
		&description,
		&email,
		&taxID,
		&country,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	c.LegalName = legalName.String
	c.Description = description.String
	c.ContactEmail = email.String
	c.TaxID = taxID.String
	c.Country = country.String
	return &c, nil
}

// GetClientProject retrieves a client project by ID
func (r *MetadataRepository) GetClientProject(ctx context.Context, id int) (*inventory.ClientProject, error) {
	query := `
		SELECT id, client_id, name, project_type, description, source_system,
		       status, target_quality_score, created_at, updated_at
		FROM client_projects
		WHERE id = ?
	`

	var p inventory.ClientProject
	var projectType, description, sourceSystem sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.ClientID,
		&p.Name,
		&projectType,
		&description,
		&sourceSystem,
		&p.Status,
		&p.TargetQualityScore,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client project: %w", err)
	}

	p.ProjectType = projectType.String
	p.Description = description.String
	p.SourceSystem = sourceSystem.String
	return &p, nil
}

// GetProjectDatabase retrieves a project database by ID
func (r *MetadataRepository) GetProjectDatabase(ctx context.Context, id int) (*inventory.ProjectDatabase, error) {
	query := `
		SELECT id, client_project_id, name, file_path, description, is_active,
		       file_size, last_used_at, created_at, updated_at
		FROM project_databases
		WHERE id = ?
	`

	var d inventory.ProjectDatabase
	var description sql.NullString
	var lastUsed sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.ClientProjectID,
		&d.Name,
		&d.FilePath,
		&description,
		&d.IsActive,
		&d.FileSize,
		&lastUsed,
		&d.CreatedAt,
		&d.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project database: %w", err)
	}

	d.Description = description.String
	if lastUsed.Valid {
		t := lastUsed.Time
		d.LastUsedAt = &t
	}
	return &d, nil
}
