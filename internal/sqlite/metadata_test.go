package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/inventory/internal/repository"
	"github.com/stretchr/testify/require"
)

func seedMetadata(t *testing.T, db *DB) (clientID, projectID, databaseID int64) {
	t.Helper()

	res, err := db.Exec(`INSERT INTO clients (name, legal_name, contact_email, country, status)
		VALUES ('Acme', 'Acme LLC', 'ops@acme.test', 'RU', 'active')`)
	require.NoError(t, err)
	clientID, err = res.LastInsertId()
	require.NoError(t, err)

	res, err = db.Exec(`INSERT INTO client_projects (client_id, name, project_type, source_system, target_quality_score)
		VALUES (?, 'Catalog cleanup', 'nomenclature', '1C', 0.85)`, clientID)
	require.NoError(t, err)
	projectID, err = res.LastInsertId()
	require.NoError(t, err)

	res, err = db.Exec(`INSERT INTO project_databases (client_project_id, name, file_path, is_active, file_size)
		VALUES (?, 'main', '/data/acme/main.db', 1, 2048)`, projectID)
	require.NoError(t, err)
	databaseID, err = res.LastInsertId()
	require.NoError(t, err)

	return clientID, projectID, databaseID
}

func TestMetadataRepository_GetClient(t *testing.T) {
	db := NewTestDB(t)
	repo := NewMetadataRepository(db)
	ctx := context.Background()
	clientID, _, _ := seedMetadata(t, db)

	client, err := repo.GetClient(ctx, int(clientID))
	require.NoError(t, err)
	require.Equal(t, "Acme", client.Name)
	require.Equal(t, "Acme LLC", client.LegalName)
	require.Equal(t, "ops@acme.test", client.ContactEmail)
	require.Empty(t, client.TaxID)
	require.Equal(t, "active", client.Status)
	require.False(t, client.CreatedAt.IsZero())

	_, err = repo.GetClient(ctx, 999)
	require.Equal(t, repository.ErrNotFound, err)
}

func TestMetadataRepository_GetClientProject(t *testing.T) {
	db := NewTestDB(t)
	repo := NewMetadataRepository(db)
	ctx := context.Background()
	clientID, projectID, _ := seedMetadata(t, db)

	proj, err := repo.GetClientProject(ctx, int(projectID))
	require.NoError(t, err)
	require.Equal(t, int(clientID), proj.ClientID)
	require.Equal(t, "Catalog cleanup", proj.Name)
	require.Equal(t, "nomenclature", proj.ProjectType)
	require.Equal(t, "1C", proj.SourceSystem)
	require.InDelta(t, 0.85, proj.TargetQualityScore, 0.0001)

	_, err = repo.GetClientProject(ctx, 999)
	require.Equal(t, repository.ErrNotFound, err)
}

func TestMetadataRepository_GetProjectDatabase(t *testing.T) {
	db := NewTestDB(t)
	repo := NewMetadataRepository(db)
	ctx := context.Background()
	_, projectID, databaseID := seedMetadata(t, db)

	pdb, err := repo.GetProjectDatabase(ctx, int(databaseID))
	require.NoError(t, err)
	require.Equal(t, int(projectID), pdb.ClientProjectID)
	require.Equal(t, "/data/acme/main.db", pdb.FilePath)
	require.True(t, pdb.IsActive)
	require.Equal(t, int64(2048), pdb.FileSize)
	require.Nil(t, pdb.LastUsedAt)

	_, err = repo.GetProjectDatabase(ctx, 999)
	require.Equal(t, repository.ErrNotFound, err)
}
