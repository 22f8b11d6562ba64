package testserver

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpggio/inventory/internal/sqlite"
	"github.com/stretchr/testify/require"
)

// Fixture is a temporary inventory: a service store, a main store and any
// number of project database files, all under one temp directory.
type Fixture struct {
	t   *testing.T
	Dir string

	ServiceDBPath string
	MainDBPath    string
	HistoryDBPath string

	service *sqlite.DB
	main    *sqlite.DB
}

// NewFixture creates empty service and main stores.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	dir := t.TempDir()
	f := &Fixture{
		t:             t,
		Dir:           dir,
		ServiceDBPath: filepath.Join(dir, "service.db"),
		MainDBPath:    filepath.Join(dir, "main.db"),
		HistoryDBPath: filepath.Join(dir, "history.db"),
	}

	var err error
	f.service, err = sqlite.New(f.ServiceDBPath)
	require.NoError(t, err)
	require.NoError(t, f.service.RunMigrations(sqlite.ServiceSchema))

	f.main, err = sqlite.New(f.MainDBPath)
	require.NoError(t, err)
	require.NoError(t, f.main.RunMigrations(sqlite.MainSchema))

	t.Cleanup(func() {
		_ = f.service.Close()
		_ = f.main.Close()
	})
	return f
}

// AddClient inserts a client and returns its id.
func (f *Fixture) AddClient(name string) int {
	f.t.Helper()
	res, err := f.service.Exec(
		`INSERT INTO clients (name, legal_name, country, status) VALUES (?, ?, 'RU', 'active')`,
		name, name+" LLC",
	)
	require.NoError(f.t, err)
	return lastID(f.t, res)
}

// AddProject inserts a client project and returns its id.
func (f *Fixture) AddProject(clientID int, name string) int {
	f.t.Helper()
	res, err := f.service.Exec(
		`INSERT INTO client_projects (client_id, name, project_type, status, target_quality_score)
		 VALUES (?, ?, 'nomenclature', 'active', 0.9)`,
		clientID, name,
	)
	require.NoError(f.t, err)
	return lastID(f.t, res)
}

// AddDatabase registers a project database file and returns its id.
func (f *Fixture) AddDatabase(projectID int, name, path string) int {
	f.t.Helper()
	res, err := f.service.Exec(
		`INSERT INTO project_databases (client_project_id, name, file_path, is_active) VALUES (?, ?, ?, 1)`,
		projectID, name, path,
	)
	require.NoError(f.t, err)
	return lastID(f.t, res)
}

// Upload describes a row of the main store uploads table.
type Upload struct {
	UUID        string
	Name        string
	Status      string
	StartedAt   time.Time
	CompletedAt *time.Time
	DatabaseID  *int
	ClientID    *int
	ProjectID   *int
}

// AddUpload inserts an upload and returns its id.
func (f *Fixture) AddUpload(u Upload) int {
	f.t.Helper()
	if u.StartedAt.IsZero() {
		u.StartedAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	res, err := f.main.Exec(
		`INSERT INTO uploads (upload_uuid, config_name, status, started_at, completed_at, database_id, client_id, project_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UUID, u.Name, u.Status, u.StartedAt, u.CompletedAt, u.DatabaseID, u.ClientID, u.ProjectID,
	)
	require.NoError(f.t, err)
	return lastID(f.t, res)
}

// CreateProjectDB writes a project database file with the given number of
// nomenclature and counterparty rows and returns its path.
func (f *Fixture) CreateProjectDB(name string, nomenclature, counterparties int) string {
	f.t.Helper()
	path := filepath.Join(f.Dir, name)
	db, err := sqlite.New(path)
	require.NoError(f.t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE nomenclature_items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE counterparties (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
	`)
	require.NoError(f.t, err)

	for i := 0; i < nomenclature; i++ {
		_, err := db.Exec(`INSERT INTO nomenclature_items (name) VALUES (?)`, fmt.Sprintf("item-%d", i))
		require.NoError(f.t, err)
	}
	for i := 0; i < counterparties; i++ {
		_, err := db.Exec(`INSERT INTO counterparties (name) VALUES (?)`, fmt.Sprintf("party-%d", i))
		require.NoError(f.t, err)
	}
	return path
}

// Seed builds one client with one project and n databases, each with a
// completed upload. Database i holds i+1 nomenclature rows and 2*(i+1)
// counterparty rows. It returns the database file paths in order.
func (f *Fixture) Seed(n int) []string {
	f.t.Helper()
	clientID := f.AddClient("Acme")
	projectID := f.AddProject(clientID, "Catalog cleanup")

	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path := f.CreateProjectDB(fmt.Sprintf("project-%02d.db", i), i+1, 2*(i+1))
		dbID := f.AddDatabase(projectID, fmt.Sprintf("db-%02d", i), path)
		completed := time.Date(2024, 3, 1, 11, i, 0, 0, time.UTC)
		f.AddUpload(Upload{
			UUID:        fmt.Sprintf("upload-%02d", i),
			Name:        fmt.Sprintf("config-%02d", i),
			Status:      "completed",
			StartedAt:   time.Date(2024, 3, 1, 10, i, 0, 0, time.UTC),
			CompletedAt: &completed,
			DatabaseID:  &dbID,
			ClientID:    &clientID,
			ProjectID:   &projectID,
		})
		paths = append(paths, path)
	}
	return paths
}

type lastInsertIDer interface {
	LastInsertId() (int64, error)
}

func lastID(t *testing.T, res lastInsertIDer) int {
	t.Helper()
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return int(id)
}
