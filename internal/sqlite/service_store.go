package sqlite

import (
	"context"

	"github.com/rpggio/inventory/internal/domain/inventory"
)

// ServiceStore serves metadata lookups from the service store file. The file
// is opened read-only for every lookup, so a replaced store is picked up on
// the next call.
type ServiceStore struct {
	path string
}

// NewServiceStore creates a ServiceStore for the file at path.
func NewServiceStore(path string) *ServiceStore {
	return &ServiceStore{path: path}
}

// GetClient retrieves a client by ID
func (s *ServiceStore) GetClient(ctx context.Context, id int) (*inventory.Client, error) {
	var c *inventory.Client
	err := s.withRepository(ctx, func(r *MetadataRepository) (err error) {
		c, err = r.GetClient(ctx, id)
		return err
	})
	return c, err
}

// GetClientProject retrieves a client project by ID
func (s *ServiceStore) GetClientProject(ctx context.Context, id int) (*inventory.ClientProject, error) {
	var p *inventory.ClientProject
	err := s.withRepository(ctx, func(r *MetadataRepository) (err error) {
		p, err = r.GetClientProject(ctx, id)
		return err
	})
	return p, err
}

// GetProjectDatabase retrieves a project database by ID
func (s *ServiceStore) GetProjectDatabase(ctx context.Context, id int) (*inventory.ProjectDatabase, error) {
	var d *inventory.ProjectDatabase
	err := s.withRepository(ctx, func(r *MetadataRepository) (err error) {
		d, err = r.GetProjectDatabase(ctx, id)
		return err
	})
	return d, err
}

func (s *ServiceStore) withRepository(ctx context.Context, fn func(*MetadataRepository) error) error {
	db, err := OpenReadOnly(ctx, s.path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(NewMetadataRepository(db))
}
