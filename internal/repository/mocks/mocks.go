package mocks

import (
	"context"

	"github.com/rpggio/inventory/internal/domain/inventory"
	"github.com/rpggio/inventory/internal/repository"
	"github.com/stretchr/testify/mock"
)

// MetadataRepository is a mock for repository.MetadataRepository.
type MetadataRepository struct {
	mock.Mock
}

func (m *MetadataRepository) GetClient(ctx context.Context, id int) (*inventory.Client, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*inventory.Client); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MetadataRepository) GetClientProject(ctx context.Context, id int) (*inventory.ClientProject, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*inventory.ClientProject); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MetadataRepository) GetProjectDatabase(ctx context.Context, id int) (*inventory.ProjectDatabase, error) {
	args := m.Called(ctx, id)
	if db, ok := args.Get(0).(*inventory.ProjectDatabase); ok {
		return db, args.Error(1)
	}
	return nil, args.Error(1)
}

// HistoryRepository is a mock for repository.HistoryRepository.
type HistoryRepository struct {
	mock.Mock
}

func (m *HistoryRepository) Insert(ctx context.Context, row *repository.HistoryRow) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *HistoryRepository) List(ctx context.Context, limit int) ([]repository.HistoryRow, error) {
	args := m.Called(ctx, limit)
	if rows, ok := args.Get(0).([]repository.HistoryRow); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *HistoryRepository) Get(ctx context.Context, id int64) (*repository.HistoryRow, error) {
	args := m.Called(ctx, id)
	if row, ok := args.Get(0).(*repository.HistoryRow); ok {
		return row, args.Error(1)
	}
	return nil, args.Error(1)
}
