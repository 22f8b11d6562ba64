package scanner

import (
	"context"

	"github.com/rpggio/inventory/internal/sqlite"
)

func WithCountFunc(fn func(ctx context.Context, path string) (sqlite.RecordCounts, error)) Option {
	return withCountFunc(fn)
}
