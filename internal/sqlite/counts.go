package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDatabaseFileNotFound is returned when a registered database file is missing.
var ErrDatabaseFileNotFound = errors.New("database file not found")

// RecordCounts holds per-database record totals.
type RecordCounts struct {
	Nomenclature   int64
	Counterparties int64
	Size           int64
}

// CountRecords opens a project database read-only and counts its nomenclature
// and counterparty records.
//
// Counterparties come from the counterparties table when present, otherwise
// from normalized_data or catalog_items, whichever exists first.
func CountRecords(ctx context.Context, path string) (RecordCounts, error) {
	var counts RecordCounts

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return counts, fmt.Errorf("%w: %s", ErrDatabaseFileNotFound, path)
		}
		return counts, fmt.Errorf("failed to stat database file: %w", err)
	}
	counts.Size = info.Size()

	db, err := OpenReadOnly(ctx, path)
	if err != nil {
		return counts, err
	}
	defer db.Close()

	hasNomenclature, err := db.tableExists(ctx, "nomenclature_items")
	if err != nil {
		return counts, fmt.Errorf("failed to check nomenclature_items: %w", err)
	}
	if hasNomenclature {
		if counts.Nomenclature, err = db.count(ctx, "SELECT COUNT(*) FROM nomenclature_items"); err != nil {
			return counts, fmt.Errorf("failed to count nomenclature: %w", err)
		}
	}

	hasCounterparties, err := db.tableExists(ctx, "counterparties")
	if err != nil {
		return counts, fmt.Errorf("failed to check counterparties: %w", err)
	}
	switch {
	case hasCounterparties:
		if counts.Counterparties, err = db.count(ctx, "SELECT COUNT(*) FROM counterparties"); err != nil {
			return counts, fmt.Errorf("failed to count counterparties: %w", err)
		}
	default:
		if err := db.countFallback(ctx, path, &counts); err != nil {
			return counts, err
		}
	}

	return counts, nil
}

func (db *DB) countFallback(ctx context.Context, path string, counts *RecordCounts) error {
	hasNormalized, err := db.tableExists(ctx, "normalized_data")
	if err != nil {
		return fmt.Errorf("failed to check normalized_data: %w", err)
	}
	if hasNormalized {
		var typed int
		err := db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM pragma_table_info('normalized_data')
			WHERE name = 'data_type' OR name = 'type'
		`).Scan(&typed)
		if err != nil {
			return fmt.Errorf("failed to inspect normalized_data: %w", err)
		}
		query := "SELECT COUNT(*) FROM normalized_data"
		if typed > 0 {
			query += " WHERE " + typeColumnPredicate(ctx, db)
		}
		n, err := db.count(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to count normalized_data: %w", err)
		}
		counts.Counterparties = n
		return nil
	}

	hasCatalog, err := db.tableExists(ctx, "catalog_items")
	if err != nil {
		return fmt.Errorf("failed to check catalog_items: %w", err)
	}
	if !hasCatalog {
		return nil
	}
	n, err := db.count(ctx, "SELECT COUNT(*) FROM catalog_items")
	if err != nil {
		return fmt.Errorf("failed to count catalog_items: %w", err)
	}
	if db.isNomenclatureCatalog(ctx, path) {
		counts.Nomenclature += n
	} else {
		counts.Counterparties = n
	}
	return nil
}

// typeColumnPredicate selects counterparty rows using whichever type column exists.
func typeColumnPredicate(ctx context.Context, db *DB) string {
	var hasDataType int
	_ = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('normalized_data') WHERE name = 'data_type'`,
	).Scan(&hasDataType)
	if hasDataType > 0 {
		return "data_type = 'counterparty'"
	}
	return "type = 'counterparty'"
}

func (db *DB) isNomenclatureCatalog(ctx context.Context, path string) bool {
	if ok, err := db.tableExists(ctx, "catalogs"); err == nil && ok {
		var n int
		err := db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM catalogs
			WHERE name = 'Номенклатура' OR name LIKE '%оменклатур%' OR lower(name) LIKE '%nomenclature%'
		`).Scan(&n)
		if err == nil && n > 0 {
			return true
		}
	}
	name := strings.ToLower(filepath.Base(path))
	return strings.Contains(name, "nomenclature") || strings.Contains(name, "номенклатур")
}

func (db *DB) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
