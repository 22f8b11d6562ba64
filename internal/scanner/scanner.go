package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/rpggio/inventory/internal/cache"
	"github.com/rpggio/inventory/internal/domain/inventory"
	"github.com/rpggio/inventory/internal/domain/summary"
	"github.com/rpggio/inventory/internal/sqlite"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxConcurrent      = 5
	DefaultPerDatabaseTimeout = 5 * time.Second
	DefaultCountCacheSize     = 512
)

// ChangeDetector reports whether a database file changed since it was last
// checked. *cache.ModificationTracker satisfies it.
type ChangeDetector interface {
	ShouldScan(path string) bool
}

// Option configures a Scanner.
type Option func(*Scanner)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxConcurrent caps how many database files are open at once.
func WithMaxConcurrent(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithPerDatabaseTimeout bounds the time spent counting one database file.
func WithPerDatabaseTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.perDatabaseTimeout = d
		}
	}
}

// WithCountCacheSize sets how many files keep their record counts between
// scans. Zero disables the cache.
func WithCountCacheSize(n int) Option {
	return func(s *Scanner) {
		if n >= 0 {
			s.countCacheSize = n
		}
	}
}

// WithMetadataCache resolves project databases through c instead of querying
// the service store for every scan.
func WithMetadataCache(c *cache.MetadataCache) Option {
	return func(s *Scanner) {
		s.metadata = c
	}
}

// withCountFunc replaces sqlite.CountRecords, for tests.
func withCountFunc(fn countFunc) Option {
	return func(s *Scanner) {
		s.countRecords = fn
	}
}

// Scanner builds system-wide summaries from the service and main stores.
type Scanner struct {
	logger             *slog.Logger
	maxConcurrent      int
	perDatabaseTimeout time.Duration
	countCacheSize     int
	countRecords       countFunc
	metadata           *cache.MetadataCache
	counts             *countCache
}

// New creates a Scanner.
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{
		logger:             slog.New(slog.DiscardHandler),
		maxConcurrent:      DefaultMaxConcurrent,
		perDatabaseTimeout: DefaultPerDatabaseTimeout,
		countCacheSize:     DefaultCountCacheSize,
		countRecords:       sqlite.CountRecords,
	}
	for _, opt := range opts {
		opt(s)
	}

	counts, err := newCountCache(s.countCacheSize, s.countRecords)
	if err != nil {
		return nil, err
	}
	s.counts = counts
	return s, nil
}

// ScanAndSummarizeAllDatabases enumerates every upload in the main store,
// resolves the database file of each through the service store and counts
// its records.
//
// Databases that cannot be resolved or counted are logged and reported in
// DatabasesSkipped; they never fail the scan. Failing to read either store
// does.
func (s *Scanner) ScanAndSummarizeAllDatabases(ctx context.Context, serviceDBPath, mainDBPath string) (*summary.SystemSummary, error) {
	start := time.Now()

	uploads, err := listUploads(ctx, mainDBPath)
	if err != nil {
		return nil, err
	}

	files, err := s.resolveDatabaseFiles(ctx, serviceDBPath, uploads)
	if err != nil {
		return nil, err
	}

	counted := s.countDatabases(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}

	details := make([]summary.UploadSummary, 0, len(uploads))
	var processed, skipped int
	for _, u := range uploads {
		d := uploadSummary(u)
		if u.DatabaseID != nil {
			path, ok := files[*u.DatabaseID]
			switch {
			case !ok:
				skipped++
			default:
				d.DatabaseFile = path
				if c, ok := counted[path]; ok {
					d.NomenclatureCount = c.Nomenclature
					d.CounterpartyCount = c.Counterparties
					if c.Size > 0 {
						size := c.Size
						d.DatabaseSize = &size
					}
					processed++
				} else {
					skipped++
				}
			}
		}
		details = append(details, d)
	}

	result := summary.Recount(details)
	result.DatabasesProcessed = processed
	result.DatabasesSkipped = skipped
	duration := time.Since(start).Round(time.Millisecond).String()
	result.ScanDuration = &duration

	scanDatabases.WithLabelValues("processed").Add(float64(processed))
	scanDatabases.WithLabelValues("skipped").Add(float64(skipped))

	s.logger.Info("scan completed",
		"duration", duration,
		"uploads", result.TotalUploads,
		"databases", result.TotalDatabases,
		"processed", processed,
		"skipped", skipped,
		"nomenclature", result.TotalNomenclature,
		"counterparties", result.TotalCounterparties,
	)
	return result, nil
}

// ScanAndSummarizeAllDatabasesIncremental runs a full scan and narrows the
// result to uploads whose database file changed according to tracker.
// Aggregates describe the narrowed set only.
func (s *Scanner) ScanAndSummarizeAllDatabasesIncremental(ctx context.Context, serviceDBPath, mainDBPath string, tracker ChangeDetector) (*summary.SystemSummary, error) {
	full, err := s.ScanAndSummarizeAllDatabases(ctx, serviceDBPath, mainDBPath)
	if err != nil {
		return nil, err
	}

	narrowed := FilterIncremental(full, tracker)
	s.logger.Info("incremental scan narrowed",
		"uploads_total", full.TotalUploads,
		"uploads_changed", narrowed.TotalUploads,
	)
	return narrowed, nil
}

// FilterIncremental keeps the uploads of full whose DatabaseFile tracker
// reports as changed, plus every upload without a DatabaseFile. Each distinct
// file is checked once, so uploads sharing a file are kept or dropped
// together. Aggregates are recomputed from the kept uploads.
func FilterIncremental(full *summary.SystemSummary, tracker ChangeDetector) *summary.SystemSummary {
	checked := make(map[string]bool)
	kept := make([]summary.UploadSummary, 0, len(full.UploadDetails))
	for _, u := range full.UploadDetails {
		if u.DatabaseFile == "" {
			kept = append(kept, u)
			continue
		}
		changed, seen := checked[u.DatabaseFile]
		if !seen {
			changed = tracker.ShouldScan(u.DatabaseFile)
			checked[u.DatabaseFile] = changed
		}
		if changed {
			kept = append(kept, u)
		}
	}

	out := summary.Recount(kept)
	out.DatabasesProcessed = full.DatabasesProcessed
	out.DatabasesSkipped = full.DatabasesSkipped
	out.ScanDuration = full.ScanDuration
	return out
}

func listUploads(ctx context.Context, mainDBPath string) ([]inventory.Upload, error) {
	db, err := sqlite.OpenReadOnly(ctx, mainDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open main store: %w", err)
	}
	defer db.Close()

	uploads, err := sqlite.NewUploadRepository(db).ListUploads(ctx)
	if err != nil {
		return nil, err
	}
	return uploads, nil
}

// resolveDatabaseFiles maps every database id referenced by uploads to its
// file path. Ids that cannot be resolved are absent from the result.
func (s *Scanner) resolveDatabaseFiles(ctx context.Context, serviceDBPath string, uploads []inventory.Upload) (map[int]string, error) {
	files := make(map[int]string)

	var ids []int
	seen := make(map[int]struct{})
	for _, u := range uploads {
		if u.DatabaseID == nil {
			continue
		}
		if _, ok := seen[*u.DatabaseID]; ok {
			continue
		}
		seen[*u.DatabaseID] = struct{}{}
		ids = append(ids, *u.DatabaseID)
	}
	if len(ids) == 0 {
		return files, nil
	}

	db, err := sqlite.OpenReadOnly(ctx, serviceDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open service store: %w", err)
	}
	defer db.Close()
	repo := sqlite.NewMetadataRepository(db)

	for _, id := range ids {
		var pdb *inventory.ProjectDatabase
		if s.metadata != nil {
			pdb, err = s.metadata.GetProjectDatabase(ctx, repo, id)
		} else {
			pdb, err = repo.GetProjectDatabase(ctx, id)
		}
		if err != nil {
			s.logger.Warn("failed to resolve database", "database_id", id, "error", err)
			continue
		}
		if pdb.FilePath == "" {
			s.logger.Warn("database has no file path", "database_id", id)
			continue
		}
		files[id] = pdb.FilePath
	}
	return files, nil
}

// countDatabases counts each distinct file once, at most maxConcurrent at a
// time. Files that fail are missing from the result.
func (s *Scanner) countDatabases(ctx context.Context, files map[int]string) map[string]sqlite.RecordCounts {
	unique := make(map[string]struct{}, len(files))
	for _, p := range files {
		unique[p] = struct{}{}
	}
	paths := make([]string, 0, len(unique))
	for p := range unique {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	results := make([]*sqlite.RecordCounts, len(paths))
	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for i, path := range paths {
		g.Go(func() error {
			dbCtx, cancel := context.WithTimeout(ctx, s.perDatabaseTimeout)
			defer cancel()

			counts, err := s.counts.get(dbCtx, path)
			if err != nil {
				s.logger.Warn("skipping database", "path", path, "reason", skipReason(err), "error", err)
				return nil
			}
			results[i] = &counts
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]sqlite.RecordCounts, len(paths))
	for i, c := range results {
		if c != nil {
			out[paths[i]] = *c
		}
	}
	return out
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, sqlite.ErrDatabaseFileNotFound):
		return "file_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "unreadable"
	}
}

func uploadSummary(u inventory.Upload) summary.UploadSummary {
	return summary.UploadSummary{
		ID:          strconv.Itoa(u.ID),
		UploadUUID:  u.UploadUUID,
		Name:        u.ConfigName,
		Status:      u.Status,
		CreatedAt:   u.StartedAt,
		CompletedAt: u.CompletedAt,
		DatabaseID:  u.DatabaseID,
		ClientID:    u.ClientID,
		ProjectID:   u.ProjectID,
	}
}
