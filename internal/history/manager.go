package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/inventory/internal/domain/summary"
	"github.com/rpggio/inventory/internal/repository"
	"github.com/rpggio/inventory/internal/sqlite"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// scanTimeLayout is fixed width so that text ordering matches time ordering.
const scanTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	ErrHistoryEmpty     = errors.New("scan history is empty")
	ErrScanNotFound     = errors.New("scan not found")
	ErrNotEnoughHistory = errors.New("at least two scans are needed for a comparison")
)

// ScanHistoryEntry is one recorded scan run.
type ScanHistoryEntry struct {
	ID           int64                  `json:"id"`
	RunID        string                 `json:"run_id,omitempty"`
	ScanTime     time.Time              `json:"scan_time"`
	Summary      *summary.SystemSummary `json:"summary"`
	ScanDuration string                 `json:"scan_duration"`
	Success      bool                   `json:"success"`
	Error        string                 `json:"error,omitempty"`
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces time.Now when stamping new rows.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager is an append-only log of scan runs.
//
// All reads and writes go through one mutex and, when opened with
// NewManager, a single store connection.
type Manager struct {
	mu     sync.Mutex
	db     *sqlite.DB
	repo   repository.HistoryRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewManager opens or creates the history store at path and migrates it.
func NewManager(ctx context.Context, path string, opts ...Option) (*Manager, error) {
	db, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := db.MigrateHistory(ctx); err != nil {
		db.Close()
		return nil, err
	}

	m := NewManagerFromRepository(sqlite.NewHistoryRepository(db), opts...)
	m.db = db
	return m, nil
}

// NewManagerFromRepository builds a Manager over an existing repository.
// Close is then a no-op; the caller owns the connection.
func NewManagerFromRepository(repo repository.HistoryRepository, opts ...Option) *Manager {
	m := &Manager{
		repo:   repo,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SaveScan records one scan run. A non-nil scanErr marks the run failed and
// stores its message; s may be nil in that case.
func (m *Manager) SaveScan(ctx context.Context, s *summary.SystemSummary, duration string, scanErr error) error {
	if s == nil {
		s = summary.Recount(nil)
	}
	blob, err := encodeSummary(s)
	if err != nil {
		return err
	}

	row := &repository.HistoryRow{
		RunID:        uuid.NewString(),
		SummaryBlob:  blob,
		ScanDuration: duration,
		Success:      scanErr == nil,
	}
	scanLabel := "success"
	if scanErr != nil {
		row.Error = scanErr.Error()
		scanLabel = "failure"
	}

	// Stamped under the lock so scan_time order matches insertion order.
	m.mu.Lock()
	defer m.mu.Unlock()
	row.ScanTime = m.now().UTC().Format(scanTimeLayout)

	if err := m.repo.Insert(ctx, row); err != nil {
		historyWrites.WithLabelValues(scanLabel, "error").Inc()
		return fmt.Errorf("failed to save scan: %w", err)
	}
	historyWrites.WithLabelValues(scanLabel, "ok").Inc()

	m.logger.Debug("scan recorded", "id", row.ID, "run_id", row.RunID, "success", row.Success)
	return nil
}

// GetHistory returns up to limit runs, most recent first. A limit of zero or
// less means DefaultLimit; larger than MaxLimit is clamped. Rows that cannot
// be decoded are skipped.
func (m *Manager) GetHistory(ctx context.Context, limit int) ([]ScanHistoryEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	m.mu.Lock()
	rows, err := m.repo.List(ctx, limit)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	entries := make([]ScanHistoryEntry, 0, len(rows))
	for i := range rows {
		entry, err := decodeEntry(&rows[i])
		if err != nil {
			historySkippedRows.Inc()
			m.logger.Warn("skipping unreadable history row", "id", rows[i].ID, "error", err)
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// GetLastScan returns the most recent run.
func (m *Manager) GetLastScan(ctx context.Context) (*ScanHistoryEntry, error) {
	entries, err := m.GetHistory(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrHistoryEmpty
	}
	return &entries[0], nil
}

// GetScan returns the run with the given id.
func (m *Manager) GetScan(ctx context.Context, id int64) (*ScanHistoryEntry, error) {
	m.mu.Lock()
	row, err := m.repo.Get(ctx, id)
	m.mu.Unlock()
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrScanNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	entry, err := decodeEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to decode scan %d: %w", id, err)
	}
	return entry, nil
}

// CompareLatest diffs the two most recent runs.
func (m *Manager) CompareLatest(ctx context.Context) (*ScanDiff, error) {
	entries, err := m.GetHistory(ctx, 2)
	if err != nil {
		return nil, err
	}
	if len(entries) < 2 {
		return nil, ErrNotEnoughHistory
	}
	return compareEntries(&entries[1], &entries[0]), nil
}

// CompareByID diffs two recorded runs.
func (m *Manager) CompareByID(ctx context.Context, oldID, newID int64) (*ScanDiff, error) {
	older, err := m.GetScan(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newer, err := m.GetScan(ctx, newID)
	if err != nil {
		return nil, err
	}
	return compareEntries(older, newer), nil
}

// Close releases the store connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func compareEntries(older, newer *ScanHistoryEntry) *ScanDiff {
	diff := CompareScans(older.Summary, newer.Summary)
	diff.OldScanID = older.ID
	diff.NewScanID = newer.ID
	return &diff
}

func decodeEntry(row *repository.HistoryRow) (*ScanHistoryEntry, error) {
	s, err := decodeSummary(row.SummaryBlob)
	if err != nil {
		return nil, err
	}
	scanTime, err := time.Parse(time.RFC3339Nano, row.ScanTime)
	if err != nil {
		return nil, fmt.Errorf("invalid scan time %q: %w", row.ScanTime, err)
	}
	return &ScanHistoryEntry{
		ID:           row.ID,
		RunID:        row.RunID,
		ScanTime:     scanTime,
		Summary:      s,
		ScanDuration: row.ScanDuration,
		Success:      row.Success,
		Error:        row.Error,
	}, nil
}
