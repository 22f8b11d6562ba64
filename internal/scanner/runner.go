package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/inventory/internal/domain/summary"
)

// HistoryWriter persists the outcome of a scan run.
type HistoryWriter interface {
	SaveScan(ctx context.Context, s *summary.SystemSummary, duration string, scanErr error) error
}

// RunnerConfig selects the stores and mode used by a Runner.
type RunnerConfig struct {
	ServiceDBPath string
	MainDBPath    string
	Incremental   bool
	Timeout       time.Duration
}

// Runner executes scans, records every run in history and keeps the latest
// successful summary.
type Runner struct {
	scanner *Scanner
	history HistoryWriter
	tracker ChangeDetector
	cfg     RunnerConfig
	logger  *slog.Logger

	runMu sync.Mutex

	mu     sync.RWMutex
	latest *summary.SystemSummary
}

// NewRunner creates a Runner. tracker is only consulted for incremental runs
// and history may be nil.
func NewRunner(scanner *Scanner, history HistoryWriter, tracker ChangeDetector, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		scanner: scanner,
		history: history,
		tracker: tracker,
		cfg:     cfg,
		logger:  logger,
	}
}

// RunOnce performs one scan and records it in history whether or not it
// succeeded. A history write failure is logged and does not change the
// returned summary or error. Concurrent calls run one after another.
func (r *Runner) RunOnce(ctx context.Context) (*summary.SystemSummary, error) {
	return r.run(ctx, r.cfg.Incremental && r.tracker != nil)
}

// RunFull performs one full scan regardless of the configured mode.
func (r *Runner) RunFull(ctx context.Context) (*summary.SystemSummary, error) {
	return r.run(ctx, false)
}

func (r *Runner) run(ctx context.Context, incremental bool) (*summary.SystemSummary, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	scanCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	mode := "full"
	start := time.Now()
	var result *summary.SystemSummary
	var err error
	if incremental {
		mode = "incremental"
		result, err = r.scanner.ScanAndSummarizeAllDatabasesIncremental(scanCtx, r.cfg.ServiceDBPath, r.cfg.MainDBPath, r.tracker)
	} else {
		result, err = r.scanner.ScanAndSummarizeAllDatabases(scanCtx, r.cfg.ServiceDBPath, r.cfg.MainDBPath)
	}
	elapsed := time.Since(start)
	duration := elapsed.Round(time.Millisecond).String()

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	scanDuration.WithLabelValues(mode, outcome).Observe(elapsed.Seconds())

	if r.history != nil {
		// The scan context may already be past its deadline.
		if herr := r.history.SaveScan(context.WithoutCancel(ctx), result, duration, err); herr != nil {
			historyWriteFailures.Inc()
			r.logger.Error("failed to record scan history", "mode", mode, "error", herr)
		}
	}

	if err != nil {
		r.logger.Error("scan failed", "mode", mode, "duration", duration, "error", err)
		return nil, err
	}

	r.mu.Lock()
	r.latest = result
	r.mu.Unlock()
	return result, nil
}

// Latest returns the most recent successful summary, or nil before the first.
func (r *Runner) Latest() *summary.SystemSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Run scans immediately and then every interval until ctx is done. Scan
// failures are logged and the loop continues.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	r.logger.Info("scan loop started", "interval", interval, "incremental", r.cfg.Incremental)
	_, _ = r.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scan loop stopped")
			return
		case <-ticker.C:
			_, _ = r.RunOnce(ctx)
		}
	}
}
