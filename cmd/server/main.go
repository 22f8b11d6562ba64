package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/inventory/internal/cache"
	"github.com/rpggio/inventory/internal/config"
	"github.com/rpggio/inventory/internal/history"
	"github.com/rpggio/inventory/internal/mcp"
	"github.com/rpggio/inventory/internal/scanner"
	"github.com/rpggio/inventory/internal/sqlite"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "inventory",
		Short:        "Scan project databases and serve summaries and scan history",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(
		newServeCmd(),
		newScanCmd(),
		newHistoryCmd(),
		newCompareCmd(),
	)
	return root
}

// app holds the components shared by every command.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	cache    *cache.MetadataCache
	tracker  *cache.ModificationTracker
	history  *history.Manager
	runner   *scanner.Runner
	metadata *sqlite.ServiceStore

	closers []func() error
}

// newApp loads configuration and builds the component graph. Missing
// service or main stores are not an error here; scans report them.
// Logs go to stderr whenever stdout carries protocol or command output.
func newApp(ctx context.Context, stdoutReserved bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	a := &app{cfg: cfg}

	logWriter := io.Writer(os.Stdout)
	if stdoutReserved || cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			a.closers = append(a.closers, file.Close)
			logWriter = fileWriter
		}
	}
	a.logger = slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.HistoryPath); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to prepare history path: %w", err)
	}

	a.cache = cache.NewMetadataCache(
		cache.WithTTLs(cfg.Cache.DatabaseTTL, cfg.Cache.ProjectTTL, cfg.Cache.ClientTTL),
		cache.WithLogger(a.logger),
	)
	a.tracker = cache.NewModificationTracker()

	sc, err := scanner.New(
		scanner.WithLogger(a.logger),
		scanner.WithMaxConcurrent(cfg.Scan.MaxConcurrent),
		scanner.WithPerDatabaseTimeout(cfg.Scan.PerDatabaseTimeout),
		scanner.WithCountCacheSize(cfg.Scan.CountCacheSize),
		scanner.WithMetadataCache(a.cache),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	a.history, err = history.NewManager(ctx, cfg.DB.HistoryPath, history.WithLogger(a.logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	a.closers = append(a.closers, a.history.Close)

	a.runner = scanner.NewRunner(sc, a.history, a.tracker, scanner.RunnerConfig{
		ServiceDBPath: cfg.DB.ServicePath,
		MainDBPath:    cfg.DB.MainPath,
		Incremental:   cfg.Scan.Incremental,
		Timeout:       cfg.Scan.Timeout,
	}, a.logger)
	a.metadata = sqlite.NewServiceStore(cfg.DB.ServicePath)

	return a, nil
}

func (a *app) services() mcp.Services {
	return mcp.Services{
		Scans:    a.runner,
		History:  a.history,
		Cache:    a.cache,
		Metadata: a.metadata,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
