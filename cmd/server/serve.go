package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpggio/inventory/internal/mcp"
	"github.com/rpggio/inventory/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve reporting tools over stdio or HTTP (default command)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if interval := a.cfg.Scan.Interval; interval > 0 {
		a.logger.Info("periodic scans enabled", "interval", interval, "incremental", a.cfg.Scan.Incremental)
		go a.runner.Run(ctx, interval)
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services: a.services(),
		Logger:   a.logger,
	})

	if a.cfg.Transport.Mode == "stdio" {
		return runStdioMode(ctx, a.logger, mcpServer)
	}
	return runHTTPMode(ctx, a, mcpServer)
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport")

	// Run blocks until stdin closes or ctx is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		return err
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(ctx context.Context, a *app, mcpServer *sdkmcp.Server) error {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	router := transport.NewServer(transport.Options{
		Handler: mcp.NewHandler(a.services()),
		MCP:     mcpHandler,
		Ready:   storeReadiness{servicePath: a.cfg.DB.ServicePath, mainPath: a.cfg.DB.MainPath},
		Logger:  a.logger,
	})

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			a.logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}
	return waitForShutdown(a.logger, httpServer)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}

// storeReadiness reports whether the two read-only stores can be found.
// Summaries need both; history keeps working without them.
type storeReadiness struct {
	servicePath string
	mainPath    string
}

func (r storeReadiness) CheckReady(context.Context) (string, string) {
	var missing []string
	for _, p := range []string{r.servicePath, r.mainPath} {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	switch len(missing) {
	case 0:
		return "ok", "stores available"
	case 2:
		return "fail", fmt.Sprintf("stores missing: %s, %s", missing[0], missing[1])
	default:
		return "degraded", "store missing: " + missing[0]
	}
}
