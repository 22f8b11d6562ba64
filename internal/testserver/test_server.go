package testserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/inventory/internal/cache"
	"github.com/rpggio/inventory/internal/history"
	"github.com/rpggio/inventory/internal/mcp"
	"github.com/rpggio/inventory/internal/scanner"
	"github.com/rpggio/inventory/internal/sqlite"
	"github.com/rpggio/inventory/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// Options tunes the stack built by New.
type Options struct {
	Incremental bool
}

// TestServer is the full HTTP stack over a Fixture: plain JSON-RPC on /rpc
// and the MCP streamable transport on /mcp.
type TestServer struct {
	Server  *httptest.Server
	Fixture *Fixture
	History *history.Manager
	Runner  *scanner.Runner
	Cache   *cache.MetadataCache
	Tracker *cache.ModificationTracker
}

// New wires scanner, history, cache and MCP handlers over f and serves them.
func New(t *testing.T, f *Fixture, opts Options) *TestServer {
	t.Helper()

	metadata := cache.NewMetadataCache()
	tracker := cache.NewModificationTracker()

	sc, err := scanner.New(scanner.WithMetadataCache(metadata))
	require.NoError(t, err)

	hist, err := history.NewManager(context.Background(), f.HistoryDBPath)
	require.NoError(t, err)

	runner := scanner.NewRunner(sc, hist, tracker, scanner.RunnerConfig{
		ServiceDBPath: f.ServiceDBPath,
		MainDBPath:    f.MainDBPath,
		Incremental:   opts.Incremental,
		Timeout:       30 * time.Second,
	}, nil)

	services := mcp.Services{
		Scans:    runner,
		History:  hist,
		Cache:    metadata,
		Metadata: sqlite.NewServiceStore(f.ServiceDBPath),
	}
	mcpServer := mcp.NewServer(mcp.Config{Services: services})
	streamable := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	server := httptest.NewServer(transport.NewServer(transport.Options{
		Handler: mcp.NewHandler(services),
		MCP:     streamable,
	}))

	t.Cleanup(func() {
		server.Close()
		_ = hist.Close()
	})

	return &TestServer{
		Server:  server,
		Fixture: f,
		History: hist,
		Runner:  runner,
		Cache:   metadata,
		Tracker: tracker,
	}
}
