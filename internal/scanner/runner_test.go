package scanner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/inventory/internal/cache"
	"github.com/rpggio/inventory/internal/domain/summary"
	"github.com/rpggio/inventory/internal/scanner"
	"github.com/rpggio/inventory/internal/testserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savedRun struct {
	summary  *summary.SystemSummary
	duration string
	err      error
}

type historyStub struct {
	mu   sync.Mutex
	runs []savedRun
	err  error
}

func (h *historyStub) SaveScan(ctx context.Context, s *summary.SystemSummary, duration string, scanErr error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, savedRun{summary: s, duration: duration, err: scanErr})
	return h.err
}

func (h *historyStub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs)
}

func TestRunner_RunOnceRecordsSuccess(t *testing.T) {
	f := testserver.NewFixture(t)
	f.Seed(2)

	hist := &historyStub{}
	r := scanner.NewRunner(newScanner(t), hist, nil, scanner.RunnerConfig{
		ServiceDBPath: f.ServiceDBPath,
		MainDBPath:    f.MainDBPath,
	}, nil)
	require.Nil(t, r.Latest())

	result, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalUploads)
	assert.Same(t, result, r.Latest())

	require.Len(t, hist.runs, 1)
	assert.NoError(t, hist.runs[0].err)
	assert.Same(t, result, hist.runs[0].summary)
	assert.NotEmpty(t, hist.runs[0].duration)
}

func TestRunner_RunOnceRecordsFailure(t *testing.T) {
	f := testserver.NewFixture(t)

	hist := &historyStub{}
	r := scanner.NewRunner(newScanner(t), hist, nil, scanner.RunnerConfig{
		ServiceDBPath: f.ServiceDBPath,
		MainDBPath:    filepath.Join(f.Dir, "missing.db"),
	}, nil)

	result, err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Nil(t, r.Latest())

	require.Len(t, hist.runs, 1)
	assert.Error(t, hist.runs[0].err)
	assert.Nil(t, hist.runs[0].summary)
}

func TestRunner_HistoryFailureDoesNotChangeResult(t *testing.T) {
	f := testserver.NewFixture(t)
	f.Seed(1)

	hist := &historyStub{err: errors.New("disk full")}
	r := scanner.NewRunner(newScanner(t), hist, nil, scanner.RunnerConfig{
		ServiceDBPath: f.ServiceDBPath,
		MainDBPath:    f.MainDBPath,
	}, nil)

	result, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalUploads)
	assert.Same(t, result, r.Latest())
}

func TestRunner_IncrementalMode(t *testing.T) {
	f := testserver.NewFixture(t)
	paths := f.Seed(4)

	r := scanner.NewRunner(newScanner(t), nil, cache.NewModificationTracker(), scanner.RunnerConfig{
		ServiceDBPath: f.ServiceDBPath,
		MainDBPath:    f.MainDBPath,
		Incremental:   true,
	}, nil)
	ctx := context.Background()

	first, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), first.TotalUploads)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(paths[2], later, later))

	second, err := r.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, second.UploadDetails, 1)
	assert.Equal(t, paths[2], second.UploadDetails[0].DatabaseFile)

	full, err := r.RunFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), full.TotalUploads)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	f := testserver.NewFixture(t)
	f.Seed(1)

	hist := &historyStub{}
	r := scanner.NewRunner(newScanner(t), hist, nil, scanner.RunnerConfig{
		ServiceDBPath: f.ServiceDBPath,
		MainDBPath:    f.MainDBPath,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 20*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return hist.count() >= 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan loop did not stop")
	}
}
