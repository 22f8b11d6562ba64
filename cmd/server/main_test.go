package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpggio/inventory/internal/history"
	"github.com/rpggio/inventory/internal/testserver"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestEnsureDBDir(t *testing.T) {
	require.NoError(t, ensureDBDir(":memory:"))
	require.NoError(t, ensureDBDir("history.db"))

	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	require.NoError(t, ensureDBDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestLogFileWriter_KeepsNewestBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	w, file, err := newSizedLogFileWriter(path, 64, 32)
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })

	_, err = w.Write([]byte(strings.Repeat("a", 60)))
	require.NoError(t, err)
	_, err = w.Write([]byte(strings.Repeat("b", 20)))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 32)
	require.Equal(t, strings.Repeat("a", 12)+strings.Repeat("b", 20), string(data))

	_, err = w.Write([]byte("c"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 33)
}

func TestStoreReadiness(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.db")
	require.NoError(t, os.WriteFile(present, nil, 0o644))
	absent := filepath.Join(dir, "absent.db")

	status, _ := storeReadiness{servicePath: present, mainPath: present}.CheckReady(context.Background())
	require.Equal(t, "ok", status)

	status, msg := storeReadiness{servicePath: present, mainPath: absent}.CheckReady(context.Background())
	require.Equal(t, "degraded", status)
	require.Contains(t, msg, absent)

	status, _ = storeReadiness{servicePath: absent, mainPath: absent}.CheckReady(context.Background())
	require.Equal(t, "fail", status)
}

func setStoreEnv(t *testing.T, f *testserver.Fixture) {
	t.Helper()
	t.Setenv("INVENTORY_CONFIG_PATH", "")
	t.Setenv("INVENTORY_TRANSPORT_MODE", "stdio")
	t.Setenv("INVENTORY_SERVICE_DB", f.ServiceDBPath)
	t.Setenv("INVENTORY_MAIN_DB", f.MainDBPath)
	t.Setenv("INVENTORY_HISTORY_DB", f.HistoryDBPath)
	t.Setenv("INVENTORY_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands_ScanHistoryCompare(t *testing.T) {
	f := testserver.NewFixture(t)
	f.Seed(3)
	setStoreEnv(t, f)

	out, err := execute(t, "scan", "--status", "completed")
	require.NoError(t, err)
	var first struct {
		TotalUploads  int64 `json:"total_uploads"`
		UploadDetails []struct {
			Status string `json:"status"`
		} `json:"upload_details"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	require.Equal(t, int64(3), first.TotalUploads)
	for _, u := range first.UploadDetails {
		require.Equal(t, "completed", u.Status)
	}

	_, err = execute(t, "compare")
	require.ErrorIs(t, err, history.ErrNotEnoughHistory)

	_, err = execute(t, "scan")
	require.NoError(t, err)

	out, err = execute(t, "history")
	require.NoError(t, err)
	var entries []history.ScanHistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	require.True(t, entries[0].Success)
	require.Empty(t, entries[0].Summary.UploadDetails)

	out, err = execute(t, "compare")
	require.NoError(t, err)
	var diff history.ScanDiff
	require.NoError(t, json.Unmarshal([]byte(out), &diff))
	require.Zero(t, diff.TotalUploadsChange)
	require.Zero(t, diff.NewUploadsCount)

	_, err = execute(t, "compare", "1")
	require.Error(t, err)

	_, err = execute(t, "history", "--id", "999")
	require.ErrorIs(t, err, history.ErrScanNotFound)
}

func TestCommands_InvalidConfig(t *testing.T) {
	f := testserver.NewFixture(t)
	setStoreEnv(t, f)
	t.Setenv("INVENTORY_SCAN_INTERVAL", "soon")

	_, err := execute(t, "history")
	require.Error(t, err)
	require.Contains(t, err.Error(), "INVENTORY_SCAN_INTERVAL")
}
