package functional_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/rpggio/inventory/internal/testserver"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      any             `json:"id,omitempty"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// rpcCall posts a plain JSON-RPC tool call to /rpc.
func rpcCall(t *testing.T, ts *testserver.TestServer, method string, params any) rpcResponse {
	t.Helper()

	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"id":      1,
	}
	if params != nil {
		payload["params"] = params
	}

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(ts.Server.URL+"/rpc", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(bodyBytes))
	}

	var result rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func rpcResult(t *testing.T, ts *testserver.TestServer, method string, params any, out any) {
	t.Helper()
	resp := rpcCall(t, ts, method, params)
	require.Nil(t, resp.Error, "%s failed: %+v", method, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, out))
}

// connectMCP opens an MCP client session against /mcp.
func connectMCP(t *testing.T, ts *testserver.TestServer) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{Endpoint: ts.Server.URL + "/mcp"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

// callTool makes a tools/call request and unwraps the text result.
func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) json.RawMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	require.NotEmpty(t, result.Content, "Tool %s returned no content", name)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "Tool %s returned no text content", name)
	require.False(t, result.IsError, "Tool %s returned error: %s", name, text.Text)
	return json.RawMessage(text.Text)
}

type systemSummary struct {
	TotalDatabases      int   `json:"total_databases"`
	TotalUploads        int64 `json:"total_uploads"`
	CompletedUploads    int64 `json:"completed_uploads"`
	FailedUploads       int64 `json:"failed_uploads"`
	TotalNomenclature   int64 `json:"total_nomenclature"`
	TotalCounterparties int64 `json:"total_counterparties"`
	DatabasesProcessed  int   `json:"databases_processed"`
	DatabasesSkipped    int   `json:"databases_skipped"`
	UploadDetails       []struct {
		UploadUUID        string `json:"upload_uuid"`
		Name              string `json:"name"`
		Status            string `json:"status"`
		DatabaseFile      string `json:"database_file"`
		NomenclatureCount int64  `json:"nomenclature_count"`
	} `json:"upload_details"`
}

func TestFunctional_SummaryOverMCP(t *testing.T) {
	f := testserver.NewFixture(t)
	f.Seed(3)
	ts := testserver.New(t, f, testserver.Options{})
	session := connectMCP(t, ts)

	var s systemSummary
	require.NoError(t, json.Unmarshal(callTool(t, session, "get_system_summary", nil), &s))
	require.Equal(t, int64(3), s.TotalUploads)
	require.Equal(t, int64(3), s.CompletedUploads)
	require.Equal(t, 3, s.TotalDatabases)
	require.Equal(t, int64(6), s.TotalNomenclature)
	require.Equal(t, int64(12), s.TotalCounterparties)
	require.Equal(t, 3, s.DatabasesProcessed)
	require.Len(t, s.UploadDetails, 3)

	var filtered systemSummary
	require.NoError(t, json.Unmarshal(callTool(t, session, "get_system_summary", map[string]any{
		"sort_by":   "nomenclature",
		"sort_desc": true,
		"limit":     1,
	}), &filtered))
	require.Len(t, filtered.UploadDetails, 1)
	require.Equal(t, int64(3), filtered.UploadDetails[0].NomenclatureCount)

	var last struct {
		ID      int64 `json:"id"`
		Success bool  `json:"success"`
	}
	require.NoError(t, json.Unmarshal(callTool(t, session, "get_last_scan", nil), &last))
	require.True(t, last.Success)
	require.Positive(t, last.ID)
}

func TestFunctional_HistoryAndCompare(t *testing.T) {
	f := testserver.NewFixture(t)
	f.Seed(2)
	ts := testserver.New(t, f, testserver.Options{})

	var first systemSummary
	rpcResult(t, ts, "get_system_summary", map[string]any{"refresh": true}, &first)
	require.Equal(t, int64(2), first.TotalUploads)

	clientID := f.AddClient("Globex")
	projectID := f.AddProject(clientID, "Partners")
	dbPath := f.CreateProjectDB("globex.db", 10, 4)
	dbID := f.AddDatabase(projectID, "globex", dbPath)
	f.AddUpload(testserver.Upload{UUID: "upload-globex", Name: "globex", Status: "failed", DatabaseID: &dbID})

	var second systemSummary
	rpcResult(t, ts, "get_system_summary", map[string]any{"refresh": true}, &second)
	require.Equal(t, int64(3), second.TotalUploads)
	require.Equal(t, int64(1), second.FailedUploads)

	var hist struct {
		Count int `json:"count"`
		Scans []struct {
			ID      int64 `json:"id"`
			Summary struct {
				TotalUploads  int64 `json:"total_uploads"`
				UploadDetails []any `json:"upload_details"`
			} `json:"summary"`
		} `json:"scans"`
	}
	rpcResult(t, ts, "get_scan_history", nil, &hist)
	require.Equal(t, 2, hist.Count)
	require.Equal(t, int64(3), hist.Scans[0].Summary.TotalUploads)
	require.Empty(t, hist.Scans[0].Summary.UploadDetails)

	var diff struct {
		OldScanID          int64 `json:"old_scan_id"`
		NewScanID          int64 `json:"new_scan_id"`
		TotalUploadsChange int64 `json:"total_uploads_change"`
		FailedChange       int64 `json:"failed_uploads_change"`
		NomenclatureChange int64 `json:"total_nomenclature_change"`
		NewUploadsCount    int   `json:"new_uploads_count"`
		NewUploads         []struct {
			UploadUUID string `json:"upload_uuid"`
		} `json:"new_uploads"`
	}
	rpcResult(t, ts, "compare_scans", nil, &diff)
	require.Equal(t, hist.Scans[1].ID, diff.OldScanID)
	require.Equal(t, hist.Scans[0].ID, diff.NewScanID)
	require.Equal(t, int64(1), diff.TotalUploadsChange)
	require.Equal(t, int64(1), diff.FailedChange)
	require.Equal(t, int64(10), diff.NomenclatureChange)
	require.Equal(t, 1, diff.NewUploadsCount)
	require.Equal(t, "upload-globex", diff.NewUploads[0].UploadUUID)

	var byID struct {
		TotalUploadsChange int64 `json:"total_uploads_change"`
	}
	rpcResult(t, ts, "compare_scans", map[string]any{"old_id": diff.NewScanID, "new_id": diff.OldScanID}, &byID)
	require.Equal(t, int64(-1), byID.TotalUploadsChange)
}

func TestFunctional_FailedScanIsRecorded(t *testing.T) {
	f := testserver.NewFixture(t)
	f.Seed(1)
	ts := testserver.New(t, f, testserver.Options{})
	require.NoError(t, os.Remove(f.MainDBPath))

	resp := rpcCall(t, ts, "get_system_summary", map[string]any{"refresh": true})
	require.NotNil(t, resp.Error)

	var last struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	rpcResult(t, ts, "get_last_scan", nil, &last)
	require.False(t, last.Success)
	require.Contains(t, last.Error, "main store")
}

func TestFunctional_IncrementalMode(t *testing.T) {
	f := testserver.NewFixture(t)
	paths := f.Seed(3)
	ts := testserver.New(t, f, testserver.Options{Incremental: true})

	var first systemSummary
	rpcResult(t, ts, "get_system_summary", nil, &first)
	require.Equal(t, int64(3), first.TotalUploads, "first incremental pass sees every file")

	var unchanged systemSummary
	rpcResult(t, ts, "get_system_summary", map[string]any{"refresh": true}, &unchanged)
	require.Zero(t, unchanged.TotalUploads)
	require.Empty(t, unchanged.UploadDetails)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(paths[1], future, future))

	var changed systemSummary
	rpcResult(t, ts, "get_system_summary", map[string]any{"refresh": true}, &changed)
	require.Equal(t, int64(1), changed.TotalUploads)
	require.Equal(t, paths[1], changed.UploadDetails[0].DatabaseFile)

	var full systemSummary
	rpcResult(t, ts, "get_system_summary", map[string]any{"full": true}, &full)
	require.Equal(t, int64(3), full.TotalUploads)
}

func TestFunctional_MetadataLookups(t *testing.T) {
	f := testserver.NewFixture(t)
	clientID := f.AddClient("Acme")
	projectID := f.AddProject(clientID, "Catalog")
	dbID := f.AddDatabase(projectID, "main", f.CreateProjectDB("acme.db", 1, 1))
	ts := testserver.New(t, f, testserver.Options{})
	session := connectMCP(t, ts)

	var client struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(callTool(t, session, "get_client", map[string]any{"id": clientID}), &client))
	require.Equal(t, "Acme", client.Name)

	var database struct {
		ClientProjectID int    `json:"client_project_id"`
		FilePath        string `json:"file_path"`
	}
	require.NoError(t, json.Unmarshal(callTool(t, session, "get_project_database", map[string]any{"id": dbID}), &database))
	require.Equal(t, projectID, database.ClientProjectID)

	callTool(t, session, "get_client", map[string]any{"id": clientID})

	var stats struct {
		Keyspaces []struct {
			Kind    string `json:"kind"`
			Entries int    `json:"entries"`
			Hits    int64  `json:"hits"`
		} `json:"keyspaces"`
	}
	require.NoError(t, json.Unmarshal(callTool(t, session, "get_cache_stats", nil), &stats))
	require.Len(t, stats.Keyspaces, 3)
	require.Equal(t, "client", stats.Keyspaces[2].Kind)
	require.Equal(t, 1, stats.Keyspaces[2].Entries)
	require.Equal(t, int64(1), stats.Keyspaces[2].Hits)

	resp := rpcCall(t, ts, "get_client", map[string]any{"id": 999})
	require.NotNil(t, resp.Error)
	require.Equal(t, "NOT_FOUND", resp.Error.Data["code"])
}

func TestFunctional_Health(t *testing.T) {
	ts := testserver.New(t, testserver.NewFixture(t), testserver.Options{})

	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
