package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition describes a callable tool
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func idSchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"description": description,
			},
		},
		"required": []string{"id"},
	}
}

func emptySchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Scans
		{
			Name:        "get_system_summary",
			Description: "Get the inventory summary: upload counts by status, nomenclature and counterparty totals, and per-upload details. Returns the latest scan unless refresh or full is set.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"refresh": map[string]any{
						"type":        "boolean",
						"description": "Run a new scan in the configured mode before answering",
					},
					"full": map[string]any{
						"type":        "boolean",
						"description": "Run a new full scan, ignoring incremental mode",
					},
					"status": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Only include uploads with these statuses (completed, failed, in_progress)",
					},
					"search": map[string]any{
						"type":        "string",
						"description": "Case-insensitive match on upload name, uuid or database file",
					},
					"created_after": map[string]any{
						"type":        "string",
						"format":      "date-time",
						"description": "Only include uploads started at or after this RFC 3339 time",
					},
					"created_before": map[string]any{
						"type":        "string",
						"format":      "date-time",
						"description": "Only include uploads started at or before this RFC 3339 time",
					},
					"sort_by": map[string]any{
						"type":        "string",
						"enum":        []string{"created_at", "name", "nomenclature", "counterparties"},
						"description": "Sort upload details by this key",
					},
					"sort_desc": map[string]any{
						"type":        "boolean",
						"description": "Sort descending",
					},
					"limit": map[string]any{
						"type":        "integer",
						"minimum":     0,
						"description": "Maximum number of upload details to return (0 = all)",
					},
				},
			},
		},

		// History
		{
			Name:        "get_scan_history",
			Description: "List recorded scans, most recent first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit": map[string]any{
						"type":        "integer",
						"minimum":     0,
						"description": "Maximum number of scans (default 50, at most 1000)",
					},
					"include_details": map[string]any{
						"type":        "boolean",
						"description": "Include per-upload details in each summary",
					},
				},
			},
		},
		{
			Name:        "get_last_scan",
			Description: "Get the most recent recorded scan",
			InputSchema: emptySchema(),
		},
		{
			Name:        "get_scan",
			Description: "Get one recorded scan by id",
			InputSchema: idSchema("Scan id from get_scan_history"),
		},
		{
			Name:        "compare_scans",
			Description: "Compare two recorded scans. Without ids, compares the two most recent scans.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"old_id": map[string]any{
						"type":        "integer",
						"minimum":     1,
						"description": "Older scan id (requires new_id)",
					},
					"new_id": map[string]any{
						"type":        "integer",
						"minimum":     1,
						"description": "Newer scan id (requires old_id)",
					},
				},
			},
		},

		// Metadata
		{
			Name:        "get_client",
			Description: "Get a client from the service store (cached)",
			InputSchema: idSchema("Client id"),
		},
		{
			Name:        "get_client_project",
			Description: "Get a client project from the service store (cached)",
			InputSchema: idSchema("Client project id"),
		},
		{
			Name:        "get_project_database",
			Description: "Get a project database, including its file path, from the service store (cached)",
			InputSchema: idSchema("Project database id"),
		},
		{
			Name:        "invalidate_metadata",
			Description: "Drop one cached metadata entry so the next lookup reads the service store",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind": map[string]any{
						"type":        "string",
						"enum":        []string{"database", "project", "client"},
						"description": "Entity kind",
					},
					"id": map[string]any{
						"type":        "integer",
						"minimum":     1,
						"description": "Entity id",
					},
				},
				"required": []string{"kind", "id"},
			},
		},
		{
			Name:        "clear_metadata_cache",
			Description: "Drop every cached metadata entry",
			InputSchema: emptySchema(),
		},
		{
			Name:        "get_cache_stats",
			Description: "Get metadata cache hit, miss and entry counts per entity kind",
			InputSchema: emptySchema(),
		},
	}
}

func registerTools(server *sdkmcp.Server, handler *Handler, logger *slog.Logger) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			result, err := handler.Handle(ctx, name, args)
			if err != nil {
				if logger != nil {
					logger.Debug("tool call failed", "tool", name, "error", err)
				}
				return errorResult(err), nil
			}
			return textResult(result)
		})
	}
}

func textResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) *sdkmcp.CallToolResult {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = &APIError{Code: CodeInternal, Message: err.Error()}
	}
	data, marshalErr := json.Marshal(apiErr)
	if marshalErr != nil {
		data = []byte(apiErr.Error())
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}
