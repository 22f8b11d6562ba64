package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rpggio/inventory/internal/cache"
	"github.com/rpggio/inventory/internal/domain/inventory"
	"github.com/rpggio/inventory/internal/domain/summary"
	"github.com/rpggio/inventory/internal/history"
	"github.com/rpggio/inventory/internal/repository"
)

// ScanService runs scans and remembers the latest successful summary.
type ScanService interface {
	RunOnce(ctx context.Context) (*summary.SystemSummary, error)
	RunFull(ctx context.Context) (*summary.SystemSummary, error)
	Latest() *summary.SystemSummary
}

// HistoryService reads recorded scans.
type HistoryService interface {
	GetHistory(ctx context.Context, limit int) ([]history.ScanHistoryEntry, error)
	GetLastScan(ctx context.Context) (*history.ScanHistoryEntry, error)
	GetScan(ctx context.Context, id int64) (*history.ScanHistoryEntry, error)
	CompareLatest(ctx context.Context) (*history.ScanDiff, error)
	CompareByID(ctx context.Context, oldID, newID int64) (*history.ScanDiff, error)
}

// MetadataCache defines the metadata cache operations needed by MCP.
type MetadataCache interface {
	GetClient(ctx context.Context, src cache.ClientGetter, id int) (*inventory.Client, error)
	GetClientProject(ctx context.Context, src cache.ClientProjectGetter, id int) (*inventory.ClientProject, error)
	GetProjectDatabase(ctx context.Context, src cache.ProjectDatabaseGetter, id int) (*inventory.ProjectDatabase, error)
	InvalidateClient(id int)
	InvalidateClientProject(id int)
	InvalidateProjectDatabase(id int)
	Clear()
	Stats() []cache.KeyspaceStats
}

// Services contains everything the tools read from.
type Services struct {
	Scans    ScanService
	History  HistoryService
	Cache    MetadataCache
	Metadata repository.MetadataRepository
}

// Handler dispatches MCP commands.
type Handler struct {
	scans    ScanService
	history  HistoryService
	cache    MetadataCache
	metadata repository.MetadataRepository
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services) *Handler {
	return &Handler{
		scans:    services.Scans,
		history:  services.History,
		cache:    services.Cache,
		metadata: services.Metadata,
	}
}

// Handle dispatches a tool call. Errors the caller can act on are returned
// as *APIError.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	result, err := h.handle(ctx, method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "get_system_summary":
		var req GetSystemSummaryParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		s, err := h.currentSummary(ctx, req.Refresh, req.Full)
		if err != nil {
			return nil, err
		}
		filter := summary.Filter{
			Status:        req.Status,
			Search:        req.Search,
			CreatedAfter:  req.CreatedAfter,
			CreatedBefore: req.CreatedBefore,
			SortBy:        req.SortBy,
			SortDesc:      req.SortDesc,
			Limit:         req.Limit,
		}
		return filter.Apply(s), nil
	case "get_scan_history":
		var req GetScanHistoryParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		entries, err := h.history.GetHistory(ctx, req.Limit)
		if err != nil {
			return nil, err
		}
		if !req.IncludeDetails {
			for i := range entries {
				entries[i].Summary = withoutDetails(entries[i].Summary)
			}
		}
		return ScanHistoryResponse{Scans: entries, Count: len(entries)}, nil
	case "get_last_scan":
		return h.history.GetLastScan(ctx)
	case "get_scan":
		var req GetScanParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.history.GetScan(ctx, req.ID)
	case "compare_scans":
		var req CompareScansParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.OldID == 0 && req.NewID == 0 {
			return h.history.CompareLatest(ctx)
		}
		return h.history.CompareByID(ctx, req.OldID, req.NewID)
	case "get_client":
		var req GetByIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.cache.GetClient(ctx, h.metadata, req.ID)
	case "get_client_project":
		var req GetByIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.cache.GetClientProject(ctx, h.metadata, req.ID)
	case "get_project_database":
		var req GetByIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.cache.GetProjectDatabase(ctx, h.metadata, req.ID)
	case "invalidate_metadata":
		var req InvalidateMetadataParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		switch req.Kind {
		case cache.KindDatabase:
			h.cache.InvalidateProjectDatabase(req.ID)
		case cache.KindProject:
			h.cache.InvalidateClientProject(req.ID)
		case cache.KindClient:
			h.cache.InvalidateClient(req.ID)
		}
		return InvalidateMetadataResponse{Kind: req.Kind, ID: req.ID, Invalidated: true}, nil
	case "clear_metadata_cache":
		h.cache.Clear()
		return ClearCacheResponse{Cleared: true}, nil
	case "get_cache_stats":
		return newCacheStatsResponse(h.cache.Stats()), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, method)
	}
}

// currentSummary returns the latest summary, scanning when asked to or when
// nothing has been scanned yet.
func (h *Handler) currentSummary(ctx context.Context, refresh, full bool) (*summary.SystemSummary, error) {
	if full {
		return h.scans.RunFull(ctx)
	}
	if !refresh {
		if latest := h.scans.Latest(); latest != nil {
			return latest, nil
		}
	}
	return h.scans.RunOnce(ctx)
}

func withoutDetails(s *summary.SystemSummary) *summary.SystemSummary {
	if s == nil {
		return nil
	}
	out := *s
	out.UploadDetails = []summary.UploadSummary{}
	return &out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func decodeParams(params json.RawMessage, out any) error {
	if len(params) > 0 {
		if err := json.Unmarshal(params, out); err != nil {
			return &APIError{Code: CodeInvalidInput, Message: fmt.Sprintf("invalid arguments: %v", err)}
		}
	}
	if err := validate.Struct(out); err != nil {
		return invalidInput(err)
	}
	return nil
}

func invalidInput(err error) *APIError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &APIError{Code: CodeInvalidInput, Message: err.Error()}
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return &APIError{
		Code:         CodeInvalidInput,
		Message:      "invalid arguments: " + strings.Join(fields, "; "),
		Details:      fields,
		RecoveryHint: "Check the tool input schema",
	}
}
