package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpggio/inventory/internal/history"
	"github.com/rpggio/inventory/internal/repository"
)

// ErrUnknownTool is returned by Handle for a method it does not serve.
var ErrUnknownTool = errors.New("unknown tool")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// Error codes returned to clients.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeScanNotFound     = "SCAN_NOT_FOUND"
	CodeHistoryEmpty     = "HISTORY_EMPTY"
	CodeNotEnoughHistory = "NOT_ENOUGH_HISTORY"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeUnknownTool      = "UNKNOWN_TOOL"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL"
)

// MapError maps domain errors to MCP error codes. It returns nil for errors
// it does not recognize.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, history.ErrScanNotFound):
		return &APIError{Code: CodeScanNotFound, Message: err.Error(), RecoveryHint: "List recorded scans with get_scan_history"}
	case errors.Is(err, history.ErrHistoryEmpty):
		return &APIError{Code: CodeHistoryEmpty, Message: "no scans recorded yet", RecoveryHint: "Call get_system_summary with refresh=true"}
	case errors.Is(err, history.ErrNotEnoughHistory):
		return &APIError{Code: CodeNotEnoughHistory, Message: "at least two scans are needed", RecoveryHint: "Run another scan first"}
	case errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: CodeNotFound, Message: "entity not found", RecoveryHint: "Check the id"}
	case errors.Is(err, repository.ErrInvalidInput):
		return &APIError{Code: CodeInvalidInput, Message: err.Error()}
	case errors.Is(err, ErrUnknownTool):
		return &APIError{Code: CodeUnknownTool, Message: err.Error(), RecoveryHint: "List tools to see what is available"}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Code: CodeTimeout, Message: err.Error(), RecoveryHint: "Retry with incremental scanning or a longer scan timeout"}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
