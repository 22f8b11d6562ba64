package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const rpcVersion = "2.0"

// Error codes carried in Response.Error. CodeApplication marks a tool that ran
// and reported a domain failure, such as an unknown scan id.
const (
	CodeParse          = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeApplication    = -32000
)

var (
	// ErrMalformedRequest means the body was not a single JSON object.
	ErrMalformedRequest = errors.New("malformed request body")
	// ErrInvalidEnvelope means the body decoded but is not a 2.0 call.
	ErrInvalidEnvelope = errors.New("invalid request envelope")
)

// Request is one tool call posted to /rpc. Params are passed to the handler
// undecoded.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Response carries either Result or Error, never both.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Tool arguments are ids, filters and flags; a megabyte is plenty.
const maxRequestBytes = 1 << 20

// ParseRequest decodes one call from body. Errors wrap ErrMalformedRequest
// or ErrInvalidEnvelope so the caller can pick the matching error code.
func ParseRequest(body io.Reader) (Request, error) {
	var req Request
	if err := json.NewDecoder(io.LimitReader(body, maxRequestBytes)).Decode(&req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	switch {
	case req.JSONRPC != rpcVersion:
		return Request{}, fmt.Errorf("%w: jsonrpc must be %q, got %q", ErrInvalidEnvelope, rpcVersion, req.JSONRPC)
	case req.Method == "":
		return Request{}, fmt.Errorf("%w: method is required", ErrInvalidEnvelope)
	}
	return req, nil
}

// parseErrorCode maps a ParseRequest failure to its error code.
func parseErrorCode(err error) int {
	if errors.Is(err, ErrMalformedRequest) {
		return CodeParse
	}
	return CodeInvalidRequest
}

func WriteResult(w http.ResponseWriter, id any, result any) {
	writeResponse(w, Response{JSONRPC: rpcVersion, Result: result, ID: id})
}

func WriteError(w http.ResponseWriter, id any, code int, message string, data any) {
	writeResponse(w, Response{
		JSONRPC: rpcVersion,
		Error:   &Error{Code: code, Message: message, Data: data},
		ID:      id,
	})
}

// writeResponse always answers 200; failures travel in the envelope.
func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
