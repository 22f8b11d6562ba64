package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MCPHandler handles MCP method dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// ReadinessChecker reports whether a dependency is usable. Status is one of
// "ok", "degraded" or "fail".
type ReadinessChecker interface {
	CheckReady(ctx context.Context) (status, message string)
}

// Options selects what the router serves. Nil fields disable their route.
type Options struct {
	// Handler serves plain JSON-RPC tool calls on POST /rpc.
	Handler MCPHandler
	// MCP serves the MCP streamable HTTP transport on /mcp.
	MCP    http.Handler
	Ready  ReadinessChecker
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	handler MCPHandler
	ready   ReadinessChecker
}

// NewServer creates an HTTP server router with middleware.
func NewServer(opts Options) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if opts.Logger != nil {
		r.Use(requestLogger(opts.Logger))
	}

	srv := &Server{handler: opts.Handler, ready: opts.Ready}

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
	}
	if opts.Handler != nil {
		r.Post("/rpc", srv.handleRPC)
	}
	r.Get("/health", srv.handleHealth)
	r.Get("/health/ready", srv.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type readyResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if s.ready != nil {
		resp.Status, resp.Message = s.ready.CheckReady(r.Context())
	}

	code := http.StatusOK
	if resp.Status == "fail" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// codedError is implemented by errors that carry a client-facing code.
type codedError interface {
	error
	CodeValue() string
	MessageValue() string
	DetailsValue() any
	RecoveryHintValue() string
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		WriteError(w, nil, parseErrorCode(err), err.Error(), nil)
		return
	}

	result, err := s.handler.Handle(r.Context(), req.Method, req.Params)
	if err != nil {
		var coded codedError
		if errors.As(err, &coded) {
			WriteError(w, req.ID, rpcCode(coded.CodeValue()), coded.MessageValue(), errorData{
				Code:         coded.CodeValue(),
				Details:      coded.DetailsValue(),
				RecoveryHint: coded.RecoveryHintValue(),
			})
			return
		}
		WriteError(w, req.ID, CodeInternal, err.Error(), nil)
		return
	}

	WriteResult(w, req.ID, result)
}

type errorData struct {
	Code         string `json:"code"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func rpcCode(code string) int {
	switch code {
	case "UNKNOWN_TOOL":
		return CodeMethodNotFound
	case "INVALID_INPUT":
		return CodeInvalidParams
	case "INTERNAL":
		return CodeInternal
	default:
		return CodeApplication
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
		})
	}
}
