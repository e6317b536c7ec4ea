// Package agentsvc implements the HTTP surface one Agent Service
// exposes: the A2A JSON-RPC endpoint, a liveness/readiness health
// check, and the agent-card well-known document, fronted by a
// per-client rate limiter.
package agentsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aixgo-dev/reviewmesh/internal/a2a"
	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/aixgo-dev/reviewmesh/pkg/observability"
	"github.com/aixgo-dev/reviewmesh/pkg/security"
	"github.com/aixgo-dev/reviewmesh/pkg/session"
)

// ServiceVersion is reported by /health. Bumped by hand on protocol changes.
const ServiceVersion = "0.1.0"

// Limiter is satisfied by both the in-process fallback
// (*security.RateLimiter, adapted via inProcessLimiter) and the
// Redis-backed *session.RedisLimiter.
type Limiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}

// inProcessLimiter adapts security.RateLimiter (context-free Allow) to
// the Limiter interface used here.
type inProcessLimiter struct {
	rl *security.RateLimiter
}

func (l inProcessLimiter) Allow(_ context.Context, clientID string) (bool, error) {
	return l.rl.Allow(clientID), nil
}

// NewInProcessLimiter wraps a security.RateLimiter as a Limiter.
func NewInProcessLimiter(requestsPerSecond float64, burst int) Limiter {
	return inProcessLimiter{rl: security.NewRateLimiter(requestsPerSecond, burst)}
}

// NewRedisLimiter wraps a session.RedisLimiter as a Limiter.
func NewRedisLimiter(rl *session.RedisLimiter) Limiter {
	return rl
}

// Server hosts a single Analyzer behind the A2A protocol.
type Server struct {
	analyzer      sentiment.Analyzer
	limiter       Limiter
	agentCardPath string
	defaultCategory string

	httpServer *http.Server
}

// Config configures a Server.
type Config struct {
	Port            int
	Analyzer        sentiment.Analyzer
	Limiter         Limiter
	AgentCardPath   string // optional; path to a JSON agent-card document
	DefaultCategory string
}

// New builds a Server ready to Start.
func New(cfg Config) *Server {
	return &Server{
		analyzer:        cfg.Analyzer,
		limiter:         cfg.Limiter,
		agentCardPath:   cfg.AgentCardPath,
		defaultCategory: cfg.DefaultCategory,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start installs the route table and serves until the process is
// signaled to stop or ListenAndServe otherwise returns.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/.well-known/agent.json", s.handleAgentCard)
	mux.Handle("/metrics", observability.MetricsHandler())
	s.httpServer.Handler = mux
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"agent":   s.analyzer.AgentType(),
		"version": ServiceVersion,
	})
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	if s.agentCardPath == "" {
		http.NotFound(w, r)
		return
	}
	data, err := os.ReadFile(s.agentCardPath)
	if os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}
	if err != nil || !json.Valid(data) {
		http.Error(w, "agent card unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req a2a.RpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, a2a.NewErrorResponse("", a2a.CodeInvalidParams, "malformed JSON-RPC request"))
		return
	}

	clientID := clientIdentity(r)
	if s.limiter != nil {
		ok, err := s.limiter.Allow(r.Context(), clientID)
		if err != nil || !ok {
			s.writeResponse(w, a2a.NewErrorResponse(req.ID, a2a.CodeInternalError, "rate limit exceeded"))
			return
		}
	}

	if errResp := a2a.Validate(req); errResp != nil {
		s.writeResponse(w, *errResp)
		return
	}

	reviewText, _ := a2a.ExtractText(req.Params.Message)
	params := sentiment.AnalyzerParams{ProductCategory: s.defaultCategory}
	if req.Params.Metadata != nil {
		if cat, ok := req.Params.Metadata["product_category"].(string); ok && cat != "" {
			params.ProductCategory = cat
		}
		if tokens, ok := req.Params.Metadata["max_tokens"].(float64); ok {
			params.MaxTokens = int(tokens)
		}
	}

	record := s.analyzer.Analyze(r.Context(), reviewText, params)
	observability.RecordAnalyzeCall(record.AgentType, string(record.Sentiment), record.Error != "", time.Since(start))

	outputText, err := json.Marshal(record)
	if err != nil {
		s.writeResponse(w, a2a.NewErrorResponse(req.ID, a2a.CodeInternalError, "failed to encode analysis result"))
		return
	}

	sessionID := fmt.Sprintf("%s-session-%s", s.analyzer.AgentType(), shortID(req.Params.ID))
	resp := a2a.NewA2AResponse(req.ID, req.Params.ID, string(outputText), sessionID, map[string]interface{}{
		"agent_type":       record.AgentType,
		"product_category": params.ProductCategory,
		"max_tokens":       params.MaxTokens,
		"sentiment":        record.Sentiment,
		"confidence":       record.Confidence,
	})
	s.writeResponse(w, resp)
}

func (s *Server) writeResponse(w http.ResponseWriter, resp a2a.RpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func clientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
