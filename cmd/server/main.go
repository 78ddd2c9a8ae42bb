package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/prrules/internal/catalog"
	"github.com/liamcoop/prrules/internal/config"
	"github.com/liamcoop/prrules/internal/logger"
	"github.com/liamcoop/prrules/internal/metrics"
	"github.com/liamcoop/prrules/report"
	"github.com/liamcoop/prrules/rules"
)

type Server struct {
	store  rules.RuleStore
	cache  *rules.CatalogCache
	engine *rules.Engine
	router *chi.Mux
}

// NewServer creates a server evaluating against store. The catalog is cached
// for cacheTTL (0 keeps it until a rule is added).
func NewServer(store rules.RuleStore, cacheTTL time.Duration) (*Server, error) {
	engine, err := rules.NewEngine()
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:  store,
		cache:  rules.NewCatalogCache(cacheTTL),
		engine: engine,
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/evaluate", s.handleEvaluate)

	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Get("/active", s.handleListRules)
		r.Get("/category/{category}", s.handleListRulesByCategory)
		r.Post("/", s.handleCreateRule)
		r.Get("/{ruleId}", s.handleGetRule)
		r.Put("/{ruleId}", s.handleUpdateRule)
		r.Delete("/{ruleId}", s.handleDeleteRule)
	})

	r.Handle("/metrics", promhttp.Handler())

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ruleCatalog, err := s.cache.Load(s.store)
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"rulesLoaded": len(ruleCatalog),
	})
}

// EvaluateRequest is the body of POST /api/v1/evaluate. Record values may be
// JSON strings, numbers or booleans; null values are treated as absent.
type EvaluateRequest struct {
	Records []map[string]any `json:"records"`
}

// EvaluateResponse is the reply to POST /api/v1/evaluate
type EvaluateResponse struct {
	RunID          string              `json:"runId"`
	Results        []rules.MatchResult `json:"results"`
	Summary        SummaryResponse     `json:"summary"`
	EvaluationTime string              `json:"evaluationTime"`
}

// SummaryResponse carries the run counters
type SummaryResponse struct {
	RecordsProcessed   int     `json:"recordsProcessed"`
	RuleChecks         int     `json:"ruleChecks"`
	AutomatableMatches int     `json:"automatableMatches"`
	AutomatablePercent float64 `json:"automatablePercent"`
}

// Evaluation handler
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeDecode).Inc()
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Records == nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeDecode).Inc()
		respondError(w, http.StatusBadRequest, "records are required", nil)
		return
	}

	ruleCatalog, err := s.cache.Load(s.store)
	if err != nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeCatalog).Inc()
		respondError(w, http.StatusInternalServerError, "failed to load rules", err)
		return
	}

	records := make([]rules.Record, 0, len(req.Records))
	for _, raw := range req.Records {
		records = append(records, toRecord(raw))
	}

	startTime := time.Now()
	run := s.engine.MatchAll(records, ruleCatalog)
	evaluationTime := time.Since(startTime)

	metrics.ObserveRun(run)
	metrics.EvaluationDuration.Observe(evaluationTime.Seconds())

	summary := report.Summarize(run, "")
	respondJSON(w, http.StatusOK, EvaluateResponse{
		RunID:   uuid.NewString(),
		Results: run.Results,
		Summary: SummaryResponse{
			RecordsProcessed:   summary.Records,
			RuleChecks:         summary.Checks,
			AutomatableMatches: summary.AutomatableMatches,
			AutomatablePercent: summary.AutomatablePercent,
		},
		EvaluationTime: evaluationTime.String(),
	})
}

// toRecord flattens a decoded JSON object into string cells
func toRecord(raw map[string]any) rules.Record {
	rec := make(rules.Record, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			rec[k] = val
		case json.Number:
			rec[k] = val.String()
		case bool:
			rec[k] = strconv.FormatBool(val)
		default:
			rec[k] = fmt.Sprint(val)
		}
	}
	return rec
}

// List rules handler
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	ruleCatalog, err := s.cache.Load(s.store)
	if err != nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeCatalog).Inc()
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rules": ruleCatalog,
	})
}

// List rules by category handler
func (s *Server) handleListRulesByCategory(w http.ResponseWriter, r *http.Request) {
	ruleCatalog, err := s.cache.Load(s.store)
	if err != nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeCatalog).Inc()
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rules": rules.FilterByCategory(ruleCatalog, chi.URLParam(r, "category")),
	})
}

// Get rule handler
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	rule, err := s.store.Get(ruleID)
	if errors.Is(err, rules.ErrRuleNotFound) {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}
	if err != nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeStore).Inc()
		respondError(w, http.StatusInternalServerError, "failed to get rule", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

// Create rule handler
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeDecode).Inc()
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := rules.ValidateRule(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule", err)
		return
	}

	err := s.store.Add(&rule)
	if errors.Is(err, rules.ErrRuleExists) {
		respondError(w, http.StatusConflict, "rule already exists", err)
		return
	}
	if err != nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeStore).Inc()
		respondError(w, http.StatusInternalServerError, "failed to create rule", err)
		return
	}

	// Invalidate cache since the catalog changed
	s.cache.Invalidate()

	respondJSON(w, http.StatusCreated, rule)
}

// Update rule handler
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeDecode).Inc()
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if rule.ID == "" {
		rule.ID = ruleID
	}
	if rule.ID != ruleID {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("rule_id %q does not match path %q", rule.ID, ruleID), nil)
		return
	}

	if err := rules.ValidateRule(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule", err)
		return
	}

	err := s.store.Update(&rule)
	if errors.Is(err, rules.ErrRuleNotFound) {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}
	if err != nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeStore).Inc()
		respondError(w, http.StatusInternalServerError, "failed to update rule", err)
		return
	}

	s.cache.Invalidate()

	respondJSON(w, http.StatusOK, rule)
}

// Delete rule handler
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	err := s.store.Delete(ruleID)
	if errors.Is(err, rules.ErrRuleNotFound) {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}
	if err != nil {
		metrics.RequestErrors.WithLabelValues(metrics.ErrorTypeStore).Inc()
		respondError(w, http.StatusInternalServerError, "failed to delete rule", err)
		return
	}

	s.cache.Invalidate()

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func main() {
	cfg, err := config.LoadConfig(os.Getenv("PRRULES_CONFIG"))
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config", "error", err)
	}

	err = logger.Setup(context.Background(), logger.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OTEL:        cfg.Log.OTEL,
		ServiceName: cfg.Log.ServiceName,
	})
	if err != nil {
		logger.Fatal("Failed to create logger", "error", err)
	}

	store, closeStore, err := catalog.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to open rule store", "source", cfg.Rules.Source, "error", err)
	}
	defer closeStore()

	server, err := NewServer(store, cfg.Rules.CacheTTL)
	if err != nil {
		logger.Fatal("Failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("Server starting", "addr", cfg.Server.Addr, "source", cfg.Rules.Source)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	_ = logger.Shutdown(ctx)

	logger.Info("Server stopped")
}
