package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/Cenotaph26/trading-botv5/internal/config"
	"github.com/Cenotaph26/trading-botv5/internal/engine"
	"github.com/Cenotaph26/trading-botv5/internal/logger"
	"github.com/Cenotaph26/trading-botv5/internal/monitoring"
	"github.com/Cenotaph26/trading-botv5/pkg/reporting"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

const (
	defaultKlineSymbol   = "BTCUSDT"
	defaultKlineInterval = "5m"
	defaultKlineLimit    = 80
	maxKlineLimit        = 1000
	maxBodyBytes         = 1 << 16
)

// Engine is the control surface the API drives.
type Engine interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
	Snapshot() engine.Snapshot
	Debug() engine.Debug
	Trades() []reporting.Trade
	LogEvent(level, msg string)
}

// CandleSource serves chart candles.
type CandleSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)
}

// Server represents the HTTP API server
type Server struct {
	cfg        config.ServerConfig
	engine     Engine
	candles    CandleSource
	risk       *config.RiskStore
	health     http.Handler
	log        *logger.Logger
	router     *mux.Router
	httpServer *http.Server

	// baseCtx outlives requests; the engine loops started from /api/start
	// run under it.
	baseCtx context.Context
}

// NewServer creates a new API server
func NewServer(
	baseCtx context.Context,
	cfg config.ServerConfig,
	eng Engine,
	candles CandleSource,
	risk *config.RiskStore,
	health http.Handler,
	log *logger.Logger,
) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		engine:  eng,
		candles: candles,
		risk:    risk,
		health:  health,
		log:     log,
		baseCtx: baseCtx,
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	s.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	api := s.router.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/start", s.handleStart).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/stop", s.handleStop).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/klines", s.handleKlines).Methods(http.MethodGet)
	api.HandleFunc("/debug", s.handleDebug).Methods(http.MethodGet)
	api.HandleFunc("/risk", s.handleRisk).Methods(http.MethodPost)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	s.router.Handle("/metrics", monitoring.MetricsHandler()).Methods(http.MethodGet)
	if s.health != nil {
		s.router.Handle("/health", s.health).Methods(http.MethodGet)
	}
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(s.router)
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening on %s", s.cfg.Addr())
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		if strings.Contains(err.Error(), "address already in use") {
			return fmt.Errorf("port %d is already in use, pick another with --port", s.cfg.Port)
		}
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error("panic recovered on %s: %v", r.URL.Path, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Start(s.baseCtx); err != nil && !errors.Is(err, engine.ErrAlreadyRunning) {
		s.log.LogError("start", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeText(w, "ok")
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	writeText(w, "ok")
}

func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sym := q.Get("sym")
	if sym == "" {
		sym = defaultKlineSymbol
	}
	tf := q.Get("tf")
	if tf == "" {
		tf = defaultKlineInterval
	}
	limit := defaultKlineLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid limit"})
			return
		}
		limit = min(n, maxKlineLimit)
	}

	klines, err := s.candles.Klines(r.Context(), strings.ToUpper(sym), tf, limit)
	if err != nil {
		s.log.LogWarning("klines", "%s %s: %v", sym, tf, err)
	}
	if klines == nil {
		klines = []types.OHLCV{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"klines": klines})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Debug())
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid JSON body"})
		return
	}

	applied, err := s.risk.Apply(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	if len(applied) > 0 {
		sort.Strings(applied)
		s.engine.LogEvent(engine.LevelSuccess, "Risk settings updated: "+strings.Join(applied, ", "))
		s.log.Info("risk settings updated: %v", body)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "risk": s.risk.Get()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("trades_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := reporting.WriteJournalXLSX(w, s.engine.Trades()); err != nil {
		s.log.LogError("export", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(body))
}
