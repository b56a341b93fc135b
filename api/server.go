// Package api provides the read-only HTTP API of krxvalue.
//
// It exposes quotes, resolved financial statements, S-RIM valuations and
// rendered reports for KRX tickers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/seenimoa/krxvalue/internal/analysis/fundamental"
	"github.com/seenimoa/krxvalue/internal/datasource"
	"github.com/seenimoa/krxvalue/internal/engine"
	"github.com/seenimoa/krxvalue/internal/report"
	"github.com/seenimoa/krxvalue/pkg/utils"
)

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	engine     *engine.Engine
	validate   *validator.Validate
	version    string
	configFile string

	// mu guards the valuation defaults changed through PUT /config.
	mu sync.RWMutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithVersion sets the version reported by /health.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// WithConfigFile records the path of the active config file for /config.
func WithConfigFile(path string) ServerOption {
	return func(s *Server) { s.configFile = path }
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(eng *engine.Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine:   eng,
		validate: validator.New(),
		version:  "dev",
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("api server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if o := s.engine.Config().API.CORSOrigins; len(o) > 0 {
		origins = o
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/quote/{ticker}", s.handleQuote)
		r.Get("/financials/{ticker}", s.handleFinancials)
		r.Get("/valuation/{ticker}", s.handleValuation)
		r.Post("/valuation/batch", s.handleBatch)
		r.Get("/report/{ticker}", s.handleReport)

		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)
	})

	return r
}

// requestLogger logs each request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ValuationQuery holds the optional query parameters of a valuation.
type ValuationQuery struct {
	RequiredReturn float64 `validate:"gt=0,lte=100"`
	Periods        int     `validate:"min=1,max=10"`
	Basis          string  `validate:"oneof=annual quarterly"`
}

// BatchRequest is the body for POST /api/v1/valuation/batch.
type BatchRequest struct {
	Tickers        []string `json:"tickers"         validate:"required,min=1,max=50,dive,required"`
	RequiredReturn float64  `json:"required_return" validate:"omitempty,gt=0,lte=100"`
	Periods        int      `json:"periods"         validate:"omitempty,min=1,max=10"`
	Basis          string   `json:"basis"           validate:"omitempty,oneof=annual quarterly"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":        "ok",
			"version":       s.version,
			"market_status": utils.MarketStatus(),
			"time_kst":      utils.FormatDateTimeKST(utils.NowKST()),
		},
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := s.engine.Quote(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeFetchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    quote,
	})
}

func (s *Server) handleFinancials(w http.ResponseWriter, r *http.Request) {
	series, err := s.engine.Financials(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeFetchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    report.NewFinancialsDoc(series),
	})
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	opts, err := s.valuationOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.engine.Analyze(r.Context(), chi.URLParam(r, "ticker"), opts)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    report.NewDocument(a),
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	opts := s.defaultOptions()
	if req.RequiredReturn > 0 {
		opts.RequiredReturn = req.RequiredReturn
	}
	if req.Periods > 0 {
		opts.AveragePeriods = req.Periods
	}
	if req.Basis != "" {
		opts.Basis = fundamental.Basis(req.Basis)
	}

	results, err := s.engine.AnalyzeBatch(r.Context(), req.Tickers, opts)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	entries := make([]report.BatchEntry, len(results))
	for i, res := range results {
		entries[i] = report.BatchEntry{Ticker: res.Ticker, Analysis: res.Analysis, Error: res.Error}
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    report.NewBatchDocs(entries),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := s.valuationOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.engine.Analyze(r.Context(), chi.URLParam(r, "ticker"), opts)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	body, err := report.Generate(a, format, report.DefaultOptions())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("X-Query-ID", a.QueryID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Warn().Err(err).Msg("failed to write report")
	}
}

// ============================================================
// Helpers
// ============================================================

// defaultOptions returns the valuation defaults of the running config.
func (s *Server) defaultOptions() fundamental.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.DefaultOptions()
}

// valuationOptions overlays the rrr, periods and basis query parameters on
// the configured defaults.
func (s *Server) valuationOptions(r *http.Request) (fundamental.Options, error) {
	opts := s.defaultOptions()
	q := r.URL.Query()

	vq := ValuationQuery{
		RequiredReturn: opts.RequiredReturn,
		Periods:        opts.AveragePeriods,
		Basis:          string(opts.Basis),
	}
	if v := q.Get("rrr"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil {
			return opts, fmt.Errorf("invalid rrr %q", v)
		}
		vq.RequiredReturn = f
	}
	if v := q.Get("periods"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("invalid periods %q", v)
		}
		vq.Periods = n
	}
	if v := q.Get("basis"); v != "" {
		vq.Basis = strings.ToLower(v)
	}
	if err := s.validate.Struct(vq); err != nil {
		return opts, errors.New(validationMessage(err))
	}

	opts.RequiredReturn = vq.RequiredReturn
	opts.AveragePeriods = vq.Periods
	opts.Basis = fundamental.Basis(vq.Basis)
	return opts, nil
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return "invalid parameters: " + strings.Join(msgs, "; ")
}

// writeFetchError maps engine and data source errors to HTTP statuses.
func writeFetchError(w http.ResponseWriter, err error) {
	var httpErr *datasource.ErrHTTP
	switch {
	case errors.Is(err, datasource.ErrTickerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNoTickers):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, datasource.ErrRateLimited), errors.As(err, &httpErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
