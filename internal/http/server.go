package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"moneydrain/internal/core"
	"moneydrain/internal/log"
	"moneydrain/internal/middleware/ratelimit"
	"moneydrain/internal/middleware/security"
	"moneydrain/internal/middleware/trace"
	"moneydrain/internal/services"
)

// Ledger is the part of services.LedgerService the API serves.
type Ledger interface {
	AddTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, limit, offset int) ([]core.Transaction, error)
	ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	ClearTransactions(ctx context.Context) (int64, error)
	Balance(ctx context.Context) (core.Balance, error)
	MonthlyStats(ctx context.Context, year, month int) (core.MonthlyStats, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	CategoriesOfType(ctx context.Context, t core.TransactionType) ([]core.Category, error)
	AddCategory(ctx context.Context, n core.NewCategory) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	Dashboard(ctx context.Context) (services.Dashboard, error)
	ExportTransactions(ctx context.Context) ([]core.Transaction, error)
}

type Options struct {
	// RateLimitPerMinute caps writes per client IP. Zero uses the limiter
	// default.
	RateLimitPerMinute int
	// Currency is the ISO code used for formatted amounts.
	Currency string
	Logger   *log.Logger
}

type Server struct {
	http.Server
	ledger   Ledger
	currency string
	now      func() time.Time

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	started      time.Time
	failures     int64
	shutdownOnce sync.Once
}

// NewServer wires the middleware chain and routes around ledger.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.Logger == nil {
		opts.Logger = log.FromContext(context.Background()).WithComponent(log.ComponentHTTP)
	}

	detector := security.NewDetector()
	s := &Server{
		ledger:   ledger,
		currency: opts.Currency,
		now:      time.Now,
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, nil),
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, handleRateLimited, http.MethodPost, http.MethodDelete)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.ComponentMiddleware(log.ComponentHTTP)(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(opts.Logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/balance", s.handleBalance)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions", s.handleClearTransactions)
	mux.HandleFunc("GET /api/transactions/month", s.handleMonthTransactions)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports ready once the store answers a balance query.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.Balance(r.Context()); err != nil {
		ErrorResponse(http.StatusServiceUnavailable, "store not ready").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

type metricsView struct {
	UptimeSeconds      int64 `json:"uptimeSeconds"`
	Requests           int64 `json:"requests"`
	LastDurationMs     int64 `json:"lastDurationMs"`
	Failures           int64 `json:"failures"`
	SuspiciousRequests int64 `json:"suspiciousRequests"`
	InvalidIPAttempts  int64 `json:"invalidIpAttempts"`
	RateLimitHits      int64 `json:"rateLimitHits"`
	RateLimitClients   int64 `json:"rateLimitClients"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	dm := s.detector.GetMetrics()
	rm := s.limiter.GetMetrics()
	NewJSONResponse().Header("Cache-Control", "no-store").Body(metricsView{
		UptimeSeconds:      int64(time.Since(s.started).Seconds()),
		Requests:           tm.TotalRequests,
		LastDurationMs:     tm.LastDurationMs,
		Failures:           atomic.LoadInt64(&s.failures),
		SuspiciousRequests: dm.SuspiciousRequests,
		InvalidIPAttempts:  dm.InvalidIPAttempts,
		RateLimitHits:      rm.TotalHits,
		RateLimitClients:   rm.ClientCount,
	}).Write(w)
}

// fail writes err and counts server-side failures for /metrics.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if StatusForError(err) >= http.StatusInternalServerError {
		atomic.AddInt64(&s.failures, 1)
	}
	writeError(w, r, op, err)
}

// bodyErr classifies a body parse failure. Oversized bodies keep their own
// status; anything else is a client error.
func bodyErr(err error) error {
	if errors.Is(err, errBodyTooLarge) {
		return err
	}
	return &core.ValidationError{Field: "body", Err: err}
}
