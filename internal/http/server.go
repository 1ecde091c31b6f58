// Package http serves the finance JSON API consumed by the browser client,
// the remote records backend and finplan-cli.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finplan/internal/core"
	"finplan/internal/insights"
	"finplan/internal/log"
	"finplan/internal/middleware/ratelimit"
	"finplan/internal/middleware/security"
	"finplan/internal/middleware/trace"
	"finplan/internal/records"
	"finplan/internal/session"
)

// Finance is the record store plus the derived views the API exposes.
type Finance interface {
	records.Store
	Snapshot(ctx context.Context, user session.Identity, month core.Month) (insights.Snapshot, error)
	MonthlyExpenses(ctx context.Context, user session.Identity) (map[core.Month]core.Money, core.Money, error)
}

type Advisor interface {
	Enabled() bool
	Advise(ctx context.Context, snap insights.Snapshot) (string, error)
}

// SessionResolver asks an upstream session service who is logged in.
type SessionResolver interface {
	Current(ctx context.Context, cookies ...*http.Cookie) (session.Identity, error)
}

// Check is one readiness probe, e.g. a database ping.
type Check func(ctx context.Context) error

type Options struct {
	Finance  Finance
	Advisor  Advisor         // nil disables /api/advice
	Sessions SessionResolver // nil: /api/session answers only with DevEmail
	DevEmail string

	Logger    *log.Logger
	RateLimit ratelimit.Config
	Headers   security.HeadersConfig
	Checks    map[string]Check
}

type Server struct {
	http.Server
	finance  Finance
	advisor  Advisor
	sessions SessionResolver
	devEmail string

	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	checks   map[string]Check
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.RateLimit == (ratelimit.Config{}) {
		opts.RateLimit = ratelimit.DefaultConfig()
	}

	s := &Server{
		finance:  opts.Finance,
		advisor:  opts.Advisor,
		sessions: opts.Sessions,
		devEmail: opts.DevEmail,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
		checks:   opts.Checks,
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/fixed-expenses", s.handleGetFixedConfig)
	mux.HandleFunc("POST /api/fixed-expenses", s.handleSaveFixedConfig)
	mux.HandleFunc("GET /api/variable-expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/variable-expenses", s.handleAddExpense)
	mux.HandleFunc("DELETE /api/variable-expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/monthly-expenses", s.handleMonthlyExpenses)
	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("GET /api/advice", s.handleAdvice)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// outermost first: every request is traced, then screened, then throttled
	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(h)
	h = security.NewHeadersMiddleware(opts.Headers).Middleware(h)
	h = s.detector.Middleware(s.onSuspicious)(h)
	h = log.Middleware(logger)(s.tracer.Middleware(h))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// advice generation can take a while
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody("rate limit exceeded, try again later"))
}

func (s *Server) onSuspicious(r *http.Request) {
	s.logger.WarnContext(r.Context(), "Suspicious request blocked",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldUserAgent, r.UserAgent())
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
