package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"budgetly/internal/auth"
	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/middleware/ratelimit"
	"budgetly/internal/middleware/security"
	"budgetly/internal/middleware/trace"
	"budgetly/internal/services"
)

const readyTimeout = 2 * time.Second

type (
	AccountService interface {
		SessionVerifier
		Register(ctx context.Context, in services.RegisterInput) (services.AuthResult, error)
		Login(ctx context.Context, username, password string) (services.AuthResult, error)
		FederatedLogin(ctx context.Context, p auth.Profile) (services.AuthResult, error)
		Me(ctx context.Context, userID string) (core.PublicUser, error)
		UpdatePassword(ctx context.Context, userID, newPassword string) error
		DeleteAccount(ctx context.Context, userID string) error
	}

	LedgerService interface {
		List(ctx context.Context, ownerID string) ([]core.BudgetEntry, error)
		Add(ctx context.Context, ownerID string, in core.EntryFields) (core.BudgetEntry, error)
		Update(ctx context.Context, ownerID, entryID string, in core.EntryFields) (core.BudgetEntry, error)
		Delete(ctx context.Context, ownerID, entryID string) error
	}

	ReportService interface {
		Generate(ctx context.Context, ownerID string, order core.ReportOrder) ([]core.ReportRow, error)
	}

	// Pinger reports whether the store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Options configures the API surface.
type Options struct {
	Addr           string
	BasePath       string
	FrontendURL    string
	CORSOrigin     string
	RateLimitRPM   int
	TrustedProxies []string

	// Google is nil when Google sign-in is not configured.
	Google     auth.ProfileProvider
	OAuthState *auth.StateStore

	Store  Pinger
	Logger *log.Logger
}

// Server wraps http.Server with the services behind the JSON API.
type Server struct {
	http.Server

	accounts AccountService
	ledger   LedgerService
	reports  ReportService
	store    Pinger

	google      auth.ProfileProvider
	oauthState  *auth.StateStore
	frontendURL string

	logger   *log.Logger
	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, accounts AccountService, ledger LedgerService, reports ReportService) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	}

	google := opts.Google
	if google != nil && opts.OAuthState == nil {
		return nil, fmt.Errorf("google login requires an OAuth state store")
	}

	s := &Server{
		accounts:    accounts,
		ledger:      ledger,
		reports:     reports,
		store:       opts.Store,
		google:      google,
		oauthState:  opts.OAuthState,
		frontendURL: strings.TrimRight(opts.FrontendURL, "/"),
		logger:      logger.WithComponent(log.ComponentHTTP),
		detector:    detector,
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		tracer:      trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	s.routes(mux, strings.TrimRight(opts.BasePath, "/"))

	s.Server = http.Server{
		Addr: opts.Addr,
		Handler: chain(mux,
			s.tracer.Middleware,
			security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
			security.CORS(opts.CORSOrigin),
			detector.Middleware,
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux, base string) {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return requireAuth(s.accounts, h)
	}

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /healthz", handleLive)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("POST "+base+"/auth/register", limited(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST "+base+"/auth/login", limited(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("GET "+base+"/auth/google", s.handleGoogleStart)
	mux.HandleFunc("GET "+base+"/auth/google/callback", s.handleGoogleCallback)
	mux.HandleFunc("GET "+base+"/auth/me", authed(s.handleMe))
	mux.HandleFunc("PUT "+base+"/auth/profile", authed(s.handleUpdateProfile))
	mux.HandleFunc("DELETE "+base+"/auth/profile", authed(s.handleDeleteProfile))

	mux.HandleFunc("GET "+base+"/budget", authed(s.handleListBudgets))
	mux.HandleFunc("POST "+base+"/budget", authed(s.handleCreateBudget))
	mux.HandleFunc("GET "+base+"/budget/report", authed(s.handleReport))
	mux.HandleFunc("PUT "+base+"/budget/{id}", authed(s.handleUpdateBudget))
	mux.HandleFunc("DELETE "+base+"/budget/{id}", authed(s.handleDeleteBudget))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
	)
	writeMessage(w, http.StatusTooManyRequests, "Too many requests, please try again later")
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()

		traced := s.tracer.GetMetrics()
		limited := s.limiter.GetMetrics()
		s.logger.InfoContext(ctx, "HTTP server shutting down",
			log.FieldOperation, log.OpShutdown,
			"total_requests", traced.TotalRequests,
			"server_errors", traced.ServerErrors,
			"rate_limited", limited.TotalHits,
			"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests,
		)

		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK", "message": "Server is running"})
}

func handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			writeMessage(w, http.StatusServiceUnavailable, "Store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
