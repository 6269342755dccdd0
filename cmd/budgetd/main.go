package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"budgetly/internal/auth"
	"budgetly/internal/backend"
	"budgetly/internal/cli"
	"budgetly/internal/config"
	apphttp "budgetly/internal/http"
	"budgetly/internal/log"
	"budgetly/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	flags, err := cli.ParseFlags("budgetd", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	cfg, logger := cli.LoadConfig(flags, "budgetd", (*config.Config).Validate)
	if err := run(cfg, logger); err != nil {
		logger.Error("budgetd stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("session tokens: %w", err)
	}

	svcOpts := services.Options{
		StoreTimeout: cfg.StoreTimeout,
		Publisher:    be.Publisher,
		Logger:       logger,
	}
	accounts := services.NewAccountService(be.Store, auth.NewHasher(), tokens, svcOpts)
	ledger := services.NewLedgerService(be.Store, svcOpts)
	reports := services.NewReportService(be.Store, svcOpts)

	opts := apphttp.Options{
		Addr:           cfg.Addr(),
		BasePath:       cfg.APIBasePath,
		FrontendURL:    cfg.FrontendURL,
		CORSOrigin:     cfg.CORSOrigin,
		RateLimitRPM:   cfg.RateLimitRPM,
		TrustedProxies: cfg.TrustedProxies,
		Store:          be.Store,
		Logger:         logger,
	}
	if cfg.GoogleEnabled() {
		opts.Google = auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackURL:  cfg.GoogleCallbackURL,
		})
		opts.OAuthState = auth.NewStateStore(cfg.SessionKey, cfg.CookieSecure)
		logger.Info("Google sign-in enabled", "callback_url", cfg.GoogleCallbackURL)
	} else {
		logger.Info("Google sign-in disabled - no GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET provided")
	}

	srv, err := apphttp.NewServer(opts, accounts, ledger, reports)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgetly API",
			log.FieldOperation, log.OpStartup,
			"addr", srv.Addr,
			"base_path", cfg.APIBasePath,
			"backend", cfg.DataBackend,
			"events", be.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
