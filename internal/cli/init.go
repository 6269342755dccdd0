// Package cli provides common CLI initialization utilities shared by
// cmd/budgetd and cmd/ledger-events.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"budgetly/internal/config"
	"budgetly/internal/log"
)

const DefaultEnvFile = ".env"

// Flags are the command-line options common to every binary. Flags
// override the matching environment variables.
type Flags struct {
	EnvFile  string
	Port     string
	LogLevel string

	envFileSet bool
}

// ParseFlags parses args (without the program name). -h/--help prints the
// usage and returns pflag.ErrHelp.
func ParseFlags(name string, args []string) (Flags, error) {
	var f Flags
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(&f.EnvFile, "env-file", DefaultEnvFile, "dotenv file to load before reading the environment")
	flagSet.StringVarP(&f.Port, "port", "p", "", "listen port (overrides PORT)")
	flagSet.StringVar(&f.LogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	if err := flagSet.Parse(args); err != nil {
		return Flags{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return Flags{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	f.envFileSet = flagSet.Changed("env-file")
	return f, nil
}

// LoadEnvFile loads the dotenv file for local development. A missing
// default file is ignored; a file named explicitly with --env-file must exist.
// Variables already present in the environment win.
func (f Flags) LoadEnvFile() error {
	path := f.EnvFile
	if path == "" {
		path = DefaultEnvFile
	}
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) && !f.envFileSet {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Apply copies flag overrides into cfg.
func (f Flags) Apply(cfg *config.Config) {
	if f.Port != "" {
		cfg.Port = f.Port
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
}

// SetupLogger builds the process logger from cfg and makes it the slog
// default. An unparseable level falls back to info; Validate reports it.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logCfg := log.DefaultConfig()
	logCfg.Level, _ = log.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logCfg.Component = component
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads the environment, applies flags and checks the result with
// validate. Returns the config and a logger, or exits the process on failure.
func LoadConfig(f Flags, component string, validate func(*config.Config) error) (*config.Config, *log.Logger) {
	if err := f.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	f.Apply(cfg)
	logger := SetupLogger(cfg, component)

	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg, logger
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
