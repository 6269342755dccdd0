package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"budgetly/internal/config"
)

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags("budgetd", []string{"--env-file", "prod.env", "-p", "8080", "--log-level=debug"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if f.EnvFile != "prod.env" || f.Port != "8080" || f.LogLevel != "debug" || !f.envFileSet {
		t.Fatalf("flags = %+v", f)
	}

	cfg := &config.Config{Port: "5000", LogLevel: "info"}
	f.Apply(cfg)
	if cfg.Port != "8080" || cfg.LogLevel != "debug" {
		t.Fatalf("Apply: %+v", cfg)
	}

	defaults, err := ParseFlags("budgetd", nil)
	if err != nil {
		t.Fatalf("ParseFlags(nil): %v", err)
	}
	if defaults.EnvFile != DefaultEnvFile || defaults.envFileSet {
		t.Fatalf("defaults = %+v", defaults)
	}

	if _, err := ParseFlags("budgetd", []string{"serve"}); err == nil {
		t.Fatalf("positional argument accepted")
	}
	if _, err := ParseFlags("budgetd", []string{"--nope"}); err == nil {
		t.Fatalf("unknown flag accepted")
	}
	if _, err := ParseFlags("budgetd", []string{"-h"}); !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("-h error = %v, want ErrHelp", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("BUDGETLY_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BUDGETLY_TEST_VALUE", "")
	_ = os.Unsetenv("BUDGETLY_TEST_VALUE")

	f, err := ParseFlags("budgetd", []string{"--env-file", path})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.LoadEnvFile(); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("BUDGETLY_TEST_VALUE"); got != "from-file" {
		t.Fatalf("value = %q", got)
	}

	missing, _ := ParseFlags("budgetd", []string{"--env-file", filepath.Join(dir, "missing.env")})
	if err := missing.LoadEnvFile(); err == nil {
		t.Fatalf("explicit missing file accepted")
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := (Flags{}).LoadEnvFile(); err != nil {
		t.Fatalf("missing default file: %v", err)
	}
}

func TestSetupLoggerTagsComponent(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "bogus", LogFormat: "json"}, "budgetd")
	if logger.Component() != "budgetd" {
		t.Fatalf("component = %q", logger.Component())
	}
}
