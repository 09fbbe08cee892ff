package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.DBPath != "./data/budget.db" {
		t.Errorf("expected default db path, got %s", cfg.DBPath)
	}
	if cfg.ImportBatchSize != 100 {
		t.Errorf("expected batch size 100, got %d", cfg.ImportBatchSize)
	}
	if cfg.ImportAccount != "Cash" {
		t.Errorf("expected import account Cash, got %s", cfg.ImportAccount)
	}
	if cfg.BalanceCacheTTL != 30*time.Second {
		t.Errorf("expected 30s cache TTL, got %v", cfg.BalanceCacheTTL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BUDGET_DB_PATH", "/tmp/x/ledger.db")
	t.Setenv("IMPORT_BATCH_SIZE", "25")
	t.Setenv("IMPORT_ACCOUNT", "Checking")
	t.Setenv("BALANCE_CACHE_TTL", "2m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.DBPath != "/tmp/x/ledger.db" {
		t.Errorf("db path not read from env: %s", cfg.DBPath)
	}
	if cfg.ImportBatchSize != 25 {
		t.Errorf("batch size not read from env: %d", cfg.ImportBatchSize)
	}
	if cfg.ImportAccount != "Checking" {
		t.Errorf("import account not read from env: %s", cfg.ImportAccount)
	}
	if cfg.BalanceCacheTTL != 2*time.Minute {
		t.Errorf("cache TTL not read from env: %v", cfg.BalanceCacheTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level not read from env: %s", cfg.LogLevel)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("IMPORT_BATCH_SIZE", "not-a-number")
	t.Setenv("BALANCE_CACHE_TTL", "soon")

	cfg := Load()

	if cfg.ImportBatchSize != 100 {
		t.Errorf("malformed int should fall back to default, got %d", cfg.ImportBatchSize)
	}
	if cfg.BalanceCacheTTL != 30*time.Second {
		t.Errorf("malformed duration should fall back to default, got %v", cfg.BalanceCacheTTL)
	}
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Helper()
		cfg := Load()
		cfg.DBPath = filepath.Join(t.TempDir(), "budget.db")
		return cfg
	}

	t.Run("valid config", func(t *testing.T) {
		if err := valid(t).Validate(); err != nil {
			t.Fatalf("valid config rejected: %v", err)
		}
	})

	t.Run("empty db path", func(t *testing.T) {
		cfg := valid(t)
		cfg.DBPath = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for empty db path")
		}
	})

	t.Run("bad batch size", func(t *testing.T) {
		cfg := valid(t)
		cfg.ImportBatchSize = 0
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "import batch size") {
			t.Fatalf("expected batch size error, got %v", err)
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := valid(t)
		cfg.LogLevel = "loud"
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "log level") {
			t.Fatalf("expected log level error, got %v", err)
		}
	})

	t.Run("multiple problems reported together", func(t *testing.T) {
		cfg := valid(t)
		cfg.ImportBatchSize = -1
		cfg.ImportAccount = " "
		cfg.BalanceCacheTTL = 0
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected combined error")
		}
		for _, want := range []string{"import batch size", "import account", "cache TTL"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("combined error missing %q: %v", want, err)
			}
		}
	})
}
