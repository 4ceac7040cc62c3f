package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:8000/api/financials" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.Currency != "bdt" {
		t.Errorf("Currency = %q, want bdt", cfg.Currency)
	}
	if cfg.GatewayTimeout != 30*time.Second {
		t.Errorf("GatewayTimeout = %s, want 30s", cfg.GatewayTimeout)
	}
	if cfg.AutoCloseDelay != 3*time.Second {
		t.Errorf("AutoCloseDelay = %s, want 3s", cfg.AutoCloseDelay)
	}
	if !cfg.Seed {
		t.Error("Seed = false, want true")
	}
	if cfg.Addr() != ":8000" {
		t.Errorf("Addr() = %q, want :8000", cfg.Addr())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORTAL_PORT", "9090")
	t.Setenv("PORTAL_CURRENCY", "USD")
	t.Setenv("PORTAL_GATEWAY_TIMEOUT", "45s")
	t.Setenv("PORTAL_API_BASE_URL", "https://portal.example.edu/api/financials/")
	t.Setenv("PORTAL_SEED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Currency != "usd" {
		t.Errorf("Currency = %q, want usd", cfg.Currency)
	}
	if cfg.GatewayTimeout != 45*time.Second {
		t.Errorf("GatewayTimeout = %s, want 45s", cfg.GatewayTimeout)
	}
	if cfg.APIBaseURL != "https://portal.example.edu/api/financials" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", cfg.APIBaseURL)
	}
	if cfg.Seed {
		t.Error("Seed = true, want false")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PORTAL_DB_PATH=/tmp/portal-test.db\nPORTAL_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("PORTAL_DB_PATH")
		os.Unsetenv("PORTAL_LOG_LEVEL")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/tmp/portal-test.db" {
		t.Errorf("DBPath = %q, want value from .env", cfg.DBPath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadMissingDotEnv(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Load with missing .env failed: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("PORTAL_GATEWAY_TIMEOUT", "0s")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for zero gateway timeout")
	}
}
