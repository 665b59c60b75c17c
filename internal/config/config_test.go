package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/joestump/folio/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir()) // keep stray .env / folio.yaml files out of the test
	t.Setenv("FOLIO_DB_DRIVER", "sqlite3")
	t.Setenv("FOLIO_DB_DSN", "file:test.db")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.HTTP.Addr, ":8080")
	}
	if cfg.SessionLifetime != 720*time.Hour {
		t.Errorf("SessionLifetime = %v, want 720h", cfg.SessionLifetime)
	}
	if cfg.Portfolio.PersistMode != config.PersistBatch {
		t.Errorf("PersistMode = %q, want %q", cfg.Portfolio.PersistMode, config.PersistBatch)
	}
	if cfg.Portfolio.PersistConcurrency != 8 {
		t.Errorf("PersistConcurrency = %d, want 8", cfg.Portfolio.PersistConcurrency)
	}
	if cfg.ProfileCache.TTL != 5*time.Minute {
		t.Errorf("ProfileCache.TTL = %v, want 5m", cfg.ProfileCache.TTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("FOLIO_HTTP_ADDR", ":9090")
	t.Setenv("FOLIO_PORTFOLIO_PERSIST_MODE", "FANOUT")
	t.Setenv("FOLIO_PORTFOLIO_PERSIST_CONCURRENCY", "3")
	t.Setenv("FOLIO_INSECURE_COOKIES", "true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.HTTP.Addr, ":9090")
	}
	if cfg.Portfolio.PersistMode != config.PersistFanout {
		t.Errorf("PersistMode = %q, want %q", cfg.Portfolio.PersistMode, config.PersistFanout)
	}
	if cfg.Portfolio.PersistConcurrency != 3 {
		t.Errorf("PersistConcurrency = %d, want 3", cfg.Portfolio.PersistConcurrency)
	}
	if !cfg.InsecureCookies {
		t.Error("InsecureCookies = false, want true")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantSub string
	}{
		{"missing driver", map[string]string{"FOLIO_DB_DRIVER": ""}, "FOLIO_DB_DRIVER"},
		{"missing dsn", map[string]string{"FOLIO_DB_DSN": ""}, "FOLIO_DB_DSN"},
		{"bad lifetime", map[string]string{"FOLIO_SESSION_LIFETIME": "forever"}, "FOLIO_SESSION_LIFETIME"},
		{"bad persist mode", map[string]string{"FOLIO_PORTFOLIO_PERSIST_MODE": "eventually"}, "FOLIO_PORTFOLIO_PERSIST_MODE"},
		{"zero concurrency", map[string]string{"FOLIO_PORTFOLIO_PERSIST_CONCURRENCY": "0"}, "FOLIO_PORTFOLIO_PERSIST_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			if err == nil {
				t.Fatal("Load: expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidateOIDC(t *testing.T) {
	cfg := &config.Config{}
	if err := cfg.ValidateOIDC(); err == nil {
		t.Fatal("ValidateOIDC on empty config: expected error")
	}

	cfg.OIDC.Issuer = "https://issuer.example.com"
	cfg.OIDC.ClientID = "folio"
	cfg.OIDC.ClientSecret = "secret"
	cfg.OIDC.RedirectURL = "http://localhost:8080/auth/callback"
	if err := cfg.ValidateOIDC(); err != nil {
		t.Errorf("ValidateOIDC: %v", err)
	}
}
