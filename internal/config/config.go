package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Persistence modes for portfolio ordering.
const (
	PersistBatch  = "batch"
	PersistFanout = "fanout"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		Driver string
		DSN    string
	}
	OIDC struct {
		Issuer       string
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}
	Portfolio struct {
		PersistMode        string
		PersistConcurrency int
		ManagerTTL         time.Duration
	}
	ProfileCache struct {
		Size int
		TTL  time.Duration
	}
	AdminEmail      string
	SessionLifetime time.Duration
	InsecureCookies bool
}

// Load reads config from environment (FOLIO_ prefix), an optional .env file,
// and an optional folio.yaml.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional .env; existing env vars win

	v := viper.New()
	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("folio")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("session.lifetime", "720h")
	v.SetDefault("insecure_cookies", false)
	v.SetDefault("portfolio.persist_mode", PersistBatch)
	v.SetDefault("portfolio.persist_concurrency", 8)
	v.SetDefault("portfolio.manager_ttl", "30m")
	v.SetDefault("profile_cache.size", 1024)
	v.SetDefault("profile_cache.ttl", "5m")

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.OIDC.Issuer = v.GetString("oidc.issuer")
	cfg.OIDC.ClientID = v.GetString("oidc.client_id")
	cfg.OIDC.ClientSecret = v.GetString("oidc.client_secret")
	cfg.OIDC.RedirectURL = v.GetString("oidc.redirect_url")
	cfg.AdminEmail = v.GetString("admin_email")
	cfg.InsecureCookies = v.GetBool("insecure_cookies")
	cfg.Portfolio.PersistMode = strings.ToLower(v.GetString("portfolio.persist_mode"))
	cfg.Portfolio.PersistConcurrency = v.GetInt("portfolio.persist_concurrency")
	cfg.ProfileCache.Size = v.GetInt("profile_cache.size")

	var err error
	if cfg.SessionLifetime, err = time.ParseDuration(v.GetString("session.lifetime")); err != nil {
		return nil, fmt.Errorf("invalid FOLIO_SESSION_LIFETIME: %w", err)
	}
	if cfg.Portfolio.ManagerTTL, err = time.ParseDuration(v.GetString("portfolio.manager_ttl")); err != nil {
		return nil, fmt.Errorf("invalid FOLIO_PORTFOLIO_MANAGER_TTL: %w", err)
	}
	if cfg.ProfileCache.TTL, err = time.ParseDuration(v.GetString("profile_cache.ttl")); err != nil {
		return nil, fmt.Errorf("invalid FOLIO_PROFILE_CACHE_TTL: %w", err)
	}

	switch cfg.Portfolio.PersistMode {
	case PersistBatch, PersistFanout:
	default:
		return nil, fmt.Errorf("invalid FOLIO_PORTFOLIO_PERSIST_MODE %q: must be batch or fanout", cfg.Portfolio.PersistMode)
	}
	if cfg.Portfolio.PersistConcurrency < 1 {
		return nil, fmt.Errorf("FOLIO_PORTFOLIO_PERSIST_CONCURRENCY must be at least 1")
	}
	if cfg.ProfileCache.Size < 1 {
		return nil, fmt.Errorf("FOLIO_PROFILE_CACHE_SIZE must be at least 1")
	}

	if cfg.DB.Driver == "" {
		return nil, fmt.Errorf("FOLIO_DB_DRIVER is required (sqlite3, mysql, postgres)")
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("FOLIO_DB_DSN is required")
	}

	return cfg, nil
}

// ValidateOIDC checks the settings needed by the login flow. Only the serve
// command needs them, so Load does not enforce them.
func (c *Config) ValidateOIDC() error {
	if c.OIDC.Issuer == "" {
		return fmt.Errorf("FOLIO_OIDC_ISSUER is required")
	}
	if c.OIDC.ClientID == "" {
		return fmt.Errorf("FOLIO_OIDC_CLIENT_ID is required")
	}
	if c.OIDC.ClientSecret == "" {
		return fmt.Errorf("FOLIO_OIDC_CLIENT_SECRET is required")
	}
	if c.OIDC.RedirectURL == "" {
		return fmt.Errorf("FOLIO_OIDC_REDIRECT_URL is required")
	}
	return nil
}
