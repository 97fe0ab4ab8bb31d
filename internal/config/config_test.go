package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		t.Fatalf("unexpected address %s", cfg.HTTPAddress)
	}
	if cfg.DatabaseDriver != DatabaseDriverSQLite || cfg.DatabasePath != defaultDatabasePath {
		t.Fatalf("unexpected database config %s %s", cfg.DatabaseDriver, cfg.DatabasePath)
	}
	if cfg.TokenTTL != 7*24*time.Hour {
		t.Fatalf("expected a seven day token ttl, got %s", cfg.TokenTTL)
	}
	if cfg.CookieName != "linkhub_session" {
		t.Fatalf("unexpected cookie name %s", cfg.CookieName)
	}
	if cfg.Storage.Driver != StorageDriverLocal || cfg.AnalyticsQueueSize != 256 {
		t.Fatalf("unexpected storage or analytics defaults %#v %d", cfg.Storage, cfg.AnalyticsQueueSize)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != defaultAllowedOrigins {
		t.Fatalf("unexpected origins %#v", cfg.AllowedOrigins)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("LINKHUB_AUTH_SIGNING_SECRET", "from-env")
	t.Setenv("LINKHUB_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LINKHUB_STORAGE_DRIVER", "S3")
	t.Setenv("LINKHUB_STORAGE_S3_BUCKET", "avatars")
	t.Setenv("LINKHUB_STORAGE_S3_ACCESS_KEY_ID", "key")
	t.Setenv("LINKHUB_STORAGE_S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("LINKHUB_AUTH_TOKEN_TTL_MINUTES", "15")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.SigningSecret != "from-env" {
		t.Fatalf("expected env secret, got %q", cfg.SigningSecret)
	}
	if strings.Join(cfg.AllowedOrigins, "|") != "https://a.example|https://b.example" {
		t.Fatalf("unexpected origins %#v", cfg.AllowedOrigins)
	}
	if cfg.Storage.Driver != StorageDriverS3 || cfg.Storage.S3Bucket != "avatars" {
		t.Fatalf("unexpected storage config %#v", cfg.Storage)
	}
	if cfg.TokenTTL != 15*time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.TokenTTL)
	}
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	testCases := map[string]map[string]interface{}{
		"missing secret":       {},
		"unknown driver":       {"auth.signing_secret": "s", "database.driver": "mysql"},
		"postgres without dsn": {"auth.signing_secret": "s", "database.driver": "postgres"},
		"s3 without bucket":    {"auth.signing_secret": "s", "storage.driver": "s3"},
		"unknown storage":      {"auth.signing_secret": "s", "storage.driver": "ftp"},
		"zero queue":           {"auth.signing_secret": "s", "analytics.queue_size": 0},
		"zero ttl":             {"auth.signing_secret": "s", "auth.token_ttl_minutes": 0},
	}
	for name, values := range testCases {
		configViper := NewViper()
		for key, value := range values {
			configViper.Set(key, value)
		}
		if _, err := Load(configViper); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadDotEnvPopulatesEnvironment(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("LINKHUB_AUTH_SIGNING_SECRET=dotenv-secret\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("LINKHUB_AUTH_SIGNING_SECRET", "")
	os.Unsetenv("LINKHUB_AUTH_SIGNING_SECRET")

	if err := LoadDotEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load dotenv failed: %v", err)
	}
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.SigningSecret != "dotenv-secret" {
		t.Fatalf("expected secret from .env, got %q", cfg.SigningSecret)
	}
}
