package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix                 = "LINKHUB"
	defaultHTTPAddress        = "0.0.0.0:8080"
	defaultDatabaseDriver     = DatabaseDriverSQLite
	defaultDatabasePath       = "linkhub.db"
	defaultLogLevel           = "info"
	defaultLogFormat          = "json"
	defaultCookieName         = "linkhub_session"
	defaultTokenTTLMinutes    = 7 * 24 * 60
	defaultAllowedOrigins     = "http://localhost:5173"
	defaultStorageDriver      = StorageDriverLocal
	defaultStorageLocalDir    = "uploads/avatars"
	defaultStoragePublicURL   = "http://localhost:8080"
	defaultAnalyticsQueueSize = 256

	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
	StorageDriverLocal     = "local"
	StorageDriverS3        = "s3"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	DatabaseDriver     string
	DatabasePath       string
	DatabaseDSN        string
	SigningSecret      string
	TokenTTL           time.Duration
	CookieName         string
	LogLevel           string
	LogFormat          string
	AllowedOrigins     []string
	Storage            StorageConfig
	AnalyticsQueueSize int
}

// StorageConfig selects where avatar images are kept.
type StorageConfig struct {
	Driver            string
	LocalDir          string
	PublicBaseURL     string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// LoadDotEnv populates the process environment from a .env file when present.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("auth.signing_secret", "")
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("cors.allowed_origins", defaultAllowedOrigins)
	configViper.SetDefault("storage.driver", defaultStorageDriver)
	configViper.SetDefault("storage.local_dir", defaultStorageLocalDir)
	configViper.SetDefault("storage.public_base_url", defaultStoragePublicURL)
	configViper.SetDefault("storage.s3.bucket", "")
	configViper.SetDefault("storage.s3.region", "")
	configViper.SetDefault("storage.s3.endpoint", "")
	configViper.SetDefault("storage.s3.access_key_id", "")
	configViper.SetDefault("storage.s3.secret_access_key", "")
	configViper.SetDefault("analytics.queue_size", defaultAnalyticsQueueSize)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		DatabaseDriver: strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:   configViper.GetString("database.path"),
		DatabaseDSN:    configViper.GetString("database.dsn"),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		TokenTTL:       time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		CookieName:     configViper.GetString("auth.cookie_name"),
		LogLevel:       configViper.GetString("log.level"),
		LogFormat:      configViper.GetString("log.format"),
		AllowedOrigins: splitList(configViper.GetString("cors.allowed_origins")),
		Storage: StorageConfig{
			Driver:            strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver"))),
			LocalDir:          configViper.GetString("storage.local_dir"),
			PublicBaseURL:     strings.TrimSpace(configViper.GetString("storage.public_base_url")),
			S3Bucket:          configViper.GetString("storage.s3.bucket"),
			S3Region:          configViper.GetString("storage.s3.region"),
			S3Endpoint:        configViper.GetString("storage.s3.endpoint"),
			S3AccessKeyID:     configViper.GetString("storage.s3.access_key_id"),
			S3SecretAccessKey: configViper.GetString("storage.s3.secret_access_key"),
		},
		AnalyticsQueueSize: configViper.GetInt("analytics.queue_size"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if strings.TrimSpace(c.CookieName) == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	switch c.DatabaseDriver {
	case DatabaseDriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case DatabaseDriverPostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.DatabaseDriver)
	}
	if c.Storage.PublicBaseURL == "" {
		return fmt.Errorf("storage.public_base_url is required")
	}
	switch c.Storage.Driver {
	case StorageDriverLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			return fmt.Errorf("storage.local_dir is required")
		}
	case StorageDriverS3:
		if strings.TrimSpace(c.Storage.S3Bucket) == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 driver")
		}
		if strings.TrimSpace(c.Storage.S3AccessKeyID) == "" || strings.TrimSpace(c.Storage.S3SecretAccessKey) == "" {
			return fmt.Errorf("storage.s3 credentials are required for the s3 driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	if c.AnalyticsQueueSize <= 0 {
		return fmt.Errorf("analytics.queue_size must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
