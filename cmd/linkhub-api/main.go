package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/analytics"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/config"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/database"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/identifiers"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/links"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/profiles"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/server"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/storage"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "linkhub-api",
		Short: "LinkHub link-in-bio backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before configuration")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "Postgres connection string")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().String("allowed-origins", defaults.GetString("cors.allowed_origins"), "Comma separated CORS origins")
	cmd.PersistentFlags().String("storage-driver", defaults.GetString("storage.driver"), "Avatar storage driver (local, s3)")
	cmd.PersistentFlags().String("storage-local-dir", defaults.GetString("storage.local_dir"), "Directory for locally stored avatars")
	cmd.PersistentFlags().String("storage-public-base-url", defaults.GetString("storage.public_base_url"), "Base URL avatars are served from")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "cors.allowed_origins", "allowed-origins")
	bindFlag(cmd, "storage.driver", "storage-driver")
	bindFlag(cmd, "storage.local_dir", "storage-local-dir")
	bindFlag(cmd, "storage.public_base_url", "storage-public-base-url")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(database.Config{
		Driver: appConfig.DatabaseDriver,
		Path:   appConfig.DatabasePath,
		DSN:    appConfig.DatabaseDSN,
	}, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, avatarDir, err := openAvatarStore(signalCtx, appConfig.Storage)
	if err != nil {
		return err
	}

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}

	idProvider := identifiers.NewUUIDProvider()

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		Hasher:     auth.NewPasswordHasher(bcrypt.DefaultCost),
		IDProvider: idProvider,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	profilesService, err := profiles.NewService(profiles.ServiceConfig{
		Database: db,
		Store:    store,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	linksService, err := links.NewService(links.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	analyticsService, err := analytics.NewService(analytics.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	realtime := server.NewRealtimeDispatcher()
	recorder, err := analytics.NewRecorder(analytics.RecorderConfig{
		Service:   analyticsService,
		Notifier:  realtime,
		QueueSize: appConfig.AnalyticsQueueSize,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:     tokenManager,
		CookieName:       appConfig.CookieName,
		AllowedOrigins:   appConfig.AllowedOrigins,
		UsersService:     usersService,
		ProfilesService:  profilesService,
		LinksService:     linksService,
		AnalyticsService: analyticsService,
		Recorder:         recorder,
		Realtime:         realtime,
		AvatarDir:        avatarDir,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Event streams never finish on their own, so shutdown closes them.
	httpServer.RegisterOnShutdown(realtime.Close)

	// The recorder outlives the HTTP server so events enqueued by draining
	// handlers still reach the database.
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	group, groupCtx := errgroup.WithContext(signalCtx)
	group.Go(func() error {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return recorder.Run(recorderCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("server stopping")
		shutdownErr := httpServer.Shutdown(shutdownCtx)
		stopRecorder()
		return shutdownErr
	})

	return group.Wait()
}

// openAvatarStore returns the configured store and, for local storage, the
// directory the HTTP server should expose.
func openAvatarStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, string, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	default:
		store, err := storage.NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return store, store.Root(), nil
	}
}
