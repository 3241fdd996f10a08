// Package deps contains the dependencies for the backend, the exporter and admin-cli.
package deps

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/gauth"
	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidisotel"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func loadDotenv() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("error loading .env file", "error", err)
	}
}

type validator interface {
	Validate() error
}

func load[T validator](loader func() (T, error)) (T, error) {
	loadDotenv()

	cfg, err := loader()
	if err != nil {
		slog.Error("error creating config", "error", err)
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("error validating config", "error", err)
		return cfg, err
	}

	return cfg, nil
}

// BackendConfig loads the environment variables from the .env file and returns the backend configuration.
func BackendConfig() (config.BackendConfig, error) {
	return load(config.LoadBackendConfig)
}

// ExporterConfig loads the configuration of the exporter.
func ExporterConfig() (config.ExporterConfig, error) {
	return load(config.LoadExporterConfig)
}

// CLIConfig loads the configuration of admin-cli.
func CLIConfig() (config.CLIConfig, error) {
	return load(config.LoadCLIConfig)
}

// Database opens the database. It is closed when the app stops.
func Database(lifecycle fx.Lifecycle, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		slog.Error("error opening database", "error", err, "driver", cfg.Driver)
		return nil, err
	}

	lifecycle.Append(fx.StopHook(func() error {
		return database.Close(db)
	}))

	return db, nil
}

// MigratedDatabase opens the database and migrates it to the latest schema on start.
func MigratedDatabase(lifecycle fx.Lifecycle, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Database(lifecycle, cfg)
	if err != nil {
		return nil, err
	}

	lifecycle.Append(fx.StartHook(func(ctx context.Context) error {
		if err := database.Migrate(ctx, db); err != nil {
			slog.Error("error migrating database", "error", err)
			return err
		}
		return nil
	}))

	return db, nil
}

// RedisClient creates a traced rueidis.Client.
func RedisClient(lifecycle fx.Lifecycle, cfg config.RedisConfig) (rueidis.Client, error) {
	client, err := rueidisotel.NewClient(rueidis.ClientOption{
		InitAddress: []string{
			fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		},
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		slog.Error("error creating redis client", "error", err)
		return nil, err
	}

	lifecycle.Append(fx.StopHook(client.Close))

	return client, nil
}

// AuthStorage creates an auth.Storage.
func AuthStorage(redisClient rueidis.Client, cfg config.AuthConfig) auth.Storage {
	return auth.NewRedisStorage(redisClient, cfg.TokenExpire)
}

// StateStorage creates the store of Google sign-in states.
func StateStorage(redisClient rueidis.Client) gauth.StateStorage {
	return gauth.NewRedisStateStorage(redisClient)
}

// FxCommonModule provides the configuration and the clients shared by the backend.
var FxCommonModule = fx.Module("common",
	fx.Provide(BackendConfig),
	fx.Provide(func(cfg config.BackendConfig) (
		config.ServerConfig, config.DatabaseConfig, config.RedisConfig, config.StorageConfig,
		config.BedrockConfig, config.GenerationConfig, config.AuthConfig, config.GAuthConfig,
		config.PostHogConfig, config.TelemetryConfig,
	) {
		return cfg.Server, cfg.Database, cfg.Redis, cfg.Storage,
			cfg.Bedrock, cfg.Generation, cfg.Auth, cfg.GAuth,
			cfg.PostHog, cfg.Telemetry
	}),
	fx.Provide(MigratedDatabase),
	fx.Provide(RedisClient),
	fx.Provide(AuthStorage),
	fx.Provide(StateStorage),
)
