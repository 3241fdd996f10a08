package config

import (
	"errors"
	"time"
)

// BackendConfig is the configuration of the API server.
type BackendConfig struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Database   DatabaseConfig   `envPrefix:"DATABASE_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	Storage    StorageConfig    `envPrefix:"STORAGE_"`
	Bedrock    BedrockConfig    `envPrefix:"BEDROCK_"`
	Generation GenerationConfig `envPrefix:"GENERATION_"`
	Auth       AuthConfig       `envPrefix:"AUTH_"`
	GAuth      GAuthConfig      `envPrefix:"GAUTH_"`
	PostHog    PostHogConfig    `envPrefix:"POSTHOG_"`
	Telemetry  TelemetryConfig  `envPrefix:"TELEMETRY_"`
}

func (c BackendConfig) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Bedrock.Validate(); err != nil {
		return err
	}
	if err := c.Generation.Validate(); err != nil {
		return err
	}
	if err := c.GAuth.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}

	return nil
}

// ExporterConfig is the configuration of the Prometheus exporter.
type ExporterConfig struct {
	Port      int             `env:"PORT" envDefault:"9090"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Telemetry TelemetryConfig `envPrefix:"TELEMETRY_"`
}

func (c ExporterConfig) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	return c.Telemetry.Validate()
}

// CLIConfig is the configuration of the admin CLI.
type CLIConfig struct {
	Database DatabaseConfig `envPrefix:"DATABASE_"`
}

func (c CLIConfig) Validate() error {
	return c.Database.Validate()
}

type ServerConfig struct {
	Port           int      `env:"PORT" envDefault:"8080"`
	URI            string   `env:"URI"`
	TrustProxies   []string `env:"TRUST_PROXIES"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`
	CertFile       *string  `env:"CERT_FILE"`
	KeyFile        *string  `env:"KEY_FILE"`
}

func (c ServerConfig) Validate() error {
	if c.URI == "" {
		return errors.New("SERVER_URI is required")
	}
	if (c.CertFile == nil) != (c.KeyFile == nil) {
		return errors.New("SERVER_CERT_FILE and SERVER_KEY_FILE must be set together")
	}

	return nil
}

// GetProto returns the protocol the server listens with.
func (c ServerConfig) GetProto() string {
	if c.CertFile != nil && c.KeyFile != nil {
		return "https"
	}

	return "http"
}

const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
)

type DatabaseConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:quizgenius.db?_fk=1"`
}

func (c DatabaseConfig) Validate() error {
	if c.Driver != DatabaseDriverSQLite && c.Driver != DatabaseDriverPostgres {
		return errors.New("DATABASE_DRIVER must be either sqlite or postgres")
	}
	if c.DSN == "" {
		return errors.New("DATABASE_DSN is required")
	}

	return nil
}

type RedisConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

func (c RedisConfig) Validate() error {
	if c.Host == "" {
		return errors.New("REDIS_HOST is required")
	}
	if c.Port == 0 {
		return errors.New("REDIS_PORT is required")
	}

	return nil
}

const (
	StorageBackendS3   = "s3"
	StorageBackendFile = "file"
)

type StorageConfig struct {
	Backend        string `env:"BACKEND" envDefault:"file"`
	Dir            string `env:"DIR" envDefault:"./data/documents"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`

	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	ForcePathStyle  bool   `env:"S3_FORCE_PATH_STYLE"`
}

func (c StorageConfig) Validate() error {
	if c.MaxUploadBytes <= 0 {
		return errors.New("STORAGE_MAX_UPLOAD_BYTES must be positive")
	}

	switch c.Backend {
	case StorageBackendFile:
		if c.Dir == "" {
			return errors.New("STORAGE_DIR is required")
		}
	case StorageBackendS3:
		if c.Bucket == "" {
			return errors.New("STORAGE_S3_BUCKET is required")
		}
		if c.Region == "" {
			return errors.New("STORAGE_S3_REGION is required")
		}
	default:
		return errors.New("STORAGE_BACKEND must be either s3 or file")
	}

	return nil
}

type BedrockConfig struct {
	Region          string        `env:"REGION"`
	ModelID         string        `env:"MODEL_ID" envDefault:"anthropic.claude-3-5-sonnet-20240620-v1:0"`
	AccessKeyID     string        `env:"ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"SECRET_ACCESS_KEY"`
	MaxTokens       int           `env:"MAX_TOKENS" envDefault:"4096"`
	Temperature     float64       `env:"TEMPERATURE" envDefault:"0.2"`
	MaxRetries      uint64        `env:"MAX_RETRIES" envDefault:"4"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"90s"`
}

func (c BedrockConfig) Validate() error {
	if c.Region == "" {
		return errors.New("BEDROCK_REGION is required")
	}
	if c.ModelID == "" {
		return errors.New("BEDROCK_MODEL_ID is required")
	}
	if c.MaxTokens <= 0 {
		return errors.New("BEDROCK_MAX_TOKENS must be positive")
	}

	return nil
}

type GenerationConfig struct {
	MinSourceChars int `env:"MIN_SOURCE_CHARS" envDefault:"200"`
	MaxSourceChars int `env:"MAX_SOURCE_CHARS" envDefault:"60000"`
	MaxRounds      int `env:"MAX_ROUNDS" envDefault:"3"`
	DailyQuota     int `env:"DAILY_QUOTA" envDefault:"50"`
}

func (c GenerationConfig) Validate() error {
	if c.MinSourceChars < 0 || c.MaxSourceChars <= c.MinSourceChars {
		return errors.New("GENERATION_MAX_SOURCE_CHARS must be greater than GENERATION_MIN_SOURCE_CHARS")
	}
	if c.MaxRounds <= 0 {
		return errors.New("GENERATION_MAX_ROUNDS must be positive")
	}

	return nil
}

type AuthConfig struct {
	TokenExpire           time.Duration `env:"TOKEN_EXPIRE" envDefault:"8h"`
	AllowInstructorSignup bool          `env:"ALLOW_INSTRUCTOR_SIGNUP" envDefault:"true"`
}

// GAuthConfig configures Google sign-in. It is disabled when ClientID is empty.
type GAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
	FrontendURL  string `env:"FRONTEND_URL"` // receives the token in the URL fragment
}

func (c GAuthConfig) Enabled() bool {
	return c.ClientID != ""
}

func (c GAuthConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}

	if c.ClientSecret == "" {
		return errors.New("GAUTH_CLIENT_SECRET is required")
	}
	if c.RedirectURL == "" {
		return errors.New("GAUTH_REDIRECT_URL is required")
	}
	if c.FrontendURL == "" {
		return errors.New("GAUTH_FRONTEND_URL is required")
	}

	return nil
}

// PostHogConfig configures product analytics. It is disabled when APIKey is empty.
type PostHogConfig struct {
	APIKey string `env:"API_KEY"`
	Host   string `env:"HOST" envDefault:"https://us.i.posthog.com"`
}

func (c PostHogConfig) Enabled() bool {
	return c.APIKey != ""
}

const (
	TelemetryExporterNone     = "none"
	TelemetryExporterStdout   = "stdout"
	TelemetryExporterOTLPHTTP = "otlp-http"
	TelemetryExporterOTLPGRPC = "otlp-grpc"
)

type TelemetryConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"quizgenius"`
	Exporter    string `env:"EXPORTER" envDefault:"none"`
	Logs        bool   `env:"LOGS"`
}

func (c TelemetryConfig) Validate() error {
	switch c.Exporter {
	case TelemetryExporterNone, TelemetryExporterStdout, TelemetryExporterOTLPHTTP, TelemetryExporterOTLPGRPC:
		return nil
	default:
		return errors.New("TELEMETRY_EXPORTER must be one of none, stdout, otlp-http, otlp-grpc")
	}
}
