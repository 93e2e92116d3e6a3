// Package config defines the configuration structure for the Weather2Go
// service. Configuration is loaded once at process start and is immutable
// thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format makes LoadConfig fail, and the
// entry points refuse to start.
package config

import (
	"log/slog"
	"time"

	"weather2go/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"weather2go"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Server        ServerConfig
	Weather       WeatherConfig
	Model         ModelConfig
	Database      DatabaseConfig
	Results       ResultsConfig
	AWS           AWSConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// WeatherConfig holds the upstream current-weather provider settings.
type WeatherConfig struct {
	APIKey    SecretString `envconfig:"WEATHER_API_KEY" validate:"required"`
	BaseURL   string       `envconfig:"WEATHER_BASE_URL" default:"http://api.openweathermap.org" validate:"required,url"`
	UserAgent string       `envconfig:"WEATHER_USER_AGENT" default:"Weather2Go/1.0"`
	// BreakerFailures is the number of consecutive upstream failures after which
	// lookups are short-circuited. Zero disables the breaker.
	BreakerFailures uint32 `envconfig:"WEATHER_BREAKER_FAILURES" default:"0"`
}

// ModelConfig holds the locations of the persisted model artifacts. Each
// value is a local path or an s3://bucket/key URI.
type ModelConfig struct {
	Path        string `envconfig:"MODEL_PATH" validate:"required"`
	EncoderPath string `envconfig:"ENCODER_PATH"`
	ScalerPath  string `envconfig:"SCALER_PATH"`
	// Preload loads the artifacts at startup instead of on the first request.
	Preload bool `envconfig:"MODEL_PRELOAD" default:"true"`
}

// DatabaseConfig holds the optional results database connection. Persistence
// is disabled when URL is empty.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"omitempty,url"`

	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"4"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// Enabled reports whether a results database is configured.
func (d DatabaseConfig) Enabled() bool {
	return !d.URL.IsZero()
}

// ResultsConfig holds the optional fan-out queue for persisted results.
type ResultsConfig struct {
	QueueURL string `envconfig:"RESULTS_QUEUE_URL" validate:"omitempty,url"`
}

// AWSConfig holds regional configuration for S3, SSM, SQS and CloudWatch.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// SecurityConfig holds CORS settings for the JSON API.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Weather2Go"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

// ParseLogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
