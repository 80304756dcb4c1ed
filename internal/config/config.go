package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	JWTSecret        string `mapstructure:"JWT_SECRET"`
	JWTAccessTTLRaw  string `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTLRaw string `mapstructure:"JWT_REFRESH_TTL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	AuthRateLimitRPM  int  `mapstructure:"AUTH_RATE_LIMIT_RPM"`
	APIRateLimitRPM   int  `mapstructure:"API_RATE_LIMIT_RPM"`
	RateLimitFailOpen bool `mapstructure:"RATE_LIMIT_FAIL_OPEN"`

	CORSAllowedOriginsRaw string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	StorageEndpoint      string `mapstructure:"STORAGE_ENDPOINT"`
	StorageRegion        string `mapstructure:"STORAGE_REGION"`
	StorageAccessKey     string `mapstructure:"STORAGE_ACCESS_KEY"`
	StorageSecretKey     string `mapstructure:"STORAGE_SECRET_KEY"`
	StorageBucket        string `mapstructure:"STORAGE_BUCKET"`
	StoragePublicBaseURL string `mapstructure:"STORAGE_PUBLIC_BASE_URL"`
	StoragePresignTTLRaw string `mapstructure:"STORAGE_PRESIGN_TTL"`
	StorageUseSSL        bool   `mapstructure:"STORAGE_USE_SSL"`

	OTELServiceName              string `mapstructure:"OTEL_SERVICE_NAME"`
	OTELEnvironment              string `mapstructure:"OTEL_ENVIRONMENT"`
	OTELExporterOTLPEndpoint     string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELExporterOTLPInsecure     bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTELMetricsEnabled           bool   `mapstructure:"OTEL_METRICS_ENABLED"`
	OTELTracingEnabled           bool   `mapstructure:"OTEL_TRACING_ENABLED"`
	OTELLogsEnabled              bool   `mapstructure:"OTEL_LOGS_ENABLED"`
	OTELMetricsExportIntervalRaw string `mapstructure:"OTEL_METRICS_EXPORT_INTERVAL"`

	ShutdownTimeoutRaw string `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Parsed durations, filled by Load.
	JWTAccessTTL              time.Duration `mapstructure:"-"`
	JWTRefreshTTL             time.Duration `mapstructure:"-"`
	StoragePresignTTL         time.Duration `mapstructure:"-"`
	OTELMetricsExportInterval time.Duration `mapstructure:"-"`
	ShutdownTimeout           time.Duration `mapstructure:"-"`
	CORSAllowedOrigins        []string      `mapstructure:"-"`
}

var defaults = map[string]any{
	"APP_ENV":                      "development",
	"HTTP_ADDR":                    ":8080",
	"DATABASE_DRIVER":              "postgres",
	"DATABASE_URL":                 "",
	"JWT_SECRET":                   "",
	"JWT_ACCESS_TTL":               "3h",
	"JWT_REFRESH_TTL":              "720h",
	"REDIS_ADDR":                   "",
	"REDIS_PASSWORD":               "",
	"REDIS_DB":                     0,
	"AUTH_RATE_LIMIT_RPM":          30,
	"API_RATE_LIMIT_RPM":           600,
	"RATE_LIMIT_FAIL_OPEN":         false,
	"CORS_ALLOWED_ORIGINS":         "*",
	"STORAGE_ENDPOINT":             "",
	"STORAGE_REGION":               "",
	"STORAGE_ACCESS_KEY":           "",
	"STORAGE_SECRET_KEY":           "",
	"STORAGE_BUCKET":               "",
	"STORAGE_PUBLIC_BASE_URL":      "",
	"STORAGE_PRESIGN_TTL":          "5m",
	"STORAGE_USE_SSL":              true,
	"OTEL_SERVICE_NAME":            "echo-backend",
	"OTEL_ENVIRONMENT":             "development",
	"OTEL_EXPORTER_OTLP_ENDPOINT":  "localhost:4317",
	"OTEL_EXPORTER_OTLP_INSECURE":  true,
	"OTEL_METRICS_ENABLED":         false,
	"OTEL_TRACING_ENABLED":         false,
	"OTEL_LOGS_ENABLED":            false,
	"OTEL_METRICS_EXPORT_INTERVAL": "15s",
	"SHUTDOWN_TIMEOUT":             "15s",
}

// Load reads an optional .env file from the working directory, overlays the
// process environment and validates the result.
func Load() (*Config, error) {
	return LoadFile(".env")
}

func LoadFile(envFile string) (*Config, error) {
	cfg, err := load(envFile)
	profile := "unknown"
	if cfg != nil {
		profile = cfg.Env
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	recordConfigValidationEvent(context.Background(), profile, outcome, classifyConfigLoadError(err))
	return cfg, err
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig()
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var err error
	if cfg.JWTAccessTTL, err = parseDuration("JWT_ACCESS_TTL", cfg.JWTAccessTTLRaw); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTTL, err = parseDuration("JWT_REFRESH_TTL", cfg.JWTRefreshTTLRaw); err != nil {
		return nil, err
	}
	if cfg.StoragePresignTTL, err = parseDuration("STORAGE_PRESIGN_TTL", cfg.StoragePresignTTLRaw); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = parseDuration("OTEL_METRICS_EXPORT_INTERVAL", cfg.OTELMetricsExportIntervalRaw); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeoutRaw); err != nil {
		return nil, err
	}
	cfg.CORSAllowedOrigins = splitList(cfg.CORSAllowedOriginsRaw)
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))

	if err := cfg.Validate(); err != nil {
		return &cfg, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.JWTAccessTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL must be positive"))
	}
	if c.JWTRefreshTTL <= c.JWTAccessTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be longer than JWT_ACCESS_TTL"))
	}
	if c.AuthRateLimitRPM <= 0 || c.APIRateLimitRPM <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.Env == "production" && len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must not be * in production"))
	}
	return errors.Join(errs...)
}

// StorageEnabled reports whether presigned URLs can be issued.
func (c *Config) StorageEnabled() bool {
	return c.StorageEndpoint != "" && c.StorageBucket != "" && c.StorageAccessKey != "" && c.StorageSecretKey != ""
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
