package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MannuMourya/Learner-API/pkg/observability"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds all application configuration
type Config struct {
	AppName     string `yaml:"app_name"`
	Environment string `yaml:"environment"`

	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Database      DatabaseConfig      `yaml:"database"`
	Observability ObservabilityConfig `yaml:"observability"`
	Tasks         TaskConfig          `yaml:"tasks"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// AllowedOrigins for CORS; ["*"] allows any origin
	AllowedOrigins []string `yaml:"allowed_origins"`

	// TrustProxyHeaders makes the admission limiter key on X-Forwarded-For /
	// X-Real-IP. Only enable behind a proxy that overwrites them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// Addr returns host:port for http.Server
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// AuthConfig holds credential settings
type AuthConfig struct {
	SecretKey                string `yaml:"secret_key"`
	AccessTokenExpireMinutes int    `yaml:"access_token_expire_minutes"`
	BcryptCost               int    `yaml:"bcrypt_cost"`
	// HashConcurrency bounds simultaneous bcrypt operations; 0 means GOMAXPROCS
	HashConcurrency int64 `yaml:"hash_concurrency"`

	// AdminEmail and AdminPassword bootstrap an administrator account at
	// startup when both are set. An existing account is left untouched.
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	// SecretGenerated is set when no secret was configured and a random one
	// was created for this process.
	SecretGenerated bool `yaml:"-"`
}

// AccessTokenTTL returns the default bearer token lifetime
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

// RateLimitConfig holds admission limiter settings
type RateLimitConfig struct {
	Requests           int `yaml:"requests"`
	WindowSeconds      int `yaml:"window_seconds"`
	MaxClientsPerShard int `yaml:"max_clients_per_shard"`
}

// Window returns the fixed window length
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// DatabaseConfig holds persistence settings
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel converts the settings to observability.OTelConfig
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// TaskConfig sizes the background worker pool
type TaskConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		AppName:     "Learner API",
		Environment: "dev",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Auth: AuthConfig{
			AccessTokenExpireMinutes: 60,
			BcryptCost:               10,
		},
		RateLimit: RateLimitConfig{
			Requests:           100,
			WindowSeconds:      60,
			MaxClientsPerShard: 4096,
		},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			URL:             "postgres://learner:learnerpwd@db:5432/learner_api?sslmode=disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: time.Minute,
			AutoMigrate:     true,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "learner-api",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
		Tasks: TaskConfig{
			Workers:   2,
			QueueSize: 64,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by LEARNER_CONFIG_FILE, and LEARNER_* environment variables, in
// increasing order of precedence.
func LoadConfig() (*Config, error) {
	return Load(ConfigFilePath())
}

// ConfigFilePath returns the YAML file named by LEARNER_CONFIG_FILE, or ""
func ConfigFilePath() string {
	return os.Getenv("LEARNER_CONFIG_FILE")
}

// Load is LoadConfig with an explicit file path; an empty path skips the file
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if cfg.Auth.SecretKey == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate secret key: %w", err)
		}
		cfg.Auth.SecretKey = secret
		cfg.Auth.SecretGenerated = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.AppName = getEnv("LEARNER_APP_NAME", cfg.AppName)
	cfg.Environment = getEnv("LEARNER_ENVIRONMENT", cfg.Environment)

	s := &cfg.Server
	s.Host = getEnv("LEARNER_HOST", s.Host)
	s.Port = getEnv("LEARNER_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("LEARNER_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("LEARNER_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("LEARNER_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("LEARNER_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.AllowedOrigins = getEnvList("LEARNER_ALLOWED_ORIGINS", s.AllowedOrigins)
	s.TrustProxyHeaders = getEnvBool("LEARNER_TRUST_PROXY_HEADERS", s.TrustProxyHeaders)

	a := &cfg.Auth
	a.SecretKey = getEnv("LEARNER_SECRET_KEY", a.SecretKey)
	a.AccessTokenExpireMinutes = getEnvInt("LEARNER_ACCESS_TOKEN_EXPIRE_MINUTES", a.AccessTokenExpireMinutes)
	a.BcryptCost = getEnvInt("LEARNER_BCRYPT_COST", a.BcryptCost)
	a.HashConcurrency = getEnvInt64("LEARNER_HASH_CONCURRENCY", a.HashConcurrency)
	a.AdminEmail = getEnv("LEARNER_ADMIN_EMAIL", a.AdminEmail)
	a.AdminPassword = getEnv("LEARNER_ADMIN_PASSWORD", a.AdminPassword)

	r := &cfg.RateLimit
	r.Requests = getEnvInt("LEARNER_RATE_LIMIT_REQ", r.Requests)
	r.WindowSeconds = getEnvInt("LEARNER_RATE_LIMIT_WINDOW_SECONDS", r.WindowSeconds)
	r.MaxClientsPerShard = getEnvInt("LEARNER_RATE_LIMIT_MAX_CLIENTS", r.MaxClientsPerShard)

	d := &cfg.Database
	d.Driver = getEnv("LEARNER_DB_DRIVER", d.Driver)
	d.URL = getEnv("LEARNER_DATABASE_URL", d.URL)
	d.MaxOpenConns = getEnvInt("LEARNER_DB_MAX_OPEN_CONNS", d.MaxOpenConns)
	d.MaxIdleConns = getEnvInt("LEARNER_DB_MAX_IDLE_CONNS", d.MaxIdleConns)
	d.ConnMaxLifetime = getEnvDuration("LEARNER_DB_CONN_MAX_LIFETIME", d.ConnMaxLifetime)
	d.ConnMaxIdleTime = getEnvDuration("LEARNER_DB_CONN_MAX_IDLE_TIME", d.ConnMaxIdleTime)
	d.AutoMigrate = getEnvBool("LEARNER_DB_AUTO_MIGRATE", d.AutoMigrate)

	o := &cfg.Observability
	o.LogLevel = getEnv("LEARNER_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("LEARNER_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("LEARNER_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("LEARNER_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("LEARNER_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("LEARNER_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("LEARNER_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("LEARNER_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)

	t := &cfg.Tasks
	t.Workers = getEnvInt("LEARNER_TASK_WORKERS", t.Workers)
	t.QueueSize = getEnvInt("LEARNER_TASK_QUEUE_SIZE", t.QueueSize)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}

	if c.Auth.SecretKey == "" {
		return fmt.Errorf("secret key is required")
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("access token lifetime must be positive, got %d minutes", c.Auth.AccessTokenExpireMinutes)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.HashConcurrency < 0 {
		return fmt.Errorf("hash concurrency must not be negative")
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("admin email and admin password must be set together")
	}

	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate limit requests must be positive, got %d", c.RateLimit.Requests)
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %d seconds", c.RateLimit.WindowSeconds)
	}
	if c.RateLimit.MaxClientsPerShard <= 0 {
		return fmt.Errorf("rate limit client capacity must be positive")
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Tasks.Workers <= 0 {
		return fmt.Errorf("task workers must be positive")
	}
	if c.Tasks.QueueSize < 0 {
		return fmt.Errorf("task queue size must not be negative")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// randomSecret returns 32 random bytes, hex encoded
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable; "*" alone stays ["*"]
func getEnvList(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if value == "*" {
		return []string{"*"}
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
