package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	ShutdownTimeout           time.Duration
	Database                  DatabaseConfig
	Redis                     RedisConfig
	Log                       LogConfig
	Tracing                   TracingConfig
	RateLimit                 RateLimitConfig
	Scheduling                SchedulingConfig
	Relay                     RelayConfig
	MaxReportBytes            int64
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// RedisConfig holds the rate limiter backend. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64
}

type RateLimitConfig struct {
	AuthLimit  int
	AuthWindow time.Duration
}

// SchedulingConfig carries the per-doctor daily acceptance capacity.
type SchedulingConfig struct {
	DailyCapacity int
}

type RelayConfig struct {
	Mode string
}

const (
	RelayModePush = "push"
	RelayModePoll = "poll"

	defaultJWTSecret        = "default_jwt_secret"
	defaultJWTRefreshSecret = "default_refresh_secret"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "telehealth"),
		DSN:      getEnv("DB_DSN", ""),
	}
	if dbConfig.DSN == "" {
		dbConfig.DSN = dbConfig.buildDSN()
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	cfg := &Config{
		Port:                      getEnv("PORT", "5000"),
		Origin:                    getEnv("ORIGIN", "http://localhost:5173"),
		Environment:               getEnv("APP_ENV", "development"),
		JWTSecret:                 getEnv("JWT_SECRET", defaultJWTSecret),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", defaultJWTRefreshSecret),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		ShutdownTimeout:           getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		Database:                  dbConfig,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			ServiceName: getEnv("TRACING_SERVICE_NAME", "telehealth-api"),
			Endpoint:    getEnv("TRACING_ENDPOINT", "localhost:4318"),
			SampleRate:  getEnvFloat("TRACING_SAMPLE_RATE", 0.1),
		},
		RateLimit: RateLimitConfig{
			AuthLimit:  getEnvInt("AUTH_RATE_LIMIT", 10),
			AuthWindow: getEnvDuration("AUTH_RATE_WINDOW", 15*time.Minute),
		},
		Scheduling: SchedulingConfig{
			DailyCapacity: getEnvInt("DAILY_CAPACITY", 10),
		},
		Relay: RelayConfig{
			Mode: strings.ToLower(getEnv("RELAY_MODE", RelayModePush)),
		},
		MaxReportBytes: int64(getEnvInt("MAX_REPORT_BYTES", 5*1024*1024)),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (d DatabaseConfig) buildDSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			d.Host, d.Username, d.Password, d.Name, d.Port)
	case "sqlite":
		return d.Name + ".db"
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.Username, d.Password, d.Host, d.Port, d.Name)
	}
}

func validate(cfg *Config) error {
	var errs []string

	switch cfg.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER %q is not supported", cfg.Database.Driver))
	}

	switch cfg.Relay.Mode {
	case RelayModePush, RelayModePoll:
	default:
		errs = append(errs, fmt.Sprintf("RELAY_MODE %q must be push or poll", cfg.Relay.Mode))
	}

	if cfg.Scheduling.DailyCapacity <= 0 {
		errs = append(errs, "DAILY_CAPACITY must be positive")
	}
	if cfg.MaxReportBytes <= 0 {
		errs = append(errs, "MAX_REPORT_BYTES must be positive")
	}

	if cfg.IsProduction() {
		if cfg.JWTSecret == defaultJWTSecret || cfg.JWTRefreshSecret == defaultJWTRefreshSecret {
			errs = append(errs, "JWT_SECRET and JWT_REFRESH_SECRET must be set in production")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
