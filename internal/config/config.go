// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Analytics AnalyticsConfig
	AWS       AWSConfig
	Jobs      JobsConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// AnalyticsConfig holds the statistical policy constants.
type AnalyticsConfig struct {
	// ThresholdMultiplier k flags points above mean + k*stddev.
	ThresholdMultiplier float64
	// MediumSigma and HighSigma classify severity by the deviation's
	// sigma-multiple: >= HighSigma is high, >= MediumSigma is medium.
	MediumSigma float64
	HighSigma   float64
	// DetectionWindowDays limits detection to a trailing window; 0 uses the
	// whole stored period.
	DetectionWindowDays int
	// GrowthWarningPct / GrowthCriticalPct are the badge bands.
	GrowthWarningPct  float64
	GrowthCriticalPct float64
	// ConfidenceZ widens forecast bounds (1.96 ~ 95% band).
	ConfidenceZ float64
	// TopServices is how many per-service forecasts the report carries.
	TopServices int
	// MinGrowthSpend filters near-zero entries out of growth insights.
	MinGrowthSpend float64
}

// AWSConfig holds AWS Cost Explorer ingestion settings.
type AWSConfig struct {
	Enabled       bool
	Region        string
	AccessKeyID   string
	SecretKey     string
	AssumeRoleARN string
	ExternalID    string
}

// JobsConfig holds background job settings.
type JobsConfig struct {
	CostSyncSchedule      string
	AnomalyDetectSchedule string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "costlens"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "costlens"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Analytics: AnalyticsConfig{
			ThresholdMultiplier: getEnvFloat("ANALYTICS_THRESHOLD_MULTIPLIER", 1.5),
			MediumSigma:         getEnvFloat("ANALYTICS_MEDIUM_SIGMA", 1.75),
			HighSigma:           getEnvFloat("ANALYTICS_HIGH_SIGMA", 2.0),
			DetectionWindowDays: getEnvInt("ANALYTICS_DETECTION_WINDOW_DAYS", 0),
			GrowthWarningPct:    getEnvFloat("ANALYTICS_GROWTH_WARNING_PCT", 5),
			GrowthCriticalPct:   getEnvFloat("ANALYTICS_GROWTH_CRITICAL_PCT", 20),
			ConfidenceZ:         getEnvFloat("ANALYTICS_CONFIDENCE_Z", 1.96),
			TopServices:         getEnvInt("ANALYTICS_TOP_SERVICES", 5),
			MinGrowthSpend:      getEnvFloat("ANALYTICS_MIN_GROWTH_SPEND", 10),
		},
		AWS: AWSConfig{
			Enabled:       getEnvBool("AWS_ENABLED", false),
			Region:        getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:   getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AssumeRoleARN: getEnv("AWS_ASSUME_ROLE_ARN", ""),
			ExternalID:    getEnv("AWS_EXTERNAL_ID", ""),
		},
		Jobs: JobsConfig{
			CostSyncSchedule:      getEnv("JOB_COST_SYNC", "0 0 */6 * * *"),
			AnomalyDetectSchedule: getEnv("JOB_ANOMALY_DETECT", "0 0 1 * * *"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Analytics.ThresholdMultiplier <= 0 {
		return fmt.Errorf("ANALYTICS_THRESHOLD_MULTIPLIER must be positive")
	}
	if c.Analytics.HighSigma < c.Analytics.MediumSigma {
		return fmt.Errorf("ANALYTICS_HIGH_SIGMA must be >= ANALYTICS_MEDIUM_SIGMA")
	}
	return nil
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
