package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Dispatch DispatchConfig
	Absence  AbsenceConfig
	Delivery DeliveryConfig
	SMTP     SMTPConfig
	SendGrid SendGridConfig
	Rollbar  RollbarConfig
	QR       QRConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	Version        string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
}

// DispatchConfig controls the notification workers and the outbox relay.
type DispatchConfig struct {
	WorkerCount int
	QueueSize   int
	MaxAttempts int
	RelayCron   string
	RelayBatch  int
	Lease       time.Duration
	SendTimeout time.Duration
}

// AbsenceConfig controls the periodic absent sweep.
type AbsenceConfig struct {
	SweepCron string
	After     time.Duration
}

type DeliveryConfig struct {
	Driver string // log, smtp, sendgrid
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
}

type RollbarConfig struct {
	Token string
}

type QRConfig struct {
	SigningKey string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "school_attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		Version:        getEnv("APP_VERSION", "v1.0.0"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "Asia/Jakarta"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "12h"),
	}

	// Dispatch configuration
	workers, err := strconv.Atoi(getEnv("DISPATCH_WORKERS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_WORKERS: %w", err)
	}
	queueSize, err := strconv.Atoi(getEnv("DISPATCH_QUEUE_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_QUEUE_SIZE: %w", err)
	}
	maxAttempts, err := strconv.Atoi(getEnv("DISPATCH_MAX_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_MAX_ATTEMPTS: %w", err)
	}
	relayBatch, err := strconv.Atoi(getEnv("DISPATCH_RELAY_BATCH", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_RELAY_BATCH: %w", err)
	}
	lease, err := time.ParseDuration(getEnv("DISPATCH_LEASE", "2m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_LEASE: %w", err)
	}
	sendTimeout, err := time.ParseDuration(getEnv("DISPATCH_SEND_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_SEND_TIMEOUT: %w", err)
	}

	config.Dispatch = DispatchConfig{
		WorkerCount: workers,
		QueueSize:   queueSize,
		MaxAttempts: maxAttempts,
		RelayCron:   getEnv("DISPATCH_RELAY_CRON", "@every 30s"),
		RelayBatch:  relayBatch,
		Lease:       lease,
		SendTimeout: sendTimeout,
	}

	// Absence sweep configuration
	absentAfter, err := time.ParseDuration(getEnv("ABSENCE_AFTER", "2h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ABSENCE_AFTER: %w", err)
	}
	config.Absence = AbsenceConfig{
		SweepCron: getEnv("ABSENCE_SWEEP_CRON", "*/15 * * * *"),
		After:     absentAfter,
	}

	// Delivery configuration
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	config.Delivery = DeliveryConfig{
		Driver: strings.ToLower(getEnv("DELIVERY_DRIVER", "log")),
	}
	config.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     smtpPort,
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "noreply@localhost"),
		FromName: getEnv("SMTP_FROM_NAME", "School Attendance"),
	}
	config.SendGrid = SendGridConfig{
		APIKey:   getEnv("SENDGRID_API_KEY", ""),
		From:     getEnv("SENDGRID_FROM", "noreply@localhost"),
		FromName: getEnv("SENDGRID_FROM_NAME", "School Attendance"),
	}

	config.Rollbar = RollbarConfig{
		Token: getEnv("ROLLBAR_TOKEN", ""),
	}

	config.QR = QRConfig{
		SigningKey: getEnv("QR_SIGNING_KEY", ""),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	if c.Dispatch.MaxAttempts < 1 {
		return fmt.Errorf("DISPATCH_MAX_ATTEMPTS must be at least 1")
	}

	switch c.Delivery.Driver {
	case "log":
	case "smtp":
		if c.SMTP.Host == "" {
			return fmt.Errorf("SMTP_HOST is required for the smtp delivery driver")
		}
	case "sendgrid":
		if c.SendGrid.APIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required for the sendgrid delivery driver")
		}
	default:
		return fmt.Errorf("unsupported DELIVERY_DRIVER %q", c.Delivery.Driver)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the system civil timezone used for tenants without their own zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Level maps LOG_LEVEL onto a slog level; unknown values fall back to info.
func (a AppConfig) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
