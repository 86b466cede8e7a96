package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// minSecretLength is the shortest HS512 signing key accepted.
const minSecretLength = 32

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr         string
	ServerPort         int
	MaxRequestBodySize int64
	LogLevel           string
	Locale             string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret       []byte
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Seeded privileged account
	SystemAdminPassword string

	PasswordPolicy  PasswordPolicyConfig
	Lockout         LockoutConfig
	Redis           RedisConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
}

// PasswordPolicyConfig holds password complexity and history settings.
type PasswordPolicyConfig struct {
	MinLength    int
	HistoryLimit int
	MaxAge       time.Duration
}

// LockoutConfig holds login attempt throttling settings.
type LockoutConfig struct {
	MaxAttempts   int
	AttemptWindow time.Duration
	UpdateRetries int
}

// RedisConfig holds the optional Redis connection used for cross-process account locks.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// RateLimitConfig holds IP rate limiting settings.
type RateLimitConfig struct {
	Enabled         bool
	AuthRequests    int
	AuthWindow      time.Duration
	RefreshRequests int
	RefreshWindow   time.Duration
	APIRequests     int
	APIWindow       time.Duration
}

// SecurityHeadersConfig holds response security header settings.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr:         getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort:         getEnvInt("SERVER_PORT", 8080),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Locale:             strings.ToLower(getEnv("LOCALE", "pt-br")),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "sgm"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT defaults
		JWTIssuer:       getEnv("JWT_ISSUER", "sgm"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 24*time.Hour),

		SystemAdminPassword: getEnv("SYSTEM_ADMIN_PASSWORD", ""),

		PasswordPolicy: PasswordPolicyConfig{
			MinLength:    getEnvInt("PASSWORD_MIN_LENGTH", 7),
			HistoryLimit: getEnvInt("PASSWORD_HISTORY_LIMIT", 24),
			MaxAge:       getEnvDuration("PASSWORD_MAX_AGE", 60*24*time.Hour),
		},

		Lockout: LockoutConfig{
			MaxAttempts:   getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
			AttemptWindow: getEnvDuration("LOGIN_ATTEMPT_WINDOW", time.Hour),
			UpdateRetries: getEnvInt("ACCOUNT_UPDATE_RETRIES", 3),
		},

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  getEnvDuration("REDIS_LOCK_TTL", 10*time.Second),
		},

		RateLimit: RateLimitConfig{
			Enabled:         getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequests:    getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
			AuthWindow:      getEnvDuration("RATE_LIMIT_AUTH_WINDOW", time.Minute),
			RefreshRequests: getEnvInt("RATE_LIMIT_REFRESH_REQUESTS", 30),
			RefreshWindow:   getEnvDuration("RATE_LIMIT_REFRESH_WINDOW", time.Minute),
			APIRequests:     getEnvInt("RATE_LIMIT_API_REQUESTS", 120),
			APIWindow:       getEnvDuration("RATE_LIMIT_API_WINDOW", time.Minute),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_HEADERS_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HEADERS_HSTS_MAX_AGE", 31536000),
			FrameOptions:       getEnv("SECURITY_HEADERS_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_HEADERS_CONTENT_TYPE_OPTIONS", "nosniff"),
			XSSProtection:      getEnv("SECURITY_HEADERS_XSS_PROTECTION", "0"),
			ReferrerPolicy:     getEnv("SECURITY_HEADERS_REFERRER_POLICY", "no-referrer"),
			PermissionsPolicy:  getEnv("SECURITY_HEADERS_PERMISSIONS_POLICY", ""),
		},
	}

	secret, err := loadSecret()
	if err != nil {
		return nil, err
	}
	cfg.JWTSecret = secret

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT secret must be at least %d bytes", minSecretLength))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d out of range", c.ServerPort))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL"))
	}
	if c.PasswordPolicy.MinLength < 1 {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH must be positive"))
	}
	if c.PasswordPolicy.HistoryLimit < 1 {
		errs = append(errs, errors.New("PASSWORD_HISTORY_LIMIT must be positive"))
	}
	if c.PasswordPolicy.MaxAge <= 0 {
		errs = append(errs, errors.New("PASSWORD_MAX_AGE must be positive"))
	}
	if c.Lockout.MaxAttempts < 1 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must be positive"))
	}
	if c.Lockout.AttemptWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_ATTEMPT_WINDOW must be positive"))
	}
	if c.Lockout.UpdateRetries < 1 {
		errs = append(errs, errors.New("ACCOUNT_UPDATE_RETRIES must be positive"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.AuthRequests < 1 || c.RateLimit.AuthWindow <= 0) {
		errs = append(errs, errors.New("auth rate limit requires positive requests and window"))
	}

	return errors.Join(errs...)
}

// HasRedis returns true if a Redis address is configured.
func (c *Config) HasRedis() bool {
	return c.Redis.Addr != ""
}

// loadSecret reads JWT_BASE64_SECRET, falling back to the raw JWT_SECRET.
func loadSecret() ([]byte, error) {
	if encoded := os.Getenv("JWT_BASE64_SECRET"); encoded != "" {
		secret, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("JWT_BASE64_SECRET is not valid base64: %w", err)
		}
		return secret, nil
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret), nil
	}
	return nil, fmt.Errorf("JWT_SECRET or JWT_BASE64_SECRET is required")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
