package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer    string // Issuer claim for access tokens (default: nexhire-identity)
	JWTSecret string // Required: HS256 signing secret, at least 32 bytes

	DatabaseFile         string        // Path to SQLite database file (default: ./identity.db)
	PepperFile           string        // Path to file containing pepper for password hashing (default: ./pepper)
	AccessTokenTTL       time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL      time.Duration // Refresh token lifetime (default: 168h)
	OTPTTL               time.Duration // Verification code lifetime (default: 10m)
	ResetTokenTTL        time.Duration // Password reset token lifetime (default: 1h)
	TestMode             bool          // When true, verification codes are always "000000"
	AuditBufferSize      int           // In-flight audit event cap (default: 256)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:               getEnvOrDefault("IDENTITY_ISSUER", "nexhire-identity"),
		JWTSecret:            os.Getenv("IDENTITY_JWT_SECRET"),
		DatabaseFile:         getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"),
		PepperFile:           getEnvOrDefault("IDENTITY_PEPPER_FILE", "pepper"),
		AccessTokenTTL:       getEnvDurationOrDefault("IDENTITY_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:      getEnvDurationOrDefault("IDENTITY_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		OTPTTL:               getEnvDurationOrDefault("IDENTITY_OTP_TTL", 10*time.Minute),
		ResetTokenTTL:        getEnvDurationOrDefault("IDENTITY_RESET_TOKEN_TTL", 1*time.Hour),
		TestMode:             getEnvBoolOrDefault("IDENTITY_TEST_MODE", false),
		AuditBufferSize:      getEnvIntOrDefault("IDENTITY_AUDIT_BUFFER", 256),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
