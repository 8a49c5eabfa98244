// Package config loads application settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

// Config carries every runtime setting the server needs. It is built once at
// startup and passed down by value so request handling never reads the
// environment directly.
type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	// Payload encryption for clients that require it.
	EncryptionEnabled bool
	EncryptionKey     string
	EncryptionVector  string

	RequestLoggingEnabled bool

	OTPLength      int
	OTPExpiry      time.Duration
	OTPMaxTrials   int
	LoginMaxFails  int
	LoginFailTTL   time.Duration
	DefaultCacheTTL time.Duration

	PlatformFeePercent int
	MaxBankAccounts    int

	PaystackSecretKey string
	PremblyAPIKey     string
	PremblyAppID      string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string

	DefaultPageSize int
}

// Load assembles the Config from the environment with sane defaults.
func Load() Config {
	return Config{
		Port: GetEnv("PORT", "8000"),

		DBHost:     GetEnv("DB_HOST", "localhost"),
		DBPort:     GetEnv("DB_PORT", "5432"),
		DBUser:     GetEnv("DB_USER", "postgres"),
		DBPassword: GetEnv("DB_PASSWORD", "postgres"),
		DBName:     GetEnv("DB_NAME", "kobapay"),

		RedisHost:     GetEnv("REDIS_HOST", "localhost"),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetIntEnv("REDIS_DB", 0),
		RedisPrefix:   GetEnv("REDIS_PREFIX", "kobapay"),

		JWTSecret:          GetEnv("JWT_SECRET", "kobapay-dev-secret"),
		AccessTokenExpiry:  time.Duration(GetIntEnv("ACCESS_TOKEN_HOURS", 48)) * time.Hour,
		RefreshTokenExpiry: time.Duration(GetIntEnv("REFRESH_TOKEN_HOURS", 480)) * time.Hour,

		EncryptionEnabled: GetBoolEnv("APP_ENC_ENABLED", false),
		EncryptionKey:     GetEnv("APP_ENC_KEY", ""),
		EncryptionVector:  GetEnv("APP_ENC_VEC", ""),

		RequestLoggingEnabled: GetBoolEnv("API_REQUEST_LOGGING_ENABLED", true),

		OTPLength:       4,
		OTPExpiry:       time.Duration(GetIntEnv("OTP_EXPIRY_MINUTES", 10)) * time.Minute,
		OTPMaxTrials:    GetIntEnv("OTP_MAX_TRIALS", 3),
		LoginMaxFails:   GetIntEnv("LOGIN_MAX_FAILS", 5),
		LoginFailTTL:    time.Duration(GetIntEnv("LOGIN_FAIL_WINDOW_MINUTES", 20)) * time.Minute,
		DefaultCacheTTL: time.Duration(GetIntEnv("DEFAULT_CACHE_SECONDS", 600)) * time.Second,

		PlatformFeePercent: GetIntEnv("PLATFORM_FEE_PERCENTAGE", 0),
		MaxBankAccounts:    GetIntEnv("MAX_BANK_ACCOUNTS", 1),

		PaystackSecretKey: GetEnv("PAYSTACK_SECRET_KEY", ""),
		PremblyAPIKey:     GetEnv("PREMBLY_API_KEY", ""),
		PremblyAppID:      GetEnv("PREMBLY_APP_ID", ""),

		SMTPHost:     GetEnv("SMTP_HOST", "localhost"),
		SMTPPort:     GetIntEnv("SMTP_PORT", 587),
		SMTPUser:     GetEnv("SMTP_USER", ""),
		SMTPPassword: GetEnv("SMTP_PASSWORD", ""),
		EmailFrom:    GetEnv("EMAIL_FROM", "no-reply@kobapay.local"),

		DefaultPageSize: GetIntEnv("DEFAULT_PAGE_SIZE", 10),
	}
}
