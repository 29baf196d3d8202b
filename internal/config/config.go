package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string
	TxTimeout   time.Duration

	JWTSecret       string
	JWTAccessExpiry time.Duration

	BaseURL string

	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy keys rate limiting on X-Forwarded-For instead of the peer
	// address. Only enable it behind a proxy that overwrites the header.
	TrustProxy bool

	MaxSeriesOccurrences int

	Redis RedisConfig
	SMTP  SMTPConfig
}

type RedisConfig struct {
	URL   string
	Queue string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	accessExpiry, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	txTimeout, err := time.ParseDuration(getEnv("TX_TIMEOUT", "5s"))
	if err != nil {
		txTimeout = 5 * time.Second
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TxTimeout:   txTimeout,

		JWTSecret:       getEnvOrPanic("JWT_SECRET"),
		JWTAccessExpiry: accessExpiry,

		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
		TrustProxy:     getEnvBool("TRUST_PROXY", false),

		MaxSeriesOccurrences: getEnvInt("MAX_SERIES_OCCURRENCES", 104),

		Redis: RedisConfig{
			URL:   getEnv("REDIS_URL", ""),
			Queue: getEnv("NOTIFY_QUEUE", "playdate:notifications"),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}
