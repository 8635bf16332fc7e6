package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
)

type Config struct {
	Port        string
	DatabaseURL string
	DemoMode    bool

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	Currency          string

	RedisURL           string
	TournamentCacheTTL time.Duration

	RabbitURL      string
	EventsExchange string
	OutboxInterval time.Duration
	OutboxBatch    int

	MetricsToken string

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string

	ShutdownTimeout time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := Config{
		Port:        getEnv("PORT", "8000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DemoMode:    parseBool("DEMO_MODE", false),

		RazorpayKeyID:     os.Getenv("RAZORPAY_API_KEY"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_API_SECRET"),
		RazorpayBaseURL:   strings.TrimRight(getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"), "/"),
		Currency:          strings.ToUpper(getEnv("PAYMENT_CURRENCY", "INR")),

		RedisURL:           os.Getenv("REDIS_URL"),
		TournamentCacheTTL: parseDuration("TOURNAMENT_CACHE_TTL", 5*time.Second),

		RabbitURL:      os.Getenv("RABBITMQ_URL"),
		EventsExchange: getEnv("PAYMENT_EVENTS_EXCHANGE", "payment.events"),
		OutboxInterval: parseDuration("OUTBOX_INTERVAL", 5*time.Second),
		OutboxBatch:    parseInt("OUTBOX_BATCH", 32),

		MetricsToken: os.Getenv("METRICS_TOKEN"),

		R2AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2Bucket:          os.Getenv("R2_BUCKET_NAME"),

		ShutdownTimeout: parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings the payment path cannot run without.
func (c Config) Validate() error {
	if c.RazorpayKeySecret == "" {
		return errors.New("RAZORPAY_API_SECRET environment variable not set")
	}
	if _, err := currency.ParseISO(c.Currency); err != nil {
		return fmt.Errorf("PAYMENT_CURRENCY %q is not an ISO 4217 code: %w", c.Currency, err)
	}
	if c.OutboxBatch <= 0 {
		return fmt.Errorf("OUTBOX_BATCH must be positive, got %d", c.OutboxBatch)
	}
	return nil
}

// R2Enabled reports whether object storage credentials are complete.
func (c Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2Bucket != ""
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if raw, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
		log.Printf("⚠️  invalid %s=%q, using default %s", key, raw, def)
	}
	return def
}

func parseInt(key string, def int) int {
	if raw, ok := os.LookupEnv(key); ok {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
		log.Printf("⚠️  invalid %s=%q, using default %d", key, raw, def)
	}
	return def
}

func parseBool(key string, def bool) bool {
	if raw, ok := os.LookupEnv(key); ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
		log.Printf("⚠️  invalid %s=%q, using default %t", key, raw, def)
	}
	return def
}
