// Package config collects the process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Host string
	Port string

	RedisAddr string
	RedisDB   int

	// SenderMode selects the delivery backend: "simulated" or "live".
	SenderMode       string
	TelegramDelay    time.Duration
	EmailDelay       time.Duration
	SimulatedFailPct int

	TelegramToken string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	EmailTo       string // address template, one %d for the user id

	QueueSize     int
	Concurrency   int
	RateQPS       float64
	RateBurst     int
	SendTimeout   time.Duration
	StatusTTL     time.Duration
	ShutdownGrace time.Duration
}

func FromEnv() Config {
	return Config{
		Host: env("HOST", "0.0.0.0"),
		Port: env("PORT", "8080"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisDB:   atoiEnv("REDIS_DB", 0),

		SenderMode:       env("SENDER_MODE", "simulated"),
		TelegramDelay:    durEnv("TELEGRAM_DELAY_MS", 2*time.Second),
		EmailDelay:       durEnv("EMAIL_DELAY_MS", 3*time.Second),
		SimulatedFailPct: atoiEnv("SIMULATED_FAIL_PCT", 0),

		TelegramToken: env("TELEGRAM_TOKEN", ""),
		SMTPHost:      env("SMTP_HOST", "localhost"),
		SMTPPort:      atoiEnv("SMTP_PORT", 587),
		SMTPUser:      env("SMTP_USER", ""),
		SMTPPass:      env("SMTP_PASS", ""),
		SMTPFrom:      env("SMTP_FROM", "notify@localhost"),
		EmailTo:       env("EMAIL_TO_TEMPLATE", "user-%d@localhost"),

		QueueSize:     atoiEnv("WORKER_QUEUE", 256),
		Concurrency:   atoiEnv("WORKER_CONCURRENCY", 16),
		RateQPS:       atofEnv("DELIVERY_QPS", 0),
		RateBurst:     atoiEnv("DELIVERY_BURST", 1),
		SendTimeout:   durEnv("SEND_TIMEOUT_MS", 30*time.Second),
		StatusTTL:     durEnv("STATUS_TTL_MS", 24*time.Hour),
		ShutdownGrace: durEnv("SHUTDOWN_GRACE_MS", 5*time.Second),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiEnv(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func atofEnv(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func durEnv(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}
