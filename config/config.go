package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver string
	DBDSN    string

	JWTSecret string

	SweepInterval   time.Duration
	SweepBatch      int
	AutoNoShowAfter time.Duration

	DefaultTimeoutMinutes int
	DefaultBookMinutes    int
	NoShowGraceMode       string
	NoShowGrace           time.Duration
	BookingMaxRetries     int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RabbitMQURL   string
	NotifyQueue   string

	RateLimit      RateLimitConfig
	AllowedOrigins []string
}

// Load reads the process environment. godotenv is applied by the caller.
func Load() (Config, error) {
	cfg := Config{
		Port:    envStr("PORT", "8080"),
		GinMode: envStr("GIN_MODE", "debug"),

		DBDriver: strings.ToLower(envStr("DB_DRIVER", "mysql")),

		JWTSecret: os.Getenv("JWT_SECRET"),

		SweepInterval:   envDur("EXPIRY_SWEEP_INTERVAL", 30*time.Second),
		SweepBatch:      envInt("EXPIRY_SWEEP_BATCH", 100),
		AutoNoShowAfter: envDur("AUTO_NO_SHOW_AFTER", 0),

		DefaultTimeoutMinutes: envInt("DEFAULT_TIMEOUT_MINUTES", 15),
		DefaultBookMinutes:    envInt("DEFAULT_BOOK_MINUTES", 90),
		NoShowGraceMode:       envStr("NO_SHOW_GRACE_POLICY", "cancel_minutes"),
		NoShowGrace:           envDur("NO_SHOW_GRACE", 15*time.Minute),
		BookingMaxRetries:     envInt("BOOKING_MAX_RETRIES", 5),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		NotifyQueue:   envStr("NOTIFY_QUEUE", "reservation.events"),

		RateLimit:      LoadRateLimitConfig(),
		AllowedOrigins: splitList(envStr("CORS_ALLOWED_ORIGINS", "http://127.0.0.1:5500")),
	}

	dsn, err := buildDSN(cfg.DBDriver)
	if err != nil {
		return cfg, err
	}
	cfg.DBDSN = dsn

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SweepInterval <= 0 {
		return cfg, fmt.Errorf("EXPIRY_SWEEP_INTERVAL must be positive")
	}
	switch cfg.NoShowGraceMode {
	case "cancel_minutes", "fixed":
	default:
		return cfg, fmt.Errorf("NO_SHOW_GRACE_POLICY must be cancel_minutes or fixed, got %q", cfg.NoShowGraceMode)
	}
	return cfg, nil
}

func buildDSN(driver string) (string, error) {
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		return dsn, nil
	}
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASS")
	host := envStr("DB_HOST", "127.0.0.1")
	name := os.Getenv("DB_NAME")

	switch driver {
	case "mysql":
		if user == "" || name == "" {
			return "", fmt.Errorf("DB_USER and DB_NAME are required for mysql")
		}
		port := envStr("DB_PORT", "3306")
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC", user, pass, host, port, name), nil
	case "postgres":
		if user == "" || name == "" {
			return "", fmt.Errorf("DB_USER and DB_NAME are required for postgres")
		}
		port := envStr("DB_PORT", "5432")
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			host, user, pass, name, port, envStr("DB_SSLMODE", "disable")), nil
	case "sqlite":
		return envStr("DB_NAME", "reservations.db"), nil
	}
	return "", fmt.Errorf("unsupported DB_DRIVER %q", driver)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
