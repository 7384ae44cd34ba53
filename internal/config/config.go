package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppName     string
	Env         string
	Host        string
	Port        int
	DatabaseURL string

	JWTSecret          string
	AccessTokenMinutes int

	CORSOrigins []string
	Debug       bool

	// Deletion subsystem knobs. Defaults match the product rules: three
	// self-deletions per UTC day, flag after more than three deletions in
	// a trailing seven-day window, reasons at least ten characters.
	MaxDeletesPerDay  int
	AnomalyWindowDays int
	AnomalyThreshold  int
	MinReasonLength   int
}

func Load() (*Config, error) {
	dbHost := getEnv("POSTGRES_HOST", "localhost")
	dbPort := getEnv("POSTGRES_PORT", "5432")
	dbUser := getEnv("POSTGRES_USER", "postgres")
	dbPass := getEnv("POSTGRES_PASSWORD", "postgres")
	dbName := getEnv("POSTGRES_DB", "marketplace")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbUser, dbPass),
		Host:     fmt.Sprintf("%s:%s", dbHost, dbPort),
		Path:     dbName,
		RawQuery: "sslmode=disable",
	}

	cfg := &Config{
		AppName:     getEnv("APP_NAME", "Marketplace API"),
		Env:         getEnv("APP_ENV", "development"),
		Host:        getEnv("HTTP_HOST", "0.0.0.0"),
		Port:        getEnvAsInt("HTTP_PORT", 8000),
		DatabaseURL: u.String(),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24),

		Debug: getEnvAsBool("DEBUG", true),

		MaxDeletesPerDay:  getEnvAsInt("MAX_DELETES_PER_DAY", 3),
		AnomalyWindowDays: getEnvAsInt("DELETE_ANOMALY_WINDOW_DAYS", 7),
		AnomalyThreshold:  getEnvAsInt("DELETE_ANOMALY_THRESHOLD", 3),
		MinReasonLength:   getEnvAsInt("DELETE_REASON_MIN_LENGTH", 10),
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
