package config

import (
	"os"
	"time"
)

// Config holds all environment-driven settings.
type Config struct {
	// Database
	DatabaseURL string

	// JWT
	JWTSecret string
	JWTExpiry time.Duration

	// Object storage (Supabase Storage)
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	// Observability
	SentryDSN string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: parseDuration(getEnv("JWT_EXPIRY", "168h")),

		SupabaseURL:    getEnv("SUPABASE_URL", ""),
		SupabaseKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseBucket: getEnv("SUPABASE_BUCKET", "haki-files"),

		SentryDSN: getEnv("SENTRY_DSN", ""),

		Port:        getEnv("PORT", "3000"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}
