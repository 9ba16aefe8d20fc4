package config

import (
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Port          int
	DatabaseURL   string
	RedisAddr     string
	DataDir       string
	SweepSchedule string
}

func Load() *Config {
	return &Config{
		Port:          envInt("PORT", 3333),
		DatabaseURL:   env("DATABASE_URL", "postgres://javault:javault@db:5432/javault?sslmode=disable"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		DataDir:       env("DATA_DIR", "./data"),
		SweepSchedule: env("SWEEP_SCHEDULE", "@hourly"),
	}
}

// CoversDir is the managed directory for downloaded cover images.
func (c *Config) CoversDir() string {
	return filepath.Join(c.DataDir, "covers")
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
