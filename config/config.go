package config

import (
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Port           int
	LogLevel       string
	ClientURL      string
	StoragePath    string
	DBPath         string
	MaxUploadMB    int64 // per-file multipart limit
	SweepInterval  int   // minutes between scratch sweeps
	ScratchMaxAge  int   // minutes before a scratch file is considered stale
	TransformSlots int   // concurrent CPU-bound image transforms
}

func Load() *Config {
	return &Config{
		Port:           getEnvAsInt("PORT", 3000),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ClientURL:      getEnv("CLIENT_URL", "http://localhost:5173"),
		StoragePath:    getEnv("STORAGE_PATH", filepath.Join(".", "storage")),
		DBPath:         getEnv("DB_PATH", filepath.Join(".", "data", "emohub.db")),
		MaxUploadMB:    getEnvAsInt64("MAX_UPLOAD_MB", 10),
		SweepInterval:  getEnvAsInt("SWEEP_INTERVAL_MIN", 30),
		ScratchMaxAge:  getEnvAsInt("SCRATCH_MAX_AGE_MIN", 60),
		TransformSlots: getEnvAsInt("TRANSFORM_SLOTS", 4),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
