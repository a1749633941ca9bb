package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey     string
	HTTPPort         string
	LogLevel         string
	StorageBackend   string // "memory" or "sqlite"
	DatabaseURL      string
	PromptCharBudget int
	ModelTimeout     time.Duration
	MaxUploadBytes   int64
}

func Load() Config {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := Config{
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		StorageBackend:   getEnv("STORAGE_BACKEND", "memory"),
		DatabaseURL:      getEnv("DATABASE_URL", "docchat.db"),
		PromptCharBudget: getEnvAsInt("PROMPT_CHAR_BUDGET", 15000),
		ModelTimeout:     time.Duration(getEnvAsInt("MODEL_TIMEOUT_SECONDS", 60)) * time.Second,
		MaxUploadBytes:   int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
	}

	// A missing API key is not fatal: the analyzer degrades to a fixed
	// advisory answer until a key is configured.
	if cfg.GeminiAPIKey == "" {
		log.Println("GEMINI_API_KEY is not set, document analysis will return an advisory response")
	}

	return cfg
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
