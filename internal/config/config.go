package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Remote explanation/quiz service
	APIBaseURL string

	// Sessions
	RetentionHours int
	DefaultAge     int

	// Quiz
	QuizNumQuestions int
	QuizDifficulty   string

	// Storage: "file", "redis" or "postgres"
	StorageType string
	StoragePath string
	RedisURL    string
	DatabaseURL string

	// Stub server
	Port string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		APIBaseURL:       getEnvOrDefault("ELIX_API_BASE_URL", "http://localhost:8000"),
		RetentionHours:   getEnvAsIntOrDefault("CHAT_RETENTION_HOURS", 24),
		DefaultAge:       getEnvAsIntOrDefault("DEFAULT_AGE", 10),
		QuizNumQuestions: getEnvAsIntOrDefault("QUIZ_NUM_QUESTIONS", 5),
		QuizDifficulty:   getEnvOrDefault("QUIZ_DIFFICULTY", "medium"),
		StorageType:      getEnvOrDefault("STORAGE_TYPE", "file"),
		StoragePath:      getEnvOrDefault("STORAGE_PATH", "./data/elix-state.json"),
		RedisURL:         getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:      getEnvOrDefault("DATABASE_URL", ""),
		Port:             getEnvOrDefault("PORT", "8000"),
	}

	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
