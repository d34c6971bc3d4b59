package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	NavTimeoutSec  int
	MaxReviewPages int

	PDFDir      string
	SpecsDir    string
	LiveDataDir string
	ChromeBin   string

	APIPort      string
	GeminiAPIKey string
	GeminiModel  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "laptops"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "laptops123"),
		PostgresDB:       getEnv("POSTGRES_DB", "laptop_intel"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 2),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		NavTimeoutSec:  getEnvInt("NAV_TIMEOUT_SEC", 60),
		MaxReviewPages: getEnvInt("MAX_REVIEW_PAGES", 10),

		PDFDir:      getEnv("PDF_DIR", "./data/pdfs"),
		SpecsDir:    getEnv("SPECS_DIR", "./data/specs"),
		LiveDataDir: getEnv("LIVE_DATA_DIR", "./data/live"),
		ChromeBin:   getEnv("CHROME_BIN", ""),

		APIPort:      getEnv("API_PORT", "8000"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-pro"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
