package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	Env                string
	APIMaxBodyBytes    int64
	ImportMaxFileBytes int64
	ImportMaxRows      int
	ReadHeaderTimeout  time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	RateLimitMaxIPs    int
	CORSAllowedOrigins []string
	SessionCookieName  string
	SessionTTL         time.Duration
	SecureCookies      bool
	CSRFEnforce        bool

	Import ImportConfig

	AIEnabled bool
	AIBaseURL string
	AIAPIKey  string
	AIModel   string
}

// ImportConfig carries the import engine's tuned heuristics. The defaults
// mirror the values dispatch teams have converged on; every one of them is
// overridable per deployment.
type ImportConfig struct {
	BatchSize           int
	PreviewCap          int
	LoadPreviewCap      int
	MaxRowMessages      int
	DefaultPayRate      float64 // dollars per mile for reconstructed driver pay
	HighMileageMiles    float64
	MaxCargoWeightLbs   float64
	MaxPlausibleRevenue float64
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:               getEnv("API_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Env:                getEnv("APP_ENV", "dev"),
		APIMaxBodyBytes:    int64(getEnvInt("API_MAX_BODY_MB", 2)) * 1024 * 1024,
		ImportMaxFileBytes: int64(getEnvInt("IMPORT_MAX_FILE_MB", 25)) * 1024 * 1024,
		ImportMaxRows:      getEnvInt("IMPORT_MAX_ROWS", 10000),
		ReadHeaderTimeout:  time.Duration(getEnvInt("API_READ_HEADER_TIMEOUT_SEC", 5)) * time.Second,
		ReadTimeout:        time.Duration(getEnvInt("API_READ_TIMEOUT_SEC", 15)) * time.Second,
		WriteTimeout:       time.Duration(getEnvInt("API_WRITE_TIMEOUT_SEC", 120)) * time.Second,
		IdleTimeout:        time.Duration(getEnvInt("API_IDLE_TIMEOUT_SEC", 60)) * time.Second,
		RateLimitMaxIPs:    getEnvInt("RATE_LIMIT_MAX_IPS", 10000),
		CORSAllowedOrigins: getEnvCSV("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "ho_sess"),
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_HOURS", 12)) * time.Hour,
		SecureCookies:     getEnvBool("COOKIE_SECURE", false),
		CSRFEnforce:       getEnvBool("CSRF_ENFORCE", true),
		Import: ImportConfig{
			BatchSize:           getEnvInt("IMPORT_BATCH_SIZE", 50),
			PreviewCap:          getEnvInt("IMPORT_PREVIEW_CAP", 10),
			LoadPreviewCap:      getEnvInt("IMPORT_LOAD_PREVIEW_CAP", 100),
			MaxRowMessages:      getEnvInt("IMPORT_MAX_ROW_MESSAGES", 500),
			DefaultPayRate:      getEnvFloat("IMPORT_DEFAULT_PAY_RATE", 0.65),
			HighMileageMiles:    getEnvFloat("IMPORT_HIGH_MILEAGE_MILES", 4000),
			MaxCargoWeightLbs:   getEnvFloat("IMPORT_MAX_CARGO_WEIGHT_LBS", 80000),
			MaxPlausibleRevenue: getEnvFloat("IMPORT_MAX_PLAUSIBLE_REVENUE", 100000),
		},
		AIEnabled: getEnvBool("AI_ENRICHMENT_ENABLED", false),
		AIBaseURL: getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
		AIAPIKey:  os.Getenv("AI_API_KEY"),
		AIModel:   getEnv("AI_MODEL", "gpt-4o-mini"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AIEnabled && cfg.AIAPIKey == "" {
		return Config{}, fmt.Errorf("AI_API_KEY is required when AI_ENRICHMENT_ENABLED=true")
	}

	if cfg.Env == "prod" {
		cfg.SecureCookies = true
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvCSV(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
