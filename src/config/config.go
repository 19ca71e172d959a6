package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port     string
	LogLevel string

	AlpacaAPIKey    string
	AlpacaSecretKey string
	AlpacaBaseURL   string
	AlpacaDataURL   string

	PerplexityAPIKey  string
	PerplexityBaseURL string

	WatchlistPath string
	EnvFilePath   string

	ChatTimeout   time.Duration
	ChatMaxTokens int
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")
	Cfg = configFromEnv()

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, WatchlistPath=%s, AlpacaConfigured=%t, PerplexityConfigured=%t",
		Cfg.Port, Cfg.LogLevel, Cfg.WatchlistPath, Cfg.AlpacaConfigured(), Cfg.PerplexityConfigured())
}

func configFromEnv() *AppConfig {
	return &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AlpacaAPIKey:    strings.TrimSpace(getEnv("ALPACA_API_KEY", "")),
		AlpacaSecretKey: strings.TrimSpace(getEnv("ALPACA_SECRET_KEY", "")),
		AlpacaBaseURL:   getEnv("ALPACA_BASE_URL", "https://api.alpaca.markets"),
		AlpacaDataURL:   getEnv("ALPACA_DATA_URL", ""),

		PerplexityAPIKey:  strings.TrimSpace(getEnv("PERPLEXITY_API_KEY", "")),
		PerplexityBaseURL: getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),

		WatchlistPath: getEnv("WATCHLIST_PATH", "watchlist.json"),
		EnvFilePath:   getEnv("ENV_FILE_PATH", ".env"),

		ChatTimeout:   getEnvAsDuration("CHAT_TIMEOUT", 60*time.Second),
		ChatMaxTokens: getEnvAsInt("CHAT_MAX_TOKENS", 2000),
	}
}

// AlpacaConfigured reports whether both brokerage credentials are present.
func (c *AppConfig) AlpacaConfigured() bool {
	return c.AlpacaAPIKey != "" && c.AlpacaSecretKey != ""
}

// PerplexityConfigured reports whether the completions API key is present.
func (c *AppConfig) PerplexityConfigured() bool {
	return c.PerplexityAPIKey != ""
}

// SaveCredentials rewrites the .env file with the supplied API keys and
// reloads the active configuration so subsequent requests pick them up.
func SaveCredentials(alpacaKey, alpacaSecret, perplexityKey string) error {
	envContent := fmt.Sprintf(`# Alpaca Trading API Keys
ALPACA_API_KEY="%s"
ALPACA_SECRET_KEY="%s"
ALPACA_BASE_URL="https://api.alpaca.markets"

# Perplexity AI API Key
PERPLEXITY_API_KEY="%s"
`, alpacaKey, alpacaSecret, perplexityKey)

	envPath := ".env"
	if Cfg != nil && Cfg.EnvFilePath != "" {
		envPath = Cfg.EnvFilePath
	}
	if err := os.WriteFile(envPath, []byte(envContent), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", envPath, err)
	}

	if err := godotenv.Overload(envPath); err != nil {
		return fmt.Errorf("failed to reload %s: %w", envPath, err)
	}
	Cfg = configFromEnv()
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
