package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"weibosim/internal/model"
)

// Completion provider names accepted in LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Database drivers accepted in DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com/"

type Config struct {
	DBDriver   string
	DBDSN      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	ServerPort string

	// Empty disables API authentication.
	JWTSecret string
	TokenTTL  time.Duration

	// Empty selects the in-process cache and disables the event stream.
	RedisURL string

	FeedCacheSize int
	FeedCacheTTL  time.Duration

	API APIConfig
}

// APIConfig is what every generation task needs before it may call out.
type APIConfig struct {
	Provider    string
	ProxyURL    string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Validate fails with model.ErrConfigMissing when a required field is empty.
func (c APIConfig) Validate() error {
	var missing []string
	if c.ProxyURL == "" {
		missing = append(missing, "proxyUrl")
	}
	if c.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if c.Model == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", model.ErrConfigMissing, strings.Join(missing, ", "))
	}
	return nil
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	dbDriver := strings.ToLower(os.Getenv("DB_DRIVER"))
	if dbDriver == "" {
		dbDriver = DriverSQLite
	}
	if dbDriver != DriverSQLite && dbDriver != DriverPostgres {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", dbDriver)
	}

	dbDSN := os.Getenv("DB_DSN")
	if dbDSN == "" && dbDriver == DriverSQLite {
		dbDSN = "weibo.db"
	}

	feedCacheSize, err := strconv.Atoi(os.Getenv("FEED_CACHE_SIZE"))
	if err != nil || feedCacheSize <= 0 {
		feedCacheSize = 256
	}

	feedCacheTTL, err := time.ParseDuration(os.Getenv("FEED_CACHE_TTL"))
	if err != nil || feedCacheTTL <= 0 {
		feedCacheTTL = 6 * time.Hour
	}

	provider := strings.ToLower(os.Getenv("LLM_PROVIDER"))
	if provider == "" {
		provider = ProviderOpenAI
	}
	if provider != ProviderOpenAI && provider != ProviderGemini {
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", provider)
	}

	proxyURL := strings.TrimRight(os.Getenv("LLM_PROXY_URL"), "/")
	if proxyURL == "" && provider == ProviderGemini {
		proxyURL = defaultGeminiURL
	}

	temperature, err := strconv.ParseFloat(os.Getenv("LLM_TEMPERATURE"), 64)
	if err != nil {
		temperature = 0.8
	}

	tokenTTL, err := time.ParseDuration(os.Getenv("JWT_TTL"))
	if err != nil || tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}

	timeout, err := time.ParseDuration(os.Getenv("LLM_TIMEOUT"))
	if err != nil || timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Config{
		DBDriver:   dbDriver,
		DBDSN:      dbDSN,
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		ServerPort: serverPort,

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  tokenTTL,

		RedisURL: os.Getenv("REDIS_URL"),

		FeedCacheSize: feedCacheSize,
		FeedCacheTTL:  feedCacheTTL,

		API: APIConfig{
			Provider:    provider,
			ProxyURL:    proxyURL,
			APIKey:      os.Getenv("LLM_API_KEY"),
			Model:       os.Getenv("LLM_MODEL"),
			Temperature: temperature,
			Timeout:     timeout,
		},
	}, nil
}
