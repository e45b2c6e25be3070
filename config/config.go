package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

// Config holds every knob the handlers need, read from the environment
// once at startup and injected explicitly. Handlers never touch os.Getenv.
type Config struct {
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// Telegram notification credentials
	TELEGRAM_BOT_TOKEN string
	TELEGRAM_CHAT_ID   string
	TELEGRAM_API_URL   string
	// Redis (optional presence backend)
	REDIS_URL string
	// S3-compatible object storage for message images
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
	SPACES_CDN_URL    string

	// Creation quota: at most RateLimitMax tickets or payment requests
	// per session inside the trailing RateLimitWindow.
	RateLimitMax    int64
	RateLimitWindow time.Duration
	// A visitor counts as currently online while last_activity is within
	// this window.
	VisitorOnlineWindow time.Duration
	// A presence ping counts toward the online gauge while younger than
	// this. Intentionally separate from VisitorOnlineWindow; the two
	// notions drifted apart across handler generations and both are kept.
	PresenceWindow time.Duration
}

func Get() (*Config, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	telegramAPI := os.Getenv("TELEGRAM_API_URL")
	if telegramAPI == "" {
		telegramAPI = "https://api.telegram.org"
	}

	cfg := &Config{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// Telegram
		TELEGRAM_BOT_TOKEN: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TELEGRAM_CHAT_ID:   os.Getenv("TELEGRAM_CHAT_ID"),
		TELEGRAM_API_URL:   telegramAPI,
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Spaces
		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     os.Getenv("SPACES_REGION"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),
		SPACES_CDN_URL:    os.Getenv("SPACES_CDN_URL"),

		RateLimitMax:        envInt64("RATE_LIMIT_MAX", 5),
		RateLimitWindow:     envDuration("RATE_LIMIT_WINDOW", 24*time.Hour),
		VisitorOnlineWindow: envDuration("VISITOR_ONLINE_WINDOW", 5*time.Minute),
		PresenceWindow:      envDuration("PRESENCE_WINDOW", 30*time.Second),
	}

	return cfg, nil
}

func envInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
