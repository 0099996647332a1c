package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port          string
	Debug         bool
	ClientOrigin  string
	ServerOrigin  string
	PostgresDSN   string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	JWTSecret          string
	CookieSecure       bool
	GoogleClientID     string
	GoogleClientSecret string

	// Sliding-window rate limits, requests per minute per client address.
	AuthRateLimit int
	PostRateLimit int
}

func Load() *Config {
	// Local development convenience; missing .env is not an error.
	_ = godotenv.Load()

	return &Config{
		Port:          getenv("PORT", "4000"),
		Debug:         getenv("DEBUG", "false") == "true",
		ClientOrigin:  getenv("CLIENT_ORIGIN", "http://localhost:3000"),
		ServerOrigin:  getenv("SERVER_ORIGIN", "http://localhost:4000"),
		PostgresDSN:   getenv("POSTGRES_DSN", ""),
		MongoURI:      getenv("MONGO_URI", ""),
		MongoDB:       getenv("MONGO_DB", "inkwell"),
		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "inkwell-avatars"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",

		JWTSecret:          getenv("JWT_SECRET", ""),
		CookieSecure:       getenv("COOKIE_SECURE", "false") == "true",
		GoogleClientID:     getenv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),

		AuthRateLimit: getint("AUTH_RATE_LIMIT", 20),
		PostRateLimit: getint("POST_RATE_LIMIT", 30),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
