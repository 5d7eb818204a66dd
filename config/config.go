package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var (
	once sync.Once
	cfg  *Config
)

// Config aggregates every externally tunable setting. Values come from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Minio    MinioConfig
	Gemini   GeminiConfig
	Limits   LimitsConfig
}

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type PostgresConfig struct {
	URL string
}

type RedisConfig struct {
	Addr string
	DB   int
}

type MinioConfig struct {
	AccessKey  string
	SecretKey  string
	Endpoint   string
	UseSSL     bool
	Region     string
	BucketName string
}

type GeminiConfig struct {
	APIKey         string
	ChatModel      string
	EmbedModel     string
	EmbedDimension int
	Timeout        time.Duration
}

// LimitsConfig carries the two independent abuse-protection ceilings.
// DailyQuota* bounds expensive LLM ingestions per user per day; Window*
// bounds raw request volume inside a sliding window.
type LimitsConfig struct {
	MaxFileSize    int64
	DailyQuotaFree int
	DailyQuotaPaid int
	WindowSize     time.Duration
	WindowAnon     int
	WindowAuth     int
}

func Get() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found, falling back to environment variables")
		}

		cfg = &Config{
			Server: ServerConfig{
				Addr:            getEnv("SERVER_ADDR", ":8080"),
				ShutdownTimeout: 5 * time.Second,
			},
			Postgres: PostgresConfig{
				URL: getEnv("POSTGRES_URL", "postgres://localhost:5432/course_processor"),
			},
			Redis: RedisConfig{
				Addr: getEnv("REDIS_ADDR", "localhost:6379"),
				DB:   getEnvInt("REDIS_DB", 0),
			},
			Minio: MinioConfig{
				AccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey:  os.Getenv("MINIO_SECRET_KEY"),
				Endpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
				UseSSL:     false,
				Region:     os.Getenv("MINIO_REGION"),
				BucketName: getEnv("MINIO_BUCKET_NAME", "course-uploads"),
			},
			Gemini: GeminiConfig{
				APIKey:         os.Getenv("GEMINI_API_KEY"),
				ChatModel:      getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
				EmbedModel:     getEnv("GEMINI_EMBED_MODEL", "gemini-embedding-001"),
				EmbedDimension: getEnvInt("GEMINI_EMBED_DIMENSION", 768),
				Timeout:        getEnvDuration("GEMINI_TIMEOUT", 120*time.Second),
			},
			Limits: LimitsConfig{
				MaxFileSize:    int64(getEnvInt("MAX_FILE_SIZE", 20*1024*1024)),
				DailyQuotaFree: getEnvInt("DAILY_QUOTA_FREE", 3),
				DailyQuotaPaid: getEnvInt("DAILY_QUOTA_PAID", 50),
				WindowSize:     getEnvDuration("RATE_WINDOW", time.Minute),
				WindowAnon:     getEnvInt("RATE_LIMIT_ANON", 30),
				WindowAuth:     getEnvInt("RATE_LIMIT_AUTH", 120),
			},
		}
	})
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
