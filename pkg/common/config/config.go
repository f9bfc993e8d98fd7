package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers    []string
	KafkaGroupID    string
	KafkaInstanceID string

	// Remote analytics endpoints
	RemoteBaseURL      string
	RemoteTimeout      time.Duration
	RemoteClientID     string
	RemoteClientSecret string
	RemoteTokenURL     string

	// Dashboard
	RefreshInterval   time.Duration
	PushTransport     string
	PushChannel       string
	AnimationDuration time.Duration
	AnimationFrames   int
	ChartLayoutPath   string

	// Code search
	GitHubAPIURL string
	GitHubToken  string
}

const (
	PushTransportKafka = "kafka"
	PushTransportRedis = "redis"
	PushTransportNone  = "none"
)

var dotenvOnce sync.Once

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "careconnect-insights"),
		KafkaInstanceID: getEnv("KAFKA_INSTANCE_ID", ""),

		RemoteBaseURL:      getEnv("REMOTE_BASE_URL", "http://localhost:8090/services/apexrest/careconnect"),
		RemoteTimeout:      getDuration("REMOTE_TIMEOUT", 10*time.Second),
		RemoteClientID:     getEnv("REMOTE_CLIENT_ID", ""),
		RemoteClientSecret: getEnv("REMOTE_CLIENT_SECRET", ""),
		RemoteTokenURL:     getEnv("REMOTE_TOKEN_URL", ""),

		RefreshInterval:   getDuration("REFRESH_INTERVAL", 30*time.Second),
		PushTransport:     strings.ToLower(getEnv("PUSH_TRANSPORT", PushTransportKafka)),
		PushChannel:       getEnv("PUSH_CHANNEL", "Care_Insight_Event__e"),
		AnimationDuration: getDuration("ANIMATION_DURATION", 450*time.Millisecond),
		AnimationFrames:   getIntEnv("ANIMATION_FRAMES", 18),
		ChartLayoutPath:   getEnv("CHART_LAYOUT_PATH", ""),

		GitHubAPIURL: getEnv("GITHUB_API_URL", "https://api.github.com"),
		GitHubToken:  getEnv("GITHUB_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
