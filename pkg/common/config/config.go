package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers []string
	KafkaGroupID string

	// AIMS gateway
	AIMSBaseURL        string
	AIMSUsername       string
	AIMSPassword       string
	AIMSRequestTimeout time.Duration
	AIMSFormatFile     string
	AIMSFormatCacheTTL time.Duration

	// Sync engine
	SyncProcessingDelay time.Duration
	SyncBatchSize       int
	SyncBaseRetryDelay  time.Duration
	SyncMaxRetryDelay   time.Duration
	SyncMaxAttempts     int
	SyncTickInterval    time.Duration
	ReconcileInterval   time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "shelfgrid"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "shelfgrid123"),
		PostgresDB:       getEnv("POSTGRES_DB", "shelfgrid"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "shelfgrid-platform"),

		AIMSBaseURL:        getEnv("AIMS_BASE_URL", "http://localhost:9001/aims/v2"),
		AIMSUsername:       getEnv("AIMS_USERNAME", ""),
		AIMSPassword:       getEnv("AIMS_PASSWORD", ""),
		AIMSRequestTimeout: getDuration("AIMS_REQUEST_TIMEOUT", 10*time.Second),
		AIMSFormatFile:     getEnv("AIMS_FORMAT_FILE", ""),
		AIMSFormatCacheTTL: getDuration("AIMS_FORMAT_CACHE_TTL", 10*time.Minute),

		SyncProcessingDelay: getDuration("SYNC_PROCESSING_DELAY", 5*time.Second),
		SyncBatchSize:       getIntEnv("SYNC_BATCH_SIZE", 50),
		SyncBaseRetryDelay:  getDuration("SYNC_BASE_RETRY_DELAY", 1*time.Second),
		SyncMaxRetryDelay:   getDuration("SYNC_MAX_RETRY_DELAY", 60*time.Second),
		SyncMaxAttempts:     getIntEnv("SYNC_MAX_ATTEMPTS", 5),
		SyncTickInterval:    getDuration("SYNC_TICK_INTERVAL", 10*time.Second),
		ReconcileInterval:   getDuration("RECONCILE_INTERVAL", 15*time.Minute),
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
		return []string{value}
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
