// Package config loads the importer's runtime configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SGK112/remodely-importer/pkg/database"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppName    string
	LogLevel   string
	PrettyLogs bool

	// PostgreSQL
	DatabaseDriver                string
	DatabaseHost                  string
	DatabasePort                  string
	DatabaseUserName              string
	DatabasePassword              string
	DatabaseName                  string
	DatabaseSSLMode               string
	DatabaseMaxOpenConns          int
	DatabaseMaxIdleConns          int
	DatabaseConnMaxLifetime       time.Duration
	DatabaseMigrationFolderPath   string
	DatabaseMigrationVersion      int
	DatabaseMigrationForce        int
	DatabaseMigrationAutoRollback bool

	// Kafka producer. Disabled by default; the importer runs fine without a
	// broker and simply skips event emission.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaOutputTopic  string
	KafkaBatchSize    int
	KafkaBatchTimeout int
	KafkaRequiredAcks int
	KafkaCompression  string

	// Import run
	FeedPath           string
	ImportBatchSize    int
	ImportBatchDelayMs int
	ProgressInterval   int
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		AppName:    getEnv("APP_NAME", "remodely-importer"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		PrettyLogs: getEnvBool("PRETTY_LOGS", false),

		DatabaseDriver:                getEnv("DB_DRIVER", "postgres"),
		DatabaseHost:                  getEnv("DB_HOST", "localhost"),
		DatabasePort:                  getEnv("DB_PORT", "5432"),
		DatabaseUserName:              getEnv("DB_USER_NAME", "remodely"),
		DatabasePassword:              getEnv("DB_PASSWORD", ""),
		DatabaseName:                  getEnv("DB_NAME", "remodely"),
		DatabaseSSLMode:               getEnv("DB_SSL_MODE", "disable"),
		DatabaseMaxOpenConns:          getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DatabaseMaxIdleConns:          getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DatabaseConnMaxLifetime:       time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SECONDS", 10)) * time.Second,
		DatabaseMigrationFolderPath:   getEnv("DB_MIGRATION_FOLDER_PATH", "db/pg"),
		DatabaseMigrationVersion:      getEnvInt("DB_MIGRATION_VERSION", 0),
		DatabaseMigrationForce:        getEnvInt("DB_MIGRATION_FORCE", 0),
		DatabaseMigrationAutoRollback: getEnvBool("DB_MIGRATION_AUTO_ROLLBACK", true),

		KafkaEnabled:      getEnvBool("KAFKA_ENABLED", false),
		KafkaBrokers:      getEnvList("KAFKA_BROKERS", "localhost:9092"),
		KafkaOutputTopic:  getEnv("KAFKA_OUTPUT_TOPIC", "contractor-events"),
		KafkaBatchSize:    getEnvInt("KAFKA_BATCH_SIZE", 100),
		KafkaBatchTimeout: getEnvInt("KAFKA_BATCH_TIMEOUT_MS", 100),
		KafkaRequiredAcks: getEnvInt("KAFKA_REQUIRED_ACKS", 1),
		KafkaCompression:  getEnv("KAFKA_COMPRESSION", "snappy"),

		FeedPath:           getEnv("FEED_PATH", ""),
		ImportBatchSize:    getEnvInt("IMPORT_BATCH_SIZE", 100),
		ImportBatchDelayMs: getEnvInt("IMPORT_BATCH_DELAY_MS", 100),
		ProgressInterval:   getEnvInt("IMPORT_PROGRESS_INTERVAL", 1000),
	}
}

// DatabaseConfig maps the loaded settings onto the database connection config.
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Driver:          c.DatabaseDriver,
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		UserName:        c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
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

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	val := os.Getenv(key)
	if val == "" {
		val = fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
