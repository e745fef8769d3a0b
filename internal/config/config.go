package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server              ServerConfig
	Database            DatabaseConfig
	Redis               RedisConfig
	Kafka               KafkaConfig
	AuthService         ServiceConfig
	NotificationService ServiceConfig
	Numbering           NumberingConfig
	Features            FeatureFlags
	LogLevel            string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
	// InvalidateDelay is how long after a write the document's cache entry is
	// deleted a second time. Zero disables the second delete.
	InvalidateDelay time.Duration
}

type KafkaConfig struct {
	Brokers        []string
	DocumentsTopic string
}

type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// SequenceBackend selects the store behind document numbering.
type SequenceBackend string

const (
	SequenceBackendPostgres SequenceBackend = "postgres"
	SequenceBackendRedis    SequenceBackend = "redis"
)

type NumberingConfig struct {
	Backend   SequenceBackend
	MinDigits int
}

type FeatureFlags struct {
	EnableDocumentCaching bool
	EnableDocumentEvents  bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8085),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "acme"),
			Password:     getEnvString("DB_PASSWORD", "acme"),
			Name:         getEnvString("DB_NAME", "acme_billing"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_CACHE_TTL", 5*time.Minute),

			InvalidateDelay: getEnvDuration("REDIS_INVALIDATE_DELAY", 500*time.Millisecond),
		},
		Kafka: KafkaConfig{
			Brokers:        getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			DocumentsTopic: getEnvString("KAFKA_DOCUMENTS_TOPIC", "billing.documents"),
		},
		AuthService: ServiceConfig{
			BaseURL: getEnvString("AUTH_SERVICE_URL", "http://localhost:8081"),
			Timeout: getEnvDuration("AUTH_SERVICE_TIMEOUT", 5*time.Second),
			APIKey:  getEnvString("AUTH_SERVICE_API_KEY", ""),
		},
		NotificationService: ServiceConfig{
			BaseURL: getEnvString("NOTIFICATION_SERVICE_URL", "http://localhost:8084"),
			Timeout: getEnvDuration("NOTIFICATION_SERVICE_TIMEOUT", 10*time.Second),
			APIKey:  getEnvString("NOTIFICATION_SERVICE_API_KEY", ""),
		},
		Numbering: NumberingConfig{
			Backend:   SequenceBackend(getEnvString("SEQUENCE_BACKEND", string(SequenceBackendPostgres))),
			MinDigits: getEnvInt("DOCUMENT_NUMBER_MIN_DIGITS", 3),
		},
		Features: FeatureFlags{
			EnableDocumentCaching: getEnvBool("ENABLE_DOCUMENT_CACHING", true),
			EnableDocumentEvents:  getEnvBool("ENABLE_DOCUMENT_EVENTS", true),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
