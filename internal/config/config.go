package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	API      APIConfig
	Share    ShareConfig
	Maps     MapsConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Addr         string
	APIAddr      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver       string // sqlite or postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	AutoMigrate  bool
}

type SessionConfig struct {
	Store      string // cookie or redis
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type APIConfig struct {
	RateLimit      int
	AllowedOrigins []string
}

type ShareConfig struct {
	BaseURL string
	QRSize  int
}

type MapsConfig struct {
	GoogleAPIKey string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:         getEnv("WEB_ADDR", ":5000"),
			APIAddr:      getEnv("API_ADDR", ":8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "sqlite"),
			DSN:          getEnv("DB_DSN", "file:disasters.db?cache=shared"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Session: SessionConfig{
			Store:      getEnv("SESSION_STORE", "cookie"),
			Secret:     os.Getenv("SERVER_APP_SECRET_KEY"),
			CookieName: getEnv("SESSION_COOKIE_NAME", "disaster_session"),
			TTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
			Secure:     getEnvBool("SESSION_COOKIE_SECURE", false),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvList("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_TOPIC", "disasters.user-activity"),
		},
		API: APIConfig{
			RateLimit:      getEnvInt("API_RATE_LIMIT", 10),
			AllowedOrigins: getEnvList("API_ALLOWED_ORIGINS", "*"),
		},
		Share: ShareConfig{
			BaseURL: strings.TrimRight(getEnv("SHARE_BASE_URL", "http://localhost:5000"), "/"),
			QRSize:  getEnvInt("SHARE_QR_SIZE", 256),
		},
		Maps: MapsConfig{
			GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Dir:   getEnv("LOG_DIR", "logs"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DB_DRIVER: %s", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	switch c.Session.Store {
	case "cookie", "redis":
	default:
		return fmt.Errorf("invalid SESSION_STORE: %s", c.Session.Store)
	}
	if c.Session.Store == "cookie" && len(c.Session.Secret) < 16 {
		return fmt.Errorf("SERVER_APP_SECRET_KEY must be at least 16 characters for cookie sessions")
	}
	if c.Session.TTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least 1 minute")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if c.API.RateLimit < 1 {
		return fmt.Errorf("API_RATE_LIMIT must be positive")
	}
	if c.Share.QRSize < 64 {
		return fmt.Errorf("SHARE_QR_SIZE must be at least 64")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
