package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string. DATABASE_URL wins when set.
func (c *DBConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	BodyLimit       string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// CORSConfig holds the front-end origins allowed to call the API
type CORSConfig struct {
	Origins []string
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Root    string
	BaseURL string
	URLTTL  time.Duration
}

// MailConfig holds transactional email configuration
type MailConfig struct {
	APIKey      string
	FromAddress string
	Timeout     time.Duration
}

// RedisConfig holds the list cache configuration. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// PaginationConfig holds page size limits for list endpoints
type PaginationConfig struct {
	DefaultItems int
	MaxItems     int
}

// SeedConfig holds startup seeding options
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	ReferenceData bool
}

// Config holds all configuration
type Config struct {
	ServiceName string
	FrontendURL string
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Log         LogConfig
	Metrics     MetricsConfig
	CORS        CORSConfig
	Storage     StorageConfig
	Mail        MailConfig
	Redis       RedisConfig
	Pagination  PaginationConfig
	Seed        SeedConfig
}

// developmentSigningKey signs tokens and blob URLs outside production when no key is set
const developmentSigningKey = "defaultsecretkey"

// localOrigins are the development servers of the public site and the dashboard
var localOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3001",
	"http://localhost:3002",
}

// Load loads configuration from the environment, reading .env first when present
func Load(serviceName string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	port := getEnv("PORT", getEnv("SERVER_PORT", "3000"))

	config := &Config{
		ServiceName: serviceName,
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3001"), "/"),
		DB: DBConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", serviceName),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port:            port,
			Env:             getEnv("APP_ENV", "development"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			BodyLimit:       getEnv("SERVER_BODY_LIMIT", "200M"),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", getEnv("DEVISE_JWT_SECRET_KEY", "")),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", serviceName),
		},
		CORS: CORSConfig{
			Origins: mergeOrigins(localOrigins, getEnvAsList("CORS_ORIGINS")),
		},
		Storage: StorageConfig{
			Root:    getEnv("STORAGE_ROOT", "storage"),
			BaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
			URLTTL:  getEnvAsDuration("STORAGE_URL_TTL", 0),
		},
		Mail: MailConfig{
			APIKey:      getEnv("RESEND_API_KEY", ""),
			FromAddress: getEnv("RESEND_FROM_EMAIL", "onboarding@resend.dev"),
			Timeout:     getEnvAsDuration("MAIL_TIMEOUT", 15*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REDIS_CACHE_TTL", 5*time.Minute),
		},
		Pagination: PaginationConfig{
			DefaultItems: getEnvAsInt("PAGINATION_DEFAULT_ITEMS", 20),
			MaxItems:     getEnvAsInt("PAGINATION_MAX_ITEMS", 100),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			AdminName:     getEnv("ADMIN_NAME", "Admin"),
			ReferenceData: getEnvAsBool("SEED_REFERENCE_DATA", false),
		},
	}

	if config.JWT.SigningKey == "" {
		if config.IsProduction() {
			return nil, fmt.Errorf("JWT_SIGNING_KEY must be set when APP_ENV=production")
		}
		config.JWT.SigningKey = developmentSigningKey
	}

	if config.Pagination.DefaultItems <= 0 {
		return nil, fmt.Errorf("PAGINATION_DEFAULT_ITEMS must be positive, got %d", config.Pagination.DefaultItems)
	}
	if config.Pagination.MaxItems < config.Pagination.DefaultItems {
		return nil, fmt.Errorf("PAGINATION_MAX_ITEMS (%d) must not be below PAGINATION_DEFAULT_ITEMS (%d)",
			config.Pagination.MaxItems, config.Pagination.DefaultItems)
	}

	return config, nil
}

// IsProduction reports whether the service runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// LogFields returns the non-secret parts of the configuration as zap fields
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.DBName),
		zap.Bool("db_url_set", c.DB.URL != ""),
		zap.String("server_port", c.Server.Port),
		zap.Strings("cors_origins", c.CORS.Origins),
		zap.String("storage_root", c.Storage.Root),
		zap.Bool("mail_configured", c.Mail.APIKey != ""),
		zap.Bool("cache_enabled", c.Redis.Addr != ""),
	}
}

func mergeOrigins(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, o := range append(append([]string{}, base...), extra...) {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as booleans
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to split comma separated environment variables
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
