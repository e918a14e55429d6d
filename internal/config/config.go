package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Filesystem namespaces and upload limits
	Storage StorageConfig `yaml:"storage"`

	// Publishing defaults
	Publish PublishConfig `yaml:"publish"`

	// Background sweeper
	Sweep SweepConfig `yaml:"sweep"`

	// Admin gate
	Auth AuthConfig `yaml:"auth"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	MigrationsPath string `yaml:"migrationsPath"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Name         string        `yaml:"name"`
	SSLMode      string        `yaml:"sslMode"`
	MaxOpenConns int           `yaml:"maxOpenConns"`
	MaxIdleConns int           `yaml:"maxIdleConns"`
	MaxLifetime  time.Duration `yaml:"maxLifetime"`
}

// StorageConfig holds the temporary and permanent namespaces.
// TempDir, ArticlesDir and UploadsDir should live on the same filesystem
// so promotion stays a single rename.
type StorageConfig struct {
	TempDir         string `yaml:"tempDir"`
	ArticlesDir     string `yaml:"articlesDir"`
	UploadsDir      string `yaml:"uploadsDir"`
	MaxDocumentSize int64  `yaml:"maxDocumentSize"` // in bytes
	MaxImageSize    int64  `yaml:"maxImageSize"`    // in bytes
}

// PublishConfig holds article defaults applied at confirm time
type PublishConfig struct {
	DefaultCategory   string `yaml:"defaultCategory"`
	DescriptionLength int    `yaml:"descriptionLength"`
}

// SweepConfig controls expiry of abandoned previews and crash recovery
type SweepConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	TempTTL    time.Duration `yaml:"tempTTL"`
	PendingTTL time.Duration `yaml:"pendingTTL"`
}

// AuthConfig holds admin token verification settings
type AuthConfig struct {
	JWTSecret  string `yaml:"jwtSecret"`
	CookieName string `yaml:"cookieName"`
	AdminRole  string `yaml:"adminRole"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "pretty"
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         "5432",
			User:         "postgres",
			Password:     "postgres",
			Name:         "articles",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			MaxLifetime:  5 * time.Minute,
		},
		Storage: StorageConfig{
			TempDir:         "./temp",
			ArticlesDir:     "./public/articles",
			UploadsDir:      "./public/uploads",
			MaxDocumentSize: 10 * 1024 * 1024, // 10MB
			MaxImageSize:    5 * 1024 * 1024,  // 5MB
		},
		Publish: PublishConfig{
			DefaultCategory:   "General",
			DescriptionLength: 160,
		},
		Sweep: SweepConfig{
			Enabled:    true,
			Interval:   15 * time.Minute,
			TempTTL:    24 * time.Hour,
			PendingTTL: 30 * time.Minute,
		},
		Auth: AuthConfig{
			CookieName: "token",
			AdminRole:  "admin",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		MigrationsPath: "./migrations",
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and
// then from environment variables, which take precedence
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.MaxLifetime = getDurationEnv("DB_MAX_LIFETIME", c.Database.MaxLifetime)

	c.Storage.TempDir = getEnv("TEMP_DIR", c.Storage.TempDir)
	c.Storage.ArticlesDir = getEnv("ARTICLES_DIR", c.Storage.ArticlesDir)
	c.Storage.UploadsDir = getEnv("UPLOADS_DIR", c.Storage.UploadsDir)
	c.Storage.MaxDocumentSize = getInt64Env("MAX_DOCUMENT_SIZE", c.Storage.MaxDocumentSize)
	c.Storage.MaxImageSize = getInt64Env("MAX_IMAGE_SIZE", c.Storage.MaxImageSize)

	c.Publish.DefaultCategory = getEnv("DEFAULT_CATEGORY", c.Publish.DefaultCategory)
	c.Publish.DescriptionLength = getIntEnv("DESCRIPTION_LENGTH", c.Publish.DescriptionLength)

	c.Sweep.Enabled = getBoolEnv("SWEEP_ENABLED", c.Sweep.Enabled)
	c.Sweep.Interval = getDurationEnv("SWEEP_INTERVAL", c.Sweep.Interval)
	c.Sweep.TempTTL = getDurationEnv("SWEEP_TEMP_TTL", c.Sweep.TempTTL)
	c.Sweep.PendingTTL = getDurationEnv("SWEEP_PENDING_TTL", c.Sweep.PendingTTL)

	c.Auth.JWTSecret = getEnv("ADMIN_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.CookieName = getEnv("AUTH_COOKIE_NAME", c.Auth.CookieName)
	c.Auth.AdminRole = getEnv("ADMIN_ROLE", c.Auth.AdminRole)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.MigrationsPath = getEnv("MIGRATIONS_PATH", c.MigrationsPath)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("ADMIN_JWT_SECRET is required")
	}
	if c.Storage.TempDir == "" || c.Storage.ArticlesDir == "" || c.Storage.UploadsDir == "" {
		return fmt.Errorf("TEMP_DIR, ARTICLES_DIR and UPLOADS_DIR are required")
	}
	if c.Storage.MaxDocumentSize <= 0 || c.Storage.MaxImageSize <= 0 {
		return fmt.Errorf("upload size limits must be positive")
	}
	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive when the sweeper is enabled")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
