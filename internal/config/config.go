package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Gotenberg GotenbergConfig `json:"gotenberg"`
	Reports   ReportsConfig   `json:"reports"`
	GCS       GCSConfig       `json:"gcs"`
	Log       LogConfig       `json:"log"`
}

type ServerConfig struct {
	Port         string   `json:"port"`
	Environment  string   `json:"environment"`
	BaseURL      string   `json:"base_url"`
	AllowOrigins []string `json:"allow_origins"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type GotenbergConfig struct {
	URL     string `json:"url"`
	Timeout string `json:"timeout"`
}

type ReportsConfig struct {
	OutputDir         string        `json:"output_dir"`
	PublicPath        string        `json:"public_path"`
	MaxRenders        int           `json:"max_renders"`
	GenerationTimeout time.Duration `json:"generation_timeout"`
}

type GCSConfig struct {
	BucketName      string `json:"bucket_name"`
	ProjectID       string `json:"project_id"`
	CredentialsPath string `json:"credentials_path"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

func (d *DatabaseConfig) DSN() string {
	// Cloud SQL Unix socket support
	if len(d.Host) > 0 && d.Host[0] == '/' {
		return fmt.Sprintf("user=%s password=%s host=%s dbname=%s",
			d.User, d.Password, d.Host, d.DBName)
	}
	// Standard TCP connection
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// Enabled reports whether GCS archival is configured.
func (g *GCSConfig) Enabled() bool {
	return g.BucketName != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Failed to load .env file: %v, using system environment variables\n", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			BaseURL:      getEnv("BASE_URL", ""),
			AllowOrigins: parseAllowOrigins(),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "nhatro_reports"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Gotenberg: GotenbergConfig{
			URL:     getEnv("GOTENBERG_URL", "http://localhost:3000"),
			Timeout: getEnv("GOTENBERG_TIMEOUT", "30s"),
		},
		Reports: ReportsConfig{
			OutputDir:         getEnv("REPORTS_OUTPUT_DIR", "public/reports"),
			PublicPath:        getEnv("REPORTS_PUBLIC_PATH", "/reports"),
			MaxRenders:        getEnvInt("REPORTS_MAX_RENDERS", 4),
			GenerationTimeout: getEnvDuration("REPORTS_GENERATION_TIMEOUT", 60*time.Second),
		},
		GCS: GCSConfig{
			BucketName:      getEnv("GCS_BUCKET_NAME", ""),
			ProjectID:       getEnv("GOOGLE_CLOUD_PROJECT", ""),
			CredentialsPath: getEnv("GCS_CREDENTIALS_PATH", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if config.Reports.MaxRenders <= 0 {
		config.Reports.MaxRenders = 1
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseAllowOrigins() []string {
	if origins := os.Getenv("ALLOW_ORIGINS"); origins != "" {
		var allowOrigins []string
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowOrigins = append(allowOrigins, trimmed)
			}
		}
		return allowOrigins
	}

	// Default origins if none specified
	return []string{
		"http://localhost:3000",
		"http://localhost:3001",
	}
}
