package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Geocoder  GeocoderConfig
	Payment   PaymentConfig
	Email     EmailConfig
	Storage   StorageConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type GeocoderConfig struct {
	BaseURL           string
	APIKey            string
	Country           string
	UserAgent         string
	RequestsPerSecond float64
	CacheTTL          time.Duration
	Timeout           time.Duration
	PostalCodePattern string
}

type PaymentConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Currency      string
}

type EmailConfig struct {
	BaseURL    string
	APIKey     string
	From       string
	AdminEmail string
	Workers    int
	QueueSize  int
}

type StorageConfig struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UsePathStyle  bool
	PublicBaseURL string
	PresignTTL    time.Duration
}

type MetricsConfig struct {
	Enabled bool
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" && !c.IsDevelopment() {
		return errors.New("JWT_SECRET is required outside development")
	}
	if c.Email.Workers < 1 {
		return errors.New("EMAIL_WORKERS must be at least 1")
	}
	if c.Geocoder.RequestsPerSecond <= 0 {
		return errors.New("GEOCODER_RPS must be positive")
	}
	return nil
}

func Load() *Config {
	// .env is optional; real environment variables always win.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 20)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org")
	viper.SetDefault("GEOCODER_COUNTRY", "in")
	viper.SetDefault("GEOCODER_USER_AGENT", "produce-market/1.0")
	viper.SetDefault("GEOCODER_RPS", 1.0)
	viper.SetDefault("GEOCODER_CACHE_TTL", "720h")
	viper.SetDefault("GEOCODER_TIMEOUT", "5s")
	viper.SetDefault("POSTAL_CODE_PATTERN", `^[1-9][0-9]{5}$`)
	viper.SetDefault("PAYMENT_BASE_URL", "https://api.razorpay.com")
	viper.SetDefault("PAYMENT_CURRENCY", "INR")
	viper.SetDefault("EMAIL_BASE_URL", "https://api.resend.com")
	viper.SetDefault("EMAIL_FROM", "orders@produce-market.local")
	viper.SetDefault("EMAIL_WORKERS", 2)
	viper.SetDefault("EMAIL_QUEUE_SIZE", 256)
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_PATH_STYLE", true)
	viper.SetDefault("STORAGE_PRESIGN_TTL", "15m")
	viper.SetDefault("METRICS_ENABLED", true)

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxConns: viper.GetInt("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:           viper.GetString("GEOCODER_BASE_URL"),
			APIKey:            viper.GetString("GEOCODER_API_KEY"),
			Country:           viper.GetString("GEOCODER_COUNTRY"),
			UserAgent:         viper.GetString("GEOCODER_USER_AGENT"),
			RequestsPerSecond: viper.GetFloat64("GEOCODER_RPS"),
			CacheTTL:          viper.GetDuration("GEOCODER_CACHE_TTL"),
			Timeout:           viper.GetDuration("GEOCODER_TIMEOUT"),
			PostalCodePattern: viper.GetString("POSTAL_CODE_PATTERN"),
		},
		Payment: PaymentConfig{
			BaseURL:       viper.GetString("PAYMENT_BASE_URL"),
			KeyID:         viper.GetString("PAYMENT_KEY_ID"),
			KeySecret:     viper.GetString("PAYMENT_KEY_SECRET"),
			WebhookSecret: viper.GetString("PAYMENT_WEBHOOK_SECRET"),
			Currency:      viper.GetString("PAYMENT_CURRENCY"),
		},
		Email: EmailConfig{
			BaseURL:    viper.GetString("EMAIL_BASE_URL"),
			APIKey:     viper.GetString("EMAIL_API_KEY"),
			From:       viper.GetString("EMAIL_FROM"),
			AdminEmail: viper.GetString("EMAIL_ADMIN"),
			Workers:    viper.GetInt("EMAIL_WORKERS"),
			QueueSize:  viper.GetInt("EMAIL_QUEUE_SIZE"),
		},
		Storage: StorageConfig{
			Endpoint:      viper.GetString("STORAGE_ENDPOINT"),
			Region:        viper.GetString("STORAGE_REGION"),
			Bucket:        viper.GetString("STORAGE_BUCKET"),
			AccessKey:     viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:     viper.GetString("STORAGE_SECRET_KEY"),
			UsePathStyle:  viper.GetBool("STORAGE_USE_PATH_STYLE"),
			PublicBaseURL: viper.GetString("STORAGE_PUBLIC_BASE_URL"),
			PresignTTL:    viper.GetDuration("STORAGE_PRESIGN_TTL"),
		},
		Metrics: MetricsConfig{
			Enabled: viper.GetBool("METRICS_ENABLED"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
