// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for our application
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Security SecurityConfig
	External ExternalConfig
	Checkout CheckoutConfig
	Logging  LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name           string
	Version        string
	Environment    string
	Debug          bool
	CompanyName    string
	CompanyAddress string
	CompanyEmail   string
	CompanyWebsite string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// JWTConfig contains JWT token configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
}

// ExternalConfig contains external service configurations
type ExternalConfig struct {
	OrderService OrderServiceConfig
	Email        EmailConfig
}

// OrderServiceConfig describes the upstream Order/Payment service
type OrderServiceConfig struct {
	BaseURL             string
	APIKey              string
	Timeout             time.Duration
	CreateOrderPath     string
	EnrollNowPath       string
	CompletePaymentPath string
	VerifyPaymentPath   string
}

// EmailConfig contains email service configuration
type EmailConfig struct {
	Provider    string
	FromEmail   string
	FromName    string
	SiteURL     string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	SMTPUseTLS  bool
	ReplyTo     string
	APIKey      string
	APIEndpoint string
}

// CheckoutConfig contains cart persistence and checkout flow settings
type CheckoutConfig struct {
	CartStorageKey   string
	CartTTL          time.Duration
	SessionIdleTTL   time.Duration
	Currency         string
	TransferCurrency string
	// ExchangeRate converts Currency into TransferCurrency for bank transfers.
	// Zero disables conversion.
	ExchangeRate  decimal.Decimal
	BankCode      string
	AccountNumber string
	AccountName   string
	QRBaseURL     string
	LoginPath     string
	LearningPath  string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	exchangeRate, err := getEnvAsDecimal("VND_EXCHANGE_RATE", decimal.Zero)
	if err != nil {
		return nil, fmt.Errorf("invalid VND_EXCHANGE_RATE: %w", err)
	}

	config := &Config{
		App: AppConfig{
			Name:           getEnv("APP_NAME", "E-learning Storefront"),
			Version:        getEnv("APP_VERSION", "1.0.0"),
			Environment:    getEnv("APP_ENV", "development"),
			Debug:          getEnvAsBool("APP_DEBUG", true),
			CompanyName:    getEnv("COMPANY_NAME", "E-learning Academy"),
			CompanyAddress: getEnv("COMPANY_ADDRESS", ""),
			CompanyEmail:   getEnv("COMPANY_EMAIL", "support@example.com"),
			CompanyWebsite: getEnv("COMPANY_WEBSITE", "http://localhost:3000"),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 45*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "storefront_db"),
			User:         getEnv("DB_USER", "storefront_user"),
			Password:     getEnv("DB_PASSWORD", "storefront_password"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-in-production"),
			AccessTokenExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRE", 24*time.Hour),
		},
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Session-ID"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
		},
		External: ExternalConfig{
			OrderService: OrderServiceConfig{
				BaseURL:             getEnv("ORDER_SERVICE_URL", "http://localhost:5000/api"),
				APIKey:              getEnv("ORDER_SERVICE_API_KEY", ""),
				Timeout:             getEnvAsDuration("ORDER_SERVICE_TIMEOUT", 30*time.Second),
				CreateOrderPath:     getEnv("ORDER_SERVICE_CREATE_ORDER_PATH", "/orders"),
				EnrollNowPath:       getEnv("ORDER_SERVICE_ENROLL_NOW_PATH", "/orders/enroll-now"),
				CompletePaymentPath: getEnv("ORDER_SERVICE_COMPLETE_PAYMENT_PATH", "/payments/complete"),
				VerifyPaymentPath:   getEnv("ORDER_SERVICE_VERIFY_PAYMENT_PATH", "/payments/verify"),
			},
			Email: EmailConfig{
				Provider:    getEnv("EMAIL_PROVIDER", "log"),
				FromEmail:   getEnv("FROM_EMAIL", "noreply@example.com"),
				FromName:    getEnv("FROM_NAME", "E-learning Academy"),
				SiteURL:     getEnv("SITE_URL", "http://localhost:3000"),
				SMTPHost:    getEnv("SMTP_HOST", ""),
				SMTPPort:    getEnvAsInt("SMTP_PORT", 587),
				SMTPUser:    getEnv("SMTP_USER", ""),
				SMTPPass:    getEnv("SMTP_PASS", ""),
				SMTPUseTLS:  getEnvAsBool("SMTP_USE_TLS", false),
				ReplyTo:     getEnv("REPLY_TO_EMAIL", ""),
				APIKey:      getEnv("EMAIL_API_KEY", ""),
				APIEndpoint: getEnv("EMAIL_API_ENDPOINT", "https://api.resend.com/emails"),
			},
		},
		Checkout: CheckoutConfig{
			CartStorageKey:   getEnv("CART_STORAGE_KEY", "elearning_cart"),
			CartTTL:          getEnvAsDuration("CART_TTL", 30*24*time.Hour),
			SessionIdleTTL:   getEnvAsDuration("CHECKOUT_SESSION_IDLE_TTL", time.Hour),
			Currency:         getEnv("CHECKOUT_CURRENCY", "USD"),
			TransferCurrency: getEnv("TRANSFER_CURRENCY", "VND"),
			ExchangeRate:     exchangeRate,
			BankCode:         getEnv("TRANSFER_BANK_CODE", ""),
			AccountNumber:    getEnv("TRANSFER_ACCOUNT_NUMBER", ""),
			AccountName:      getEnv("TRANSFER_ACCOUNT_NAME", ""),
			QRBaseURL:        getEnv("TRANSFER_QR_BASE_URL", "https://img.vietqr.io/image"),
			LoginPath:        getEnv("LOGIN_PATH", "/login"),
			LearningPath:     getEnv("LEARNING_PATH", "/my-learning"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "debug"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	if c.External.OrderService.BaseURL == "" {
		return fmt.Errorf("ORDER_SERVICE_URL is required")
	}

	if c.Checkout.CartStorageKey == "" {
		return fmt.Errorf("CART_STORAGE_KEY is required")
	}

	if c.Checkout.SessionIdleTTL <= 0 {
		return fmt.Errorf("CHECKOUT_SESSION_IDLE_TTL must be positive")
	}

	if c.Checkout.ExchangeRate.IsNegative() {
		return fmt.Errorf("VND_EXCHANGE_RATE cannot be negative")
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// getEnvAsDecimal returns an error on malformed input instead of the default.
func getEnvAsDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return decimal.NewFromString(strings.TrimSpace(value))
}
