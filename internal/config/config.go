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
	App          AppConfig
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Security     SecurityConfig
	Checkout     CheckoutConfig
	External     ExternalConfig
	Notification NotificationConfig
	Logging      LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool

	// Shown on order receipts
	CompanyName  string
	CompanyPhone string
	CompanyEmail string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	CookieSecure   bool
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

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
}

// CheckoutConfig contains the checkout variant and pricing rules
type CheckoutConfig struct {
	Currency             string
	ShippingFee          int64 // centavos
	InstallmentRate      string
	InstallmentThreshold int
	MaxInstallments      int
	CardEnabled          bool
	PixEnabled           bool
	AddressRequired      bool
	SessionTTL           time.Duration
	FreshSessionTTL      time.Duration
	OrderDescription     string
}

// ExternalConfig contains external service configurations
type ExternalConfig struct {
	Stripe StripeConfig
	Pix    PixConfig
	Kafka  KafkaConfig
}

// StripeConfig contains Stripe payment configuration
type StripeConfig struct {
	SecretKey        string
	PublishableKey   string
	Environment      string
	AuthorizeTimeout time.Duration
}

// PixConfig contains the PIX gateway configuration
type PixConfig struct {
	BaseURL                 string
	APIToken                string
	RequestTimeout          time.Duration
	PollInterval            time.Duration
	AllowManualConfirmation bool
	BreakerMaxFailures      int
	BreakerOpenTimeout      time.Duration
}

// KafkaConfig contains the order event broker configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NotificationConfig contains the order notification deep-link settings
type NotificationConfig struct {
	DeepLinkBase   string
	RecipientParam string
	Recipient      string
	StoreName      string
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

	config := &Config{
		App: AppConfig{
			Name:         getEnv("APP_NAME", "FitFood Checkout"),
			Version:      getEnv("APP_VERSION", "1.0.0"),
			Environment:  getEnv("APP_ENV", "development"),
			Debug:        getEnvAsBool("APP_DEBUG", true),
			CompanyName:  getEnv("COMPANY_NAME", "FitFood"),
			CompanyPhone: getEnv("COMPANY_PHONE", ""),
			CompanyEmail: getEnv("COMPANY_EMAIL", ""),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			CookieSecure:   getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "fitfood_db"),
			User:         getEnv("DB_USER", "fitfood_user"),
			Password:     getEnv("DB_PASSWORD", "fitfood_password"),
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
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
		},
		Checkout: CheckoutConfig{
			Currency:             getEnv("CHECKOUT_CURRENCY", "brl"),
			ShippingFee:          getEnvAsInt64("CHECKOUT_SHIPPING_FEE", 700),
			InstallmentRate:      getEnv("CHECKOUT_INSTALLMENT_RATE", "0.0199"),
			InstallmentThreshold: getEnvAsInt("CHECKOUT_INSTALLMENT_THRESHOLD", 3),
			MaxInstallments:      getEnvAsInt("CHECKOUT_MAX_INSTALLMENTS", 5),
			CardEnabled:          getEnvAsBool("CHECKOUT_CARD_ENABLED", true),
			PixEnabled:           getEnvAsBool("CHECKOUT_PIX_ENABLED", true),
			AddressRequired:      getEnvAsBool("CHECKOUT_ADDRESS_REQUIRED", true),
			SessionTTL:           getEnvAsDuration("CHECKOUT_SESSION_TTL", 24*time.Hour),
			FreshSessionTTL:      getEnvAsDuration("CHECKOUT_FRESH_SESSION_TTL", 10*time.Minute),
			OrderDescription:     getEnv("CHECKOUT_ORDER_DESCRIPTION", "Pedido FitFood"),
		},
		External: ExternalConfig{
			Stripe: StripeConfig{
				SecretKey:        getEnv("STRIPE_SECRET_KEY", ""),
				PublishableKey:   getEnv("STRIPE_PUBLISHABLE_KEY", ""),
				Environment:      getEnv("STRIPE_ENVIRONMENT", "test"),
				AuthorizeTimeout: getEnvAsDuration("STRIPE_AUTHORIZE_TIMEOUT", 60*time.Second),
			},
			Pix: PixConfig{
				BaseURL:                 getEnv("PIX_GATEWAY_URL", "http://localhost:9000"),
				APIToken:                getEnv("PIX_GATEWAY_TOKEN", ""),
				RequestTimeout:          getEnvAsDuration("PIX_REQUEST_TIMEOUT", 15*time.Second),
				PollInterval:            getEnvAsDuration("PIX_POLL_INTERVAL", 5*time.Second),
				AllowManualConfirmation: getEnvAsBool("PIX_ALLOW_MANUAL_CONFIRMATION", true),
				BreakerMaxFailures:      getEnvAsInt("PIX_BREAKER_MAX_FAILURES", 5),
				BreakerOpenTimeout:      getEnvAsDuration("PIX_BREAKER_OPEN_TIMEOUT", 30*time.Second),
			},
			Kafka: KafkaConfig{
				Brokers: getEnvAsSlice("KAFKA_BROKERS", []string{}),
				Topic:   getEnv("KAFKA_ORDER_TOPIC", "orders.placed"),
			},
		},
		Notification: NotificationConfig{
			DeepLinkBase:   getEnv("NOTIFY_DEEPLINK_BASE", "https://api.whatsapp.com/send"),
			RecipientParam: getEnv("NOTIFY_RECIPIENT_PARAM", "phone"),
			Recipient:      getEnv("NOTIFY_RECIPIENT", ""),
			StoreName:      getEnv("NOTIFY_STORE_NAME", "FitFood"),
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
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	// Checkout rules
	if !c.Checkout.CardEnabled && !c.Checkout.PixEnabled {
		return fmt.Errorf("at least one of CHECKOUT_CARD_ENABLED or CHECKOUT_PIX_ENABLED must be true")
	}
	if c.Checkout.ShippingFee < 0 {
		return fmt.Errorf("CHECKOUT_SHIPPING_FEE cannot be negative")
	}
	if c.Checkout.MaxInstallments < 1 {
		return fmt.Errorf("CHECKOUT_MAX_INSTALLMENTS must be at least 1")
	}
	if c.Checkout.InstallmentThreshold < 2 {
		return fmt.Errorf("CHECKOUT_INSTALLMENT_THRESHOLD must be at least 2")
	}
	rate, err := decimal.NewFromString(c.Checkout.InstallmentRate)
	if err != nil {
		return fmt.Errorf("CHECKOUT_INSTALLMENT_RATE is not a number: %w", err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("CHECKOUT_INSTALLMENT_RATE cannot be negative")
	}
	if c.Checkout.CardEnabled && c.IsProduction() && c.External.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required when card payments are enabled")
	}
	if c.External.Pix.PollInterval < 0 {
		return fmt.Errorf("PIX_POLL_INTERVAL cannot be negative")
	}
	// Without polling a PIX order can only complete by manual confirmation
	if c.Checkout.PixEnabled && c.External.Pix.PollInterval == 0 && !c.External.Pix.AllowManualConfirmation {
		return fmt.Errorf("PIX_POLL_INTERVAL=0 requires PIX_ALLOW_MANUAL_CONFIRMATION=true")
	}
	if c.External.Pix.BreakerMaxFailures < 1 {
		return fmt.Errorf("PIX_BREAKER_MAX_FAILURES must be at least 1")
	}
	if c.Checkout.SessionTTL <= 0 {
		return fmt.Errorf("CHECKOUT_SESSION_TTL must be positive")
	}

	return nil
}

// InstallmentRate returns the monthly interest rate as a decimal
func (c *Config) InstallmentRate() decimal.Decimal {
	return decimal.RequireFromString(c.Checkout.InstallmentRate)
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
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
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
