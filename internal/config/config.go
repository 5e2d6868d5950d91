// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	HTTPAddr string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	// Currency used for new memberships and the number of decimal places
	// totals are rounded to.
	Currency         string
	CurrencyDecimals int

	// MultipleMemberships allows a customer to hold more than one enabled
	// membership at a time. When false, registration infers renewal/upgrade
	// from the customer's single existing membership.
	MultipleMemberships bool

	// DefaultRole is the account role applied when a membership level does
	// not grant one, and restored when a membership is disabled.
	DefaultRole string

	Stripe      StripeConfig
	Braintree   BraintreeConfig
	PayPal      PayPalConfig
	TwoCheckout TwoCheckoutConfig

	Email EmailConfig

	SchedulerConfigPath string
}

type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

type BraintreeConfig struct {
	MerchantID    string
	PublicKey     string
	PrivateKey    string
	WebhookSecret string
}

type PayPalConfig struct {
	APIUser       string
	APIPassword   string
	APISignature  string
	WebhookSecret string
}

type TwoCheckoutConfig struct {
	AccountNumber string
	SecretWord    string
	AdminUser     string
	AdminPassword string
}

type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Username string
	Password string
	From     string
	SiteName string
}

// Load loads configuration from environment variables and an optional .env
// file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "memberd"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "memberd"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		Currency:         strings.ToUpper(getenv("CURRENCY", "USD")),
		CurrencyDecimals: getenvInt("CURRENCY_DECIMALS", 2),

		MultipleMemberships: getenvBool("MULTIPLE_MEMBERSHIPS", false),
		DefaultRole:         getenv("DEFAULT_ROLE", "subscriber"),

		Stripe: StripeConfig{
			APIKey:        strings.TrimSpace(getenv("STRIPE_API_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
		},
		Braintree: BraintreeConfig{
			MerchantID:    strings.TrimSpace(getenv("BRAINTREE_MERCHANT_ID", "")),
			PublicKey:     strings.TrimSpace(getenv("BRAINTREE_PUBLIC_KEY", "")),
			PrivateKey:    strings.TrimSpace(getenv("BRAINTREE_PRIVATE_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("BRAINTREE_WEBHOOK_SECRET", "")),
		},
		PayPal: PayPalConfig{
			APIUser:       strings.TrimSpace(getenv("PAYPAL_API_USER", "")),
			APIPassword:   strings.TrimSpace(getenv("PAYPAL_API_PASSWORD", "")),
			APISignature:  strings.TrimSpace(getenv("PAYPAL_API_SIGNATURE", "")),
			WebhookSecret: strings.TrimSpace(getenv("PAYPAL_WEBHOOK_SECRET", "")),
		},
		TwoCheckout: TwoCheckoutConfig{
			AccountNumber: strings.TrimSpace(getenv("TWOCHECKOUT_ACCOUNT_NUMBER", "")),
			SecretWord:    strings.TrimSpace(getenv("TWOCHECKOUT_SECRET_WORD", "")),
			AdminUser:     strings.TrimSpace(getenv("TWOCHECKOUT_ADMIN_USER", "")),
			AdminPassword: strings.TrimSpace(getenv("TWOCHECKOUT_ADMIN_PASSWORD", "")),
		},

		Email: EmailConfig{
			Enabled:  getenvBool("EMAIL_ENABLED", false),
			Host:     getenv("EMAIL_SMTP_HOST", ""),
			Port:     getenv("EMAIL_SMTP_PORT", "587"),
			Username: getenv("EMAIL_SMTP_USER", ""),
			Password: getenv("EMAIL_SMTP_PASSWORD", ""),
			From:     getenv("EMAIL_FROM", ""),
			SiteName: getenv("EMAIL_SITE_NAME", "memberd"),
		},

		SchedulerConfigPath: getenv("SCHEDULER_CONFIG_PATH", ""),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
