package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"

	SessionFirebase = "firebase"
	SessionJWT      = "jwt"

	MailSendGrid = "sendgrid"
	MailSMTP     = "smtp"
	MailLog      = "log"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Firebase  FirebaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Cart      CartConfig
	PayPal    PayPalConfig
	Mail      MailConfig
	Storage   StorageConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	PublicBaseURL  string
}

// IsDevelopment reports whether the server runs outside production
func (s ServerConfig) IsDevelopment() bool {
	return s.Env != "production"
}

type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PageTTL  time.Duration
}

// Enabled reports whether a Redis host is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type SessionConfig struct {
	Driver     string
	CookieName string
	ExpiryDays int
	JWTSecret  string
}

type CartConfig struct {
	CookieName      string
	CookieMaxAge    int // in days
	JanitorInterval time.Duration
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	Currency     string
}

type MailConfig struct {
	Driver       string
	APIKey       string
	FromAddress  string
	FromName     string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
}

type StorageConfig struct {
	Bucket string
}

type TracingConfig struct {
	CollectorHost string
	ServiceName   string
}

type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	viper.SetDefault("STORE_DRIVER", StoreFirestore)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_PAGE_TTL", "10m")
	viper.SetDefault("SESSION_DRIVER", SessionFirebase)
	viper.SetDefault("SESSION_COOKIE_NAME", "cherlygood_session")
	viper.SetDefault("SESSION_EXPIRY_DAYS", 14)
	viper.SetDefault("CART_COOKIE_NAME", "device_identifier")
	viper.SetDefault("CART_COOKIE_MAX_AGE_DAYS", 30)
	viper.SetDefault("CART_JANITOR_INTERVAL", "6h")
	viper.SetDefault("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com")
	viper.SetDefault("PAYPAL_CURRENCY", "USD")
	viper.SetDefault("MAIL_DRIVER", MailLog)
	viper.SetDefault("MAIL_FROM_NAME", "Cherlygood")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("TRACING_SERVICE_NAME", "storefront-api")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("SERVER_ALLOWED_ORIGINS")),
			PublicBaseURL:  viper.GetString("PUBLIC_BASE_URL"),
		},
		Store: StoreConfig{
			Driver: viper.GetString("STORE_DRIVER"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       viper.GetString("FIREBASE_PROJECT_ID"),
			CredentialsFile: viper.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			PageTTL:  viper.GetDuration("REDIS_PAGE_TTL"),
		},
		Session: SessionConfig{
			Driver:     viper.GetString("SESSION_DRIVER"),
			CookieName: viper.GetString("SESSION_COOKIE_NAME"),
			ExpiryDays: viper.GetInt("SESSION_EXPIRY_DAYS"),
			JWTSecret:  viper.GetString("SESSION_JWT_SECRET"),
		},
		Cart: CartConfig{
			CookieName:      viper.GetString("CART_COOKIE_NAME"),
			CookieMaxAge:    viper.GetInt("CART_COOKIE_MAX_AGE_DAYS"),
			JanitorInterval: viper.GetDuration("CART_JANITOR_INTERVAL"),
		},
		PayPal: PayPalConfig{
			ClientID:     viper.GetString("PAYPAL_CLIENT_ID"),
			ClientSecret: viper.GetString("PAYPAL_CLIENT_SECRET"),
			BaseURL:      viper.GetString("PAYPAL_BASE_URL"),
			Currency:     viper.GetString("PAYPAL_CURRENCY"),
		},
		Mail: MailConfig{
			Driver:       viper.GetString("MAIL_DRIVER"),
			APIKey:       viper.GetString("SENDGRID_API_KEY"),
			FromAddress:  viper.GetString("MAIL_FROM_ADDRESS"),
			FromName:     viper.GetString("MAIL_FROM_NAME"),
			SMTPHost:     viper.GetString("SMTP_HOST"),
			SMTPPort:     viper.GetInt("SMTP_PORT"),
			SMTPUser:     viper.GetString("SMTP_USER"),
			SMTPPassword: viper.GetString("SMTP_PASSWORD"),
		},
		Storage: StorageConfig{
			Bucket: viper.GetString("STORAGE_BUCKET"),
		},
		Tracing: TracingConfig{
			CollectorHost: viper.GetString("TRACING_COLLECTOR_HOST"),
			ServiceName:   viper.GetString("TRACING_SERVICE_NAME"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:            viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
