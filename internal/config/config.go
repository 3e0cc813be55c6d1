package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

var AppEnv Config

type Config struct {
	Port    string
	GinMode string

	StoreDriver string
	MongoURI    string
	DBName      string
	SQLDSN      string

	JWTSecret      string
	AccessTokenTTL time.Duration

	RedisAddr string
	CartDir   string
	CartTTL   time.Duration

	ShippingPolicy        string
	ShippingFlatFee       decimal.Decimal
	FreeShippingThreshold decimal.Decimal

	StockAware               bool
	EnforceStatusTransitions bool
	DashboardLocation        *time.Location

	DefaultAdminEmail    string
	DefaultAdminPassword string

	SMTPHost string
	SMTPPort int
	SMTPFrom string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = FromEnv()
}

// FromEnv reads the process environment without touching .env.
func FromEnv() Config {
	return Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", ""),

		StoreDriver: getEnvOrDefault("STORE_DRIVER", "sqlite"),
		MongoURI:    getEnvOrDefault("MONGO_URI", ""),
		DBName:      getEnvOrDefault("DB_NAME", "storefront"),
		SQLDSN:      getEnvOrDefault("SQL_DSN", "storefront.db"),

		JWTSecret:      getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL: getDurationEnv("ACCESS_TOKEN_TTL", 24*60, time.Minute),

		RedisAddr: getEnvOrDefault("REDIS_ADDR", ""),
		CartDir:   getEnvOrDefault("CART_DIR", ""),
		CartTTL:   getDurationEnv("CART_TTL", 72, time.Hour),

		ShippingPolicy:        getEnvOrDefault("SHIPPING_POLICY", "threshold"),
		ShippingFlatFee:       getDecimalEnv("SHIPPING_FLAT_FEE", decimal.NewFromInt(30000)),
		FreeShippingThreshold: getDecimalEnv("FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(500000)),

		StockAware:               getBoolEnv("STOCK_AWARE", true),
		EnforceStatusTransitions: getBoolEnv("ENFORCE_STATUS_TRANSITIONS", true),
		DashboardLocation:        getLocationEnv("DASHBOARD_TIMEZONE", time.UTC),

		DefaultAdminEmail:    getEnvOrDefault("DEFAULT_ADMIN_EMAIL", "admin@storefront.local"),
		DefaultAdminPassword: getEnvOrDefault("DEFAULT_ADMIN_PASSWORD", ""),

		SMTPHost: getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort: getIntEnv("SMTP_PORT", 25),
		SMTPFrom: getEnvOrDefault("SMTP_FROM", "orders@storefront.local"),
	}
}
