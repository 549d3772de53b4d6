package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Init reads .env and binds every environment variable the service understands.
func Init() {
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("server.port", "PORT")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("gateway.base_url", "RAZORPAY_BASE_URL")
	viper.BindEnv("gateway.key_id", "RAZORPAY_KEY_ID")
	viper.BindEnv("gateway.key_secret", "RAZORPAY_KEY_SECRET")
	viper.BindEnv("gateway.currency", "PAYMENT_CURRENCY")
	viper.BindEnv("gateway.timeout", "RAZORPAY_TIMEOUT")
	viper.BindEnv("gateway.checkout_url", "RAZORPAY_CHECKOUT_URL")

	viper.BindEnv("livekit.api_key", "LIVEKIT_API_KEY")
	viper.BindEnv("livekit.api_secret", "LIVEKIT_API_SECRET")
	viper.BindEnv("livekit.url", "LIVEKIT_URL")
	viper.BindEnv("livekit.token_ttl", "LIVEKIT_TOKEN_TTL")

	viper.BindEnv("otel.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	viper.BindEnv("otel.service_name", "SERVICE_NAME")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	viper.SetDefault("gateway.base_url", "https://api.razorpay.com")
	viper.SetDefault("gateway.currency", "INR")
	viper.SetDefault("gateway.timeout", 10*time.Second)
	viper.SetDefault("gateway.checkout_url", "https://api.razorpay.com/v1/checkout/embedded")

	viper.SetDefault("livekit.token_ttl", 2*time.Hour)
	viper.SetDefault("otel.service_name", "doubtsolve-backend")
}
