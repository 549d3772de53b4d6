package config

import (
	"time"

	"github.com/spf13/viper"
)

// GatewayConfig holds the payment gateway credentials. KeySecret never leaves the server.
type GatewayConfig struct {
	BaseURL     string
	KeyID       string
	KeySecret   string
	Currency    string
	Timeout     time.Duration
	CheckoutURL string
}

func LoadGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		BaseURL:     viper.GetString("gateway.base_url"),
		KeyID:       viper.GetString("gateway.key_id"),
		KeySecret:   viper.GetString("gateway.key_secret"),
		Currency:    viper.GetString("gateway.currency"),
		Timeout:     viper.GetDuration("gateway.timeout"),
		CheckoutURL: viper.GetString("gateway.checkout_url"),
	}
}

type CallConfig struct {
	APIKey    string
	APISecret string
	URL       string
	TokenTTL  time.Duration
}

func LoadCallConfig() *CallConfig {
	return &CallConfig{
		APIKey:    viper.GetString("livekit.api_key"),
		APISecret: viper.GetString("livekit.api_secret"),
		URL:       viper.GetString("livekit.url"),
		TokenTTL:  viper.GetDuration("livekit.token_ttl"),
	}
}

type TelemetryConfig struct {
	Endpoint    string
	ServiceName string
}

func LoadTelemetryConfig() *TelemetryConfig {
	return &TelemetryConfig{
		Endpoint:    viper.GetString("otel.endpoint"),
		ServiceName: viper.GetString("otel.service_name"),
	}
}
