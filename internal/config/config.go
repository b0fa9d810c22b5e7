package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Verification policies for an unreachable signature-verification endpoint.
const (
	VerifyPolicyFailClosed     = "fail_closed"
	VerifyPolicyAssumeVerified = "assume_verified"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"APP_PORT" default:"8080"`
	// JWTSecret signs and validates user tokens.
	JWTSecret string `mapstructure:"JWT_SECRET" required:"true"`
	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Database DatabaseConfig `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`
	RabbitMQ RabbitMQConfig `mapstructure:",squash"`
	Gateway  GatewayConfig  `mapstructure:",squash"`
	Checkout CheckoutConfig `mapstructure:",squash"`
	Email    EmailConfig    `mapstructure:",squash"`
}

// DatabaseConfig selects the record store.
type DatabaseConfig struct {
	// Driver is either "sqlite" or "postgres".
	Driver string `mapstructure:"DATABASE_DRIVER" default:"sqlite"`
	DSN    string `mapstructure:"DATABASE_DSN" default:"file:mythmanga.db"`
}

// RedisConfig points at the cache backing carts, attempts and local order lists.
type RedisConfig struct {
	URL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`
}

// RabbitMQConfig holds the broker URL. Empty disables order event publishing.
type RabbitMQConfig struct {
	URL string `mapstructure:"RABBITMQ_URL"`
}

// GatewayConfig holds the hosted-checkout gateway settings.
type GatewayConfig struct {
	// KeyID is the public key handed to the payment dialog.
	KeyID string `mapstructure:"GATEWAY_KEY_ID"`
	// KeySecret is only needed by the in-process serverless procedures.
	KeySecret string `mapstructure:"GATEWAY_KEY_SECRET"`
	// APIURL is the base URL of the gateway's own Orders API.
	APIURL string `mapstructure:"GATEWAY_API_URL" default:"https://api.razorpay.com"`
	// OrderEndpoint is the remote order-creation procedure.
	OrderEndpoint string `mapstructure:"GATEWAY_ORDER_ENDPOINT"`
	// VerifyEndpoint is the remote signature-verification procedure.
	VerifyEndpoint string `mapstructure:"GATEWAY_VERIFY_ENDPOINT"`
	// FunctionsKey is sent as the apikey header to the procedures and checked by them.
	FunctionsKey   string `mapstructure:"GATEWAY_FUNCTIONS_KEY"`
	Currency       string `mapstructure:"GATEWAY_CURRENCY" default:"INR"`
	MerchantName   string `mapstructure:"GATEWAY_MERCHANT_NAME" default:"MythManga"`
	Description    string `mapstructure:"GATEWAY_DESCRIPTION" default:"Anime Merchandise Purchase"`
	ThemeColor     string `mapstructure:"GATEWAY_THEME_COLOR" default:"#F5C842"`
	TimeoutSeconds int    `mapstructure:"GATEWAY_TIMEOUT_SECONDS" default:"10"`
	MaxRetries     int    `mapstructure:"GATEWAY_MAX_RETRIES" default:"2"`
	// VerifyUnreachablePolicy is fail_closed or assume_verified.
	VerifyUnreachablePolicy string `mapstructure:"GATEWAY_VERIFY_UNREACHABLE_POLICY" default:"fail_closed"`
}

// Timeout returns the per-call deadline for gateway requests.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// CheckoutConfig holds retention settings for checkout state.
type CheckoutConfig struct {
	AttemptTTLMinutes  int `mapstructure:"CHECKOUT_ATTEMPT_TTL_MINUTES" default:"30"`
	LocalOrderTTLHours int `mapstructure:"LOCAL_ORDER_TTL_HOURS" default:"0"`
}

// AttemptTTL is how long a checkout attempt stays addressable.
func (c CheckoutConfig) AttemptTTL() time.Duration {
	return time.Duration(c.AttemptTTLMinutes) * time.Minute
}

// LocalOrderTTL is the retention of a client's fallback order list; 0 keeps it.
func (c CheckoutConfig) LocalOrderTTL() time.Duration {
	return time.Duration(c.LocalOrderTTLHours) * time.Hour
}

// EmailConfig points at the email notification function.
type EmailConfig struct {
	FunctionURL string `mapstructure:"EMAIL_FUNCTION_URL"`
	FunctionKey string `mapstructure:"EMAIL_FUNCTION_KEY"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *AppConfig) validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported DATABASE_DRIVER: %q", c.Database.Driver)
	}

	policy := strings.ToLower(strings.TrimSpace(c.Gateway.VerifyUnreachablePolicy))
	if policy != VerifyPolicyFailClosed && policy != VerifyPolicyAssumeVerified {
		return fmt.Errorf("unsupported GATEWAY_VERIFY_UNREACHABLE_POLICY: %q", c.Gateway.VerifyUnreachablePolicy)
	}
	c.Gateway.VerifyUnreachablePolicy = policy

	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("GATEWAY_MAX_RETRIES must not be negative")
	}
	return nil
}

// processTags iterates over the struct fields, binds env keys and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("required") == "true" && val.Field(i).IsZero() {
			return fmt.Errorf("missing required configuration: %s", field.Tag.Get("mapstructure"))
		}
	}
	return nil
}
