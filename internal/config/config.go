package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. MARKETPLACE_DB_HOST.
const EnvPrefix = "MARKETPLACE"

const insecureJWTSecret = "change-me-in-production"

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// KafkaConfig holds broker settings. An empty broker list disables Kafka.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// MQTTConfig holds the technician location feed settings. An empty broker URL
// disables the subscriber.
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Topic     string
}

// GeocodeConfig holds Google Maps settings. An empty API key disables geocoding.
type GeocodeConfig struct {
	APIKey  string
	BaseURL string
}

// NHTSAConfig holds the vehicle data endpoints.
type NHTSAConfig struct {
	VPICBaseURL    string
	RecallsBaseURL string
	Timeout        time.Duration
}

// OllamaConfig holds the assistant model settings. An empty base URL disables the assistant.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// TwilioConfig holds SMS settings. Without credentials reminders are only logged.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

// ReminderConfig controls the maintenance reminder sweep.
type ReminderConfig struct {
	Enabled bool
	Spec    string
	Timeout time.Duration
}

// ServiceConfig holds all configuration for the marketplace service.
type ServiceConfig struct {
	Port              string
	AppEnv            string
	SideEffectTimeout time.Duration
	DBConfig          DatabaseConfig
	JWTConfig         JWTConfig
	KafkaConfig       KafkaConfig
	MQTTConfig        MQTTConfig
	GeocodeConfig     GeocodeConfig
	NHTSAConfig       NHTSAConfig
	OllamaConfig      OllamaConfig
	TwilioConfig      TwilioConfig
	ReminderConfig    ReminderConfig
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*ServiceConfig, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	port := v.GetString("service_port")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	cfg := &ServiceConfig{
		Port:              port,
		AppEnv:            v.GetString("app_env"),
		SideEffectTimeout: v.GetDuration("side_effect_timeout"),
		DBConfig: DatabaseConfig{
			Driver:   v.GetString("store_driver"),
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			DBName:   v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
		},
		JWTConfig: JWTConfig{
			Secret:   v.GetString("jwt_secret"),
			Issuer:   v.GetString("jwt_issuer"),
			TokenTTL: v.GetDuration("jwt_token_ttl"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka_brokers")),
			GroupPrefix: v.GetString("kafka_group_prefix"),
		},
		MQTTConfig: MQTTConfig{
			BrokerURL: v.GetString("mqtt_broker_url"),
			ClientID:  v.GetString("mqtt_client_id"),
			Topic:     v.GetString("mqtt_topic"),
		},
		GeocodeConfig: GeocodeConfig{
			APIKey:  v.GetString("google_maps_api_key"),
			BaseURL: v.GetString("google_maps_base_url"),
		},
		NHTSAConfig: NHTSAConfig{
			VPICBaseURL:    v.GetString("nhtsa_vpic_base_url"),
			RecallsBaseURL: v.GetString("nhtsa_recalls_base_url"),
			Timeout:        v.GetDuration("nhtsa_timeout"),
		},
		OllamaConfig: OllamaConfig{
			BaseURL: v.GetString("ollama_base_url"),
			Model:   v.GetString("ollama_model"),
			Timeout: v.GetDuration("ollama_timeout"),
		},
		TwilioConfig: TwilioConfig{
			AccountSID: v.GetString("twilio_account_sid"),
			AuthToken:  v.GetString("twilio_auth_token"),
			From:       v.GetString("twilio_from"),
		},
		ReminderConfig: ReminderConfig{
			Enabled: v.GetBool("reminder_enabled"),
			Spec:    v.GetString("reminder_cron"),
			Timeout: v.GetDuration("reminder_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_port", "8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("side_effect_timeout", "10s")

	v.SetDefault("store_driver", StorePostgres)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "marketplace")
	v.SetDefault("db_sslmode", "disable")

	v.SetDefault("jwt_secret", insecureJWTSecret)
	v.SetDefault("jwt_issuer", "")
	v.SetDefault("jwt_token_ttl", "15m")

	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_group_prefix", "marketplace-")

	v.SetDefault("mqtt_broker_url", "")
	v.SetDefault("mqtt_client_id", "marketplace-location")
	v.SetDefault("mqtt_topic", "fixmate/jobs/+/technicians/+/location")

	v.SetDefault("google_maps_api_key", "")
	v.SetDefault("google_maps_base_url", "")

	v.SetDefault("nhtsa_vpic_base_url", "")
	v.SetDefault("nhtsa_recalls_base_url", "")
	v.SetDefault("nhtsa_timeout", "10s")

	v.SetDefault("ollama_base_url", "")
	v.SetDefault("ollama_model", "llama3.2")
	v.SetDefault("ollama_timeout", "60s")

	v.SetDefault("twilio_account_sid", "")
	v.SetDefault("twilio_auth_token", "")
	v.SetDefault("twilio_from", "")

	v.SetDefault("reminder_enabled", true)
	v.SetDefault("reminder_cron", "0 9 * * *")
	v.SetDefault("reminder_timeout", "10m")
}

// Validate rejects configurations the service must not start with.
func (c *ServiceConfig) Validate() error {
	var errs []error
	switch c.DBConfig.Driver {
	case StorePostgres:
		if c.DBConfig.DBName == "" {
			errs = append(errs, errors.New("database name is required"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.DBConfig.Driver))
	}
	if c.JWTConfig.Secret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	} else if c.AppEnv != "development" && c.JWTConfig.Secret == insecureJWTSecret {
		errs = append(errs, errors.New("jwt secret must be changed outside development"))
	}
	if c.SideEffectTimeout <= 0 {
		errs = append(errs, errors.New("side effect timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *ServiceConfig) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
