package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// OpenAIConfig carries the upstream credential and endpoint override.
// The API key is deliberately not validated at startup: a missing key is a
// per-request misconfiguration error, not a crash.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type EventStoreConfig struct {
	Path            string `yaml:"path"`
	RetentionMode   string `yaml:"retention_mode"`
	RetentionDays   int    `yaml:"retention_days"`
	MaxInteractions int    `yaml:"max_interactions"`
	VacuumOnStart   bool   `yaml:"vacuum_on_start"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type Config struct {
	ServiceName string           `yaml:"service_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	OpenAI      OpenAIConfig     `yaml:"openai"`
	EventStore  EventStoreConfig `yaml:"event_store"`
	Bus         BusConfig        `yaml:"bus"`
}

func Default() Config {
	return Config{
		ServiceName: "concierge",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		EventStore: EventStoreConfig{
			Path:            "./data/concierge-events.db",
			RetentionMode:   "session",
			RetentionDays:   30,
			MaxInteractions: 10000,
		},
		Bus: BusConfig{
			Enabled:        false,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "CONCIERGE_SERVICE_NAME")
	overrideString(&cfg.Environment, "CONCIERGE_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "CONCIERGE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "CONCIERGE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "CONCIERGE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "CONCIERGE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "CONCIERGE_TELEMETRY_OTLP_INSECURE")
	// OPENAI_API_KEY is the conventional variable name, so it wins over yaml.
	overrideString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	overrideString(&cfg.OpenAI.BaseURL, "CONCIERGE_OPENAI_BASE_URL")
	overrideString(&cfg.EventStore.Path, "CONCIERGE_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "CONCIERGE_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "CONCIERGE_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxInteractions, "CONCIERGE_EVENT_STORE_MAX_INTERACTIONS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "CONCIERGE_EVENT_STORE_VACUUM_ON_START")
	overrideBool(&cfg.Bus.Enabled, "CONCIERGE_BUS_ENABLED")
	overrideStringSlice(&cfg.Bus.Servers, "CONCIERGE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "CONCIERGE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "CONCIERGE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "CONCIERGE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "CONCIERGE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "CONCIERGE_BUS_CONNECT_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.OpenAI.BaseURL == "" {
		return errors.New("openai.base_url must not be empty")
	}
	if cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	if cfg.Bus.Enabled {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when the bus is enabled")
		}
		if cfg.Bus.ConnectTimeout <= 0 {
			return errors.New("bus.connect_timeout_ms must be positive when the bus is enabled")
		}
	}
	return nil
}
