package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// legacyEnv maps unprefixed variable names used by existing deployments
var legacyEnv = map[string]string{
	"http.api_key":   "API_KEY",
	"gemini.api_key": "GEMINI_API_KEY",
	"openai.api_key": "OPENAI_API_KEY",
}

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. A .env file in the working
// directory is loaded into the environment first, if present.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/llm-honeypot/")
	v.AddConfigPath("$HOME/.llm-honeypot")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	bindEnv(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults and environment
// bindings but no config file
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("HONEYPOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range legacyEnv {
		// prefixed name wins over the legacy one
		_ = v.BindEnv(key, "HONEYPOT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name)
	}
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "gemini")

	// Engagement defaults
	v.SetDefault("engagement.max_turns", 10)
	v.SetDefault("engagement.min_confidence", 0.5)
	v.SetDefault("engagement.history_window", 3)
	v.SetDefault("engagement.classifier_timeout", "8s")
	v.SetDefault("engagement.responder_timeout", "8s")

	// Server defaults
	v.SetDefault("server.gateway", "http")
	v.SetDefault("gateway.trusted_domains", []string{})
	v.SetDefault("gateway.max_message_size", 8192)

	// HTTP gateway defaults
	v.SetDefault("http.listen_address", "0.0.0.0:8000")
	v.SetDefault("http.api_key", "")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")

	// SMTP gateway defaults
	v.SetDefault("smtp.listen_address", "0.0.0.0:2525")
	v.SetDefault("smtp.domain", "localhost")
	v.SetDefault("smtp.max_message_bytes", 1024*1024)
	v.SetDefault("smtp.relay.enabled", false)
	v.SetDefault("smtp.relay.address", "localhost:25")
	v.SetDefault("smtp.relay.from", "")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 300)
	v.SetDefault("bedrock.temperature", 0.7)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 300)
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Session store defaults
	v.SetDefault("session.type", "memory")
	v.SetDefault("session.ttl", "0s")
	v.SetDefault("session.cleanup_frequency", "1h")
	v.SetDefault("session.sqlite_path", "/data/honeypot_sessions.db")
	v.SetDefault("session.mysql_dsn", "user:password@tcp(localhost:3306)/honeypot")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
