package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// EngagementConfig represents the continuation policy
type EngagementConfig struct {
	MaxTurns          int
	MinConfidence     float64
	HistoryWindow     int
	ClassifierTimeout time.Duration
	ResponderTimeout  time.Duration
}

// SessionConfig represents the configuration for the session store
type SessionConfig struct {
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// ServerConfig selects the inbound gateway
type ServerConfig struct {
	Gateway        string
	TrustedDomains []string
	MaxMessageSize int
}

// HTTPConfig represents the configuration for the HTTP gateway
type HTTPConfig struct {
	ListenAddress string
	APIKey        string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// SMTPConfig represents the configuration for the SMTP gateway
type SMTPConfig struct {
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64
	RelayEnabled    bool
	RelayAddress    string
	RelayFrom       string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetEngagement returns the continuation policy
func (c *Config) GetEngagement() (EngagementConfig, error) {
	classifierTimeout, err := c.GetDuration("engagement.classifier_timeout")
	if err != nil {
		return EngagementConfig{}, err
	}
	responderTimeout, err := c.GetDuration("engagement.responder_timeout")
	if err != nil {
		return EngagementConfig{}, err
	}

	cfg := EngagementConfig{
		MaxTurns:          c.GetInt("engagement.max_turns"),
		MinConfidence:     c.GetFloat64("engagement.min_confidence"),
		HistoryWindow:     c.GetInt("engagement.history_window"),
		ClassifierTimeout: classifierTimeout,
		ResponderTimeout:  responderTimeout,
	}
	if classifierTimeout <= 0 || responderTimeout <= 0 {
		return EngagementConfig{}, fmt.Errorf("engagement timeouts must be positive, got classifier %v and responder %v", classifierTimeout, responderTimeout)
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return EngagementConfig{}, fmt.Errorf("engagement.min_confidence must be between 0 and 1, got %v", cfg.MinConfidence)
	}
	return cfg, nil
}

// GetSession returns the session store configuration
func (c *Config) GetSession() (SessionConfig, error) {
	ttl, err := c.GetDuration("session.ttl")
	if err != nil {
		return SessionConfig{}, err
	}
	cleanupFreq, err := c.GetDuration("session.cleanup_frequency")
	if err != nil {
		return SessionConfig{}, err
	}

	return SessionConfig{
		Type:             c.GetString("session.type"),
		TTL:              ttl,
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetString("session.sqlite_path"),
		MySQLDSN:         c.GetString("session.mysql_dsn"),
	}, nil
}

// GetServer returns the gateway selection
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		Gateway:        c.GetString("server.gateway"),
		TrustedDomains: c.GetStringSlice("gateway.trusted_domains"),
		MaxMessageSize: c.GetInt("gateway.max_message_size"),
	}
}

// GetHTTP returns the HTTP gateway configuration
func (c *Config) GetHTTP() (HTTPConfig, error) {
	readTimeout, err := c.GetDuration("http.read_timeout")
	if err != nil {
		return HTTPConfig{}, err
	}
	writeTimeout, err := c.GetDuration("http.write_timeout")
	if err != nil {
		return HTTPConfig{}, err
	}

	return HTTPConfig{
		ListenAddress: c.GetString("http.listen_address"),
		APIKey:        c.GetString("http.api_key"),
		ReadTimeout:   readTimeout,
		WriteTimeout:  writeTimeout,
	}, nil
}

// GetSMTP returns the SMTP gateway configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		ListenAddress:   c.GetString("smtp.listen_address"),
		Domain:          c.GetString("smtp.domain"),
		MaxMessageBytes: int64(c.GetInt("smtp.max_message_bytes")),
		RelayEnabled:    c.GetBool("smtp.relay.enabled"),
		RelayAddress:    c.GetString("smtp.relay.address"),
		RelayFrom:       c.GetString("smtp.relay.from"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}
