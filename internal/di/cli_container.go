package di

import (
	"flag"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-honeypot/internal/adapters/gateway"
	"github.com/mikey/llm-honeypot/internal/config"
	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/logging"
	"github.com/mikey/llm-honeypot/internal/utils"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// LLM provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Engagement flags
	MaxTurns      int
	MinConfidence float64

	// Input flags
	SessionID  string
	InputFile  string
	Verbose    bool
	JSONLog    bool
	JSONOutput bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	// LLM provider flags
	fs.StringVar(&flags.Provider, "provider", "none", "LLM provider (bedrock, gemini, openai, none)")
	fs.IntVar(&flags.MaxTokens, "max-tokens", 300, "Maximum tokens for LLM response")
	fs.Float64Var(&flags.Temperature, "temperature", 0.7, "Temperature for persona replies")
	fs.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")
	fs.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum message size to send to LLM")

	// Bedrock flags
	fs.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	fs.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	fs.StringVar(&flags.GeminiAPIKey, "gemini-api-key", os.Getenv("GEMINI_API_KEY"), "API key for Google Gemini")
	fs.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-1.5-flash", "Gemini model name")

	// OpenAI flags
	fs.StringVar(&flags.OpenAIAPIKey, "openai-api-key", os.Getenv("OPENAI_API_KEY"), "API key for OpenAI")
	fs.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4o-mini", "OpenAI model name")

	// Engagement flags
	fs.IntVar(&flags.MaxTurns, "max-turns", 10, "Hard cap on counterpart turns per session")
	fs.Float64Var(&flags.MinConfidence, "min-confidence", 0.5, "Minimum classifier confidence to engage")

	// Input flags
	fs.StringVar(&flags.SessionID, "session", "cli", "Session id used for the replay")
	fs.StringVar(&flags.InputFile, "file", "", "Transcript file, one scammer message per line (use stdin if not specified)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.BoolVar(&flags.JSONOutput, "json", false, "Print one JSON result per turn")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	_ = fs.Parse(args)
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			v := config.NewEmptyViper()
			v.SetConfigFile(flags.ConfigFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", v.ConfigFileUsed()))
			return config.NewFromViper(v), nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}

	// Register CLI gateway; the CLI never holds sessions past the replay
	if err := container.Provide(func(
		flags *CLIFlags,
		cfg *config.Config,
		logger *zap.Logger,
		textProcessor *utils.TextProcessor,
		svc *core.EngagementService,
	) *gateway.CliGateway {
		return gateway.NewCliGateway(
			svc,
			logger,
			textProcessor,
			cfg.GetServer().MaxMessageSize,
			os.Stdout,
			flags.Verbose,
			flags.JSONOutput,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Replays are short lived
	v.Set("session.type", "memory")
	v.Set("session.ttl", "0s")

	// Set LLM provider
	v.Set("llm.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_body_size", flags.MaxBodySize)
	}

	// Set engagement policy
	v.Set("engagement.max_turns", flags.MaxTurns)
	v.Set("engagement.min_confidence", flags.MinConfidence)

	return config.NewFromViper(v)
}
