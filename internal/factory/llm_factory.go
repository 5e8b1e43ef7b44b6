package factory

import (
	"fmt"

	"github.com/mikey/llm-honeypot/internal/adapters/bedrock"
	"github.com/mikey/llm-honeypot/internal/adapters/gemini"
	"github.com/mikey/llm-honeypot/internal/adapters/openai"
	"github.com/mikey/llm-honeypot/internal/config"
	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/utils"
	"go.uber.org/zap"
)

// ProviderNone runs the engine on its local fallbacks only
const ProviderNone = "none"

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration.
// Provider "none" yields a nil client.
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		client, err := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		client, err := openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderNone, "":
		f.logger.Warn("No LLM provider configured, using keyword heuristic and canned replies")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
