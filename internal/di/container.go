package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-honeypot/internal/config"
	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/factory"
	"github.com/mikey/llm-honeypot/internal/logging"
	"github.com/mikey/llm-honeypot/internal/ports"
	"github.com/mikey/llm-honeypot/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}

	// Register gateway
	if err := container.Provide(factory.NewGatewayFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.GatewayFactory) (ports.Gateway, error) {
		return f.CreateGateway()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideEngine registers everything from the text processor up to the
// engagement service. It expects *config.Config and *zap.Logger to be
// provided already.
func provideEngine(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewSessionFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register LLM client; nil when no provider is configured
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return err
	}

	// Register session store
	if err := container.Provide(func(f *factory.SessionFactory) (core.SessionStore, error) {
		return f.CreateSessionStore()
	}); err != nil {
		return err
	}

	// Register engagement policy
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.EngagementConfig, error) {
		engagementCfg, err := cfg.GetEngagement()
		if err != nil {
			return core.EngagementConfig{}, err
		}
		logger.Info("Loaded engagement policy",
			zap.Int("max_turns", engagementCfg.MaxTurns),
			zap.Float64("min_confidence", engagementCfg.MinConfidence),
			zap.Int("history_window", engagementCfg.HistoryWindow))
		return core.EngagementConfig{
			MaxTurns:          engagementCfg.MaxTurns,
			MinConfidence:     engagementCfg.MinConfidence,
			HistoryWindow:     engagementCfg.HistoryWindow,
			ClassifierTimeout: engagementCfg.ClassifierTimeout,
			ResponderTimeout:  engagementCfg.ResponderTimeout,
		}, nil
	}); err != nil {
		return err
	}

	// Register engagement service
	if err := container.Provide(func(
		llmClient core.LLMClient,
		store core.SessionStore,
		logger *zap.Logger,
		cfg core.EngagementConfig,
	) *core.EngagementService {
		if llmClient == nil {
			return core.NewEngagementService(nil, nil, store, logger, cfg)
		}
		return core.NewEngagementService(llmClient, llmClient, store, logger, cfg)
	}); err != nil {
		return err
	}

	// Register the service as the gateways' engine
	return container.Provide(func(svc *core.EngagementService) ports.Engine {
		return svc
	})
}
