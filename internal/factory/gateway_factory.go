package factory

import (
	"fmt"

	"github.com/mikey/llm-honeypot/internal/adapters/gateway"
	"github.com/mikey/llm-honeypot/internal/config"
	"github.com/mikey/llm-honeypot/internal/ports"
	"github.com/mikey/llm-honeypot/internal/utils"
	"github.com/mikey/llm-honeypot/internal/whitelist"
	"go.uber.org/zap"
)

// GatewayFactory creates inbound gateways based on configuration
type GatewayFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	engine        ports.Engine
}

// NewGatewayFactory creates a new gateway factory
func NewGatewayFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor, engine ports.Engine) *GatewayFactory {
	return &GatewayFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
		engine:        engine,
	}
}

// CreateGateway creates the gateway named by server.gateway
func (f *GatewayFactory) CreateGateway() (ports.Gateway, error) {
	serverCfg := f.cfg.GetServer()

	switch serverCfg.Gateway {
	case "http":
		httpCfg, err := f.cfg.GetHTTP()
		if err != nil {
			return nil, fmt.Errorf("invalid http configuration: %w", err)
		}
		if httpCfg.APIKey == "" {
			f.logger.Warn("http.api_key is empty, every request will be rejected")
		}
		return gateway.NewHTTPGateway(
			f.engine,
			f.logger.Named("http"),
			f.textProcessor,
			httpCfg.ListenAddress,
			httpCfg.APIKey,
			httpCfg.ReadTimeout,
			httpCfg.WriteTimeout,
			serverCfg.MaxMessageSize,
		), nil
	case "smtp":
		smtpCfg := f.cfg.GetSMTP()
		return gateway.NewSMTPGateway(
			f.engine,
			f.logger.Named("smtp"),
			f.textProcessor,
			whitelist.NewChecker(serverCfg.TrustedDomains, f.logger),
			smtpCfg.ListenAddress,
			smtpCfg.Domain,
			smtpCfg.MaxMessageBytes,
			serverCfg.MaxMessageSize,
			smtpCfg.RelayEnabled,
			smtpCfg.RelayAddress,
			smtpCfg.RelayFrom,
		), nil
	default:
		return nil, fmt.Errorf("unsupported gateway type: %s", serverCfg.Gateway)
	}
}
