package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/llm-honeypot/internal/adapters/gateway"
	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(
		logger *zap.Logger,
		cli *gateway.CliGateway,
		llmClient core.LLMClient,
		store core.SessionStore,
	) error {
		defer logger.Sync()

		// Read transcript from file or stdin
		var transcript io.Reader
		if flags.InputFile != "" {
			file, err := os.Open(flags.InputFile)
			if err != nil {
				logger.Error("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
				return err
			}
			defer file.Close()
			transcript = file
			logger.Info("Reading transcript from file", zap.String("file", flags.InputFile))
		} else {
			transcript = os.Stdin
			logger.Info("Reading transcript from stdin")
		}

		_, err := cli.Replay(context.Background(), flags.SessionID, transcript)

		if closer, ok := llmClient.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close LLM client", zap.Error(err))
			}
		}
		if stopper, ok := store.(interface{ Stop() }); ok {
			stopper.Stop()
		}
		return err
	}); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}
