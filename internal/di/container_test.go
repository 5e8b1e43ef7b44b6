package di

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikey/llm-honeypot/internal/adapters/gateway"
	"github.com/mikey/llm-honeypot/internal/config"
	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	flags := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{
		"-provider", "openai", "-max-turns", "4", "-session", "demo", "-json",
	})

	assert.Equal(t, "openai", flags.Provider)
	assert.Equal(t, 4, flags.MaxTurns)
	assert.Equal(t, "demo", flags.SessionID)
	assert.True(t, flags.JSONOutput)
	assert.Equal(t, 0.5, flags.MinConfidence)
}

func TestCreateConfigFromFlags(t *testing.T) {
	cfg := createConfigFromFlags(&CLIFlags{
		Provider:        "gemini",
		GeminiAPIKey:    "key",
		GeminiModelName: "gemini-1.5-pro",
		MaxTokens:       100,
		MaxTurns:        6,
		MinConfidence:   0.7,
	})

	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.Equal(t, "key", cfg.GetGemini().APIKey)
	assert.Equal(t, "gemini-1.5-pro", cfg.GetGemini().ModelName)

	engagement, err := cfg.GetEngagement()
	require.NoError(t, err)
	assert.Equal(t, 6, engagement.MaxTurns)
	assert.Equal(t, 0.7, engagement.MinConfidence)
}

func TestBuildCLIContainer_Replay(t *testing.T) {
	flags := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-provider", "none"})
	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(g *gateway.CliGateway, client core.LLMClient) error {
		assert.Nil(t, client)
		results, err := g.Replay(context.Background(), flags.SessionID,
			strings.NewReader("URGENT: your bank account is blocked, verify immediately\n"))
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, core.StatusActive, results[0].EngagementStatus)
		return nil
	})
	require.NoError(t, err)
}

func TestBuildCLIContainer_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "honeypot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: none\nengagement:\n  max_turns: 3\n"), 0o600))

	container, err := BuildCLIContainer(&CLIFlags{ConfigFile: path})
	require.NoError(t, err)

	err = container.Invoke(func(cfg *config.Config, engine ports.Engine) {
		engagement, err := cfg.GetEngagement()
		require.NoError(t, err)
		assert.Equal(t, 3, engagement.MaxTurns)
		assert.NotNil(t, engine)
	})
	require.NoError(t, err)
}
