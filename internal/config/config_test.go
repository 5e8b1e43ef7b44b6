package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "gemini", cfg.GetLLM().Provider)

	eng, err := cfg.GetEngagement()
	require.NoError(t, err)
	assert.Equal(t, 10, eng.MaxTurns)
	assert.InDelta(t, 0.5, eng.MinConfidence, 1e-9)
	assert.Equal(t, 3, eng.HistoryWindow)
	assert.Equal(t, 8*time.Second, eng.ClassifierTimeout)
	assert.Equal(t, 8*time.Second, eng.ResponderTimeout)

	sess, err := cfg.GetSession()
	require.NoError(t, err)
	assert.Equal(t, "memory", sess.Type)
	assert.Zero(t, sess.TTL)
	assert.Equal(t, time.Hour, sess.CleanupFrequency)

	httpCfg, err := cfg.GetHTTP()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", httpCfg.ListenAddress)
	assert.Equal(t, "http", cfg.GetServer().Gateway)
	assert.Equal(t, "0.0.0.0:2525", cfg.GetSMTP().ListenAddress)
	assert.False(t, cfg.GetSMTP().RelayEnabled)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HONEYPOT_ENGAGEMENT_MAX_TURNS", "6")
	t.Setenv("HONEYPOT_SESSION_TYPE", "sqlite")
	t.Setenv("HONEYPOT_SESSION_TTL", "30m")

	cfg := NewFromViper(NewEmptyViper())

	eng, err := cfg.GetEngagement()
	require.NoError(t, err)
	assert.Equal(t, 6, eng.MaxTurns)

	sess, err := cfg.GetSession()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", sess.Type)
	assert.Equal(t, 30*time.Minute, sess.TTL)
}

func TestLegacyEnvironmentNames(t *testing.T) {
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg := NewFromViper(NewEmptyViper())
	httpCfg, err := cfg.GetHTTP()
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", httpCfg.APIKey)
	assert.Equal(t, "gemini-key", cfg.GetGemini().APIKey)
	assert.Equal(t, "openai-key", cfg.GetOpenAI().APIKey)

	t.Setenv("HONEYPOT_HTTP_API_KEY", "prefixed-key")
	cfg = NewFromViper(NewEmptyViper())
	httpCfg, err = cfg.GetHTTP()
	require.NoError(t, err)
	assert.Equal(t, "prefixed-key", httpCfg.APIKey)
}

func TestInvalidValues(t *testing.T) {
	t.Setenv("HONEYPOT_ENGAGEMENT_CLASSIFIER_TIMEOUT", "soon")
	cfg := NewFromViper(NewEmptyViper())
	_, err := cfg.GetEngagement()
	assert.Error(t, err)

	t.Setenv("HONEYPOT_ENGAGEMENT_CLASSIFIER_TIMEOUT", "1s")
	t.Setenv("HONEYPOT_ENGAGEMENT_MIN_CONFIDENCE", "1.5")
	cfg = NewFromViper(NewEmptyViper())
	_, err = cfg.GetEngagement()
	assert.Error(t, err)
}

func TestNonPositiveTimeoutsRejected(t *testing.T) {
	for _, key := range []string{
		"HONEYPOT_ENGAGEMENT_CLASSIFIER_TIMEOUT",
		"HONEYPOT_ENGAGEMENT_RESPONDER_TIMEOUT",
	} {
		for _, value := range []string{"0", "0s", "-1s"} {
			t.Run(key+"="+value, func(t *testing.T) {
				t.Setenv(key, value)
				_, err := NewFromViper(NewEmptyViper()).GetEngagement()
				assert.ErrorContains(t, err, "must be positive")
			})
		}
	}
}

func TestNewReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
llm:
  provider: openai
gateway:
  trusted_domains:
    - example.com
    - bank.example
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HONEYPOT_HTTP_LISTEN_ADDRESS=127.0.0.1:9000\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("HONEYPOT_HTTP_LISTEN_ADDRESS")
	})

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, []string{"example.com", "bank.example"}, cfg.GetServer().TrustedDomains)

	httpCfg, err := cfg.GetHTTP()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", httpCfg.ListenAddress)
}
