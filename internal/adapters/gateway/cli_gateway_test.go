package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mikey/llm-honeypot/internal/adapters/session"
	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const transcript = `# lottery scam
Congratulations! You have won a lottery prize of 5 lakh.

To claim, pay the processing fee to claims@ybl now.
Also send it to https://lottery-claims.example/pay
`

func TestCliGateway_Replay(t *testing.T) {
	logger := zaptest.NewLogger(t)
	svc := core.NewEngagementService(nil, nil, session.NewMemoryStore(logger, 0, 0), logger, core.DefaultEngagementConfig())

	var out bytes.Buffer
	g := NewCliGateway(svc, logger, utils.NewTextProcessor(logger), 4096, &out, true, false)

	results, err := g.Replay(context.Background(), "cli", strings.NewReader(transcript))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].ConversationTurns)
	assert.Equal(t, 3, results[2].ConversationTurns)
	assert.Contains(t, results[2].ExtractedIntelligence[core.CategoryPaymentHandles], "claims@ybl")

	assert.Contains(t, out.String(), "=== Turn 1 ===")
	assert.Contains(t, out.String(), "Classified by:")
	assert.NotContains(t, out.String(), "lottery scam")
}

func TestCliGateway_StopsWhenEngagementEnds(t *testing.T) {
	engine := &recordingEngine{result: &core.EngagementResult{
		EngagementStatus:     core.StatusCompleted,
		ContinueConversation: false,
	}}
	logger := zaptest.NewLogger(t)
	var out bytes.Buffer
	g := NewCliGateway(engine, logger, utils.NewTextProcessor(logger), 4096, &out, false, true)

	results, err := g.Replay(context.Background(), "cli", strings.NewReader("one\ntwo\nthree\n"))
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "one", engine.incoming.Text)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "completed", line["engagement_status"])
	assert.Equal(t, false, line["continue_conversation"])
}

func TestCliGateway_EngineError(t *testing.T) {
	logger := zaptest.NewLogger(t)
	g := NewCliGateway(&recordingEngine{err: errors.New("boom")}, logger, utils.NewTextProcessor(logger), 4096, &bytes.Buffer{}, false, false)

	_, err := g.Replay(context.Background(), "cli", strings.NewReader("hello\n"))
	assert.EqualError(t, err, "boom")
	assert.NoError(t, g.Start())
	assert.NoError(t, g.Stop())
}
