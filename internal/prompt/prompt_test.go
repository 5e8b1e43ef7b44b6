package prompt

import (
	"testing"

	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		isScam   bool
		conf     float64
		scamType core.ScamType
	}{
		{
			name:     "plain json",
			raw:      `{"is_scam": true, "confidence": 0.92, "scam_type": "lottery"}`,
			isScam:   true,
			conf:     0.92,
			scamType: core.ScamTypeLottery,
		},
		{
			name:     "fenced",
			raw:      "```json\n{\"is_scam\": true, \"confidence\": 0.7, \"scam_type\": \"kyc\"}\n```",
			isScam:   true,
			conf:     0.7,
			scamType: core.ScamTypeAccountVerification,
		},
		{
			name:     "prose around object",
			raw:      `Sure! Here you go: {"is_scam": false, "confidence": 0.1, "scam_type": "none"} Hope that helps.`,
			isScam:   false,
			conf:     0.1,
			scamType: core.ScamTypeNone,
		},
		{
			name:     "missing type",
			raw:      `{"is_scam": false, "confidence": 0.05}`,
			isScam:   false,
			conf:     0.05,
			scamType: core.ScamTypeNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseClassification(tt.raw, "test-model")
			require.NoError(t, err)
			assert.Equal(t, tt.isScam, res.IsScam)
			assert.InDelta(t, tt.conf, res.Confidence, 1e-9)
			assert.Equal(t, tt.scamType, res.ScamType)
			assert.Equal(t, "test-model", res.Source)
		})
	}
}

func TestParseClassification_Rejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"I think this is a scam",
		`{"is_scam": "maybe"}`,
		`{"confidence": 0.9, "scam_type": "bank"}`,
		`{"is_scam": true, "confidence": 0.9, "scam_type": "romance"}`,
		`{"is_scam": true,`,
	} {
		_, err := ParseClassification(raw, "m")
		assert.Error(t, err, raw)
	}
}

func TestClassificationPrompt(t *testing.T) {
	p := Classification("Send OTP now", nil)
	assert.NotEmpty(t, p.System)
	assert.Contains(t, p.User, `"Send OTP now"`)
	assert.NotContains(t, p.User, "Recent conversation")

	p = Classification("Send OTP now", []core.Turn{
		{Role: core.RoleCounterpart, Text: "Your account is blocked"},
		{Role: core.RoleAgent, Text: "Why?"},
	})
	assert.Contains(t, p.User, "- scammer: Your account is blocked")
	assert.Contains(t, p.User, "- you: Why?")
}

func TestPersonaPrompt(t *testing.T) {
	p := Persona("Pay the fee to claim", core.ScamTypeLottery, nil, 2)
	assert.Contains(t, p.System, "NEVER reveal")
	assert.Contains(t, p.User, personaInstructions[core.ScamTypeLottery])
	assert.Contains(t, p.User, "Turn: 2")
	assert.Contains(t, p.User, `"Pay the fee to claim"`)

	p = Persona("hello", core.ScamTypeNone, nil, 1)
	assert.Contains(t, p.User, personaInstructions[core.ScamTypeOther])
}

func TestCleanReply(t *testing.T) {
	assert.Equal(t, "How do I claim it?", CleanReply(`  "How do I claim it?"  `))
	assert.Equal(t, "What bank?", CleanReply("Response: “What bank?”"))
	assert.Equal(t, "I'm worried, what happened?", CleanReply("I'm worried, what happened?"))
	assert.Empty(t, CleanReply(`""`))
}
