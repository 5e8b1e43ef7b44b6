package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/llm-honeypot/internal/core"
)

// ClassifierSystemPrompt is the system prompt used by Classification
const ClassifierSystemPrompt = `You are a scam detection system protecting people from fraud.
Respond only with JSON.`

const classifierUserFormat = `Analyze if this message is a scam. Look for:
- Urgency/threats (account blocked, immediate action needed)
- Prize/lottery claims (you won, congratulations)
- Requests for money, bank details, or personal info
- Phishing links or suspicious URLs
- Impersonation (bank, government, company)
- Job scams (work from home, easy money)
- OTP/verification code requests
%s
Message: %q

Return ONLY valid JSON in this exact format:
{"is_scam": true/false, "confidence": 0.0-1.0, "scam_type": "phishing/lottery/job/bank/accountVerification/other/none"}`

// PersonaSystemPrompt is the system prompt used by Persona
const PersonaSystemPrompt = `You are roleplaying as a believable potential scam victim. Your goal is to engage the scammer naturally to extract information.

CRITICAL RULES:
1. NEVER reveal you know it's a scam
2. Sound genuinely concerned, curious, or naive
3. Ask clarifying questions to get more details
4. Be conversational and natural
5. Keep responses SHORT (1-2 sentences max)
6. Match the tone - if they're urgent, be worried; if friendly, be curious`

var personaInstructions = map[core.ScamType]string{
	core.ScamTypePhishing:            "You're concerned about your account. Ask why it's blocked and what you need to do.",
	core.ScamTypeLottery:             "You're excited but confused. Ask how to claim the prize.",
	core.ScamTypeJob:                 "You're interested in the opportunity. Ask about job details and payment.",
	core.ScamTypeBank:                "You're worried about your bank account. Ask for clarification.",
	core.ScamTypeAccountVerification: "You're anxious to keep your account open. Ask which details they need and where to send them.",
	core.ScamTypeOther:               "You're curious and concerned. Ask for more information.",
}

// Prompt is a system prompt plus the content sent in the user role
type Prompt struct {
	System string
	User   string
}

// Classification builds the prompt that asks a model to label text
func Classification(text string, history []core.Turn) Prompt {
	ctx := ""
	if h := formatHistory(history); h != "" {
		ctx = "\nRecent conversation:\n" + h + "\n"
	}
	return Prompt{
		System: ClassifierSystemPrompt,
		User:   fmt.Sprintf(classifierUserFormat, ctx, text),
	}
}

// Persona builds the prompt for the victim persona's next reply
func Persona(text string, scamType core.ScamType, history []core.Turn, turnIndex int) Prompt {
	instruction, ok := personaInstructions[scamType]
	if !ok {
		instruction = personaInstructions[core.ScamTypeOther]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scam type: %s\n", scamType)
	fmt.Fprintf(&b, "Persona: %s\n", instruction)
	fmt.Fprintf(&b, "Turn: %d\n\n", turnIndex)
	if h := formatHistory(history); h != "" {
		b.WriteString("Recent conversation:\n")
		b.WriteString(h)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Scammer just said: %q\n\n", text)
	b.WriteString("Generate your response (just the message, no explanation):")

	return Prompt{
		System: PersonaSystemPrompt,
		User:   b.String(),
	}
}

func formatHistory(history []core.Turn) string {
	lines := make([]string, 0, len(history))
	for _, t := range history {
		speaker := "scammer"
		if t.Role == core.RoleAgent {
			speaker = "you"
		}
		lines = append(lines, "- "+speaker+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}

type classificationResponse struct {
	IsScam     *bool    `json:"is_scam"`
	Confidence *float64 `json:"confidence"`
	ScamType   string   `json:"scam_type"`
}

// ParseClassification decodes a model's JSON verdict. Code fences and any
// prose around the JSON object are ignored. Out of range values are left
// for the caller to reject.
func ParseClassification(raw, source string) (*core.ClassificationResult, error) {
	var resp classificationResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		// Try to extract JSON from the text response
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to extract JSON from LLM response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
		}
	}

	if resp.IsScam == nil || resp.Confidence == nil {
		return nil, errors.New("LLM response is missing is_scam or confidence")
	}
	scamType, ok := core.ParseScamType(resp.ScamType)
	if !ok {
		return nil, fmt.Errorf("unknown scam type %q", resp.ScamType)
	}

	return &core.ClassificationResult{
		IsScam:     *resp.IsScam,
		Confidence: *resp.Confidence,
		ScamType:   scamType,
		Source:     source,
	}, nil
}

// CleanReply strips the wrapping quotes and speaker labels models like to
// put around a persona reply.
func CleanReply(raw string) string {
	reply := strings.TrimSpace(raw)
	for _, label := range []string{"Response:", "You:", "Victim:"} {
		if len(reply) >= len(label) && strings.EqualFold(reply[:len(label)], label) {
			reply = strings.TrimSpace(reply[len(label):])
		}
	}
	return strings.TrimSpace(strings.Trim(reply, "\"“”'`"))
}
