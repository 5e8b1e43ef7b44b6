package core

import (
	"context"
	"strings"
)

// KeywordClassifierSource identifies results produced by KeywordClassifier
const KeywordClassifierSource = "keyword-heuristic"

// StallingReply is sent when the honeypot is not actively engaging
const StallingReply = "I'm sorry, I don't understand. Can you clarify?"

var scamKeywords = []string{
	"blocked", "suspended", "verify", "won", "prize", "congratulations",
	"urgent", "immediately", "otp", "bank account", "upi", "payment",
}

// scamTypeHints picks a scam type for heuristic results; first match wins
var scamTypeHints = []struct {
	scamType ScamType
	words    []string
}{
	{ScamTypeLottery, []string{"won", "prize", "congratulations", "lottery", "winner"}},
	{ScamTypeJob, []string{"job", "work from home", "salary", "hiring"}},
	{ScamTypeAccountVerification, []string{"kyc", "verify", "verification"}},
	{ScamTypeBank, []string{"bank account", "bank"}},
}

var cannedReplies = map[ScamType]string{
	ScamTypePhishing:            "Why is my account being suspended? What do I need to verify?",
	ScamTypeLottery:             "Really? How do I claim this prize?",
	ScamTypeJob:                 "What kind of work is it? How much can I earn?",
	ScamTypeBank:                "Is there a problem with my account? What should I do?",
	ScamTypeAccountVerification: "Which details do you need from me to verify my account?",
	ScamTypeOther:               "Can you tell me more about this?",
}

// KeywordClassifier is a local classifier that counts scam indicator words.
// It never fails.
type KeywordClassifier struct{}

// Classify implements Classifier
func (KeywordClassifier) Classify(_ context.Context, text string, _ []Turn) (*ClassificationResult, error) {
	return ClassifyByKeywords(text), nil
}

// ClassifyByKeywords counts scam indicator hits in text. Two or more hits
// mark the message as a scam with confidence hits/5 capped at 1.
func ClassifyByKeywords(text string) *ClassificationResult {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range scamKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}

	if hits < 2 {
		return &ClassificationResult{
			IsScam:     false,
			Confidence: 0.2,
			ScamType:   ScamTypeNone,
			Source:     KeywordClassifierSource,
		}
	}

	confidence := float64(hits) / 5
	if confidence > 1 {
		confidence = 1
	}
	return &ClassificationResult{
		IsScam:     true,
		Confidence: confidence,
		ScamType:   guessScamType(lower),
		Source:     KeywordClassifierSource,
	}
}

func guessScamType(lower string) ScamType {
	for _, hint := range scamTypeHints {
		for _, w := range hint.words {
			if strings.Contains(lower, w) {
				return hint.scamType
			}
		}
	}
	return ScamTypePhishing
}

// CannedResponder returns a fixed reply per scam type. It never fails.
type CannedResponder struct{}

// GeneratePersonaResponse implements Responder
func (CannedResponder) GeneratePersonaResponse(_ context.Context, _ string, scamType ScamType, _ []Turn, _ int) (string, error) {
	return CannedReply(scamType), nil
}

// CannedReply returns the fixed reply for scamType
func CannedReply(scamType ScamType) string {
	if r, ok := cannedReplies[scamType]; ok {
		return r
	}
	return "I'm not sure I understand. Can you explain?"
}
