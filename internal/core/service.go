package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EngagementConfig holds the continuation policy
type EngagementConfig struct {
	MaxTurns          int
	MinConfidence     float64
	HistoryWindow     int
	ClassifierTimeout time.Duration
	ResponderTimeout  time.Duration
}

// DefaultEngagementConfig returns the stock continuation policy
func DefaultEngagementConfig() EngagementConfig {
	return EngagementConfig{
		MaxTurns:          10,
		MinConfidence:     0.5,
		HistoryWindow:     3,
		ClassifierTimeout: 8 * time.Second,
		ResponderTimeout:  8 * time.Second,
	}
}

// EngagementService drives honeypot conversations one inbound turn at a time
type EngagementService struct {
	classifier Classifier
	responder  Responder
	store      SessionStore
	logger     *zap.Logger
	cfg        EngagementConfig
}

// NewEngagementService creates a new engagement service. A nil classifier or
// responder leaves the service running on the local fallbacks only.
func NewEngagementService(
	classifier Classifier,
	responder Responder,
	store SessionStore,
	logger *zap.Logger,
	cfg EngagementConfig,
) *EngagementService {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	if responder == nil {
		responder = CannedResponder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := DefaultEngagementConfig()
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaults.MaxTurns
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = defaults.MinConfidence
	}
	// AI calls run under the session lock and must always have a deadline
	if cfg.ClassifierTimeout <= 0 {
		cfg.ClassifierTimeout = defaults.ClassifierTimeout
	}
	if cfg.ResponderTimeout <= 0 {
		cfg.ResponderTimeout = defaults.ResponderTimeout
	}
	// persona prompts want between 3 and 5 turns of context
	if cfg.HistoryWindow < 3 {
		cfg.HistoryWindow = 3
	} else if cfg.HistoryWindow > 5 {
		cfg.HistoryWindow = 5
	}

	return &EngagementService{
		classifier: classifier,
		responder:  responder,
		store:      store,
		logger:     logger,
		cfg:        cfg,
	}
}

// Config returns the effective continuation policy
func (s *EngagementService) Config() EngagementConfig {
	return s.cfg
}

// HandleTurn processes one inbound counterpart message for the session key.
// supplied is conversation history known to the caller; it seeds a session
// seen for the first time. Classifier and responder failures are absorbed by
// the local fallbacks, so an error is returned only when the session store
// itself fails.
func (s *EngagementService) HandleTurn(ctx context.Context, key string, incoming Turn, supplied []Turn) (*EngagementResult, error) {
	if key == "" {
		return nil, errors.New("session key is required")
	}
	incoming.Role = RoleCounterpart
	if incoming.Timestamp.IsZero() {
		incoming.Timestamp = time.Now()
	}

	var result *EngagementResult
	err := s.store.Update(ctx, key, func(sess *Session) error {
		result = s.engage(ctx, sess, incoming, supplied)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update session %q: %w", key, err)
	}

	s.logger.Info("Handled turn",
		zap.String("session_id", key),
		zap.String("status", string(result.EngagementStatus)),
		zap.Int("turns", result.ConversationTurns),
		zap.Bool("scam", result.ScamDetected),
		zap.Float64("confidence", result.ConfidenceScore),
		zap.String("classified_by", result.ClassifiedBy),
		zap.String("threat_level", result.ThreatLevel.String()),
		zap.Int("intel_items", result.ExtractedIntelligence.Count()))

	return result, nil
}

func (s *EngagementService) engage(ctx context.Context, sess *Session, incoming Turn, supplied []Turn) *EngagementResult {
	if len(sess.Turns) == 0 && len(supplied) > 0 {
		s.importHistory(sess, supplied)
	}

	sufficientBefore := sess.Intelligence.Sufficient()
	history := sess.RecentTurns(s.cfg.HistoryWindow)
	turnCount := sess.AppendTurn(incoming)

	cls := s.classify(ctx, sess.Key, incoming.Text, history)
	sess.MergeIntelligence(ExtractIntelligence(incoming.Text))

	scamNow := cls.IsScam && cls.Confidence >= s.cfg.MinConfidence
	if scamNow {
		sess.ScamDetected = true
	}

	decision := EngagementDecision{Status: StatusMonitoring, ShouldContinue: true}
	var reply string
	switch {
	case sess.Completed,
		turnCount >= s.cfg.MaxTurns,
		sufficientBefore && sess.ScamDetected:
		sess.Completed = true
		decision.Status = StatusCompleted
		decision.ShouldContinue = false
		reply = StallingReply
	case scamNow:
		decision.Status = StatusActive
		reply = s.respond(ctx, sess.Key, incoming.Text, cls.ScamType, history, turnCount)
	default:
		reply = StallingReply
	}

	sess.AppendTurn(Turn{
		Role:      RoleAgent,
		Text:      reply,
		Timestamp: replyTimestamp(incoming.Timestamp),
	})
	decision.ThreatLevel = ScoreThreat(sess.Intelligence, cls.Confidence)

	return &EngagementResult{
		ScamDetected:          cls.IsScam,
		ConfidenceScore:       cls.Confidence,
		ScamType:              cls.ScamType,
		AgentResponse:         reply,
		EngagementStatus:      decision.Status,
		ConversationTurns:     turnCount,
		ExtractedIntelligence: sess.Intelligence.Clone(),
		ThreatLevel:           decision.ThreatLevel,
		ContinueConversation:  decision.ShouldContinue,
		ClassifiedBy:          cls.Source,
	}
}

func (s *EngagementService) importHistory(sess *Session, supplied []Turn) {
	for _, t := range supplied {
		if t.Timestamp.IsZero() {
			t.Timestamp = time.Now()
		}
		sess.AppendTurn(t)
		sess.MergeIntelligence(ExtractIntelligence(t.Text))
	}
	s.logger.Debug("Seeded session from supplied history",
		zap.String("session_id", sess.Key),
		zap.Int("turns", len(supplied)))
}

func (s *EngagementService) classify(ctx context.Context, key, text string, history []Turn) *ClassificationResult {
	cls, err := callWithTimeout(ctx, s.cfg.ClassifierTimeout, func(ctx context.Context) (*ClassificationResult, error) {
		return s.classifier.Classify(ctx, text, history)
	})
	if err == nil {
		err = validateClassification(cls)
	}
	if err != nil {
		s.logger.Warn("Classifier unavailable, using keyword heuristic",
			zap.String("session_id", key),
			zap.Error(err))
		return ClassifyByKeywords(text)
	}

	if !cls.IsScam {
		cls.ScamType = ScamTypeNone
	} else if cls.ScamType == ScamTypeNone {
		cls.ScamType = ScamTypeOther
	}
	return cls
}

func (s *EngagementService) respond(ctx context.Context, key, text string, scamType ScamType, history []Turn, turnIndex int) string {
	reply, err := callWithTimeout(ctx, s.cfg.ResponderTimeout, func(ctx context.Context) (string, error) {
		return s.responder.GeneratePersonaResponse(ctx, text, scamType, history, turnIndex)
	})
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty persona response")
	}
	if err != nil {
		s.logger.Warn("Responder unavailable, using canned reply",
			zap.String("session_id", key),
			zap.String("scam_type", string(scamType)),
			zap.Error(err))
		return CannedReply(scamType)
	}
	return strings.TrimSpace(reply)
}

func validateClassification(cls *ClassificationResult) error {
	if cls == nil {
		return errors.New("empty classification")
	}
	if math.IsNaN(cls.Confidence) || cls.Confidence < 0 || cls.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", cls.Confidence)
	}
	if _, ok := ParseScamType(string(cls.ScamType)); !ok {
		return fmt.Errorf("unknown scam type %q", cls.ScamType)
	}
	return nil
}

// callWithTimeout runs fn with a deadline and stops waiting once the
// deadline passes, even if fn ignores its context.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome{v, err}
	}()

	select {
	case o := <-ch:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func replyTimestamp(incoming time.Time) time.Time {
	if now := time.Now(); now.After(incoming) {
		return now
	}
	return incoming.Add(time.Millisecond)
}
