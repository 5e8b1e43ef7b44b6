package core

import (
	"strings"
	"time"
)

// Role identifies who authored a turn
type Role string

const (
	// RoleCounterpart is the party being engaged (the suspected scammer)
	RoleCounterpart Role = "counterpart"
	// RoleAgent is the honeypot persona
	RoleAgent Role = "agent"
)

// ParseRole maps a wire sender name onto a Role. Anything that is not
// recognisably the honeypot side is treated as the counterpart.
func ParseRole(sender string) Role {
	switch strings.ToLower(strings.TrimSpace(sender)) {
	case "agent", "user", "assistant", "honeypot":
		return RoleAgent
	default:
		return RoleCounterpart
	}
}

// Turn is a single message in a conversation
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ScamType is the category of scam reported by a classifier
type ScamType string

const (
	ScamTypePhishing            ScamType = "phishing"
	ScamTypeLottery             ScamType = "lottery"
	ScamTypeJob                 ScamType = "job"
	ScamTypeBank                ScamType = "bank"
	ScamTypeAccountVerification ScamType = "accountVerification"
	ScamTypeOther               ScamType = "other"
	ScamTypeNone                ScamType = "none"
)

// ParseScamType normalises a classifier label. The second return value is
// false when the label is not one of the known scam types.
func ParseScamType(s string) (ScamType, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "phishing":
		return ScamTypePhishing, true
	case "lottery", "prize":
		return ScamTypeLottery, true
	case "job":
		return ScamTypeJob, true
	case "bank":
		return ScamTypeBank, true
	case "accountverification", "verification", "kyc":
		return ScamTypeAccountVerification, true
	case "other":
		return ScamTypeOther, true
	case "none", "":
		return ScamTypeNone, true
	default:
		return ScamTypeNone, false
	}
}

// ClassificationResult is the outcome of classifying one inbound message
type ClassificationResult struct {
	IsScam     bool
	Confidence float64
	ScamType   ScamType
	Source     string
}

// ThreatLevel is an ordinal severity
type ThreatLevel int

const (
	ThreatLow ThreatLevel = iota
	ThreatMedium
	ThreatHigh
	ThreatCritical
)

// String returns the wire name of the threat level
func (l ThreatLevel) String() string {
	switch l {
	case ThreatMedium:
		return "medium"
	case ThreatHigh:
		return "high"
	case ThreatCritical:
		return "critical"
	default:
		return "low"
	}
}

// MarshalText implements encoding.TextMarshaler
func (l ThreatLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// EngagementStatus describes where a session sits in the engagement lifecycle
type EngagementStatus string

const (
	StatusMonitoring EngagementStatus = "monitoring"
	StatusActive     EngagementStatus = "active"
	StatusCompleted  EngagementStatus = "completed"
)

// EngagementDecision is derived per turn and never stored
type EngagementDecision struct {
	Status         EngagementStatus
	ShouldContinue bool
	ThreatLevel    ThreatLevel
}

// Session is the per-conversation state
type Session struct {
	Key          string             `json:"key"`
	Turns        []Turn             `json:"turns"`
	Intelligence IntelligenceBundle `json:"intelligence"`
	TurnCount    int                `json:"turn_count"`
	Completed    bool               `json:"completed"`
	ScamDetected bool               `json:"scam_detected"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// NewSession creates an empty session for key
func NewSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:          key,
		Intelligence: NewIntelligenceBundle(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AppendTurn appends a turn and returns the number of counterpart turns
func (s *Session) AppendTurn(turn Turn) int {
	s.Turns = append(s.Turns, turn)
	if turn.Role == RoleCounterpart {
		s.TurnCount++
	}
	s.UpdatedAt = time.Now()
	return s.TurnCount
}

// CounterpartTurns counts the stored counterpart turns
func (s *Session) CounterpartTurns() int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == RoleCounterpart {
			n++
		}
	}
	return n
}

// MergeIntelligence folds b into the accumulated bundle
func (s *Session) MergeIntelligence(b IntelligenceBundle) {
	if s.Intelligence == nil {
		s.Intelligence = NewIntelligenceBundle()
	}
	s.Intelligence.Merge(b)
	s.UpdatedAt = time.Now()
}

// RecentTurns returns up to n of the most recent turns
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	start := len(s.Turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.Turns)-start)
	copy(out, s.Turns[start:])
	return out
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	c := *s
	c.Turns = make([]Turn, len(s.Turns))
	copy(c.Turns, s.Turns)
	c.Intelligence = s.Intelligence.Clone()
	return &c
}

// EngagementResult is what the engine returns for one inbound turn
type EngagementResult struct {
	ScamDetected          bool
	ConfidenceScore       float64
	ScamType              ScamType
	AgentResponse         string
	EngagementStatus      EngagementStatus
	ConversationTurns     int
	ExtractedIntelligence IntelligenceBundle
	ThreatLevel           ThreatLevel
	ContinueConversation  bool
	ClassifiedBy          string
}
