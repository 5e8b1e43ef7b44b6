package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/ports"
	"github.com/mikey/llm-honeypot/internal/utils"
	"go.uber.org/zap"
)

// CliGateway replays a transcript through a single session, one counterpart
// message per non-empty line
type CliGateway struct {
	engine         ports.Engine
	logger         *zap.Logger
	textProcessor  *utils.TextProcessor
	maxMessageSize int
	out            io.Writer
	verbose        bool
	jsonOutput     bool
}

// NewCliGateway creates a new CLI gateway writing results to out
func NewCliGateway(
	engine ports.Engine,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	maxMessageSize int,
	out io.Writer,
	verbose bool,
	jsonOutput bool,
) *CliGateway {
	return &CliGateway{
		engine:         engine,
		logger:         logger,
		textProcessor:  textProcessor,
		maxMessageSize: maxMessageSize,
		out:            out,
		verbose:        verbose,
		jsonOutput:     jsonOutput,
	}
}

// Replay feeds every line of transcript to the engine under sessionID and
// prints each result. Replay stops early once the engine says not to
// continue.
func (g *CliGateway) Replay(ctx context.Context, sessionID string, transcript io.Reader) ([]*core.EngagementResult, error) {
	var results []*core.EngagementResult

	scanner := bufio.NewScanner(transcript)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := g.textProcessor.ProcessText(scanner.Text(), g.maxMessageSize)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		g.logger.Debug("Replaying message", zap.String("session_id", sessionID), zap.Int("line_length", len(text)))

		start := time.Now()
		result, err := g.engine.HandleTurn(ctx, sessionID, core.Turn{
			Role:      core.RoleCounterpart,
			Text:      text,
			Timestamp: time.Now(),
		}, nil)
		if err != nil {
			g.logger.Error("Failed to handle turn", zap.Error(err))
			return results, err
		}
		results = append(results, result)

		if err := g.print(text, result, time.Since(start)); err != nil {
			return results, err
		}
		if !result.ContinueConversation {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return results, fmt.Errorf("failed to read transcript: %w", err)
	}

	return results, nil
}

func (g *CliGateway) print(text string, result *core.EngagementResult, duration time.Duration) error {
	if g.jsonOutput {
		return json.NewEncoder(g.out).Encode(map[string]interface{}{
			"scam_detected":          result.ScamDetected,
			"confidence_score":       result.ConfidenceScore,
			"scam_type":              result.ScamType,
			"agent_response":         result.AgentResponse,
			"engagement_status":      result.EngagementStatus,
			"conversation_turns":     result.ConversationTurns,
			"extracted_intelligence": result.ExtractedIntelligence,
			"threat_level":           result.ThreatLevel,
			"continue_conversation":  result.ContinueConversation,
			"classified_by":          result.ClassifiedBy,
		})
	}

	fmt.Fprintf(g.out, "\n=== Turn %d ===\n", result.ConversationTurns)
	fmt.Fprintf(g.out, "Scammer: %s\n", text)
	fmt.Fprintf(g.out, "Honeypot: %s\n", result.AgentResponse)
	fmt.Fprintf(g.out, "Scam detected: %t (confidence %.2f, type %s)\n", result.ScamDetected, result.ConfidenceScore, result.ScamType)
	fmt.Fprintf(g.out, "Status: %s, threat: %s, continue: %t\n", result.EngagementStatus, result.ThreatLevel, result.ContinueConversation)

	if g.verbose {
		fmt.Fprintf(g.out, "Classified by: %s\n", result.ClassifiedBy)
		fmt.Fprintf(g.out, "Processing time: %v\n", duration)
		for _, c := range core.Categories {
			if items := result.ExtractedIntelligence[c]; len(items) > 0 {
				fmt.Fprintf(g.out, "  %s: %s\n", c, strings.Join(items, ", "))
			}
		}
	}
	return nil
}

// Start is a no-op for the CLI gateway
func (g *CliGateway) Start() error {
	return nil
}

// Stop is a no-op for the CLI gateway
func (g *CliGateway) Stop() error {
	return nil
}
