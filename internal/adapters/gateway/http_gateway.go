package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/ports"
	"github.com/mikey/llm-honeypot/internal/utils"
	"go.uber.org/zap"
)

const (
	apiKeyHeader   = "x-api-key"
	maxRequestBody = 1 << 20
	serviceName    = "AI Honeypot"
)

// HTTPGateway serves the honeypot JSON API
type HTTPGateway struct {
	engine         ports.Engine
	logger         *zap.Logger
	textProcessor  *utils.TextProcessor
	listenAddr     string
	apiKey         string
	readTimeout    time.Duration
	writeTimeout   time.Duration
	maxMessageSize int
	server         *http.Server
}

// NewHTTPGateway creates a new HTTP gateway. Requests are only accepted
// when their x-api-key header matches apiKey, so an empty apiKey rejects
// everything.
func NewHTTPGateway(
	engine ports.Engine,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	listenAddr string,
	apiKey string,
	readTimeout time.Duration,
	writeTimeout time.Duration,
	maxMessageSize int,
) *HTTPGateway {
	return &HTTPGateway{
		engine:         engine,
		logger:         logger,
		textProcessor:  textProcessor,
		listenAddr:     listenAddr,
		apiKey:         apiKey,
		readTimeout:    readTimeout,
		writeTimeout:   writeTimeout,
		maxMessageSize: maxMessageSize,
	}
}

// Router returns the HTTP handler for the gateway
func (g *HTTPGateway) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(g.requestLogger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/", g.health)
	r.Route("/api", func(r chi.Router) {
		r.With(g.requireAPIKey).Post("/honeypot", g.honeypot)
	})

	return r
}

// Start starts the HTTP server
func (g *HTTPGateway) Start() error {
	g.server = &http.Server{
		Addr:         g.listenAddr,
		Handler:      g.Router(),
		ReadTimeout:  g.readTimeout,
		WriteTimeout: g.writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g.logger.Info("HTTP gateway starting", zap.String("address", g.listenAddr))

	go func() {
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the HTTP server down
func (g *HTTPGateway) Stop() error {
	if g.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return g.server.Shutdown(ctx)
}

type wireMessage struct {
	Sender    string        `json:"sender"`
	Text      string        `json:"text"`
	Timestamp wireTimestamp `json:"timestamp"`
}

type honeypotRequest struct {
	SessionID           string                 `json:"sessionId"`
	Message             wireMessage            `json:"message"`
	ConversationHistory []wireMessage          `json:"conversationHistory"`
	Metadata            map[string]interface{} `json:"metadata"`
}

type honeypotResponse struct {
	ScamDetected          bool                    `json:"scam_detected"`
	ConfidenceScore       float64                 `json:"confidence_score"`
	AgentResponse         string                  `json:"agent_response"`
	EngagementStatus      core.EngagementStatus   `json:"engagement_status"`
	ConversationTurns     int                     `json:"conversation_turns"`
	ExtractedIntelligence core.IntelligenceBundle `json:"extracted_intelligence"`
	ThreatLevel           core.ThreatLevel        `json:"threat_level"`
	ContinueConversation  bool                    `json:"continue_conversation"`
}

func (g *HTTPGateway) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

func (g *HTTPGateway) honeypot(w http.ResponseWriter, r *http.Request) {
	var req honeypotRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	text := g.textProcessor.ProcessText(req.Message.Text, g.maxMessageSize)
	if text == "" {
		writeError(w, http.StatusBadRequest, "message.text is required")
		return
	}

	incoming := core.Turn{
		Role:      core.RoleCounterpart,
		Text:      text,
		Timestamp: req.Message.Timestamp.Time,
	}
	history := make([]core.Turn, 0, len(req.ConversationHistory))
	for _, m := range req.ConversationHistory {
		history = append(history, core.Turn{
			Role:      core.ParseRole(m.Sender),
			Text:      g.textProcessor.ProcessText(m.Text, g.maxMessageSize),
			Timestamp: m.Timestamp.Time,
		})
	}

	result, err := g.engine.HandleTurn(r.Context(), sessionID, incoming, history)
	if err != nil {
		g.logger.Error("Failed to handle turn",
			zap.String("session_id", sessionID),
			zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, honeypotResponse{
		ScamDetected:          result.ScamDetected,
		ConfidenceScore:       math.Round(result.ConfidenceScore*100) / 100,
		AgentResponse:         result.AgentResponse,
		EngagementStatus:      result.EngagementStatus,
		ConversationTurns:     result.ConversationTurns,
		ExtractedIntelligence: result.ExtractedIntelligence,
		ThreatLevel:           result.ThreatLevel,
		ContinueConversation:  result.ContinueConversation,
	})
}

func (g *HTTPGateway) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if g.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(g.apiKey)) != 1 {
			g.logger.Warn("Rejected request with invalid API key",
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
			writeError(w, http.StatusUnauthorized, "Invalid API Key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *HTTPGateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			g.logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// wireTimestamp accepts epoch seconds, epoch milliseconds (any value above
// 1e12) or an RFC 3339 string. Absent or null values stay zero.
type wireTimestamp struct {
	time.Time
}

func (t *wireTimestamp) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = ts
			return nil
		}
		raw = s
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid timestamp %s", raw)
	}
	t.Time = epochTime(f)
	return nil
}

func epochTime(f float64) time.Time {
	if f > 1e12 {
		return time.UnixMilli(int64(f))
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9))
}
