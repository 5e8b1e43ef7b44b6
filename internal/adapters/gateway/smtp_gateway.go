package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/llm-honeypot/internal/core"
	"github.com/mikey/llm-honeypot/internal/ports"
	"github.com/mikey/llm-honeypot/internal/utils"
	"github.com/mikey/llm-honeypot/internal/whitelist"
	"go.uber.org/zap"
)

const smtpTurnTimeout = 30 * time.Second

// SMTPGateway is a honeypot mailbox. Every accepted message becomes a
// counterpart turn in the session of its sender, and the persona reply is
// optionally mailed back through a relay.
type SMTPGateway struct {
	engine          ports.Engine
	logger          *zap.Logger
	textProcessor   *utils.TextProcessor
	trusted         *whitelist.Checker
	listenAddr      string
	domain          string
	maxMessageBytes int64
	maxMessageSize  int
	relayEnabled    bool
	relayAddr       string
	relayFrom       string
	server          *smtp.Server

	// send delivers a reply; replaced in tests
	send func(from string, to []string, msg []byte) error
}

// NewSMTPGateway creates a new SMTP gateway
func NewSMTPGateway(
	engine ports.Engine,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	trusted *whitelist.Checker,
	listenAddr string,
	domain string,
	maxMessageBytes int64,
	maxMessageSize int,
	relayEnabled bool,
	relayAddr string,
	relayFrom string,
) *SMTPGateway {
	g := &SMTPGateway{
		engine:          engine,
		logger:          logger,
		textProcessor:   textProcessor,
		trusted:         trusted,
		listenAddr:      listenAddr,
		domain:          domain,
		maxMessageBytes: maxMessageBytes,
		maxMessageSize:  maxMessageSize,
		relayEnabled:    relayEnabled,
		relayAddr:       relayAddr,
		relayFrom:       relayFrom,
	}
	g.send = g.sendViaRelay
	return g
}

func (g *SMTPGateway) newServer() *smtp.Server {
	server := smtp.NewServer(&smtpBackend{gateway: g})
	server.Addr = g.listenAddr
	server.Domain = g.domain
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = g.maxMessageBytes
	server.MaxRecipients = 50
	return server
}

// Start starts the SMTP server
func (g *SMTPGateway) Start() error {
	g.server = g.newServer()

	g.logger.Info("SMTP gateway starting",
		zap.String("address", g.listenAddr),
		zap.Bool("relay_enabled", g.relayEnabled))

	go func() {
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			g.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP server
func (g *SMTPGateway) Stop() error {
	if g.server != nil {
		return g.server.Close()
	}
	return nil
}

// inboundMail is a parsed message as seen by the honeypot
type inboundMail struct {
	sender    string
	subject   string
	messageID string
	text      string
	date      time.Time
}

// handleMessage runs one received message through the engine
func (g *SMTPGateway) handleMessage(ctx context.Context, envelopeFrom string, raw []byte) error {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		g.logger.Warn("Failed to parse email message", zap.Error(err))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}

	in, err := g.parseInbound(envelopeFrom, msg)
	if err != nil {
		g.logger.Warn("Rejected message", zap.String("envelope_from", envelopeFrom), zap.Error(err))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 7},
			Message:      "Invalid sender address",
		}
	}

	if g.trusted.IsWhitelisted(in.sender) {
		g.logger.Info("Ignoring message from trusted domain",
			zap.String("sender_domain", whitelist.Domain(in.sender)))
		return nil
	}
	if in.text == "" {
		g.logger.Debug("Ignoring message without text", zap.String("session_id", in.sender))
		return nil
	}

	result, err := g.engine.HandleTurn(ctx, in.sender, core.Turn{
		Role:      core.RoleCounterpart,
		Text:      in.text,
		Timestamp: in.date,
	}, nil)
	if err != nil {
		g.logger.Error("Failed to handle turn",
			zap.String("session_id", in.sender),
			zap.Error(err))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary failure, try again later",
		}
	}

	g.logger.Info("Processed email",
		zap.String("session_id", in.sender),
		zap.String("sender_domain", whitelist.Domain(in.sender)),
		zap.String("status", string(result.EngagementStatus)),
		zap.Bool("continue", result.ContinueConversation))

	if g.relayEnabled && result.ContinueConversation {
		reply := g.buildReply(in, result.AgentResponse)
		// The inbound message is already accepted; a relay failure only
		// loses the reply.
		if err := g.send(g.replyFrom(), []string{in.sender}, reply); err != nil {
			g.logger.Error("Failed to relay persona reply",
				zap.String("session_id", in.sender),
				zap.Error(err))
		}
	}

	return nil
}

func (g *SMTPGateway) parseInbound(envelopeFrom string, msg *mail.Message) (*inboundMail, error) {
	from := strings.TrimSpace(envelopeFrom)
	if from == "" {
		from = msg.Header.Get("From")
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}

	body, err := extractTextFromMessage(msg)
	if err != nil {
		g.logger.Warn("Failed to extract text content", zap.Error(err))
	}

	text := strings.TrimSpace(subject)
	if body != "" {
		if text != "" {
			text += "\n\n"
		}
		text += body
	}

	date, err := msg.Header.Date()
	if err != nil {
		date = time.Now()
	}

	return &inboundMail{
		sender:    strings.ToLower(addr.Address),
		subject:   subject,
		messageID: strings.TrimSpace(msg.Header.Get("Message-ID")),
		text:      g.textProcessor.ProcessText(text, g.maxMessageSize),
		date:      date,
	}, nil
}

func (g *SMTPGateway) replyFrom() string {
	if g.relayFrom != "" {
		return g.relayFrom
	}
	return "postmaster@" + g.domain
}

// buildReply renders the persona reply as a threaded plain text message
func (g *SMTPGateway) buildReply(in *inboundMail, text string) []byte {
	subject := strings.TrimSpace(in.subject)
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = strings.TrimSpace("Re: " + subject)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", g.replyFrom())
	fmt.Fprintf(&b, "To: %s\r\n", in.sender)
	fmt.Fprintf(&b, "Subject: %s\r\n", mimeHeader(subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), g.domain)
	if in.messageID != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", in.messageID)
		fmt.Fprintf(&b, "References: %s\r\n", in.messageID)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(text, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

// sendViaRelay delivers a reply through the configured relay using go-smtp
func (g *SMTPGateway) sendViaRelay(from string, to []string, msg []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", g.relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	for _, recipient := range to {
		if err := c.Rcpt(recipient, nil); err != nil {
			return fmt.Errorf("RCPT TO %s failed: %w", recipient, err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		g.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	gateway *SMTPGateway
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{gateway: b.gateway}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	gateway *SMTPGateway
	sender  string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt accepts any recipient; the honeypot is a catch-all mailbox
func (s *smtpSession) Rcpt(_ string, _ *smtp.RcptOptions) error {
	return nil
}

// Data handles the email data
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.gateway.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), smtpTurnTimeout)
	defer cancel()
	return s.gateway.handleMessage(ctx, s.sender, raw)
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
