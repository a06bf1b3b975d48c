package ingest

import (
	"context"
	"io"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/mikey/llm-email-responder/internal/ports"
	"go.uber.org/zap"
)

// SMTPServer accepts inbound customer email over SMTP and runs each message
// through the processor
type SMTPServer struct {
	processor      ports.EmailProcessor
	replies        ports.ReplySender
	logger         *zap.Logger
	listenAddr     string
	domain         string
	processTimeout time.Duration
	maxBytes       int64
	server         *smtp.Server
}

// NewSMTPServer creates a new SMTP ingest server. replies may be nil, in which
// case drafted replies are only logged.
func NewSMTPServer(
	processor ports.EmailProcessor,
	replies ports.ReplySender,
	logger *zap.Logger,
	listenAddr string,
	domain string,
	processTimeout time.Duration,
	maxBytes int64,
) *SMTPServer {
	return &SMTPServer{
		processor:      processor,
		replies:        replies,
		logger:         logger,
		listenAddr:     listenAddr,
		domain:         domain,
		processTimeout: processTimeout,
		maxBytes:       maxBytes,
	}
}

func (s *SMTPServer) newServer() *smtp.Server {
	server := smtp.NewServer(&smtpBackend{ingest: s})
	server.Addr = s.listenAddr
	server.Domain = s.domain
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = s.maxBytes
	server.MaxRecipients = 50
	return server
}

// Start starts the SMTP server in the background
func (s *SMTPServer) Start() error {
	s.server = s.newServer()

	s.logger.Info("SMTP ingest starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			s.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP server
func (s *SMTPServer) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// handle processes one parsed email and dispatches its reply
func (s *SMTPServer) handle(email *core.Email) {
	ctx := context.Background()
	if s.processTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.processTimeout)
		defer cancel()
	}

	result := s.processor.Process(ctx, email)
	category, _ := result.Classification()

	s.logger.Info("Processed email",
		zap.String("email_id", result.EmailID()),
		zap.String("from", email.From),
		zap.String("category", string(category)),
		zap.Stringer("success", result.Success()))

	reply, ok := result.Response()
	if !ok {
		return
	}
	if s.replies == nil {
		s.logger.Debug("Reply drafted but sending is disabled", zap.String("email_id", email.ID))
		return
	}
	if err := s.replies.SendReply(ctx, email, reply); err != nil {
		s.logger.Error("Failed to send reply",
			zap.String("email_id", email.ID),
			zap.Error(err))
	}
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	ingest *SMTPServer
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{ingest: b.ingest}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	ingest     *SMTPServer
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data parses the message and processes it. Only unreadable messages are
// rejected; processing failures are logged and the message is accepted.
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.ingest.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	email, err := ParseMessage(raw, s.sender, s.recipients)
	if err != nil {
		s.ingest.logger.Warn("Rejecting unparseable message",
			zap.String("sender", s.sender),
			zap.Error(err))
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Message could not be parsed",
		}
	}

	s.ingest.handle(email)
	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
