package mailer

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
	"github.com/mikey/llm-email-responder/internal/core"
	"go.uber.org/zap"
)

// SMTPRelay delivers replies to an SMTP relay. It implements enmime.Sender.
type SMTPRelay struct {
	address     string
	port        int
	from        string
	dialTimeout time.Duration
	logger      *zap.Logger
}

var _ enmime.Sender = (*SMTPRelay)(nil)

// NewSMTPRelay creates a new relay client sending from the given address
func NewSMTPRelay(address string, port int, from string, logger *zap.Logger) *SMTPRelay {
	return &SMTPRelay{
		address:     address,
		port:        port,
		from:        from,
		dialTimeout: 10 * time.Second,
		logger:      logger,
	}
}

// SendReply builds a plain-text reply to original and sends it to its sender
func (r *SMTPRelay) SendReply(ctx context.Context, original *core.Email, reply string) error {
	if original.From == "" {
		return fmt.Errorf("email %s has no sender to reply to", original.ID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	builder := BuildReply(r.from, original, reply)
	if err := builder.Send(contextSender{ctx: ctx, relay: r}); err != nil {
		return fmt.Errorf("failed to send reply for email %s: %w", original.ID, err)
	}

	r.logger.Info("Reply sent",
		zap.String("email_id", original.ID),
		zap.String("to", original.From))
	return nil
}

// BuildReply returns the reply message for original
func BuildReply(from string, original *core.Email, reply string) enmime.MailBuilder {
	builder := enmime.Builder().
		From("", from).
		To("", original.From).
		Subject(replySubject(original.Subject)).
		Date(time.Now()).
		Text([]byte(reply))

	if id := messageID(original); id != "" {
		builder = builder.Header("In-Reply-To", id).Header("References", id)
	}
	return builder
}

// contextSender binds a context to a relay for enmime.MailBuilder.Send
type contextSender struct {
	ctx   context.Context
	relay *SMTPRelay
}

func (s contextSender) Send(reversePath string, recipients []string, msg []byte) error {
	return s.relay.send(s.ctx, reversePath, recipients, msg)
}

// Send delivers msg to the relay
func (r *SMTPRelay) Send(reversePath string, recipients []string, msg []byte) error {
	return r.send(context.Background(), reversePath, recipients, msg)
}

// send delivers msg to the relay, giving up when ctx is done
func (r *SMTPRelay) send(ctx context.Context, reversePath string, recipients []string, msg []byte) error {
	relayAddr := fmt.Sprintf("%s:%d", r.address, r.port)

	// Get hostname for EHLO
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	dialer := net.Dialer{Timeout: r.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", relayAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	// Unblock any pending read or write once ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(reversePath, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			r.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
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
		// The message is already accepted
		r.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "Re: Your message"
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// messageID returns the Message-ID header of email, if it carried one
func messageID(email *core.Email) string {
	for key, values := range email.Headers {
		if strings.EqualFold(key, "Message-Id") && len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
	}
	return ""
}
