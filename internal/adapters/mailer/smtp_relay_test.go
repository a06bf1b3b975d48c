package mailer

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captured struct {
	from       string
	recipients []string
	data       []byte
}

// captureBackend records every message delivered to it
type captureBackend struct {
	mu       sync.Mutex
	messages []captured
}

func (b *captureBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &captureSession{backend: b}, nil
}

func (b *captureBackend) received() []captured {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]captured(nil), b.messages...)
}

type captureSession struct {
	backend *captureBackend
	current captured
}

func (s *captureSession) Reset()        { s.current = captured{} }
func (s *captureSession) Logout() error { return nil }

func (s *captureSession) Mail(from string, _ *smtp.MailOptions) error {
	s.current.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.current.recipients = append(s.current.recipients, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = data
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.current)
	s.backend.mu.Unlock()
	return nil
}

func startCaptureServer(t *testing.T) (*captureBackend, string, int) {
	t.Helper()

	backend := &captureBackend{}
	server := smtp.NewServer(backend)
	server.Domain = "localhost"
	server.ReadTimeout = 5 * time.Second
	server.WriteTimeout = 5 * time.Second

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(func() { _ = server.Close() })

	addr := listener.Addr().(*net.TCPAddr)
	return backend, addr.IP.String(), addr.Port
}

func sampleEmail() *core.Email {
	return &core.Email{
		ID:      "001",
		From:    "alice@example.com",
		Subject: "Broken order",
		Body:    "I demand a refund, this is broken",
		Headers: map[string][]string{"Message-Id": {"<abc@example.com>"}},
	}
}

func TestBuildReply(t *testing.T) {
	part, err := BuildReply("support@example.com", sampleEmail(), "Dear customer, sorry.").Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, part.Encode(&buf))

	env, err := enmime.ReadEnvelope(&buf)
	require.NoError(t, err)

	assert.Equal(t, "Re: Broken order", env.GetHeader("Subject"))
	assert.Contains(t, env.GetHeader("To"), "alice@example.com")
	assert.Contains(t, env.GetHeader("From"), "support@example.com")
	assert.Equal(t, "<abc@example.com>", env.GetHeader("In-Reply-To"))
	assert.Contains(t, env.Text, "Dear customer, sorry.")
}

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "Re: Hello", replySubject("Hello"))
	assert.Equal(t, "RE: Hello", replySubject("RE: Hello"))
	assert.Equal(t, "Re: Your message", replySubject("  "))
}

func TestSendReplyDeliversToRelay(t *testing.T) {
	backend, host, port := startCaptureServer(t)
	relay := NewSMTPRelay(host, port, "support@example.com", zap.NewNop())

	require.NoError(t, relay.SendReply(context.Background(), sampleEmail(), "Dear customer, sorry."))

	messages := backend.received()
	require.Len(t, messages, 1)
	assert.Equal(t, "support@example.com", messages[0].from)
	assert.Equal(t, []string{"alice@example.com"}, messages[0].recipients)
	assert.Contains(t, string(messages[0].data), "Dear customer, sorry.")
}

func TestSendReplyWithoutSender(t *testing.T) {
	relay := NewSMTPRelay("127.0.0.1", 1, "support@example.com", zap.NewNop())
	email := sampleEmail()
	email.From = ""

	assert.Error(t, relay.SendReply(context.Background(), email, "text"))
}

func TestSendUnreachableRelay(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	relay := NewSMTPRelay("127.0.0.1", port, "support@example.com", zap.NewNop())
	err = relay.Send("support@example.com", []string{"alice@example.com"}, []byte("Subject: x\r\n\r\nbody\r\n"))
	assert.Error(t, err)
}

func TestSendReplyHonoursContextDeadline(t *testing.T) {
	// A relay that accepts connections but never greets
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			_ = conn.Close()
		}
	})

	port := listener.Addr().(*net.TCPAddr).Port
	relay := NewSMTPRelay("127.0.0.1", port, "support@example.com", zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = relay.SendReply(ctx, sampleEmail(), "Dear customer, sorry.")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSendReplyCancelledContext(t *testing.T) {
	backend, host, port := startCaptureServer(t)
	relay := NewSMTPRelay(host, port, "support@example.com", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, relay.SendReply(ctx, sampleEmail(), "Dear customer, sorry."))
	assert.Empty(t, backend.received())
}
