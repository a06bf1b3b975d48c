package core

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mockLLMClient is a testify mock of LLMClient
type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) ClassifyEmail(ctx context.Context, body string, labels []string) (*Completion, error) {
	args := m.Called(ctx, body, labels)
	c, _ := args.Get(0).(*Completion)
	return c, args.Error(1)
}

func (m *mockLLMClient) GenerateReply(ctx context.Context, prompt string) (*Completion, error) {
	args := m.Called(ctx, prompt)
	c, _ := args.Get(0).(*Completion)
	return c, args.Error(1)
}

// stubLLMClient returns fixed answers
type stubLLMClient struct {
	classify      *Completion
	classifyErr   error
	generate      *Completion
	generateErr   error
	classifyCalls int
	generateCalls int
	lastPrompt    string
}

func (s *stubLLMClient) ClassifyEmail(_ context.Context, _ string, _ []string) (*Completion, error) {
	s.classifyCalls++
	return s.classify, s.classifyErr
}

func (s *stubLLMClient) GenerateReply(_ context.Context, prompt string) (*Completion, error) {
	s.generateCalls++
	s.lastPrompt = prompt
	return s.generate, s.generateErr
}

func label(l string) *Completion {
	return &Completion{Content: `{"sentiment": "` + l + `"}`, Model: "stub"}
}

func reply(text string) *Completion {
	return &Completion{Content: text, Model: "stub"}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// reasons collects the "reason" field of every observed entry
func reasons(logs *observer.ObservedLogs) []string {
	var out []string
	for _, entry := range logs.All() {
		if v, ok := entry.ContextMap()["reason"]; ok {
			out = append(out, v.(string))
		}
	}
	return out
}

func sampleEmail() *Email {
	return &Email{
		ID:        "001",
		From:      "angry.customer@example.com",
		Subject:   "Broken product received",
		Body:      "I demand a refund, this is broken",
		Timestamp: "2024-03-15T10:30:00Z",
	}
}

// recordingHandler counts calls and can fail or panic
type recordingHandler struct {
	category Category
	calls    int
	err      error
	panicked bool
}

func (h *recordingHandler) Category() Category { return h.category }

func (h *recordingHandler) Handle(_ context.Context, _ *Email) error {
	h.calls++
	if h.panicked {
		panic("boom")
	}
	return h.err
}

// memoryTickets is a minimal TicketStore for handler tests
type memoryTickets struct {
	tickets []*Ticket
	err     error
}

func (m *memoryTickets) CreateTicket(_ context.Context, t *Ticket) error {
	if m.err != nil {
		return m.err
	}
	m.tickets = append(m.tickets, t)
	return nil
}

func (m *memoryTickets) ListTickets(_ context.Context, emailID string) ([]*Ticket, error) {
	var out []*Ticket
	for _, t := range m.tickets {
		if t.EmailID == emailID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryTickets) Cleanup(_ context.Context) error { return nil }
