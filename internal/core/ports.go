package core

import (
	"context"
)

// Completion is the raw answer of an LLM call.
// A non-empty Refusal means the service declined to answer.
type Completion struct {
	Content string
	Refusal string
	Model   string
	ID      string
}

// Refused reports whether the service declined to answer
func (c *Completion) Refused() bool {
	return c != nil && c.Refusal != ""
}

// LLMClient defines the interface for interacting with LLM services.
// A returned error always means the call itself did not complete.
type LLMClient interface {
	// ClassifyEmail asks for exactly one label out of labels, returned as the
	// structured payload {"sentiment": <label>}
	ClassifyEmail(ctx context.Context, body string, labels []string) (*Completion, error)

	// GenerateReply asks for free-form text for prompt
	GenerateReply(ctx context.Context, prompt string) (*Completion, error)
}

// TicketStore defines the interface handlers file their side effects through
type TicketStore interface {
	// CreateTicket stores a ticket
	CreateTicket(ctx context.Context, ticket *Ticket) error

	// ListTickets returns the tickets filed for an email
	ListTickets(ctx context.Context, emailID string) ([]*Ticket, error)

	// Cleanup removes tickets past their retention
	Cleanup(ctx context.Context) error
}
