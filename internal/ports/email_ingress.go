package ports

import (
	"context"

	"github.com/mikey/llm-email-responder/internal/core"
)

// EmailProcessor runs one email through classification, dispatch and reply drafting
type EmailProcessor interface {
	Process(ctx context.Context, email *core.Email) core.ProcessingResult
}

// ReplySender delivers a drafted reply to the sender of the original email
type ReplySender interface {
	SendReply(ctx context.Context, original *core.Email, reply string) error
}

// EmailIngress defines a long-running source of inbound email
type EmailIngress interface {
	// Start starts accepting email
	Start() error

	// Stop stops accepting email
	Stop() error
}
