package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/mikey/llm-email-responder/internal/ports"
	"go.uber.org/zap"
)

// previewRunes bounds the verbose body preview
const previewRunes = 500

// CLISource processes single emails from the command line and prints a summary
type CLISource struct {
	processor ports.EmailProcessor
	logger    *zap.Logger
	out       io.Writer
	verbose   bool
}

// NewCLISource creates a new CLI source writing to out
func NewCLISource(processor ports.EmailProcessor, logger *zap.Logger, out io.Writer, verbose bool) *CLISource {
	return &CLISource{
		processor: processor,
		logger:    logger,
		out:       out,
		verbose:   verbose,
	}
}

// ProcessRaw parses a raw message and processes it
func (c *CLISource) ProcessRaw(ctx context.Context, raw []byte) (core.ProcessingResult, error) {
	email, err := ParseMessage(raw, "", nil)
	if err != nil {
		return core.ProcessingResult{}, err
	}
	return c.ProcessEmail(ctx, email), nil
}

// ProcessEmail processes an email and displays the result
func (c *CLISource) ProcessEmail(ctx context.Context, email *core.Email) core.ProcessingResult {
	c.logger.Debug("Processing email", zap.String("email_id", email.ID))

	fmt.Fprintf(c.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(c.out, "ID: %s\n", email.ID)
	fmt.Fprintf(c.out, "From: %s\n", email.From)
	fmt.Fprintf(c.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(c.out, "Body length: %d bytes\n", len(email.Body))

	if c.verbose {
		fmt.Fprintf(c.out, "\nBody preview:\n%s\n", bodyPreview(email.Body, previewRunes))
	}

	startTime := time.Now()
	result := c.processor.Process(ctx, email)
	duration := time.Since(startTime)

	fmt.Fprintf(c.out, "\n=== Result ===\n")
	if category, ok := result.Classification(); ok {
		fmt.Fprintf(c.out, "Classification: %s\n", category)
	} else {
		fmt.Fprintf(c.out, "Classification: None\n")
	}
	if reply, ok := result.Response(); ok {
		fmt.Fprintf(c.out, "Response:\n%s\n", reply)
	} else {
		fmt.Fprintf(c.out, "Response: None\n")
	}
	fmt.Fprintf(c.out, "Success: %s\n", result.Success())
	fmt.Fprintf(c.out, "Processing time: %v\n", duration)

	return result
}

// Start is a no-op for the CLI source
func (c *CLISource) Start() error {
	return nil
}

// Stop is a no-op for the CLI source
func (c *CLISource) Stop() error {
	return nil
}

// bodyPreview cuts body to at most limit runes
func bodyPreview(body string, limit int) string {
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return string(runes[:limit]) + "..."
}
