package core

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ResponseGate asks the LLM for a reply draft and rejects empty or
// templated output
type ResponseGate struct {
	llmClient LLMClient
	taxonomy  Taxonomy
	logger    *zap.Logger
}

// NewResponseGate creates a new response gate
func NewResponseGate(llmClient LLMClient, taxonomy Taxonomy, logger *zap.Logger) *ResponseGate {
	return &ResponseGate{
		llmClient: llmClient,
		taxonomy:  taxonomy,
		logger:    logger,
	}
}

// BuildPrompt combines the instruction for category with the email body
func (g *ResponseGate) BuildPrompt(email *Email, category Category) string {
	var b strings.Builder
	b.WriteString(g.taxonomy.Instruction(category))
	b.WriteString("\nHere is the received email information:\n")
	b.WriteString("customer email body: ")
	b.WriteString(email.Body)
	b.WriteString("\n")
	return b.String()
}

// Generate makes exactly one generation call for the email
func (g *ResponseGate) Generate(ctx context.Context, email *Email, category Category) ResponseOutcome {
	logger := g.logger.With(
		zap.String("email_id", email.ID),
		zap.String("category", string(category)),
		zap.String("stage", "generation"))

	// Only reachable after a successful classification
	if !g.taxonomy.IsValid(string(category)) {
		logger.Error("Reply requested for a category outside the taxonomy", zap.String("reason", reasonInvalid))
		return Unresponded(errors.Wrapf(ErrInvalidLabel, "category %q", category))
	}

	completion, err := g.llmClient.GenerateReply(ctx, g.BuildPrompt(email, category))
	if err != nil {
		logger.Error("Generation call failed", zap.String("reason", reasonTransport), zap.Error(err))
		return Unresponded(errors.Wrap(ErrTransport, err.Error()))
	}
	if completion == nil {
		logger.Warn("Generation returned no completion", zap.String("reason", reasonEmpty))
		return Unresponded(errors.Wrap(ErrMalformedOutput, "no completion"))
	}

	if completion.Refused() {
		logger.Warn("Generation refused by model",
			zap.String("reason", reasonRefusal),
			zap.String("refusal", completion.Refusal),
			zap.String("model", completion.Model))
		return Unresponded(errors.Wrap(ErrRefusal, completion.Refusal))
	}

	text := completion.Content
	if strings.TrimSpace(text) == "" {
		logger.Warn("Generated reply is empty or whitespace", zap.String("reason", reasonEmpty))
		return Unresponded(errors.Wrap(ErrMalformedOutput, "empty reply"))
	}

	if ContainsPlaceholder(text) {
		logger.Warn("Generated reply contains a placeholder", zap.String("reason", reasonPlaceholder))
		return Unresponded(errors.Wrap(ErrMalformedOutput, "reply contains a placeholder"))
	}

	logger.Debug("Reply generated", zap.Int("length", len(text)), zap.String("model", completion.Model))
	return Generated(text)
}

// ContainsPlaceholder reports whether text looks like an unfilled template:
// it holds both "[" and "]", or both "{{" and "}}". This is a presence check,
// so legitimate bracket usage is rejected as well.
func ContainsPlaceholder(text string) bool {
	if strings.Contains(text, "[") && strings.Contains(text, "]") {
		return true
	}
	return strings.Contains(text, "{{") && strings.Contains(text, "}}")
}
