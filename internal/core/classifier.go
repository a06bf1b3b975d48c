package core

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// classificationPayload is the single-field record the classifier must return
type classificationPayload struct {
	Sentiment *string `json:"sentiment"`
}

// ClassificationGate asks the LLM for a category and rejects anything that
// is not exactly one label from the taxonomy
type ClassificationGate struct {
	llmClient LLMClient
	taxonomy  Taxonomy
	logger    *zap.Logger
}

// NewClassificationGate creates a new classification gate
func NewClassificationGate(llmClient LLMClient, taxonomy Taxonomy, logger *zap.Logger) *ClassificationGate {
	return &ClassificationGate{
		llmClient: llmClient,
		taxonomy:  taxonomy,
		logger:    logger,
	}
}

// Classify makes exactly one classification call for the email
func (g *ClassificationGate) Classify(ctx context.Context, email *Email) ClassificationOutcome {
	logger := g.logger.With(zap.String("email_id", email.ID), zap.String("stage", "classification"))

	completion, err := g.llmClient.ClassifyEmail(ctx, email.Body, g.taxonomy.Labels())
	if err != nil {
		logger.Error("Classification call failed", zap.String("reason", reasonTransport), zap.Error(err))
		return Unclassified(errors.Wrap(ErrTransport, err.Error()))
	}
	if completion == nil {
		logger.Warn("Classification returned no completion", zap.String("reason", reasonMalformed))
		return Unclassified(errors.Wrap(ErrMalformedOutput, "no completion"))
	}

	if completion.Refused() {
		logger.Warn("Classification refused by model",
			zap.String("reason", reasonRefusal),
			zap.String("refusal", completion.Refusal),
			zap.String("model", completion.Model))
		return Unclassified(errors.Wrap(ErrRefusal, completion.Refusal))
	}

	label, err := parseClassificationPayload(completion.Content)
	if err != nil {
		logger.Warn("Classification payload is not valid JSON",
			zap.String("reason", reasonMalformed),
			zap.String("payload", completion.Content),
			zap.Error(err))
		return Unclassified(err)
	}

	if !g.taxonomy.IsValid(label) {
		logger.Warn("Classification label not in taxonomy",
			zap.String("reason", reasonInvalid),
			zap.String("label", label))
		return Unclassified(errors.Wrapf(ErrInvalidLabel, "label %q", label))
	}

	logger.Debug("Email classified", zap.String("category", label), zap.String("model", completion.Model))
	return Classified(Category(label))
}

// parseClassificationPayload extracts the label from {"sentiment": "..."}
func parseClassificationPayload(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.Wrap(ErrMalformedOutput, "empty classification payload")
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return "", errors.Wrapf(ErrMalformedOutput, "failed to parse classification payload: %v", err)
	}
	if payload.Sentiment == nil {
		return "", errors.Wrap(ErrMalformedOutput, "classification payload has no sentiment field")
	}

	return *payload.Sentiment, nil
}
