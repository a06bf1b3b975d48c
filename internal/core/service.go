package core

import (
	"context"

	"go.uber.org/zap"
)

// EmailPipeline is the core service turning one email into a classification
// and a reply draft
type EmailPipeline struct {
	classifier *ClassificationGate
	responder  *ResponseGate
	handlers   *HandlerRegistry
	logger     *zap.Logger
}

// NewEmailPipeline creates a new email pipeline
func NewEmailPipeline(
	classifier *ClassificationGate,
	responder *ResponseGate,
	handlers *HandlerRegistry,
	logger *zap.Logger,
) *EmailPipeline {
	return &EmailPipeline{
		classifier: classifier,
		responder:  responder,
		handlers:   handlers,
		logger:     logger,
	}
}

// Process runs one email through classification, handler dispatch and reply
// generation. It never returns an error: every failure becomes part of the
// result.
func (p *EmailPipeline) Process(ctx context.Context, email *Email) ProcessingResult {
	if err := ValidateEmail(email); err != nil {
		id := ""
		if email != nil {
			id = email.ID
		}
		p.logger.Warn("Email rejected before processing", zap.String("email_id", id), zap.Error(err))
		return RejectedResult(id)
	}

	logger := p.logger.With(zap.String("email_id", email.ID))
	logger.Info("Processing email", zap.String("subject", email.Subject))

	classification := p.classifier.Classify(ctx, email)
	category, ok := classification.Category()
	if !ok {
		logger.Info("Email rejected", zap.Error(classification.Err()))
		return RejectedResult(email.ID)
	}

	// Handler failures never change the outcome
	if res := p.handlers.Dispatch(ctx, category, email); res.Err != nil {
		logger.Debug("Continuing after handler failure", zap.String("category", string(category)))
	}

	response := p.responder.Generate(ctx, email, category)
	text, ok := response.Text()
	if !ok {
		logger.Info("Email classified but not answered",
			zap.String("category", string(category)),
			zap.Error(response.Err()))
		return UnrespondedResult(email.ID, category)
	}

	logger.Info("Email answered", zap.String("category", string(category)))
	return RespondedResult(email.ID, category, text)
}
