package core

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Handler performs the side effect bound to one category.
// Exactly one handler exists per category.
type Handler interface {
	Category() Category
	Handle(ctx context.Context, email *Email) error
}

// HandlerResult reports how a dispatch went. Err is nil on success.
type HandlerResult struct {
	Category Category
	Err      error
}

// HandlerRegistry maps every category to its handler
type HandlerRegistry struct {
	handlers map[Category]Handler
	logger   *zap.Logger
}

// NewHandlerRegistry builds a registry and checks that every category of the
// taxonomy has exactly one handler
func NewHandlerRegistry(taxonomy Taxonomy, logger *zap.Logger, handlers ...Handler) (*HandlerRegistry, error) {
	byCategory := make(map[Category]Handler, len(handlers))
	for _, h := range handlers {
		c := h.Category()
		if !taxonomy.IsValid(string(c)) {
			return nil, fmt.Errorf("handler registered for unknown category %q", c)
		}
		if _, dup := byCategory[c]; dup {
			return nil, fmt.Errorf("duplicate handler for category %q", c)
		}
		byCategory[c] = h
	}

	for _, c := range taxonomy.Categories() {
		if _, ok := byCategory[c]; !ok {
			return nil, fmt.Errorf("no handler registered for category %q", c)
		}
	}

	return &HandlerRegistry{
		handlers: byCategory,
		logger:   logger,
	}, nil
}

// Dispatch runs the handler for category once. Failures, including panics,
// are logged and returned in the result, never raised.
func (r *HandlerRegistry) Dispatch(ctx context.Context, category Category, email *Email) (result HandlerResult) {
	result.Category = category

	h, ok := r.handlers[category]
	if !ok {
		result.Err = errors.Errorf("no handler for category %q", category)
		r.logger.Warn("Handler dispatch skipped", zap.String("email_id", email.ID), zap.Error(result.Err))
		return result
	}

	defer func() {
		if p := recover(); p != nil {
			result.Err = errors.Errorf("handler panicked: %v", p)
			r.logger.Error("Handler panicked",
				zap.String("email_id", email.ID),
				zap.String("category", string(category)),
				zap.Error(result.Err))
		}
	}()

	if err := h.Handle(ctx, email); err != nil {
		result.Err = err
		r.logger.Warn("Handler failed",
			zap.String("email_id", email.ID),
			zap.String("category", string(category)),
			zap.Error(err))
	}

	return result
}

// DefaultHandlers returns one handler per category. With a nil store the
// handlers only log.
func DefaultHandlers(store TicketStore, logger *zap.Logger) []Handler {
	return []Handler{
		&ComplaintHandler{store: store, logger: logger},
		&InquiryHandler{store: store, logger: logger},
		&FeedbackHandler{store: store, logger: logger},
		&SupportRequestHandler{store: store, logger: logger},
		&OtherHandler{logger: logger},
	}
}

// fileTicket stores a ticket if a store is configured
func fileTicket(ctx context.Context, store TicketStore, email *Email, category Category, kind TicketKind, priority TicketPriority) error {
	if store == nil {
		return nil
	}
	ticket := &Ticket{
		EmailID:   email.ID,
		Category:  category,
		Kind:      kind,
		Priority:  priority,
		Context:   ticketContext(email),
		CreatedAt: time.Now(),
	}
	if err := store.CreateTicket(ctx, ticket); err != nil {
		return fmt.Errorf("failed to file %s for email %s: %w", kind, email.ID, err)
	}
	return nil
}

func ticketContext(email *Email) string {
	return fmt.Sprintf("From: %s\nSubject: %s\n\n%s", email.From, email.Subject, email.Body)
}

// ComplaintHandler opens an urgent ticket
type ComplaintHandler struct {
	store  TicketStore
	logger *zap.Logger
}

func (h *ComplaintHandler) Category() Category { return CategoryComplaint }

func (h *ComplaintHandler) Handle(ctx context.Context, email *Email) error {
	h.logger.Info("Creating urgent ticket", zap.String("email_id", email.ID))
	return fileTicket(ctx, h.store, email, CategoryComplaint, TicketKindUrgent, PriorityUrgent)
}

// InquiryHandler routes the inquiry to the team that answers it
type InquiryHandler struct {
	store  TicketStore
	logger *zap.Logger
}

func (h *InquiryHandler) Category() Category { return CategoryInquiry }

func (h *InquiryHandler) Handle(ctx context.Context, email *Email) error {
	h.logger.Info("Routing inquiry", zap.String("email_id", email.ID))
	return fileTicket(ctx, h.store, email, CategoryInquiry, TicketKindInquiry, PriorityNormal)
}

// FeedbackHandler logs customer feedback
type FeedbackHandler struct {
	store  TicketStore
	logger *zap.Logger
}

func (h *FeedbackHandler) Category() Category { return CategoryFeedback }

func (h *FeedbackHandler) Handle(ctx context.Context, email *Email) error {
	h.logger.Info("Logging feedback", zap.String("email_id", email.ID))
	return fileTicket(ctx, h.store, email, CategoryFeedback, TicketKindFeedback, PriorityLow)
}

// SupportRequestHandler opens a support ticket
type SupportRequestHandler struct {
	store  TicketStore
	logger *zap.Logger
}

func (h *SupportRequestHandler) Category() Category { return CategorySupportRequest }

func (h *SupportRequestHandler) Handle(ctx context.Context, email *Email) error {
	h.logger.Info("Creating support ticket", zap.String("email_id", email.ID))
	return fileTicket(ctx, h.store, email, CategorySupportRequest, TicketKindSupport, PriorityNormal)
}

// OtherHandler only records that the email was seen
type OtherHandler struct {
	logger *zap.Logger
}

func (h *OtherHandler) Category() Category { return CategoryOther }

func (h *OtherHandler) Handle(_ context.Context, email *Email) error {
	h.logger.Info("Handling uncategorised email", zap.String("email_id", email.ID))
	return nil
}
