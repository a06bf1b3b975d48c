package core

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Email represents an inbound customer email
type Email struct {
	ID        string
	From      string
	To        []string
	Subject   string
	Body      string
	Timestamp string
	Headers   map[string][]string
}

// ValidateEmail checks the shape an email must have before it enters the pipeline
func ValidateEmail(email *Email) error {
	if email == nil {
		return errors.Wrap(ErrInputRejected, "email is nil")
	}
	if strings.TrimSpace(email.ID) == "" {
		return errors.Wrap(ErrInputRejected, "email id is empty")
	}
	if strings.TrimSpace(email.Body) == "" {
		return errors.Wrapf(ErrInputRejected, "email %s has an empty body", email.ID)
	}
	return nil
}

// ClassificationOutcome is the result of a single classification attempt.
// It is either Classified(category) or Unclassified.
type ClassificationOutcome struct {
	category Category
	err      error
}

// Classified builds a successful classification outcome
func Classified(category Category) ClassificationOutcome {
	return ClassificationOutcome{category: category}
}

// Unclassified builds a failed classification outcome carrying its cause
func Unclassified(cause error) ClassificationOutcome {
	if cause == nil {
		cause = ErrMalformedOutput
	}
	return ClassificationOutcome{err: cause}
}

// Category returns the assigned category and whether classification succeeded
func (o ClassificationOutcome) Category() (Category, bool) {
	return o.category, o.err == nil
}

// Err returns the reason classification failed, or nil
func (o ClassificationOutcome) Err() error {
	return o.err
}

// ResponseOutcome is the result of a single reply generation attempt.
// It is either Generated(text) or Unresponded.
type ResponseOutcome struct {
	text string
	err  error
}

// Generated builds a successful response outcome
func Generated(text string) ResponseOutcome {
	return ResponseOutcome{text: text}
}

// Unresponded builds a failed response outcome carrying its cause
func Unresponded(cause error) ResponseOutcome {
	if cause == nil {
		cause = ErrMalformedOutput
	}
	return ResponseOutcome{err: cause}
}

// Text returns the generated reply and whether generation succeeded
func (o ResponseOutcome) Text() (string, bool) {
	return o.text, o.err == nil
}

// Err returns the reason generation failed, or nil
func (o ResponseOutcome) Err() error {
	return o.err
}

// Ticket is a side-effect record filed by a category handler
type Ticket struct {
	EmailID   string
	Category  Category
	Kind      TicketKind
	Priority  TicketPriority
	Context   string
	CreatedAt time.Time
}

// TicketKind describes what a handler filed
type TicketKind string

const (
	TicketKindUrgent   TicketKind = "urgent_ticket"
	TicketKindSupport  TicketKind = "support_ticket"
	TicketKindFeedback TicketKind = "feedback"
	TicketKindInquiry  TicketKind = "inquiry"
)

// TicketPriority orders tickets for whoever picks them up
type TicketPriority string

const (
	PriorityUrgent TicketPriority = "urgent"
	PriorityNormal TicketPriority = "normal"
	PriorityLow    TicketPriority = "low"
)

// SuccessState is the overall verdict of a pipeline run
type SuccessState int

const (
	// Failure means the email could not be classified
	Failure SuccessState = iota
	// PartialFailure means the email was classified but no reply was produced
	PartialFailure
	// Success means the email was classified and a reply was produced
	Success
)

func (s SuccessState) String() string {
	switch s {
	case Success:
		return "yes"
	case PartialFailure:
		return "partial"
	default:
		return "no"
	}
}

// ProcessingResult is the outcome of processing one email.
// Values are immutable once built; compare them with ==.
type ProcessingResult struct {
	emailID    string
	category   Category
	classified bool
	response   string
	responded  bool
	success    SuccessState
}

// RejectedResult is the result for an email that could not be classified
func RejectedResult(emailID string) ProcessingResult {
	return ProcessingResult{emailID: emailID, success: Failure}
}

// UnrespondedResult is the result for a classified email that got no reply
func UnrespondedResult(emailID string, category Category) ProcessingResult {
	return ProcessingResult{
		emailID:    emailID,
		category:   category,
		classified: true,
		success:    PartialFailure,
	}
}

// RespondedResult is the result for a fully processed email
func RespondedResult(emailID string, category Category, text string) ProcessingResult {
	return ProcessingResult{
		emailID:    emailID,
		category:   category,
		classified: true,
		response:   text,
		responded:  true,
		success:    Success,
	}
}

// EmailID returns the identifier of the processed email
func (r ProcessingResult) EmailID() string {
	return r.emailID
}

// Classification returns the assigned category, if any
func (r ProcessingResult) Classification() (Category, bool) {
	return r.category, r.classified
}

// Response returns the drafted reply, if any
func (r ProcessingResult) Response() (string, bool) {
	return r.response, r.responded
}

// Success returns the overall verdict
func (r ProcessingResult) Success() SuccessState {
	return r.success
}
