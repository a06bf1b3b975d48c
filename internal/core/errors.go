package core

import "github.com/pkg/errors"

var (
	// ErrTransport is returned when a call to the LLM service could not complete
	ErrTransport = errors.New("llm transport error")
	// ErrRefusal is returned when the LLM service declines to answer
	ErrRefusal = errors.New("llm refused to answer")
	// ErrMalformedOutput is returned when the LLM answer is unusable
	ErrMalformedOutput = errors.New("llm output malformed")
	// ErrInvalidLabel is returned when a classification label is outside the taxonomy
	ErrInvalidLabel = errors.New("classification label not in taxonomy")
	// ErrInputRejected is returned when an email fails shape validation
	ErrInputRejected = errors.New("email rejected")
)

// Log reasons, one per failure kind
const (
	reasonTransport   = "transport_error"
	reasonRefusal     = "refusal"
	reasonMalformed   = "malformed_output"
	reasonInvalid     = "invalid_label"
	reasonEmpty       = "empty_output"
	reasonPlaceholder = "placeholder"
)
