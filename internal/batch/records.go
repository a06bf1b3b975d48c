package batch

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/pkg/errors"
)

//go:embed samples.json
var samplesJSON []byte

// Record is one entry of a batch input. Exactly one of Email and Err is set;
// Err means the entry was rejected before reaching the pipeline.
type Record struct {
	Email *core.Email
	Err   error
}

// rawEmail is the JSON shape of an email record
type rawEmail struct {
	ID        *string  `json:"id"`
	From      string   `json:"from"`
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	Body      *string  `json:"body"`
	Timestamp string   `json:"timestamp"`
}

// LoadRecords reads a JSON array of email records. A malformed entry becomes a
// rejected Record; only an unreadable array is an error.
func LoadRecords(r io.Reader) ([]Record, error) {
	var entries []json.RawMessage
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode email records: %w", err)
	}

	records := make([]Record, len(entries))
	for i, entry := range entries {
		records[i] = parseRecord(entry)
	}
	return records, nil
}

// SampleRecords returns the built-in demonstration emails
func SampleRecords() []Record {
	records, err := LoadRecords(bytes.NewReader(samplesJSON))
	if err != nil {
		panic(fmt.Sprintf("embedded samples are invalid: %v", err))
	}
	return records
}

func parseRecord(entry json.RawMessage) Record {
	trimmed := bytes.TrimSpace(entry)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Record{Err: rejected("record is not an object")}
	}

	var raw rawEmail
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Record{Err: rejected(fmt.Sprintf("record has invalid fields: %v", err))}
	}
	if raw.ID == nil || raw.Body == nil {
		return Record{Err: rejected("record is missing id or body")}
	}

	email := &core.Email{
		ID:        *raw.ID,
		From:      raw.From,
		To:        raw.To,
		Subject:   raw.Subject,
		Body:      *raw.Body,
		Timestamp: raw.Timestamp,
	}
	if err := core.ValidateEmail(email); err != nil {
		return Record{Err: err}
	}
	return Record{Email: email}
}

func rejected(msg string) error {
	return errors.Wrap(core.ErrInputRejected, msg)
}
