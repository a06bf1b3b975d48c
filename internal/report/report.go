package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mikey/llm-email-responder/internal/batch"
	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/pterm/pterm"
)

const (
	// None marks a value the pipeline did not produce
	None = "None"
	// NotApplicable fills every field of a record rejected before processing
	NotApplicable = "N/A"
)

// Row is the per-email summary record
type Row struct {
	EmailID        string `json:"email_id"`
	Success        string `json:"success"`
	Classification string `json:"classification"`
	ResponseSent   string `json:"response_sent"`
}

// FromResult builds the row for a processed email
func FromResult(result core.ProcessingResult) Row {
	row := Row{
		EmailID:        result.EmailID(),
		Success:        result.Success().String(),
		Classification: None,
		ResponseSent:   None,
	}
	if category, ok := result.Classification(); ok {
		row.Classification = string(category)
	}
	if text, ok := result.Response(); ok {
		row.ResponseSent = text
	}
	return row
}

// RejectedRow is the row for an input that never reached the pipeline
func RejectedRow() Row {
	return Row{
		EmailID:        NotApplicable,
		Success:        NotApplicable,
		Classification: NotApplicable,
		ResponseSent:   NotApplicable,
	}
}

// FromOutcomes builds one row per batch outcome, keeping order
func FromOutcomes(outcomes []batch.Outcome) []Row {
	rows := make([]Row, len(outcomes))
	for i, o := range outcomes {
		if o.Rejected {
			rows[i] = RejectedRow()
			continue
		}
		rows[i] = FromResult(o.Result)
	}
	return rows
}

// RenderJSON writes rows as an indented JSON array
func RenderJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// RenderTable writes rows as a terminal table. Replies are cut to width
// characters; width <= 0 keeps them whole.
func RenderTable(w io.Writer, rows []Row, width int) error {
	data := pterm.TableData{{"email_id", "success", "classification", "response_sent"}}
	for _, r := range rows {
		data = append(data, []string{r.EmailID, r.Success, r.Classification, preview(r.ResponseSent, width)})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render report table: %w", err)
	}

	_, err = fmt.Fprintln(w, table)
	return err
}

// Render writes rows in the named format, "table" or "json"
func Render(w io.Writer, rows []Row, format string) error {
	switch format {
	case "json":
		return RenderJSON(w, rows)
	case "table", "":
		return RenderTable(w, rows, 60)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// preview flattens a reply onto one line and cuts it to width runes
func preview(text string, width int) string {
	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' || r == '\r' || r == '\t' {
			runes[i] = ' '
		}
	}
	if width > 0 && len(runes) > width {
		return string(runes[:width]) + "..."
	}
	return string(runes)
}
