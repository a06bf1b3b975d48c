package core

import (
	"fmt"
	"strings"
)

// Category is one label from the closed taxonomy
type Category string

const (
	CategoryComplaint      Category = "complaint"
	CategoryInquiry        Category = "inquiry"
	CategoryFeedback       Category = "feedback"
	CategorySupportRequest Category = "support_request"
	// CategoryOther is the fallback label
	CategoryOther Category = "other"
)

// DefaultSignature is the team signature replies are signed with
const DefaultSignature = "Customer Service Team"

var allCategories = [...]Category{
	CategoryComplaint,
	CategoryInquiry,
	CategoryFeedback,
	CategorySupportRequest,
	CategoryOther,
}

// Taxonomy holds the valid categories and the reply instruction bound to each.
// It is built once at startup and never modified.
type Taxonomy struct {
	signature    string
	instructions map[Category]string
}

// NewTaxonomy builds the taxonomy with replies signed by signature
func NewTaxonomy(signature string) Taxonomy {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		signature = DefaultSignature
	}

	rules := fmt.Sprintf(`Make sure to use a polite, understanding and empathetic tone.
Do not use any placeholder in the email, use "customer" for the recipient name.
Only sign the response email with "%s".`, signature)

	others := make([]string, 0, len(allCategories)-1)
	for _, c := range allCategories {
		if c != CategoryOther {
			others = append(others, fmt.Sprintf("%q", string(c)))
		}
	}

	instructions := map[Category]string{
		CategoryComplaint: `You are a great customer service agent who replies to complaint emails promptly.
Based on the following received email, write an appropriate response to the customer letting them
know that we received the complaint and that a member of our team will reach out to them soon to
address the issue.
` + rules,
		CategoryInquiry: `You are a great customer service agent who replies to inquiry emails.
Based on the following received email, write an appropriate response to the customer confirming that
we received the inquiry and that it was sent to the right team, who will reply with detailed
information as soon as possible.
` + rules,
		CategoryFeedback: `You are a great customer service agent who replies to feedback emails.
Based on the following received email, write an appropriate response to the customer confirming that
we received the feedback, thanking them for it and letting them know their feedback is valuable to us.
` + rules,
		CategorySupportRequest: `You are a great customer service agent who replies to support request emails.
Based on the following received email, write an appropriate response to the customer confirming that
we received the support request and that it was sent to a specialized team, who will contact the
customer as soon as possible with detailed and accurate information.
` + rules,
		CategoryOther: fmt.Sprintf(`You are a great customer service agent who replies to incoming emails.
We could not assign a category to the following received email. The received email is NOT %s.
Based on the following received email, write an appropriate response to the customer confirming that
we received the email, thanking them for contacting us and saying we will get back to them if needed.
Do not include any other information and do not invent an explanation for their email.
`, strings.Join(others, ", or ")) + rules,
	}

	return Taxonomy{
		signature:    signature,
		instructions: instructions,
	}
}

// Categories returns the valid categories in a fixed order
func (t Taxonomy) Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories[:])
	return out
}

// Labels returns the valid categories as plain strings
func (t Taxonomy) Labels() []string {
	out := make([]string, len(allCategories))
	for i, c := range allCategories {
		out[i] = string(c)
	}
	return out
}

// IsValid reports whether label is exactly one of the taxonomy categories
func (t Taxonomy) IsValid(label string) bool {
	for _, c := range allCategories {
		if string(c) == label {
			return true
		}
	}
	return false
}

// Instruction returns the reply instruction for a category, or "" if the
// category is not part of the taxonomy
func (t Taxonomy) Instruction(c Category) string {
	return t.instructions[c]
}

// Signature returns the team signature replies are signed with
func (t Taxonomy) Signature() string {
	return t.signature
}
