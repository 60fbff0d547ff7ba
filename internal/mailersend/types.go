package mailersend

import "time"

// Response is the result of a single send.
type Response struct {
	StatusCode int       `json:"status_code"`
	MessageID  string    `json:"message_id"`
	Warnings   []Warning `json:"warnings,omitempty"`
}

// Warning is a partial-acceptance notice, e.g. some recipients suppressed.
type Warning struct {
	Type       string             `json:"type"`
	Warning    string             `json:"warning"`
	Recipients []WarningRecipient `json:"recipients"`
}

// WarningRecipient is a recipient a warning applies to.
type WarningRecipient struct {
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Reasons []string `json:"reasons"`
}

// sendResponse is the body of a 202 from POST /email. It is empty unless
// the provider reports warnings.
type sendResponse struct {
	Message  string    `json:"message"`
	Warnings []Warning `json:"warnings"`
}

// bulkSendResponse is the body of a 202 from POST /bulk-email.
type bulkSendResponse struct {
	Message     string `json:"message"`
	BulkEmailID string `json:"bulk_email_id"`
}

// Known bulk job states. State is kept as the provider's string.
const (
	BulkStateQueued     = "queued"
	BulkStateScheduled  = "scheduled"
	BulkStateProcessing = "processing"
	BulkStateCompleted  = "completed"
)

// BulkSendStatus describes a bulk job. It is not modified after parsing.
type BulkSendStatus struct {
	ID                        string    `json:"id"`
	State                     string    `json:"state"`
	TotalRecipientsCount      int       `json:"total_recipients_count"`
	SuppressedRecipientsCount int       `json:"suppressed_recipients_count"`
	ValidationErrorsCount     int       `json:"validation_errors_count"`
	MessagesID                []string  `json:"messages_id"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`

	// nil when the provider omitted the field or sent null
	ValidationErrors     map[string]interface{} `json:"validation_errors,omitempty"`
	SuppressedRecipients map[string]interface{} `json:"suppressed_recipients,omitempty"`
}

// HasValidationErrors reports whether the payload included validation_errors.
func (s *BulkSendStatus) HasValidationErrors() bool { return s.ValidationErrors != nil }

// HasSuppressedRecipients reports whether the payload included suppressed_recipients.
func (s *BulkSendStatus) HasSuppressedRecipients() bool { return s.SuppressedRecipients != nil }

// Done reports whether the job reached its final state.
func (s *BulkSendStatus) Done() bool { return s.State == BulkStateCompleted }
