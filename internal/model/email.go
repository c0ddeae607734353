package model

import "time"

type EmailStatus string

const (
	StatusPending EmailStatus = "pending"
	StatusSending EmailStatus = "sending"
	StatusSent    EmailStatus = "sent"
	StatusFailed  EmailStatus = "failed"
)

// Template types recognised by the queue. The template body for a given
// (type, lang) pair lives in the email_templates table.
const (
	TemplateInvoiceNotice        = "invoice-notice"
	TemplateConfirmation         = "confirmation"
	TemplateApproval             = "approval"
	TemplateRejection            = "rejection"
	TemplateAdminNotification    = "admin-notification"
	TemplateAccountUpdated       = "account-updated"
	TemplateVerificationApproved = "verification-approved"
	TemplateVerificationRejected = "verification-rejected"
)

// EmailQueueItem is one pending unit of outbound email work. Status moves
// pending -> sending -> sent|failed; failed rows below the attempt ceiling
// are reclaimed to pending by the database, never by the worker itself.
type EmailQueueItem struct {
	ID           string            `db:"id" json:"id"`
	TemplateType string            `db:"template_type" json:"template_type"`
	Lang         string            `db:"lang" json:"lang"`
	ToEmail      string            `db:"to_email" json:"to_email"`
	ToName       string            `db:"to_name" json:"to_name"`
	Payload      map[string]string `db:"payload" json:"payload"` // JSON column
	Status       EmailStatus       `db:"status" json:"status"`
	Attempts     int               `db:"attempts" json:"attempts"`
	LastError    *string           `db:"last_error" json:"last_error,omitempty"`
	SentAt       *time.Time        `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// EmailTemplate holds the subject and bodies for one (type, lang) pair.
// All three fields may contain {{placeholder}} tokens.
type EmailTemplate struct {
	TemplateType string `db:"template_type"`
	Lang         string `db:"lang"`
	Subject      string `db:"subject"`
	BodyText     string `db:"body_text"`
	BodyHTML     string `db:"body_html"`
}
