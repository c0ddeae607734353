package dto

// EnqueueEmailRequest is the admin enqueue body. The payload map feeds
// {{placeholder}} substitution at send time.
type EnqueueEmailRequest struct {
	TemplateType string            `json:"template_type" validate:"required"`
	Lang         string            `json:"lang" validate:"required,len=2"`
	ToEmail      string            `json:"to_email" validate:"required,email"`
	ToName       string            `json:"to_name" validate:"required"`
	Payload      map[string]string `json:"payload"`
}

// EnqueueEmailResponse acknowledges a queued row.
type EnqueueEmailResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// QueueRunResponse reports one worker invocation.
type QueueRunResponse struct {
	OK      bool `json:"ok"`
	Claimed int  `json:"claimed"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
}
