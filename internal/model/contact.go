package model

// Contact statuses.
const (
	ContactNew        = "new"
	ContactInProgress = "in-progress"
	ContactResolved   = "resolved"
	ContactClosed     = "closed"
)

// Contact is an enquiry submitted through the public contact form.
// Message is stored as plain text (markup stripped on create).
type Contact struct {
	Base
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone,omitempty" validate:"max=30"`
	Company string `json:"company,omitempty" validate:"max=100"`
	Subject string `json:"subject,omitempty" validate:"max=200"`
	Service string `json:"service,omitempty" validate:"max=100"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
	Status  string `json:"status" validate:"required,oneof=new in-progress resolved closed"`
	Notes   string `json:"notes,omitempty" validate:"max=2000"`
}
