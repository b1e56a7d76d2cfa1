package model

// Registration statuses.
const (
	RegistrationRegistered = "registered"
	RegistrationAttended   = "attended"
	RegistrationCancelled  = "cancelled"
)

// EventRegistration records one person's sign-up for an event. EventKey is
// derived from EventTitle; the pair (EventKey, Email) is unique.
type EventRegistration struct {
	Base
	EventID      string `json:"eventId,omitempty"`
	EventTitle   string `json:"eventTitle" validate:"required,max=200"`
	EventKey     string `json:"eventKey"`
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Phone        string `json:"phone,omitempty" validate:"max=30"`
	Organization string `json:"organization,omitempty" validate:"max=100"`
	Message      string `json:"message,omitempty" validate:"max=1000"`
	Status       string `json:"status" validate:"required,oneof=registered attended cancelled"`
}
