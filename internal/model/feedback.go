package model

// Feedback is a client testimonial. Only approved entries are visible on
// the public site.
type Feedback struct {
	Base
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Company  string `json:"company,omitempty" validate:"max=100"`
	Role     string `json:"role,omitempty" validate:"max=100"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Message  string `json:"message" validate:"required,min=10,max=2000"`
	Approved bool   `json:"approved"`
	Featured bool   `json:"featured"`
}
