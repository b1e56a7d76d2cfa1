package model

import "time"

// Event statuses.
const (
	EventUpcoming  = "upcoming"
	EventOngoing   = "ongoing"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

// Event is a workshop, webinar or meetup shown on the events page.
type Event struct {
	Base
	Title            string     `json:"title" validate:"required,min=3,max=200"`
	Slug             string     `json:"slug"`
	Description      string     `json:"description" validate:"required,max=5000"`
	Location         string     `json:"location,omitempty" validate:"max=200"`
	StartDate        time.Time  `json:"startDate" validate:"required"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	Category         string     `json:"category,omitempty" validate:"max=50"`
	Capacity         int        `json:"capacity" validate:"min=0"`
	ImageURL         string     `json:"imageUrl,omitempty" validate:"max=500"`
	IsVirtual        bool       `json:"isVirtual"`
	RegistrationOpen *bool      `json:"registrationOpen"`
	Status           string     `json:"status" validate:"required,oneof=upcoming ongoing completed cancelled"`
}

// AcceptsRegistrations reports whether visitors may sign up. Registration
// is open unless it was explicitly closed or the event was cancelled.
func (e *Event) AcceptsRegistrations() bool {
	return e.Status != EventCancelled && (e.RegistrationOpen == nil || *e.RegistrationOpen)
}

func (e *Event) SlugSource() string  { return e.Title }
func (e *Event) CurrentSlug() string { return e.Slug }
func (e *Event) SetSlug(s string)    { e.Slug = s }
