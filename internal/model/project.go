package model

// Project statuses.
const (
	ProjectPlanned    = "planned"
	ProjectInProgress = "in-progress"
	ProjectCompleted  = "completed"
)

// Project is a case study in the portfolio.
type Project struct {
	Base
	Title        string   `json:"title" validate:"required,min=3,max=200"`
	Slug         string   `json:"slug"`
	Summary      string   `json:"summary,omitempty" validate:"max=500"`
	Description  string   `json:"description" validate:"required,max=10000"`
	Client       string   `json:"client,omitempty" validate:"max=100"`
	Industry     string   `json:"industry,omitempty" validate:"max=50"`
	Technologies []string `json:"technologies,omitempty" validate:"max=30,dive,max=50"`
	ImageURL     string   `json:"imageUrl,omitempty" validate:"max=500"`
	Results      string   `json:"results,omitempty" validate:"max=2000"`
	Status       string   `json:"status" validate:"required,oneof=planned in-progress completed"`
	Featured     bool     `json:"featured"`
}

func (p *Project) SlugSource() string  { return p.Title }
func (p *Project) CurrentSlug() string { return p.Slug }
func (p *Project) SetSlug(s string)    { p.Slug = s }
