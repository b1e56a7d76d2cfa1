package model

// Solution is a service offering ("AI chatbots", "predictive analytics").
type Solution struct {
	Base
	Title       string   `json:"title" validate:"required,min=3,max=200"`
	Slug        string   `json:"slug"`
	Summary     string   `json:"summary,omitempty" validate:"max=500"`
	Description string   `json:"description" validate:"required,max=10000"`
	Category    string   `json:"category,omitempty" validate:"max=50"`
	Features    []string `json:"features,omitempty" validate:"max=30,dive,max=200"`
	Benefits    []string `json:"benefits,omitempty" validate:"max=30,dive,max=200"`
	Icon        string   `json:"icon,omitempty" validate:"max=100"`
	Featured    bool     `json:"featured"`
	Order       int      `json:"order" validate:"min=0"`
}

func (s *Solution) SlugSource() string  { return s.Title }
func (s *Solution) CurrentSlug() string { return s.Slug }
func (s *Solution) SetSlug(v string)    { s.Slug = v }
