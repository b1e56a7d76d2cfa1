package model

import "time"

// Article statuses.
const (
	ArticleDraft     = "draft"
	ArticlePublished = "published"
	ArticleArchived  = "archived"
)

// Article is a blog/insights post. Content is markdown; ContentHTML,
// WordCount, ReadTimeMinutes and PublishedAt are derived by the article
// service, never trusted from the client (except ReadTimeMinutes, which an
// editor may override).
type Article struct {
	Base
	Title           string     `json:"title" validate:"required,min=5,max=200"`
	Slug            string     `json:"slug"`
	Excerpt         string     `json:"excerpt,omitempty" validate:"max=500"`
	Content         string     `json:"content" validate:"required"`
	ContentHTML     string     `json:"contentHtml"`
	Author          string     `json:"author,omitempty" validate:"max=100"`
	Category        string     `json:"category,omitempty" validate:"max=50"`
	Tags            []string   `json:"tags,omitempty" validate:"max=20,dive,max=30"`
	CoverImage      string     `json:"coverImage,omitempty" validate:"max=500"`
	Status          string     `json:"status" validate:"required,oneof=draft published archived"`
	Featured        bool       `json:"featured"`
	Views           int        `json:"views" validate:"min=0"`
	WordCount       int        `json:"wordCount"`
	ReadTimeMinutes int        `json:"readTimeMinutes" validate:"min=0,max=120"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
}

func (a *Article) SlugSource() string  { return a.Title }
func (a *Article) CurrentSlug() string { return a.Slug }
func (a *Article) SetSlug(s string)    { a.Slug = s }
