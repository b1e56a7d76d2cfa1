package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/content"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/repository"
)

// Concrete service types, one per resource.
type (
	ContactService      = Resource[model.Contact, *model.Contact]
	FeedbackService     = Resource[model.Feedback, *model.Feedback]
	ArticleService      = Resource[model.Article, *model.Article]
	EventService        = Resource[model.Event, *model.Event]
	RegistrationService = Resource[model.EventRegistration, *model.EventRegistration]
	ProjectService      = Resource[model.Project, *model.Project]
	SolutionService     = Resource[model.Solution, *model.Solution]
	GalleryService      = Resource[model.GalleryItem, *model.GalleryItem]
)

// excerptLength is the rune length of an auto-generated article excerpt.
const excerptLength = 200

func NewContactService(store repository.Collection[model.Contact], logger *slog.Logger) *ContactService {
	return NewResource[model.Contact](store, ResourceConfig[model.Contact]{
		Name:         "contact",
		SearchFields: []string{"name", "email", "company", "subject", "message"},
		StatsField:   "status",
		Filterable:   map[string]FilterKind{"status": FilterString, "service": FilterString},
		DefaultSort:  "createdAt", DefaultSortDesc: true,
		PublicCreate: func(c *model.Contact) {
			c.Status = ""
			c.Notes = ""
		},
		BeforeCreate: func(_ context.Context, c *model.Contact) error {
			cleanContact(c)
			if c.Status == "" {
				c.Status = model.ContactNew
			}
			return nil
		},
		BeforeUpdate: func(_ context.Context, _, next *model.Contact, _ model.Patch) error {
			cleanContact(next)
			return nil
		},
	}, logger)
}

func cleanContact(c *model.Contact) {
	c.Name = content.SanitizeText(c.Name)
	c.Email = content.NormalizeEmail(c.Email)
	c.Subject = content.SanitizeText(c.Subject)
	c.Message = content.SanitizeText(c.Message)
}

// NewFeedbackService: visitors only ever see approved testimonials.
func NewFeedbackService(store repository.Collection[model.Feedback], logger *slog.Logger) *FeedbackService {
	return NewResource[model.Feedback](store, ResourceConfig[model.Feedback]{
		Name:         "feedback",
		SearchFields: []string{"name", "company", "message"},
		StatsField:   "rating",
		Filterable: map[string]FilterKind{
			"approved": FilterBool,
			"featured": FilterBool,
			"rating":   FilterInt,
		},
		DefaultSort: "createdAt", DefaultSortDesc: true,
		PublicFilter: repository.Filter{"approved": true},
		Visible:      func(f *model.Feedback) bool { return f.Approved },
		PublicCreate: func(f *model.Feedback) {
			f.Approved = false
			f.Featured = false
		},
		BeforeCreate: func(_ context.Context, f *model.Feedback) error {
			cleanFeedback(f)
			return nil
		},
		BeforeUpdate: func(_ context.Context, _, next *model.Feedback, _ model.Patch) error {
			cleanFeedback(next)
			return nil
		},
	}, logger)
}

func cleanFeedback(f *model.Feedback) {
	f.Name = content.SanitizeText(f.Name)
	f.Email = content.NormalizeEmail(f.Email)
	f.Message = content.SanitizeText(f.Message)
}

// ArticleOptions tunes the derived fields of articles.
type ArticleOptions struct {
	WordsPerMinute int
	// Now stamps publishedAt. Defaults to time.Now.
	Now func() time.Time
}

// NewArticleService derives contentHtml, wordCount, readTimeMinutes,
// excerpt and publishedAt. Visitors see published articles only.
func NewArticleService(store repository.Collection[model.Article], opts ArticleOptions, logger *slog.Logger) *ArticleService {
	if opts.WordsPerMinute <= 0 {
		opts.WordsPerMinute = content.DefaultWordsPerMinute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return NewResource[model.Article](store, ResourceConfig[model.Article]{
		Name:         "article",
		SearchFields: []string{"title", "excerpt", "content", "author", "tags"},
		StatsField:   "status",
		Filterable: map[string]FilterKind{
			"status":   FilterString,
			"category": FilterString,
			"author":   FilterString,
			"featured": FilterBool,
		},
		DefaultSort: "createdAt", DefaultSortDesc: true,
		PublicFilter: repository.Filter{"status": model.ArticlePublished},
		Visible:      func(a *model.Article) bool { return a.Status == model.ArticlePublished },
		ReadOnly:     []string{"contentHtml", "wordCount", "publishedAt"},

		BeforeCreate: func(_ context.Context, a *model.Article) error {
			if a.Status == "" {
				a.Status = model.ArticleDraft
			}
			a.PublishedAt = nil
			a.WordCount = 0
			deriveArticleBody(a, opts.WordsPerMinute, a.ReadTimeMinutes == 0)
			markPublished(a, opts.Now)
			return nil
		},

		BeforeUpdate: func(_ context.Context, prev, next *model.Article, patch model.Patch) error {
			if patch.Has("content") || patch.Has("excerpt") {
				// an explicit readTimeMinutes in the same write wins
				deriveArticleBody(next, opts.WordsPerMinute, patch.Has("content") && !patch.Has("readTimeMinutes"))
			}
			markPublished(next, opts.Now)
			return nil
		},
	}, logger)
}

// deriveArticleBody recomputes everything that follows from the content.
func deriveArticleBody(a *model.Article, wpm int, readTime bool) {
	a.ContentHTML = content.RenderMarkdown(a.Content)
	a.WordCount = content.WordCount(a.Content)
	if readTime {
		a.ReadTimeMinutes = content.EstimateReadTime(a.Content, wpm)
	}
	if strings.TrimSpace(a.Excerpt) == "" {
		a.Excerpt = excerpt(content.SanitizeText(a.ContentHTML), excerptLength)
	}
}

// markPublished stamps publishedAt the first time an article is published.
// Archiving and republishing keeps the original date.
func markPublished(a *model.Article, now func() time.Time) {
	if a.Status == model.ArticlePublished && a.PublishedAt == nil {
		t := now().UTC()
		a.PublishedAt = &t
	}
}

// excerpt cuts s to at most n runes, at a word boundary where possible.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// NewEventService lists upcoming events first by default.
func NewEventService(store repository.Collection[model.Event], logger *slog.Logger) *EventService {
	return NewResource[model.Event](store, ResourceConfig[model.Event]{
		Name:         "event",
		SearchFields: []string{"title", "description", "location", "category"},
		StatsField:   "status",
		Filterable: map[string]FilterKind{
			"status":           FilterString,
			"category":         FilterString,
			"isVirtual":        FilterBool,
			"registrationOpen": FilterBool,
		},
		DefaultSort: "startDate",
		BeforeCreate: func(_ context.Context, e *model.Event) error {
			if e.Status == "" {
				e.Status = model.EventUpcoming
			}
			if e.RegistrationOpen == nil {
				open := true
				e.RegistrationOpen = &open
			}
			return checkEventDates(e)
		},
		BeforeUpdate: func(_ context.Context, prev, next *model.Event, _ model.Patch) error {
			if next.RegistrationOpen == nil {
				next.RegistrationOpen = prev.RegistrationOpen
			}
			return checkEventDates(next)
		},
	}, logger)
}

// checkEventDates stores both dates in UTC, so the store's text ordering on
// startDate is chronological, and rejects an end before the start.
func checkEventDates(e *model.Event) error {
	e.StartDate = e.StartDate.UTC()
	if e.EndDate != nil {
		end := e.EndDate.UTC()
		e.EndDate = &end
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		return apperror.ValidationFailed("endDate", "endDate must not be before startDate")
	}
	return nil
}

// EventLookup is how registrations resolve an eventId.
type EventLookup interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// NewRegistrationService derives eventKey from the event title so the
// unique (eventKey, email) index rejects a second sign-up for the same
// event, however the title was typed. When eventId is given, the title is
// taken from that event.
func NewRegistrationService(store repository.Collection[model.EventRegistration], events EventLookup, logger *slog.Logger) *RegistrationService {
	resolve := func(ctx context.Context, r *model.EventRegistration) error {
		if r.EventID != "" {
			ev, err := events.GetByID(ctx, r.EventID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					return apperror.ValidationFailed("eventId", "event not found")
				}
				return err
			}
			if ev.Status == model.EventCancelled {
				return apperror.ValidationFailed("eventId", "event has been cancelled")
			}
			if !ev.AcceptsRegistrations() {
				return apperror.ValidationFailed("eventId", "registration is closed")
			}
			r.EventTitle = ev.Title
		}
		r.EventTitle = strings.TrimSpace(r.EventTitle)
		r.EventKey = content.EventKey(r.EventTitle)
		r.Email = content.NormalizeEmail(r.Email)
		r.Name = content.SanitizeText(r.Name)
		r.Message = content.SanitizeText(r.Message)
		return nil
	}

	return NewResource[model.EventRegistration](store, ResourceConfig[model.EventRegistration]{
		Name:         "event registration",
		SearchFields: []string{"name", "email", "organization", "eventTitle"},
		StatsField:   "status",
		Filterable: map[string]FilterKind{
			"status":   FilterString,
			"eventId":  FilterString,
			"eventKey": FilterString,
		},
		DefaultSort: "createdAt", DefaultSortDesc: true,
		ReadOnly:     []string{"eventKey"},
		PublicCreate: func(r *model.EventRegistration) { r.Status = "" },
		BeforeCreate: func(ctx context.Context, r *model.EventRegistration) error {
			if r.Status == "" {
				r.Status = model.RegistrationRegistered
			}
			return resolve(ctx, r)
		},
		BeforeUpdate: func(ctx context.Context, prev, next *model.EventRegistration, patch model.Patch) error {
			if next.EventID == prev.EventID && !patch.Has("eventTitle") {
				next.Email = content.NormalizeEmail(next.Email)
				return nil
			}
			return resolve(ctx, next)
		},
	}, logger)
}

func NewProjectService(store repository.Collection[model.Project], logger *slog.Logger) *ProjectService {
	return NewResource[model.Project](store, ResourceConfig[model.Project]{
		Name:         "project",
		SearchFields: []string{"title", "summary", "description", "client", "industry", "technologies"},
		StatsField:   "status",
		Filterable: map[string]FilterKind{
			"status":   FilterString,
			"industry": FilterString,
			"featured": FilterBool,
		},
		DefaultSort: "createdAt", DefaultSortDesc: true,
		BeforeCreate: func(_ context.Context, p *model.Project) error {
			if p.Status == "" {
				p.Status = model.ProjectPlanned
			}
			return nil
		},
	}, logger)
}

// NewSolutionService orders solutions by their explicit display order.
func NewSolutionService(store repository.Collection[model.Solution], logger *slog.Logger) *SolutionService {
	return NewResource[model.Solution](store, ResourceConfig[model.Solution]{
		Name:         "solution",
		SearchFields: []string{"title", "summary", "description", "category", "features"},
		StatsField:   "category",
		Filterable: map[string]FilterKind{
			"category": FilterString,
			"featured": FilterBool,
		},
		DefaultSort: "order",
	}, logger)
}

// FileRemover deletes stored upload files.
type FileRemover interface {
	Remove(path string) error
}

// NewGalleryService: the file fields come from the upload store and are
// read-only afterwards. Deleting an item deletes its files.
func NewGalleryService(store repository.Collection[model.GalleryItem], files FileRemover, logger *slog.Logger) *GalleryService {
	if logger == nil {
		logger = slog.Default()
	}
	return NewResource[model.GalleryItem](store, ResourceConfig[model.GalleryItem]{
		Name:         "gallery item",
		SearchFields: []string{"title", "description", "category", "tags"},
		StatsField:   "mediaType",
		Filterable: map[string]FilterKind{
			"category":  FilterString,
			"mediaType": FilterString,
			"eventId":   FilterString,
		},
		DefaultSort: "createdAt", DefaultSortDesc: true,
		ReadOnly:    []string{"mediaType", "filename", "path", "mimeType", "size", "thumbnailPath"},
		BeforeCreate: func(_ context.Context, g *model.GalleryItem) error {
			cleanGalleryItem(g)
			return nil
		},
		BeforeUpdate: func(_ context.Context, _, next *model.GalleryItem, _ model.Patch) error {
			cleanGalleryItem(next)
			return nil
		},
		AfterDelete: func(_ context.Context, g *model.GalleryItem) {
			for _, p := range []string{g.Path, g.ThumbnailPath} {
				if p == "" {
					continue
				}
				if err := files.Remove(p); err != nil {
					logger.Warn("failed to remove gallery file",
						slog.String("path", p),
						slog.String("error", err.Error()),
					)
				}
			}
		},
	}, logger)
}

func cleanGalleryItem(g *model.GalleryItem) {
	g.Title = content.SanitizeText(g.Title)
	g.Description = content.SanitizeText(g.Description)
}
