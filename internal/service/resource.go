// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, derives fields, enforces rules
//	Repository (data layer)  → reads/writes the store
//
// The eight content resources share one generic service, Resource, and
// differ only in their ResourceConfig: which fields are searchable, what an
// anonymous visitor may see, and the hooks that compute derived fields
// before a write. Resource depends on repository.Collection (an interface),
// so tests swap in an in-memory fake.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/content"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/repository"
	"github.com/sakif/aisolutions-cms/internal/validation"
)

// Access says who is asking. Public callers see only what PublicFilter and
// Visible allow, and their creates pass through PublicCreate.
type Access uint8

const (
	Public Access = iota
	Admin
)

// Recent listing bounds.
const (
	DefaultRecent = 5
	MaxRecent     = 20
)

// maxSlugAttempts bounds the "-2", "-3", ... suffix search for a free slug.
const maxSlugAttempts = 20

// FilterKind tells the HTTP layer how to parse a query-string filter.
type FilterKind uint8

const (
	FilterString FilterKind = iota
	FilterBool
	FilterInt
)

// ResourceConfig describes one resource. Only Name is required.
type ResourceConfig[T any] struct {
	// Name is the singular noun used in logs and errors ("article").
	Name string

	// SearchFields are matched by Search, case-insensitively.
	SearchFields []string
	// StatsField is the field Stats groups by.
	StatsField string
	// Filterable lists the fields List accepts as equality filters.
	Filterable map[string]FilterKind

	// DefaultSort is the List order when the caller gives none.
	DefaultSort     string
	DefaultSortDesc bool

	// PublicFilter is added to every public query; Visible is the same rule
	// applied to a single fetched document.
	PublicFilter repository.Filter
	Visible      func(*T) bool

	// ReadOnly fields are dropped from update patches.
	ReadOnly []string

	// PublicCreate resets fields an anonymous creator must not set.
	PublicCreate func(*T)
	// BeforeCreate fills derived fields and defaults on a new document.
	BeforeCreate func(ctx context.Context, doc *T) error
	// BeforeUpdate runs after the patch is applied to next. prev is the
	// stored version; patch tells which fields the caller sent.
	BeforeUpdate func(ctx context.Context, prev, next *T, patch model.Patch) error
	// AfterDelete runs once the document is gone.
	AfterDelete func(ctx context.Context, doc *T)
}

// ListParams is a page request.
type ListParams struct {
	Filter   repository.Filter
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// Stats is a total plus a breakdown by the resource's StatsField.
type Stats struct {
	Total int            `json:"total"`
	Field string         `json:"field"`
	By    map[string]int `json:"by"`
}

// Resource is the CRUD service shared by every content resource.
type Resource[T any, P model.Entity[T]] struct {
	store  repository.Collection[T]
	cfg    ResourceConfig[T]
	logger *slog.Logger
}

func NewResource[T any, P model.Entity[T]](store repository.Collection[T], cfg ResourceConfig[T], logger *slog.Logger) *Resource[T, P] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resource[T, P]{store: store, cfg: cfg, logger: logger}
}

// Name returns the resource's singular noun.
func (s *Resource[T, P]) Name() string { return s.cfg.Name }

// Filterable exposes the accepted list filters to the HTTP layer.
func (s *Resource[T, P]) Filterable() map[string]FilterKind { return s.cfg.Filterable }

// Sluggable reports whether documents of this resource carry a slug.
func (s *Resource[T, P]) Sluggable() bool {
	_, ok := any(new(T)).(model.Sluggable)
	return ok
}

// Create derives fields, validates and stores doc.
func (s *Resource[T, P]) Create(ctx context.Context, doc *T, access Access) (*T, error) {
	if access == Public && s.cfg.PublicCreate != nil {
		s.cfg.PublicCreate(doc)
	}
	if s.cfg.BeforeCreate != nil {
		if err := s.cfg.BeforeCreate(ctx, doc); err != nil {
			return nil, err
		}
	}
	if err := validation.Struct(doc); err != nil {
		return nil, err
	}
	if err := s.assignSlug(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, doc); err != nil {
		if isClientError(err) {
			return nil, err
		}
		s.logger.Error("failed to create "+s.cfg.Name, slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating %s: %w", s.cfg.Name, err)
	}

	s.logger.Info(s.cfg.Name+" created", slog.String("id", P(doc).Meta().ID))
	return doc, nil
}

// Get returns one document. A document the caller may not see is reported
// as not found, not forbidden.
func (s *Resource[T, P]) Get(ctx context.Context, id string, access Access) (*T, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", s.cfg.Name+" ID is required")
	}

	doc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.visible(doc, access) {
		return nil, apperror.NotFound(s.cfg.Name, id)
	}
	return doc, nil
}

// GetBySlug is Get keyed by slug.
func (s *Resource[T, P]) GetBySlug(ctx context.Context, slug string, access Access) (*T, error) {
	if !s.Sluggable() {
		return nil, apperror.NotFoundBy(s.cfg.Name, "slug", slug)
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apperror.ValidationFailed("slug", "slug is required")
	}

	doc, err := s.store.FindOne(ctx, s.scope(repository.Filter{"slug": slug}, access))
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns one page plus the total count.
func (s *Resource[T, P]) List(ctx context.Context, p ListParams, access Access) (*repository.Page[T], error) {
	for k := range p.Filter {
		if _, ok := s.cfg.Filterable[k]; !ok {
			return nil, apperror.ValidationFailed(k, fmt.Sprintf("cannot filter %s by %s", s.cfg.Name, k))
		}
	}
	sortBy, desc := p.SortBy, p.SortDesc
	if sortBy == "" {
		sortBy, desc = s.cfg.DefaultSort, s.cfg.DefaultSortDesc
	} else if !s.sortable(sortBy) {
		return nil, apperror.ValidationFailed("sort", fmt.Sprintf("cannot sort %s by %s", s.cfg.Name, sortBy))
	}

	return s.page(ctx, repository.Query{
		Filter:   s.scope(p.Filter, access),
		SortBy:   sortBy,
		SortDesc: desc,
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
}

// Search matches q against the resource's SearchFields, newest first.
func (s *Resource[T, P]) Search(ctx context.Context, q string, limit, offset int, access Access) (*repository.Page[T], error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}

	return s.page(ctx, repository.Query{
		Filter:       s.scope(nil, access),
		Search:       q,
		SearchFields: s.cfg.SearchFields,
		SortDesc:     true,
		Limit:        limit,
		Offset:       offset,
	})
}

// Recent returns the n newest documents.
func (s *Resource[T, P]) Recent(ctx context.Context, n int, access Access) ([]T, error) {
	if n <= 0 {
		n = DefaultRecent
	}
	if n > MaxRecent {
		n = MaxRecent
	}

	docs, err := s.store.Find(ctx, repository.Query{
		Filter:   s.scope(nil, access),
		SortDesc: true,
		Limit:    n,
	})
	if err != nil {
		return nil, fmt.Errorf("listing recent %s: %w", s.cfg.Name, err)
	}
	return docs, nil
}

// Stats counts every document, grouped by StatsField.
func (s *Resource[T, P]) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.store.Count(ctx, repository.Query{})
	if err != nil {
		return nil, fmt.Errorf("counting %s: %w", s.cfg.Name, err)
	}

	st := &Stats{Total: total, Field: s.cfg.StatsField, By: map[string]int{}}
	if s.cfg.StatsField != "" {
		st.By, err = s.store.CountBy(ctx, s.cfg.StatsField, nil)
		if err != nil {
			return nil, fmt.Errorf("grouping %s by %s: %w", s.cfg.Name, s.cfg.StatsField, err)
		}
	}
	return st, nil
}

// Update applies a JSON merge patch to the stored document.
//
// STRATEGY: fetch, copy, patch the copy, re-derive, validate, save.
// The id, the timestamps and the resource's ReadOnly fields are stripped
// from the patch first, so a client can never overwrite them.
func (s *Resource[T, P]) Update(ctx context.Context, id string, patch model.Patch) (*T, error) {
	prev, err := s.Get(ctx, id, Admin)
	if err != nil {
		return nil, err
	}

	next, err := model.Clone(prev)
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", s.cfg.Name, err)
	}

	patch = patch.Without(append([]string{"id", "createdAt", "updatedAt"}, s.cfg.ReadOnly...)...)
	if err := patch.ApplyTo(next); err != nil {
		return nil, apperror.ValidationFailed("body", "request body does not match the "+s.cfg.Name+" fields")
	}
	*P(next).Meta() = *P(prev).Meta()

	if s.cfg.BeforeUpdate != nil {
		if err := s.cfg.BeforeUpdate(ctx, prev, next, patch); err != nil {
			return nil, err
		}
	}
	reslug(prev, next, patch)
	if err := validation.Struct(next); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, next); err != nil {
		if isClientError(err) {
			return nil, err
		}
		s.logger.Error("failed to update "+s.cfg.Name,
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating %s: %w", s.cfg.Name, err)
	}

	s.logger.Info(s.cfg.Name+" updated", slog.String("id", id))
	return next, nil
}

// Delete removes a document and returns what was removed.
func (s *Resource[T, P]) Delete(ctx context.Context, id string) (*T, error) {
	doc, err := s.Get(ctx, id, Admin)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if isClientError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("deleting %s: %w", s.cfg.Name, err)
	}
	if s.cfg.AfterDelete != nil {
		s.cfg.AfterDelete(ctx, doc)
	}

	s.logger.Info(s.cfg.Name+" deleted", slog.String("id", id))
	return doc, nil
}

func (s *Resource[T, P]) page(ctx context.Context, q repository.Query) (*repository.Page[T], error) {
	q.Limit, q.Offset = repository.ClampPage(q.Limit, q.Offset)

	items, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.cfg.Name, err)
	}
	total, err := s.store.Count(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("counting %s: %w", s.cfg.Name, err)
	}

	return &repository.Page[T]{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// scope merges the public filter into f for anonymous callers.
func (s *Resource[T, P]) scope(f repository.Filter, access Access) repository.Filter {
	if access == Admin || len(s.cfg.PublicFilter) == 0 {
		return f
	}
	out := make(repository.Filter, len(f)+len(s.cfg.PublicFilter))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range s.cfg.PublicFilter {
		out[k] = v
	}
	return out
}

// sortable fields are the timestamps, title, the default sort and
// anything filterable.
func (s *Resource[T, P]) sortable(field string) bool {
	switch field {
	case "createdAt", "updatedAt", "title", s.cfg.DefaultSort:
		return true
	}
	_, ok := s.cfg.Filterable[field]
	return ok
}

func (s *Resource[T, P]) visible(doc *T, access Access) bool {
	return access == Admin || s.cfg.Visible == nil || s.cfg.Visible(doc)
}

// assignSlug gives a new sluggable document its slug. A slug the caller
// supplied is normalized and must be free; a slug derived from the title
// gets a numeric suffix when taken.
func (s *Resource[T, P]) assignSlug(ctx context.Context, doc *T) error {
	sl, ok := any(doc).(model.Sluggable)
	if !ok {
		return nil
	}

	if given := strings.TrimSpace(sl.CurrentSlug()); given != "" {
		slug := content.Slugify(given)
		if slug == "" {
			return apperror.ValidationFailed("slug", "slug must contain letters or digits")
		}
		sl.SetSlug(slug)
		return nil
	}

	base := content.Slugify(sl.SlugSource())
	if base == "" {
		base = xid.New().String()
	}
	slug, err := s.freeSlug(ctx, base)
	if err != nil {
		return err
	}
	sl.SetSlug(slug)
	return nil
}

// reslug normalizes a slug sent in an update. The slug is derived once on
// create; a changed title alone does not move it.
func reslug[T any](prev, next *T, patch model.Patch) {
	sl, ok := any(next).(model.Sluggable)
	if !ok || !patch.Has("slug") {
		return
	}
	if slug := content.Slugify(sl.CurrentSlug()); slug != "" {
		sl.SetSlug(slug)
		return
	}
	sl.SetSlug(any(prev).(model.Sluggable).CurrentSlug())
}

// freeSlug returns base, or base-2, base-3, ... whichever is unused. The
// unique index still has the final word if two writers race for a slug.
func (s *Resource[T, P]) freeSlug(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		_, err := s.store.FindOne(ctx, repository.Filter{"slug": candidate})
		if errors.Is(err, apperror.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		suffix := fmt.Sprintf("-%d", i)
		candidate = truncateSlug(base, content.MaxSlugLength-len(suffix)) + suffix
	}
	return truncateSlug(base, content.MaxSlugLength-21) + "-" + xid.New().String(), nil
}

func truncateSlug(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], "-")
}

// isClientError reports errors the handler should pass through unchanged.
func isClientError(err error) bool {
	return errors.Is(err, apperror.ErrNotFound) ||
		errors.Is(err, apperror.ErrValidation) ||
		errors.Is(err, apperror.ErrConflict)
}
