package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/auth"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/repository"
	"github.com/sakif/aisolutions-cms/internal/service"
)

// ResourceService is what ResourceHandler needs from a resource service.
// *service.Resource satisfies it for every resource type.
type ResourceService[T any] interface {
	Name() string
	Filterable() map[string]service.FilterKind
	Sluggable() bool

	Create(ctx context.Context, doc *T, access service.Access) (*T, error)
	Get(ctx context.Context, id string, access service.Access) (*T, error)
	GetBySlug(ctx context.Context, slug string, access service.Access) (*T, error)
	List(ctx context.Context, p service.ListParams, access service.Access) (*repository.Page[T], error)
	Search(ctx context.Context, q string, limit, offset int, access service.Access) (*repository.Page[T], error)
	Recent(ctx context.Context, n int, access service.Access) ([]T, error)
	Stats(ctx context.Context) (*service.Stats, error)
	Update(ctx context.Context, id string, patch model.Patch) (*T, error)
	Delete(ctx context.Context, id string) (*T, error)
}

// ResourceHandler serves the REST endpoints of one resource. The same
// handler type backs all eight resources; only the service differs.
//
// ROUTES (mounted by the server under /api/<resource>):
//
//	POST   /create        create
//	GET    /              list   ?limit=&offset=&sort=&order=&<filter>=
//	GET    /search?q=     search
//	GET    /recent        newest ?limit=
//	GET    /stats         counts
//	GET    /slug/{slug}   get by slug (sluggable resources)
//	GET    /{id}          get
//	PUT    /{id}          update (merge patch)
//	PATCH  /{id}          update (merge patch)
//	DELETE /{id}          delete
type ResourceHandler[T any] struct {
	svc ResourceService[T]
}

func NewResourceHandler[T any](svc ResourceService[T]) *ResourceHandler[T] {
	return &ResourceHandler[T]{svc: svc}
}

// reserved query parameters are never treated as filters
var reserved = map[string]bool{"limit": true, "offset": true, "sort": true, "order": true, "q": true}

// accessFor is Admin when OptionalAuth (or RequireAuth) attached an
// identity to the request.
func accessFor(r *http.Request) service.Access {
	if _, ok := auth.IdentityFromContext(r.Context()); ok {
		return service.Admin
	}
	return service.Public
}

func (h *ResourceHandler[T]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	doc := new(T)
	if err := decodeJSON(w, r, doc); err != nil {
		WriteError(w, err)
		return
	}

	created, err := h.svc.Create(r.Context(), doc, accessFor(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleList returns one page. Sort with ?sort=<field>&order=asc|desc, or
// ?sort=-<field> for descending.
func (h *ResourceHandler[T]) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	filter, err := h.filter(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	q := r.URL.Query()
	sortBy, desc := q.Get("sort"), false
	if rest, ok := strings.CutPrefix(sortBy, "-"); ok {
		sortBy, desc = rest, true
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		WriteError(w, apperror.ValidationFailed("order", "order must be asc or desc"))
		return
	}

	page, err := h.svc.List(r.Context(), service.ListParams{
		Filter:   filter,
		SortBy:   sortBy,
		SortDesc: desc,
		Limit:    limit,
		Offset:   offset,
	}, accessFor(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *ResourceHandler[T]) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	page, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), limit, offset, accessFor(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *ResourceHandler[T]) HandleRecent(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}

	items, err := h.svc.Recent(r.Context(), n, accessFor(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ResourceHandler[T]) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *ResourceHandler[T]) HandleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), accessFor(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *ResourceHandler[T]) HandleGetBySlug(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"), accessFor(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleUpdate applies the body as a JSON merge patch. PUT and PATCH
// behave the same: fields absent from the body keep their stored values.
func (h *ResourceHandler[T]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		WriteError(w, err)
		return
	}
	patch, err := model.ParsePatch(body)
	if err != nil {
		WriteError(w, apperror.ValidationFailed("body", "request body must be a JSON object"))
		return
	}

	doc, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *ResourceHandler[T]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Delete(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": h.svc.Name() + " deleted",
		"id":      id,
	})
}

// Exposure says which routes of a resource anonymous visitors may use.
type Exposure struct {
	PublicCreate bool
	PublicRead   bool
	// Create replaces the JSON create endpoint (gallery items are created
	// from a multipart upload).
	Create http.HandlerFunc
}

// Routes mounts the handler. admin guards everything the Exposure does not
// open up, plus stats and all writes. Public routes still pass through
// optional, so an admin's session widens what they see.
func (h *ResourceHandler[T]) Routes(r chi.Router, admin, optional func(http.Handler) http.Handler, exp Exposure) {
	create, read := admin, admin
	if exp.PublicCreate {
		create = optional
	}
	if exp.PublicRead {
		read = optional
	}

	createHandler := h.HandleCreate
	if exp.Create != nil {
		createHandler = exp.Create
	}
	r.With(create).Post("/create", createHandler)

	r.Group(func(r chi.Router) {
		r.Use(read)
		r.Get("/", h.HandleList)
		r.Get("/search", h.HandleSearch)
		r.Get("/recent", h.HandleRecent)
		if h.svc.Sluggable() {
			r.Get("/slug/{slug}", h.HandleGetBySlug)
		}
		r.Get("/{id}", h.HandleGet)
	})

	r.Group(func(r chi.Router) {
		r.Use(admin)
		r.Get("/stats", h.HandleStats)
		r.Put("/{id}", h.HandleUpdate)
		r.Patch("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// filter turns query parameters into a typed equality filter.
func (h *ResourceHandler[T]) filter(r *http.Request) (repository.Filter, error) {
	kinds := h.svc.Filterable()
	var f repository.Filter
	for key, values := range r.URL.Query() {
		if reserved[key] || len(values) == 0 {
			continue
		}
		kind, ok := kinds[key]
		if !ok {
			return nil, apperror.ValidationFailed(key, "cannot filter "+h.svc.Name()+" by "+key)
		}

		raw := values[0]
		var v any
		switch kind {
		case service.FilterBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, apperror.ValidationFailed(key, key+" must be true or false")
			}
			v = b
		case service.FilterInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, apperror.ValidationFailed(key, key+" must be an integer")
			}
			v = n
		default:
			v = raw
		}

		if f == nil {
			f = repository.Filter{}
		}
		f[key] = v
	}
	return f, nil
}

func pageParams(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
