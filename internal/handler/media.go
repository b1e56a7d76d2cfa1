package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/service"
	"github.com/sakif/aisolutions-cms/internal/upload"
)

// formMemory is how much of a multipart body is kept in memory before the
// rest spills to temp files.
const formMemory = 8 << 20

// MediaHandler serves the multipart endpoints: gallery uploads and event
// cover images.
type MediaHandler struct {
	files   *upload.Store
	gallery ResourceService[model.GalleryItem]
	events  ResourceService[model.Event]
	logger  *slog.Logger
}

func NewMediaHandler(files *upload.Store, gallery ResourceService[model.GalleryItem], events ResourceService[model.Event], logger *slog.Logger) *MediaHandler {
	return &MediaHandler{files: files, gallery: gallery, events: events, logger: logger}
}

// HandleGalleryCreate stores an uploaded file and creates its gallery item.
//
// HTTP: POST /api/gallery/create   (multipart/form-data, RequireAuth)
// FORM FIELDS: file (required), title, description, category,
// tags (comma-separated), eventId
func (h *MediaHandler) HandleGalleryCreate(w http.ResponseWriter, r *http.Request) {
	fh, err := h.formFile(w, r, "file")
	if err != nil {
		WriteError(w, err)
		return
	}

	stored, err := h.files.SaveMultipart(fh)
	if err != nil {
		WriteError(w, err)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(fh.Filename, extOf(fh.Filename))
	}

	item := &model.GalleryItem{
		Title:         title,
		Description:   r.FormValue("description"),
		Category:      r.FormValue("category"),
		Tags:          splitTags(r.FormValue("tags")),
		EventID:       strings.TrimSpace(r.FormValue("eventId")),
		MediaType:     stored.MediaType,
		Filename:      stored.Filename,
		Path:          stored.Path,
		MimeType:      stored.MimeType,
		Size:          stored.Size,
		ThumbnailPath: stored.ThumbnailPath,
	}

	created, err := h.gallery.Create(r.Context(), item, service.Admin)
	if err != nil {
		h.discard(stored)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleEventImage replaces an event's cover image.
//
// HTTP: POST /api/events/{id}/image   (multipart/form-data, RequireAuth)
// FORM FIELDS: image (required)
func (h *MediaHandler) HandleEventImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prev, err := h.events.Get(r.Context(), id, service.Admin)
	if err != nil {
		WriteError(w, err)
		return
	}

	fh, err := h.formFile(w, r, "image")
	if err != nil {
		WriteError(w, err)
		return
	}
	stored, err := h.files.SaveImage(fh)
	if err != nil {
		WriteError(w, err)
		return
	}
	// events show the full image only
	if stored.ThumbnailPath != "" {
		_ = h.files.Remove(stored.ThumbnailPath)
		stored.ThumbnailPath = ""
	}

	raw, _ := json.Marshal(stored.Path)
	updated, err := h.events.Update(r.Context(), id, model.Patch{"imageUrl": raw})
	if err != nil {
		h.discard(stored)
		WriteError(w, err)
		return
	}

	// the old image only goes once the new one is saved
	if prev.ImageURL != "" && prev.ImageURL != stored.Path {
		if err := h.files.Remove(prev.ImageURL); err != nil {
			h.logger.Debug("previous event image not removed",
				slog.String("eventID", id),
				slog.String("error", err.Error()),
			)
		}
	}
	writeJSON(w, http.StatusOK, updated)
}

// formFile parses the multipart body and returns the named file part.
func (h *MediaHandler) formFile(w http.ResponseWriter, r *http.Request, field string) (*multipart.FileHeader, error) {
	// leave room for the other form fields around the file
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxSize()+formMemory)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, apperror.TooLarge(h.files.MaxSize())
		}
		return nil, apperror.ValidationFailed("body", "request must be multipart/form-data")
	}

	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, apperror.ValidationFailed(field, field+" is required")
	}
	return files[0], nil
}

// discard removes a stored upload whose record could not be written.
func (h *MediaHandler) discard(f *upload.File) {
	for _, p := range []string{f.Path, f.ThumbnailPath} {
		if p == "" {
			continue
		}
		if err := h.files.Remove(p); err != nil {
			h.logger.Warn("failed to remove orphaned upload",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
	}
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}
