package model

// Gallery media types.
const (
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaDocument = "document"
)

// GalleryItem is an uploaded media file plus its caption metadata. The
// file fields (Filename through ThumbnailPath) come from the upload store
// and cannot be changed through an update.
type GalleryItem struct {
	Base
	Title         string   `json:"title" validate:"required,min=2,max=200"`
	Description   string   `json:"description,omitempty" validate:"max=1000"`
	Category      string   `json:"category,omitempty" validate:"max=50"`
	MediaType     string   `json:"mediaType" validate:"required,oneof=image video document"`
	Filename      string   `json:"filename" validate:"required"`
	Path          string   `json:"path" validate:"required"`
	MimeType      string   `json:"mimeType" validate:"required"`
	Size          int64    `json:"size" validate:"min=0"`
	ThumbnailPath string   `json:"thumbnailPath,omitempty"`
	Tags          []string `json:"tags,omitempty" validate:"max=20,dive,max=30"`
	EventID       string   `json:"eventId,omitempty"`
}
