// Package upload stores media files sent as multipart form parts.
//
// A file is accepted only if its sniffed content type is on the allow-list
// and it fits under the size ceiling. Stored names are
//
//	<unix-nanos>-<ascii slug of the original base name><ext>
//
// so two uploads of "Café Menü.JPG" never collide and never carry
// characters a URL or a shell would trip over. JPEG, PNG and GIF images
// also get a thumbnail under thumbs/.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/mozillazg/go-unidecode"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/content"
	"github.com/sakif/aisolutions-cms/internal/model"
)

const (
	// DefaultMaxSize is the per-file ceiling when none is configured.
	DefaultMaxSize = 50 << 20

	// ThumbnailWidth is the width thumbnails are scaled down to.
	ThumbnailWidth = 400

	// DefaultURLPrefix is where the HTTP layer serves the upload dir.
	DefaultURLPrefix = "/uploads"

	thumbDir = "thumbs"

	// sniffLen is how much of the file the type detector looks at.
	sniffLen = 3072
)

// AllowedTypes is the MIME allow-list.
var AllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/svg+xml",
	"video/mp4",
	"video/mpeg",
	"video/quicktime",
	"video/x-msvideo",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// thumbnailable are the formats imaging can decode and re-encode.
var thumbnailable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// File describes a stored upload. Path and ThumbnailPath are URL paths
// under the store's prefix, ready to put in a response.
type File struct {
	Filename      string `json:"filename"`
	Path          string `json:"path"`
	MimeType      string `json:"mimeType"`
	MediaType     string `json:"mediaType"`
	Size          int64  `json:"size"`
	ThumbnailPath string `json:"thumbnailPath,omitempty"`
}

// Options configures a Store.
type Options struct {
	Dir       string
	URLPrefix string
	MaxSize   int64
	Logger    *slog.Logger
}

// Store writes uploads below one directory.
type Store struct {
	dir     string
	prefix  string
	maxSize int64
	logger  *slog.Logger
	now     func() time.Time
}

// New creates the upload directory (and its thumbs/ subdirectory) if
// needed.
func New(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("upload: directory is required")
	}
	if opts.URLPrefix == "" {
		opts.URLPrefix = DefaultURLPrefix
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(opts.Dir, thumbDir), 0o755); err != nil {
		return nil, fmt.Errorf("upload: creating %s: %w", opts.Dir, err)
	}

	return &Store{
		dir:     opts.Dir,
		prefix:  strings.TrimRight(opts.URLPrefix, "/"),
		maxSize: opts.MaxSize,
		logger:  opts.Logger,
		now:     time.Now,
	}, nil
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string { return s.dir }

// MaxSize returns the per-file ceiling in bytes.
func (s *Store) MaxSize() int64 { return s.maxSize }

// SaveMultipart stores one multipart file part.
func (s *Store) SaveMultipart(fh *multipart.FileHeader) (*File, error) {
	if fh.Size > s.maxSize {
		return nil, apperror.TooLarge(s.maxSize)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("upload: opening %s: %w", fh.Filename, err)
	}
	defer f.Close()

	return s.Save(fh.Filename, f)
}

// SaveImage is SaveMultipart restricted to image types.
func (s *Store) SaveImage(fh *multipart.FileHeader) (*File, error) {
	file, err := s.SaveMultipart(fh)
	if err != nil {
		return nil, err
	}
	if file.MediaType != model.MediaImage {
		s.remove(file)
		return nil, apperror.Unsupported(file.MimeType)
	}
	return file, nil
}

// Save stores the contents of r under a name derived from original.
func (s *Store) Save(original string, r io.Reader) (*File, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("upload: reading %s: %w", original, err)
	}
	head = head[:n]
	if n == 0 {
		return nil, apperror.ValidationFailed("file", "file is empty")
	}

	detected := mimetype.Detect(head)
	mime, ok := allowedType(detected)
	if !ok {
		return nil, apperror.Unsupported(detected.String())
	}

	name := s.storedName(original, mime)
	full := filepath.Join(s.dir, name)

	out, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("upload: creating %s: %w", name, err)
	}

	// one byte over the limit is enough to know it is too big
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxSize+1)
	size, err := io.Copy(out, body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return nil, fmt.Errorf("upload: writing %s: %w", name, err)
	}
	if size > s.maxSize {
		_ = os.Remove(full)
		return nil, apperror.TooLarge(s.maxSize)
	}

	file := &File{
		Filename:  name,
		Path:      s.prefix + "/" + name,
		MimeType:  mime,
		MediaType: mediaType(mime),
		Size:      size,
	}

	if thumbnailable[mime] {
		if err := s.thumbnail(full, name); err != nil {
			// the original is still usable without a thumbnail
			s.logger.Warn("failed to create thumbnail",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
		} else {
			file.ThumbnailPath = s.prefix + "/" + thumbDir + "/" + name
		}
	}

	s.logger.Info("file uploaded",
		slog.String("file", name),
		slog.String("mimeType", mime),
		slog.Int64("size", size),
	)
	return file, nil
}

// Remove deletes a file by the URL path Save returned. Paths outside the
// upload directory are refused; a file that is already gone is not an
// error.
func (s *Store) Remove(urlPath string) error {
	rel, ok := strings.CutPrefix(urlPath, s.prefix+"/")
	if !ok {
		return fmt.Errorf("upload: %q is not an upload path", urlPath)
	}
	rel = path.Clean("/" + rel)[1:]
	if rel == "" || rel == thumbDir {
		return fmt.Errorf("upload: %q is not an upload path", urlPath)
	}

	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("upload: removing %s: %w", rel, err)
	}
	return nil
}

func (s *Store) remove(f *File) {
	for _, p := range []string{f.Path, f.ThumbnailPath} {
		if p != "" {
			_ = s.Remove(p)
		}
	}
}

func (s *Store) thumbnail(src, name string) error {
	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	if img.Bounds().Dx() > ThumbnailWidth {
		img = imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	}
	if err := imaging.Save(img, filepath.Join(s.dir, thumbDir, name)); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	return nil
}

// storedName builds "<unix-nanos>-<slug><ext>". The extension comes from
// the original name when it has one, otherwise from the detected type.
func (s *Store) storedName(original, mime string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if ext == "" || content.Slugify(ext[1:]) != ext[1:] {
		ext = ""
		if m := mimetype.Lookup(mime); m != nil {
			ext = m.Extension()
		}
	}

	slug := content.Slugify(unidecode.Unidecode(stem))
	if len(slug) > 80 {
		slug = strings.TrimRight(slug[:80], "-")
	}
	if slug == "" {
		slug = "file"
	}
	return fmt.Sprintf("%d-%s%s", s.now().UnixNano(), slug, ext)
}

// allowedType maps a detected type onto its allow-list entry, following
// the detector's aliases and parents (a .docx sniffs as a zip subtype).
func allowedType(m *mimetype.MIME) (string, bool) {
	for ; m != nil; m = m.Parent() {
		for _, a := range AllowedTypes {
			if m.Is(a) {
				return a, true
			}
		}
	}
	return "", false
}

func mediaType(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return model.MediaImage
	case strings.HasPrefix(mime, "video/"):
		return model.MediaVideo
	default:
		return model.MediaDocument
	}
}
