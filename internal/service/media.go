package service

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
	"github.com/atinyakov/ukarch-cms/internal/models"
	"github.com/atinyakov/ukarch-cms/internal/storage"
)

const cacheControlImmutable = "public, max-age=31536000, immutable"

// ObjectStore is the remote blob store.
type ObjectStore interface {
	Put(ctx context.Context, obj storage.Object) (string, error)
}

// MediaLimits are per-kind size ceilings in bytes.
type MediaLimits struct {
	Image int64
	Video int64
}

func (l MediaLimits) forKind(k models.MediaKind) int64 {
	if k == models.MediaVideo {
		return l.Video
	}
	return l.Image
}

type mediaRule struct {
	// exts maps a lower-case extension to the canonical content type.
	exts map[string]string
	// types maps an accepted content type to the extension used in keys.
	types     map[string]string
	transform models.Transform
}

var imageTypes = map[string]string{
	"image/jpeg":               ".jpg",
	"image/jpg":                ".jpg",
	"image/png":                ".png",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/svg+xml":            ".svg",
	"image/x-icon":             ".ico",
	"image/vnd.microsoft.icon": ".ico",
}

var imageExts = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

var mediaRules = map[models.MediaKind]mediaRule{
	models.MediaImage: {
		exts:      imageExts,
		types:     imageTypes,
		transform: models.Transform{MaxDimension: 2000, Crop: "limit", Quality: "auto:good"},
	},
	models.MediaFavicon: {
		exts:      imageExts,
		types:     imageTypes,
		transform: models.Transform{MaxDimension: 256, Crop: "limit", Quality: "auto"},
	},
	models.MediaVideo: {
		exts: map[string]string{
			".mp4":  "video/mp4",
			".mov":  "video/quicktime",
			".avi":  "video/x-msvideo",
			".webm": "video/webm",
		},
		types: map[string]string{
			"video/mp4":       ".mp4",
			"video/quicktime": ".mov",
			"video/x-msvideo": ".avi",
			"video/avi":       ".avi",
			"video/webm":      ".webm",
		},
	},
}

// TransformSpec renders t in the c_<crop>,w_<px>,q_<quality> notation the
// bucket pipeline understands. A zero Transform renders as "".
func TransformSpec(t models.Transform) string {
	var parts []string
	if t.Crop != "" {
		parts = append(parts, "c_"+t.Crop)
	}
	if t.MaxDimension > 0 {
		parts = append(parts, "w_"+strconv.Itoa(t.MaxDimension))
	}
	if t.Quality != "" {
		parts = append(parts, "q_"+t.Quality)
	}
	return strings.Join(parts, ",")
}

// MediaService validates uploads and pushes them to the object store.
type MediaService struct {
	store   ObjectStore
	limits  MediaLimits
	timeout time.Duration
	folder  string
	now     func() time.Time
	log     *zap.Logger
}

func NewMediaService(store ObjectStore, limits MediaLimits, timeout time.Duration, folder string, log *zap.Logger) *MediaService {
	return &MediaService{
		store:   store,
		limits:  limits,
		timeout: timeout,
		folder:  folder,
		now:     time.Now,
		log:     log,
	}
}

// Upload validates up against its kind's rules and stores it. Nothing is sent
// to the store when validation fails.
func (s *MediaService) Upload(ctx context.Context, up models.Upload) (*models.UploadedMedia, error) {
	kind, ok := models.ParseMediaKind(string(up.Kind))
	if !ok {
		return nil, apperr.ErrUnsupportedType
	}
	rule := mediaRules[kind]

	size := up.Size
	if n := int64(len(up.Data)); n > size {
		size = n
	}
	if size > s.limits.forKind(kind) {
		return nil, apperr.ErrFileTooLarge
	}
	if len(up.Data) == 0 {
		return nil, apperr.ErrBadRequest
	}

	ext, contentType, ok := classify(rule, up.Filename, up.ContentType)
	if !ok {
		return nil, apperr.ErrUnsupportedType
	}

	obj := storage.Object{
		Key:          storage.RandomKey(s.folder, string(kind), ext, s.now().UTC()),
		Data:         up.Data,
		ContentType:  contentType,
		CacheControl: cacheControlImmutable,
		Metadata:     map[string]string{"kind": string(kind)},
	}
	if spec := TransformSpec(rule.transform); spec != "" {
		obj.Metadata["transform"] = spec
	}

	putCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url, err := s.store.Put(putCtx, obj)
	if err != nil {
		s.log.Error("media upload failed", zap.String("key", obj.Key), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	s.log.Info("media uploaded", zap.String("key", obj.Key), zap.String("kind", string(kind)), zap.Int64("size", size))
	return &models.UploadedMedia{
		URL:         url,
		Key:         obj.Key,
		Kind:        kind,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// classify accepts a file when either its extension or its declared content
// type is on the kind's allow-list.
func classify(rule mediaRule, filename, declared string) (ext, contentType string, ok bool) {
	declared = normalizeType(declared)
	ext = strings.ToLower(filepath.Ext(filename))

	if ct, known := rule.exts[ext]; known {
		if _, typed := rule.types[declared]; typed {
			ct = declared
		}
		return ext, ct, true
	}
	if e, known := rule.types[declared]; known {
		return e, declared, true
	}
	return "", "", false
}

func normalizeType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}
