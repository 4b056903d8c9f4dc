package models

// MediaKind selects the validation and transformation rules of an upload.
type MediaKind string

const (
	MediaImage   MediaKind = "image"
	MediaVideo   MediaKind = "video"
	MediaFavicon MediaKind = "favicon"
)

// ParseMediaKind maps a form value to a kind; empty means image.
func ParseMediaKind(s string) (MediaKind, bool) {
	switch MediaKind(s) {
	case "", MediaImage:
		return MediaImage, true
	case MediaVideo:
		return MediaVideo, true
	case MediaFavicon:
		return MediaFavicon, true
	}
	return "", false
}

// Upload is an untrusted client file.
type Upload struct {
	Data        []byte
	Filename    string
	Size        int64
	ContentType string
	Kind        MediaKind
}

// Transform is the server-side processing requested from the remote store.
// Zero MaxDimension means no resize.
type Transform struct {
	MaxDimension int
	Crop         string
	Quality      string
}

// UploadedMedia is the immutable result of a stored upload.
type UploadedMedia struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	Kind        MediaKind `json:"kind"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
}
