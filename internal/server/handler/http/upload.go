package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
	"github.com/atinyakov/ukarch-cms/internal/models"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file ceiling.
const multipartOverhead = 1 << 20

// multipartMemory is held in memory before parts spill to temp files.
const multipartMemory = 8 << 20

// MediaService stores validated uploads.
type MediaService interface {
	Upload(ctx context.Context, up models.Upload) (*models.UploadedMedia, error)
}

// UploadHandler serves the media upload endpoints.
type UploadHandler struct {
	Media         MediaService
	MaxImageBytes int64
	MaxVideoBytes int64
	Log           *zap.Logger
}

// UploadImage handles POST /api/upload-image. The optional form value
// kind=favicon selects favicon processing.
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "image", h.MaxImageBytes)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	kind, ok := models.ParseMediaKind(r.FormValue("kind"))
	if !ok || kind == models.MediaVideo {
		writeError(w, h.Log, apperr.ErrUnsupportedType)
		return
	}
	up.Kind = kind
	h.store(w, r, up)
}

// UploadVideo handles POST /api/upload-video.
func (h *UploadHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "video", h.MaxVideoBytes)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	up.Kind = models.MediaVideo
	h.store(w, r, up)
}

func (h *UploadHandler) store(w http.ResponseWriter, r *http.Request, up models.Upload) {
	media, err := h.Media.Upload(r.Context(), up)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, media)
}

// readUpload reads the multipart file in field. Bodies larger than limit
// are cut off while reading and reported as ErrFileTooLarge; the exact
// ceiling is enforced again by the media service.
func readUpload(w http.ResponseWriter, r *http.Request, field string, limit int64) (models.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > limit+multipartOverhead {
			return models.Upload{}, apperr.ErrFileTooLarge
		}
		return models.Upload{}, apperr.ErrBadRequest
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(field)
	if err != nil {
		return models.Upload{}, apperr.ErrBadRequest
	}
	defer file.Close()

	if header.Size > limit {
		return models.Upload{}, apperr.ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return models.Upload{}, apperr.ErrBadRequest
	}
	return models.Upload{
		Data:        data,
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}
