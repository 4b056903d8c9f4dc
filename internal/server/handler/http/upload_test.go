package http

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
	"github.com/atinyakov/ukarch-cms/internal/models"
)

func TestUploadHandler_UploadImage(t *testing.T) {
	tests := []struct {
		name         string
		field        string
		size         int
		extra        map[string]string
		session      string
		serviceErr   error
		expectedCode int
		expectedErr  string
		expectedKind models.MediaKind
	}{
		{name: "requires session", field: "image", size: 10, expectedCode: http.StatusUnauthorized, expectedErr: "unauthorized"},
		{name: "missing file", field: "photo", size: 10, session: "live", expectedCode: http.StatusBadRequest, expectedErr: "bad_request"},
		{name: "at ceiling", field: "image", size: testImageLimit, session: "live", expectedCode: http.StatusOK, expectedKind: models.MediaImage},
		{name: "over ceiling", field: "image", size: testImageLimit + 1, session: "live", expectedCode: http.StatusBadRequest, expectedErr: "file_too_large"},
		{name: "favicon", field: "image", size: 10, extra: map[string]string{"kind": "favicon"}, session: "live", expectedCode: http.StatusOK, expectedKind: models.MediaFavicon},
		{name: "video kind rejected", field: "image", size: 10, extra: map[string]string{"kind": "video"}, session: "live", expectedCode: http.StatusBadRequest, expectedErr: "unsupported_type"},
		{name: "unsupported type", field: "image", size: 10, session: "live", serviceErr: apperr.ErrUnsupportedType, expectedCode: http.StatusBadRequest, expectedErr: "unsupported_type"},
		{name: "store failure", field: "image", size: 10, session: "live", serviceErr: apperr.ErrStorage, expectedCode: http.StatusInternalServerError, expectedErr: "storage_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI()
			api.media.err = tt.serviceErr

			body, ct := multipartBody(t, tt.field, "photo.png", "image/png", bytes.Repeat([]byte{1}, tt.size), tt.extra)
			rec := api.do(t, request{method: http.MethodPost, path: "/api/upload-image", body: body, contentType: ct, session: tt.session})
			require.Equal(t, tt.expectedCode, rec.Code, rec.Body.String())

			resp := decodeBody(t, rec)
			if tt.expectedErr != "" {
				assert.Equal(t, tt.expectedErr, resp["code"])
				return
			}
			require.Len(t, api.media.uploads, 1)
			up := api.media.uploads[0]
			assert.Equal(t, tt.expectedKind, up.Kind)
			assert.Equal(t, "photo.png", up.Filename)
			assert.Len(t, up.Data, tt.size)
			assert.Equal(t, "https://cdn.example.com/x", resp["url"])
		})
	}
}

func TestUploadHandler_OverCeilingNeverReachesService(t *testing.T) {
	api := newTestAPI()

	body, ct := multipartBody(t, "image", "big.png", "image/png", make([]byte, testImageLimit+1), nil)
	rec := api.do(t, request{method: http.MethodPost, path: "/api/upload-image", body: body, contentType: ct, session: "live"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, api.media.uploads)
}

func TestUploadHandler_BodyFarOverLimit(t *testing.T) {
	api := newTestAPI()

	body, ct := multipartBody(t, "image", "big.png", "image/png", make([]byte, testImageLimit+multipartOverhead+1), nil)
	rec := api.do(t, request{method: http.MethodPost, path: "/api/upload-image", body: body, contentType: ct, session: "live"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file_too_large", decodeBody(t, rec)["code"])
	assert.Empty(t, api.media.uploads)
}

func TestUploadHandler_UploadVideo(t *testing.T) {
	api := newTestAPI()

	body, ct := multipartBody(t, "video", "clip.mp4", "video/mp4", make([]byte, testVideoLimit), nil)
	rec := api.do(t, request{method: http.MethodPost, path: "/api/upload-video", body: body, contentType: ct, session: "live"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, api.media.uploads, 1)
	assert.Equal(t, models.MediaVideo, api.media.uploads[0].Kind)
	assert.Equal(t, "video/mp4", api.media.uploads[0].ContentType)
}

func TestUploadHandler_RejectsJSON(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, jsonRequest(http.MethodPost, "/api/upload-image", `{"image":"x"}`, "live"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
