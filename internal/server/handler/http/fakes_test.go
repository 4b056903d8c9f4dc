package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/auth"
	"github.com/atinyakov/ukarch-cms/internal/models"
	"github.com/atinyakov/ukarch-cms/internal/service"
)

var testPrincipal = &models.Principal{
	SessionID: "live",
	User:      models.PublicUser{ID: 1, Username: "admin", Email: "admin@example.com", Role: models.RoleAdmin},
}

// fakeAuthService implements AuthService for testing. The cookie value
// "live" resolves to testPrincipal.
type fakeAuthService struct {
	loginErr   error
	logoutErr  error
	checkErr   error
	changeErr  error
	profileErr error

	lastPassword [2]string
	loggedOut    []string
}

func (f *fakeAuthService) Login(ctx context.Context, identifier, password string) (*service.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &service.LoginResult{Token: "live", ExpiresAt: time.Now().Add(24 * time.Hour), User: testPrincipal.User}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return f.logoutErr
}

func (f *fakeAuthService) Check(ctx context.Context, token string) (*models.Principal, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	if token == "live" {
		return testPrincipal, nil
	}
	return nil, nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	f.lastPassword = [2]string{current, next}
	return f.changeErr
}

func (f *fakeAuthService) ChangeProfile(ctx context.Context, userID int64, username, email string) (*models.PublicUser, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &models.PublicUser{ID: userID, Username: username, Email: email, Role: models.RoleAdmin}, nil
}

type fakeResetService struct {
	requestErr error
	resetErr   error
	requested  []string
}

func (f *fakeResetService) RequestReset(ctx context.Context, email string) error {
	f.requested = append(f.requested, email)
	return f.requestErr
}

func (f *fakeResetService) ResetPassword(ctx context.Context, token, password string) error {
	return f.resetErr
}

type fakeSettingsService struct {
	values   map[string]string
	setErr   error
	mediaErr error
	uploads  []models.Upload
}

func (f *fakeSettingsService) GetAll(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSettingsService) Set(ctx context.Context, name, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.values[name] = value
	return nil
}

func (f *fakeSettingsService) SetMany(ctx context.Context, values map[string]string) error {
	if f.setErr != nil {
		return f.setErr
	}
	for k, v := range values {
		f.values[k] = v
	}
	return nil
}

func (f *fakeSettingsService) Clear(ctx context.Context, name string) error {
	return f.Set(ctx, name, "")
}

func (f *fakeSettingsService) ReplaceMedia(ctx context.Context, name string, up models.Upload) (*models.UploadedMedia, error) {
	f.uploads = append(f.uploads, up)
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	url := "https://cdn.example.com/" + up.Filename
	f.values[name] = url
	return &models.UploadedMedia{URL: url, Key: up.Filename, Size: int64(len(up.Data))}, nil
}

type fakeMediaService struct {
	err     error
	uploads []models.Upload
}

func (f *fakeMediaService) Upload(ctx context.Context, up models.Upload) (*models.UploadedMedia, error) {
	f.uploads = append(f.uploads, up)
	if f.err != nil {
		return nil, f.err
	}
	return &models.UploadedMedia{URL: "https://cdn.example.com/x", Key: "x", Kind: up.Kind, Size: int64(len(up.Data)), ContentType: up.ContentType}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

type testAPI struct {
	auth     *fakeAuthService
	reset    *fakeResetService
	settings *fakeSettingsService
	media    *fakeMediaService
	handler  http.Handler
}

const (
	testImageLimit = 1024
	testVideoLimit = 2048
)

func newTestAPI() *testAPI {
	api := &testAPI{
		auth:     &fakeAuthService{},
		reset:    &fakeResetService{},
		settings: &fakeSettingsService{values: map[string]string{"site_title": "UK Architects"}},
		media:    &fakeMediaService{},
	}
	log := zap.NewNop()
	api.handler = NewRouter(Handlers{
		Auth:     &AuthHandler{Auth: api.auth, Reset: api.reset, Cookies: CookieConfig{Secure: true, MaxAge: 24 * time.Hour}, Log: log},
		Settings: &SettingsHandler{Settings: api.settings, MaxUploadBytes: testImageLimit, Log: log},
		Upload:   &UploadHandler{Media: api.media, MaxImageBytes: testImageLimit, MaxVideoBytes: testVideoLimit, Log: log},
		Health:   &HealthHandler{DB: fakePinger{}, Version: "test", Log: log},
	}, RouterOptions{
		Sessions:       api.auth,
		AllowedOrigins: []string{"https://ukarchitects.com"},
	}, log)
	return api
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	session     string
}

func (api *testAPI) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(req.method, req.path, bytes.NewReader(req.body))
	if req.contentType != "" {
		r.Header.Set("Content-Type", req.contentType)
	}
	if req.session != "" {
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: req.session})
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, r)
	return rec
}

func jsonRequest(method, path, body, session string) request {
	return request{method: method, path: path, body: []byte(body), contentType: "application/json", session: session}
}

// multipartBody builds a form with one file part and optional extra fields.
func multipartBody(t *testing.T, field, filename, contentType string, data []byte, extra map[string]string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body), rec.Body.String())
	return body
}
