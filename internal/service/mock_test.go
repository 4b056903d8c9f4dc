package service

import (
	"context"
	"sync"
	"time"

	"github.com/atinyakov/ukarch-cms/internal/models"
	"github.com/atinyakov/ukarch-cms/internal/repository"
	"github.com/atinyakov/ukarch-cms/internal/storage"
)

// mockUserRepo answers ErrNotFound / zero values for any func left nil.
type mockUserRepo struct {
	FindByLoginFunc           func(ctx context.Context, identifier string) (*models.User, error)
	FindByIDFunc              func(ctx context.Context, id int64) (*models.User, error)
	FindByEmailFunc           func(ctx context.Context, email string) (*models.User, error)
	FindByResetTokenFunc      func(ctx context.Context, token string) (*models.User, error)
	CountFunc                 func(ctx context.Context) (int, error)
	CreateFunc                func(ctx context.Context, u *models.User) (int64, error)
	TouchLastLoginFunc        func(ctx context.Context, id int64) error
	UpdatePasswordFunc        func(ctx context.Context, id int64, hash string) error
	SetPasswordByUsernameFunc func(ctx context.Context, username, hash string) error
	SetResetTokenFunc         func(ctx context.Context, id int64, token string, expires time.Time) error
	ClearResetTokenFunc       func(ctx context.Context, id int64, token string) error
	ConsumeResetTokenFunc     func(ctx context.Context, id int64, token, hash string) (bool, error)
	IsUsernameTakenFunc       func(ctx context.Context, username string, excludeID int64) (bool, error)
	IsEmailTakenFunc          func(ctx context.Context, email string, excludeID int64) (bool, error)
	UpdateProfileFunc         func(ctx context.Context, id int64, username, email string) error
}

func (m *mockUserRepo) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	if m.FindByLoginFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.FindByLoginFunc(ctx, identifier)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if m.FindByIDFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.FindByIDFunc(ctx, id)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.FindByEmailFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.FindByEmailFunc(ctx, email)
}

func (m *mockUserRepo) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	if m.FindByResetTokenFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.FindByResetTokenFunc(ctx, token)
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	if m.CountFunc == nil {
		return 0, nil
	}
	return m.CountFunc(ctx)
}

func (m *mockUserRepo) Create(ctx context.Context, u *models.User) (int64, error) {
	if m.CreateFunc == nil {
		return 1, nil
	}
	return m.CreateFunc(ctx, u)
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	if m.TouchLastLoginFunc == nil {
		return nil
	}
	return m.TouchLastLoginFunc(ctx, id)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	if m.UpdatePasswordFunc == nil {
		return nil
	}
	return m.UpdatePasswordFunc(ctx, id, hash)
}

func (m *mockUserRepo) SetPasswordByUsername(ctx context.Context, username, hash string) error {
	if m.SetPasswordByUsernameFunc == nil {
		return nil
	}
	return m.SetPasswordByUsernameFunc(ctx, username, hash)
}

func (m *mockUserRepo) SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error {
	if m.SetResetTokenFunc == nil {
		return nil
	}
	return m.SetResetTokenFunc(ctx, id, token, expires)
}

func (m *mockUserRepo) ClearResetToken(ctx context.Context, id int64, token string) error {
	if m.ClearResetTokenFunc == nil {
		return nil
	}
	return m.ClearResetTokenFunc(ctx, id, token)
}

func (m *mockUserRepo) ConsumeResetToken(ctx context.Context, id int64, token, hash string) (bool, error) {
	if m.ConsumeResetTokenFunc == nil {
		return true, nil
	}
	return m.ConsumeResetTokenFunc(ctx, id, token, hash)
}

func (m *mockUserRepo) IsUsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	if m.IsUsernameTakenFunc == nil {
		return false, nil
	}
	return m.IsUsernameTakenFunc(ctx, username, excludeID)
}

func (m *mockUserRepo) IsEmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	if m.IsEmailTakenFunc == nil {
		return false, nil
	}
	return m.IsEmailTakenFunc(ctx, email, excludeID)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id int64, username, email string) error {
	if m.UpdateProfileFunc == nil {
		return nil
	}
	return m.UpdateProfileFunc(ctx, id, username, email)
}

type mockSessionRepo struct {
	CreateFunc func(ctx context.Context, s *models.Session) error
	GetFunc    func(ctx context.Context, id string, now time.Time) (*models.Session, error)
	DeleteFunc func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, s *models.Session) error {
	if m.CreateFunc == nil {
		return nil
	}
	return m.CreateFunc(ctx, s)
}

func (m *mockSessionRepo) Get(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	if m.GetFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.GetFunc(ctx, id, now)
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, id)
}

type mockSettingsRepo struct {
	GetAllFunc         func(ctx context.Context) (map[string]string, error)
	SetFunc            func(ctx context.Context, field models.SettingField, value string) error
	SetManyFunc        func(ctx context.Context, values map[models.SettingField]string) error
	EnsureDefaultsFunc func(ctx context.Context, defaults map[models.SettingField]string) (bool, error)
}

func (m *mockSettingsRepo) GetAll(ctx context.Context) (map[string]string, error) {
	return m.GetAllFunc(ctx)
}

func (m *mockSettingsRepo) Set(ctx context.Context, field models.SettingField, value string) error {
	return m.SetFunc(ctx, field, value)
}

func (m *mockSettingsRepo) SetMany(ctx context.Context, values map[models.SettingField]string) error {
	return m.SetManyFunc(ctx, values)
}

func (m *mockSettingsRepo) EnsureDefaults(ctx context.Context, defaults map[models.SettingField]string) (bool, error) {
	return m.EnsureDefaultsFunc(ctx, defaults)
}

type mockUploader struct {
	UploadFunc func(ctx context.Context, up models.Upload) (*models.UploadedMedia, error)
}

func (m *mockUploader) Upload(ctx context.Context, up models.Upload) (*models.UploadedMedia, error) {
	return m.UploadFunc(ctx, up)
}

// fakeStore records every Put.
type fakeStore struct {
	mu      sync.Mutex
	calls   []storage.Object
	PutFunc func(ctx context.Context, obj storage.Object) (string, error)
}

func (f *fakeStore) Put(ctx context.Context, obj storage.Object) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, obj)
	f.mu.Unlock()
	if f.PutFunc != nil {
		return f.PutFunc(ctx, obj)
	}
	return "https://cdn.example.com/" + obj.Key, nil
}

func (f *fakeStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type mockSigner struct {
	SignFunc  func(sessionID string, issuedAt, expiresAt time.Time) (string, error)
	ParseFunc func(value string) (string, error)
}

func (m *mockSigner) Sign(sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	if m.SignFunc == nil {
		return "signed." + sessionID, nil
	}
	return m.SignFunc(sessionID, issuedAt, expiresAt)
}

func (m *mockSigner) Parse(value string) (string, error) {
	if m.ParseFunc == nil {
		if len(value) > len("signed.") && value[:len("signed.")] == "signed." {
			return value[len("signed."):], nil
		}
		return "", errBadToken
	}
	return m.ParseFunc(value)
}

type mockMailer struct {
	SendFunc func(ctx context.Context, to, link string) error
}

func (m *mockMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	if m.SendFunc == nil {
		return nil
	}
	return m.SendFunc(ctx, to, link)
}
