package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
	"github.com/atinyakov/ukarch-cms/internal/models"
)

// SettingsRepository persists the single settings row.
type SettingsRepository interface {
	// GetAll returns stored column values keyed by column name. Missing row
	// yields an empty map.
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, field models.SettingField, value string) error
	SetMany(ctx context.Context, values map[models.SettingField]string) error
	// EnsureDefaults inserts the row with defaults when it does not exist.
	EnsureDefaults(ctx context.Context, defaults map[models.SettingField]string) (bool, error)
}

// Uploader stores a media file.
type Uploader interface {
	Upload(ctx context.Context, up models.Upload) (*models.UploadedMedia, error)
}

// SettingsService reads and writes site settings.
type SettingsService struct {
	repo     SettingsRepository
	uploader Uploader
	log      *zap.Logger
}

func NewSettingsService(repo SettingsRepository, uploader Uploader, log *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, uploader: uploader, log: log}
}

// GetAll returns every known field. Fields never written read as "".
func (s *SettingsService) GetAll(ctx context.Context) (map[string]string, error) {
	raw, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(models.AllSettingFields()))
	for _, f := range models.AllSettingFields() {
		out[string(f)] = raw[string(f)]
	}
	return out, nil
}

// Set writes one field.
func (s *SettingsService) Set(ctx context.Context, name, value string) error {
	f, ok := models.ParseSettingField(name)
	if !ok {
		return apperr.ErrUnknownField
	}
	return s.repo.Set(ctx, f, value)
}

// SetMany writes several fields atomically. Any unknown name rejects the whole batch.
func (s *SettingsService) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return apperr.ErrBadRequest
	}
	fields := make(map[models.SettingField]string, len(values))
	for name, v := range values {
		f, ok := models.ParseSettingField(name)
		if !ok {
			return apperr.ErrUnknownField
		}
		fields[f] = v
	}
	return s.repo.SetMany(ctx, fields)
}

// Clear resets a field to "".
func (s *SettingsService) Clear(ctx context.Context, name string) error {
	return s.Set(ctx, name, "")
}

// ReplaceMedia uploads a file for a media field (logo_url, favicon_url) and
// stores the resulting URL in it. The field is untouched when the upload fails.
func (s *SettingsService) ReplaceMedia(ctx context.Context, name string, up models.Upload) (*models.UploadedMedia, error) {
	f, ok := models.ParseSettingField(name)
	if !ok || !f.IsMedia() {
		return nil, apperr.ErrUnknownField
	}
	up.Kind = f.MediaKind()

	media, err := s.uploader.Upload(ctx, up)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Set(ctx, f, media.URL); err != nil {
		return nil, err
	}
	s.log.Info("setting media replaced", zap.String("field", string(f)), zap.String("key", media.Key))
	return media, nil
}

// EnsureDefaults seeds the settings row on first boot.
func (s *SettingsService) EnsureDefaults(ctx context.Context) error {
	created, err := s.repo.EnsureDefaults(ctx, models.DefaultSettings)
	if err != nil {
		return err
	}
	if created {
		s.log.Info("default settings created")
	}
	return nil
}
