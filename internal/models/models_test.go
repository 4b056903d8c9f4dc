package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSettingField(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"site_title", true},
		{"favicon_url", true},
		{"custom_body_code", true},
		{"password_hash", false},
		{"site_title; DROP TABLE users", false},
		{"", false},
		{"SITE_TITLE", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseSettingField(tt.name)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestAllSettingFields_Unique(t *testing.T) {
	seen := map[SettingField]bool{}
	for _, f := range AllSettingFields() {
		assert.False(t, seen[f], "duplicate field %s", f)
		seen[f] = true
	}
	for f := range DefaultSettings {
		assert.True(t, seen[f], "default for unknown field %s", f)
	}
}

func TestMediaFields(t *testing.T) {
	assert.True(t, SettingFaviconURL.IsMedia())
	assert.True(t, SettingLogoURL.IsMedia())
	assert.False(t, SettingSiteTitle.IsMedia())
	assert.Equal(t, MediaFavicon, SettingFaviconURL.MediaKind())
	assert.Equal(t, MediaImage, SettingLogoURL.MediaKind())
}

func TestParseMediaKind(t *testing.T) {
	k, ok := ParseMediaKind("")
	assert.True(t, ok)
	assert.Equal(t, MediaImage, k)

	k, ok = ParseMediaKind("favicon")
	assert.True(t, ok)
	assert.Equal(t, MediaFavicon, k)

	_, ok = ParseMediaKind("pdf")
	assert.False(t, ok)
}

func TestUserPublic(t *testing.T) {
	u := &User{ID: 7, Username: "admin", Email: "a@x.com", PasswordHash: "hash", Role: RoleAdmin}
	assert.Equal(t, PublicUser{ID: 7, Username: "admin", Email: "a@x.com", Role: RoleAdmin}, u.Public())
}
