package models

// SettingField is a recognized settings column. The set is closed: request
// input reaches SQL only after ParseSettingField accepts it.
type SettingField string

const (
	SettingSiteTitle       SettingField = "site_title"
	SettingSiteDescription SettingField = "site_description"
	SettingSiteKeywords    SettingField = "site_keywords"

	SettingSitePhone     SettingField = "site_phone"
	SettingSiteEmail     SettingField = "site_email"
	SettingAddress       SettingField = "address"
	SettingWorkingHours  SettingField = "working_hours"
	SettingWhatsAppPhone SettingField = "whatsapp_phone"

	SettingInstagramURL SettingField = "instagram_url"
	SettingFacebookURL  SettingField = "facebook_url"
	SettingLinkedInURL  SettingField = "linkedin_url"
	SettingYouTubeURL   SettingField = "youtube_url"
	SettingTelegramURL  SettingField = "telegram_url"
	SettingVKURL        SettingField = "vk_url"
	SettingWhatsAppURL  SettingField = "whatsapp_url"
	SettingWebsiteURL   SettingField = "website_url"

	SettingGoogleAnalyticsID  SettingField = "google_analytics_id"
	SettingGoogleTagManagerID SettingField = "google_tag_manager_id"
	SettingYandexMetrikaID    SettingField = "yandex_metrika_id"
	SettingFacebookPixelID    SettingField = "facebook_pixel_id"
	SettingVKPixelID          SettingField = "vk_pixel_id"

	SettingCustomHeadCode SettingField = "custom_head_code"
	SettingCustomBodyCode SettingField = "custom_body_code"

	SettingFaviconURL SettingField = "favicon_url"
	SettingLogoURL    SettingField = "logo_url"

	SettingPrivacyPolicy  SettingField = "privacy_policy"
	SettingTermsOfService SettingField = "terms_of_service"
	SettingAboutCompany   SettingField = "about_company"
)

// BaseSettingFields are the columns of the first single-row settings schema.
var BaseSettingFields = []SettingField{
	SettingSiteTitle, SettingSiteDescription, SettingSiteKeywords,
	SettingSitePhone, SettingSiteEmail, SettingAddress, SettingWorkingHours,
	SettingInstagramURL, SettingFacebookURL, SettingWhatsAppURL, SettingTelegramURL,
	SettingYouTubeURL, SettingVKURL, SettingLinkedInURL,
	SettingGoogleAnalyticsID, SettingYandexMetrikaID,
	SettingPrivacyPolicy, SettingTermsOfService, SettingAboutCompany,
}

// ExtendedSettingFields were added after the first release.
var ExtendedSettingFields = []SettingField{
	SettingWhatsAppPhone, SettingWebsiteURL,
	SettingGoogleTagManagerID, SettingFacebookPixelID, SettingVKPixelID,
	SettingCustomHeadCode, SettingCustomBodyCode,
	SettingFaviconURL, SettingLogoURL,
}

var settingFieldSet = func() map[SettingField]struct{} {
	m := make(map[SettingField]struct{}, len(BaseSettingFields)+len(ExtendedSettingFields))
	for _, f := range AllSettingFields() {
		m[f] = struct{}{}
	}
	return m
}()

// AllSettingFields returns every recognized field in schema order.
func AllSettingFields() []SettingField {
	all := make([]SettingField, 0, len(BaseSettingFields)+len(ExtendedSettingFields))
	all = append(all, BaseSettingFields...)
	return append(all, ExtendedSettingFields...)
}

// ParseSettingField validates name against the recognized set.
func ParseSettingField(name string) (SettingField, bool) {
	f := SettingField(name)
	_, ok := settingFieldSet[f]
	return f, ok
}

// IsMedia reports whether the field stores an uploaded media URL.
func (f SettingField) IsMedia() bool {
	return f == SettingFaviconURL || f == SettingLogoURL
}

// MediaKind is the kind of upload a media field expects.
func (f SettingField) MediaKind() MediaKind {
	if f == SettingFaviconURL {
		return MediaFavicon
	}
	return MediaImage
}

// DefaultSettings is the placeholder business info written on first boot.
var DefaultSettings = map[SettingField]string{
	SettingSiteTitle:       "UK Architects",
	SettingSiteDescription: "Архитектурное бюро полного цикла",
	SettingSitePhone:       "+996 779 777 666",
	SettingSiteEmail:       "info@ukglobal.com",
	SettingAddress:         "Ch.Aitmatova street 243",
	SettingWorkingHours:    "Пн–Пт: 9:00–19:00",
}
