package company

import "context"

type SettingsService interface {
	GetSettings(ctx context.Context) (SettingsResponse, error)
	UpdateSettings(ctx context.Context, patch SettingsPatch) (SettingsResponse, error)
}
