package models

import "time"

// Theme selects the client color scheme
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// Preferences are the process-wide settings persisted as key-value pairs.
// LastSuccessfulSync is the directory sync watermark: it only moves forward,
// and only after at least one remote bot has been written locally.
type Preferences struct {
	Theme                      Theme     `json:"theme"`
	UseDynamicColors           bool      `json:"use_dynamic_colors"`
	LastSuccessfulSync         time.Time `json:"last_successful_sync"`
	EnableUserGeneratedContent bool      `json:"enable_user_generated_content"`
	EnableShakeToClear         bool      `json:"enable_shake_to_clear"`
	ShakeToClearSensitivity    float64   `json:"shake_to_clear_sensitivity"`
}

// DefaultPreferences returns the settings used before the user changes
// anything
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                      ThemeSystem,
		UseDynamicColors:           true,
		EnableUserGeneratedContent: false,
		EnableShakeToClear:         false,
		ShakeToClearSensitivity:    2.0,
	}
}
