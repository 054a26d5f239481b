package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/botforge/botforge/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("role", validateRole); err != nil {
		panic(fmt.Sprintf("failed to register role validator: %v", err))
	}
	if err := Validate.RegisterValidation("theme", validateTheme); err != nil {
		panic(fmt.Sprintf("failed to register theme validator: %v", err))
	}
	if err := Validate.RegisterValidation("image_size", validateImageSize); err != nil {
		panic(fmt.Sprintf("failed to register image_size validator: %v", err))
	}
}

// validateRole validates that a string is a valid Role enum value
func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

// validateTheme validates that a string is a valid Theme enum value
func validateTheme(fl validator.FieldLevel) bool {
	switch models.Theme(fl.Field().String()) {
	case models.ThemeSystem, models.ThemeLight, models.ThemeDark:
		return true
	default:
		return false
	}
}

// validateImageSize validates that a string is a supported image dimension
func validateImageSize(fl validator.FieldLevel) bool {
	return ValidateImageSize(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateRole validates a Role string value
func ValidateRole(value string) error {
	if _, err := models.ParseRole(value); err != nil {
		return fmt.Errorf("invalid role: %s (must be 'user', 'bot', or 'system')", value)
	}
	return nil
}

// ValidateTheme validates a Theme string value
func ValidateTheme(value string) error {
	switch models.Theme(value) {
	case models.ThemeSystem, models.ThemeLight, models.ThemeDark:
		return nil
	default:
		return fmt.Errorf("invalid theme: %s (must be 'system', 'light', or 'dark')", value)
	}
}

// ValidateImageSize validates an image dimension string
func ValidateImageSize(value string) error {
	switch value {
	case "256x256", "512x512", "1024x1024":
		return nil
	default:
		return fmt.Errorf("invalid size: %s (must be '256x256', '512x512', or '1024x1024')", value)
	}
}

// ValidatePagination normalizes limit and offset query values
func ValidatePagination(limit, offset int) (int, int, error) {
	if limit < 0 || offset < 0 {
		return 0, 0, fmt.Errorf("limit and offset must be non-negative")
	}
	if limit == 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return limit, offset, nil
}
