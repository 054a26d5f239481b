package validation

import "testing"

func TestValidateRole(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"user", "bot", "system"} {
		if err := ValidateRole(valid); err != nil {
			t.Errorf("ValidateRole(%q) = %v, want nil", valid, err)
		}
	}
	for _, invalid := range []string{"", "assistant", "USER", "admin"} {
		if err := ValidateRole(invalid); err == nil {
			t.Errorf("ValidateRole(%q) should fail", invalid)
		}
	}
}

func TestValidateTheme(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"system", "light", "dark"} {
		if err := ValidateTheme(valid); err != nil {
			t.Errorf("ValidateTheme(%q) = %v, want nil", valid, err)
		}
	}
	if err := ValidateTheme("sepia"); err == nil {
		t.Error("ValidateTheme(sepia) should fail")
	}
}

func TestValidateImageSize(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"256x256", "512x512", "1024x1024"} {
		if err := ValidateImageSize(valid); err != nil {
			t.Errorf("ValidateImageSize(%q) = %v, want nil", valid, err)
		}
	}
	for _, invalid := range []string{"", "128x128", "1024", "256X256"} {
		if err := ValidateImageSize(invalid); err == nil {
			t.Errorf("ValidateImageSize(%q) should fail", invalid)
		}
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset, err := ValidatePagination(0, 0)
	if err != nil || limit != 50 || offset != 0 {
		t.Errorf("defaults = (%d, %d, %v), want (50, 0, nil)", limit, offset, err)
	}

	limit, _, err = ValidatePagination(500, 0)
	if err != nil || limit != 200 {
		t.Errorf("oversized limit = %d, want capped at 200", limit)
	}

	if _, _, err := ValidatePagination(-1, 0); err == nil {
		t.Error("negative limit should fail")
	}
	if _, _, err := ValidatePagination(10, -5); err == nil {
		t.Error("negative offset should fail")
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	got := SanitizeText("  hello\x00 world\n  ")
	if got != "hello world" {
		t.Errorf("SanitizeText = %q, want %q", got, "hello world")
	}
}
