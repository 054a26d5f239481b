package handlers

import (
	"net/http"
	"testing"

	"github.com/gorilla/mux"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/models"
)

func preferenceRouter(t *testing.T, db *database.DB) *mux.Router {
	t.Helper()

	h := NewPreferenceHandler(database.NewPreferenceStore(db))
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/preferences").Subrouter())
	return r
}

func TestGetPreferencesDefaults(t *testing.T) {
	t.Parallel()

	r := preferenceRouter(t, newTestDB(t))

	rec := doJSON(t, r, http.MethodGet, "/preferences", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var prefs models.Preferences
	decodeData(t, rec, &prefs)
	if prefs.Theme != models.ThemeSystem {
		t.Errorf("expected system theme default, got %s", prefs.Theme)
	}
	if prefs.EnableUserGeneratedContent {
		t.Error("UGC must default to off")
	}
}

func TestUpdatePreferences(t *testing.T) {
	t.Parallel()

	r := preferenceRouter(t, newTestDB(t))

	rec := doJSON(t, r, http.MethodPatch, "/preferences", map[string]any{
		"theme":                         "dark",
		"enable_user_generated_content": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var prefs models.Preferences
	decodeData(t, rec, &prefs)
	if prefs.Theme != models.ThemeDark {
		t.Errorf("expected dark theme, got %s", prefs.Theme)
	}
	if !prefs.EnableUserGeneratedContent {
		t.Error("expected UGC enabled")
	}
	// untouched fields keep their defaults
	if !prefs.UseDynamicColors {
		t.Error("dynamic colors default should survive a partial update")
	}
}

func TestUpdatePreferencesRejectsBadValues(t *testing.T) {
	t.Parallel()

	r := preferenceRouter(t, newTestDB(t))

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "unknown theme", body: map[string]any{"theme": "sepia"}},
		{name: "sensitivity out of range", body: map[string]any{"shake_to_clear_sensitivity": 50}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, r, http.MethodPatch, "/preferences", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}
