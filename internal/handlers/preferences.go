package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/models"
)

// PreferenceHandler handles preference requests
type PreferenceHandler struct {
	prefs *database.PreferenceStore
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(prefs *database.PreferenceStore) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

// RegisterRoutes registers preference routes on the given router.
// The router should already have the /preferences prefix.
func (h *PreferenceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetPreferences).Methods("GET")
	r.HandleFunc("", h.UpdatePreferences).Methods("PATCH")
}

// UpdatePreferencesRequest represents a partial preference update. The sync
// watermark is not settable through the API; only the sync job moves it.
type UpdatePreferencesRequest struct {
	Theme                      *string  `json:"theme,omitempty" validate:"omitempty,theme"`
	UseDynamicColors           *bool    `json:"use_dynamic_colors,omitempty"`
	EnableUserGeneratedContent *bool    `json:"enable_user_generated_content,omitempty"`
	EnableShakeToClear         *bool    `json:"enable_shake_to_clear,omitempty"`
	ShakeToClearSensitivity    *float64 `json:"shake_to_clear_sensitivity,omitempty" validate:"omitempty,gt=0,lte=10"`
}

// GetPreferences returns the current preferences
func (h *PreferenceHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.prefs.Preferences(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load preferences")
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences applies a partial update and returns the merged result
func (h *PreferenceHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	ctx := r.Context()
	if req.Theme != nil {
		if err := h.prefs.SetTheme(ctx, models.Theme(*req.Theme)); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to set theme")
			return
		}
	}
	if req.UseDynamicColors != nil {
		if err := h.prefs.SetUseDynamicColors(ctx, *req.UseDynamicColors); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to set dynamic colors")
			return
		}
	}
	if req.EnableUserGeneratedContent != nil {
		if err := h.prefs.SetEnableUserGeneratedContent(ctx, *req.EnableUserGeneratedContent); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to set UGC toggle")
			return
		}
	}
	if req.EnableShakeToClear != nil {
		if err := h.prefs.SetEnableShakeToClear(ctx, *req.EnableShakeToClear); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to set shake to clear")
			return
		}
	}
	if req.ShakeToClearSensitivity != nil {
		if err := h.prefs.SetShakeToClearSensitivity(ctx, *req.ShakeToClearSensitivity); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to set sensitivity")
			return
		}
	}

	prefs, err := h.prefs.Preferences(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load preferences")
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}
