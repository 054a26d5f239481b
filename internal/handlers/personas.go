package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/models"
	"github.com/botforge/botforge/internal/request"
	"github.com/botforge/botforge/internal/services/share"
	"github.com/botforge/botforge/internal/validation"
)

// PersonaHandler handles persona-related requests
type PersonaHandler struct {
	personas *database.PersonaRepository
	share    *share.Service
}

// NewPersonaHandler creates a new persona handler. share may be nil when
// sharing is not wired (no directory connection).
func NewPersonaHandler(personas *database.PersonaRepository, share *share.Service) *PersonaHandler {
	return &PersonaHandler{personas: personas, share: share}
}

// RegisterRoutes registers persona routes on the given router.
// The router should already have the /personas prefix.
func (h *PersonaHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListPersonas).Methods("GET")
	r.HandleFunc("", h.CreatePersona).Methods("POST")
	r.HandleFunc("/{id}", h.GetPersona).Methods("GET")
	r.HandleFunc("/{id}", h.UpdatePersona).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeletePersona).Methods("DELETE")
	r.HandleFunc("/{id}/share", h.SharePersona).Methods("POST")
}

// CreatePersonaRequest represents a create persona request
type CreatePersonaRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=200"`
	Alias         string `json:"alias" validate:"max=200"`
	SystemMessage string `json:"system_message" validate:"required,min=1,max=10000"`
}

// UpdatePersonaRequest represents a partial persona update
type UpdatePersonaRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Alias         *string `json:"alias,omitempty" validate:"omitempty,max=200"`
	SystemMessage *string `json:"system_message,omitempty" validate:"omitempty,min=1,max=10000"`
}

// SharePersonaRequest carries the extra fields the directory record needs
type SharePersonaRequest struct {
	Description string   `json:"description" validate:"max=2000"`
	Tags        []string `json:"tags" validate:"max=20,dive,min=1,max=50"`
}

// ListPersonas lists all personas, most recently used first
func (h *PersonaHandler) ListPersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := h.personas.List(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to list personas")
		return
	}
	respondJSON(w, http.StatusOK, personas)
}

// CreatePersona creates a new persona
func (h *PersonaHandler) CreatePersona(w http.ResponseWriter, r *http.Request) {
	var req CreatePersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	persona := &models.Persona{
		UUID:          uuid.New(),
		Name:          validation.SanitizeText(req.Name),
		Alias:         validation.SanitizeText(req.Alias),
		SystemMessage: validation.SanitizeText(req.SystemMessage),
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.personas.Create(r.Context(), persona); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create persona")
		return
	}
	respondJSON(w, http.StatusCreated, persona)
}

// GetPersona returns a single persona by uuid
func (h *PersonaHandler) GetPersona(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	persona, err := h.personas.GetByUUID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Persona not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get persona")
		return
	}
	respondJSON(w, http.StatusOK, persona)
}

// UpdatePersona applies a partial update to a persona
func (h *PersonaHandler) UpdatePersona(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdatePersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	ctx := r.Context()
	persona, err := h.personas.GetByUUID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Persona not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get persona")
		return
	}

	if req.Name != nil {
		persona.Name = validation.SanitizeText(*req.Name)
	}
	if req.Alias != nil {
		persona.Alias = validation.SanitizeText(*req.Alias)
	}
	if req.SystemMessage != nil {
		persona.SystemMessage = validation.SanitizeText(*req.SystemMessage)
	}

	if err := h.personas.Update(ctx, persona); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update persona")
		return
	}
	respondJSON(w, http.StatusOK, persona)
}

// DeletePersona deletes a persona by uuid
func (h *PersonaHandler) DeletePersona(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.personas.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Persona not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete persona")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Persona deleted"})
}

// SharePersona publishes a persona to the community directory
func (h *PersonaHandler) SharePersona(w http.ResponseWriter, r *http.Request) {
	if h.share == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Sharing is not configured")
		return
	}

	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req SharePersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	ctx := r.Context()
	persona, err := h.personas.GetByUUID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Persona not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get persona")
		return
	}

	createdBy := user.Email
	if createdBy == "" {
		createdBy = user.ID
	}

	tags := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		tags = append(tags, validation.SanitizeText(tag))
	}

	bot, err := h.share.Share(ctx, persona, createdBy, validation.SanitizeText(req.Description), tags)
	if err != nil {
		if errors.Is(err, share.ErrSharingDisabled) {
			respondJSONError(w, http.StatusForbidden, "Forbidden", "User generated content is disabled in preferences")
			return
		}
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to publish persona")
		return
	}
	respondJSON(w, http.StatusCreated, bot)
}

// validate is the shared struct validator for request bodies. It carries the
// custom enum validators registered by the validation package.
var validate = validation.Validate

// validationMessage flattens a validator error into a client-facing string
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return fmt.Sprintf("Invalid value for field %s (%s)", f.Field(), f.Tag())
	}
	return "Invalid request body"
}

// parseUUIDParam extracts and parses a uuid path variable, writing a 400 on
// failure
func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid UUID")
		return uuid.Nil, false
	}
	return id, true
}
