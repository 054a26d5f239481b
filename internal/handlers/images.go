package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/models"
	"github.com/botforge/botforge/internal/queue"
	"github.com/botforge/botforge/internal/validation"
)

// ImageHandler handles image generation requests. Generation itself runs on
// the worker; the handler records the request and enqueues a job.
type ImageHandler struct {
	images *database.ImageRepository
	jobs   queue.JobQueue
}

// NewImageHandler creates a new image handler
func NewImageHandler(images *database.ImageRepository, jobs queue.JobQueue) *ImageHandler {
	return &ImageHandler{images: images, jobs: jobs}
}

// RegisterRoutes registers image routes on the given router.
// The router should already have the /images prefix.
func (h *ImageHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListRequests).Methods("GET")
	r.HandleFunc("", h.CreateRequest).Methods("POST")
	r.HandleFunc("/{id}", h.GetRequest).Methods("GET")
	r.HandleFunc("/{id}", h.DeleteRequest).Methods("DELETE")
	r.HandleFunc("/{id}/data", h.GetImages).Methods("GET")
}

// CreateImageRequest represents an image generation request
type CreateImageRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=4000"`
	N      int    `json:"n" validate:"omitempty,min=1,max=10"`
	Size   string `json:"size" validate:"omitempty,image_size"`
}

// ImageRequestResponse pairs the stored request with the enqueued job id
type ImageRequestResponse struct {
	Request *models.ImageRequest `json:"request"`
	JobID   string               `json:"job_id"`
}

// CreateRequest stores the request and enqueues a generation job
func (h *ImageHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Queue is not configured")
		return
	}

	var req CreateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}
	if req.N == 0 {
		req.N = 1
	}
	if req.Size == "" {
		req.Size = "256x256"
	}

	ctx := r.Context()
	stored := &models.ImageRequest{
		Prompt:    validation.SanitizeText(req.Prompt),
		N:         req.N,
		Size:      req.Size,
		Timestamp: time.Now().UTC(),
	}
	if err := h.images.SaveRequest(ctx, stored); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save request")
		return
	}

	job := queue.NewJob(queue.JobTypeImageGeneration, &stored.ID)
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to enqueue generation")
		return
	}
	respondJSON(w, http.StatusAccepted, ImageRequestResponse{Request: stored, JobID: job.ID.String()})
}

// ListRequests lists stored image requests, newest first
func (h *ImageHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.images.ListRequests(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to list requests")
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

// GetRequest returns a single image request
func (h *ImageHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(w, r, "id")
	if !ok {
		return
	}

	req, err := h.images.GetRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Image request not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get request")
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// GetImages returns the generated images for a request. Image data is
// base64 in the JSON body.
func (h *ImageHandler) GetImages(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(w, r, "id")
	if !ok {
		return
	}

	images, err := h.images.GetImages(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get images")
		return
	}
	respondJSON(w, http.StatusOK, images)
}

// DeleteRequest removes a request and its generated images
func (h *ImageHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.images.DeleteRequest(r.Context(), id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete request")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Image request deleted"})
}

// parseIntParam extracts a numeric path variable, writing a 400 on failure
func parseIntParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid numeric id")
		return 0, false
	}
	return id, true
}
