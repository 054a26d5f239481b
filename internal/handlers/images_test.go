package handlers

import (
	"net/http"
	"testing"

	"github.com/gorilla/mux"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/queue"
)

func imageRouter(t *testing.T, db *database.DB, jobs queue.JobQueue) *mux.Router {
	t.Helper()

	h := NewImageHandler(database.NewImageRepository(db), jobs)
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/images").Subrouter())
	return r
}

func TestCreateImageRequestEnqueuesJob(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobQueue{}
	r := imageRouter(t, newTestDB(t), jobs)

	rec := doJSON(t, r, http.MethodPost, "/images", map[string]any{
		"prompt": "a lighthouse at dusk",
		"n":      2,
		"size":   "512x512",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp ImageRequestResponse
	decodeData(t, rec, &resp)
	if resp.Request.ID == 0 {
		t.Error("expected a stored request id")
	}
	if resp.Request.N != 2 || resp.Request.Size != "512x512" {
		t.Errorf("request fields lost: %+v", resp.Request)
	}

	if len(jobs.enqueued) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs.enqueued))
	}
	job := jobs.enqueued[0]
	if job.Type != queue.JobTypeImageGeneration {
		t.Errorf("expected image generation job, got %s", job.Type)
	}
	if job.RequestID == nil || *job.RequestID != resp.Request.ID {
		t.Errorf("job not bound to the stored request: %+v", job.RequestID)
	}
}

func TestCreateImageRequestDefaults(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobQueue{}
	r := imageRouter(t, newTestDB(t), jobs)

	rec := doJSON(t, r, http.MethodPost, "/images", map[string]any{
		"prompt": "a lighthouse at dusk",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var resp ImageRequestResponse
	decodeData(t, rec, &resp)
	if resp.Request.N != 1 || resp.Request.Size != "256x256" {
		t.Errorf("expected defaults n=1 size=256x256, got %+v", resp.Request)
	}
}

func TestCreateImageRequestValidation(t *testing.T) {
	t.Parallel()

	r := imageRouter(t, newTestDB(t), &fakeJobQueue{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing prompt", body: map[string]any{"n": 1}},
		{name: "bad size", body: map[string]any{"prompt": "x", "size": "640x480"}},
		{name: "too many images", body: map[string]any{"prompt": "x", "n": 11}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, r, http.MethodPost, "/images", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestGetAndDeleteImageRequest(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	r := imageRouter(t, db, &fakeJobQueue{})

	rec := doJSON(t, r, http.MethodPost, "/images", map[string]any{"prompt": "x"})
	var resp ImageRequestResponse
	decodeData(t, rec, &resp)

	rec = doJSON(t, r, http.MethodGet, "/images/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodDelete, "/images/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/images/1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/images/not-a-number", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for junk id, got %d", rec.Code)
	}
}
