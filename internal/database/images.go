package database

import (
	"context"
	"fmt"
	"time"

	"github.com/botforge/botforge/internal/models"
	"github.com/google/uuid"
)

// ImageRepository stores image generation requests and their results.
// One request owns N images; deleting the request cascades to them.
type ImageRepository struct {
	db *DB
}

// NewImageRepository creates a new image repository
func NewImageRepository(db *DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// SaveRequest inserts a request row and returns its generated id
func (r *ImageRepository) SaveRequest(ctx context.Context, req *models.ImageRequest) error {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO image_requests (prompt, n, size, timestamp)
		VALUES (?, ?, ?, ?)`,
		req.Prompt, req.N, req.Size, req.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save image request: %w", err)
	}

	req.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get request id: %w", err)
	}
	return nil
}

// SaveImage stores one generated image under an existing request
func (r *ImageRepository) SaveImage(ctx context.Context, img *models.GeneratedImage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO generated_images (uuid, request_id, data)
		VALUES (?, ?, ?)`,
		img.UUID.String(), img.RequestID, img.Data,
	)
	if err != nil {
		return fmt.Errorf("failed to save generated image: %w", err)
	}
	return nil
}

// GetRequest returns a single request by id
func (r *ImageRepository) GetRequest(ctx context.Context, requestID int64) (*models.ImageRequest, error) {
	req := &models.ImageRequest{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, prompt, n, size, timestamp
		FROM image_requests
		WHERE id = ?`,
		requestID,
	).Scan(&req.ID, &req.Prompt, &req.N, &req.Size, &req.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to get image request: %w", err)
	}
	return req, nil
}

// ListRequests returns all requests, newest first
func (r *ImageRepository) ListRequests(ctx context.Context) ([]*models.ImageRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, prompt, n, size, timestamp
		FROM image_requests
		ORDER BY timestamp DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list image requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.ImageRequest
	for rows.Next() {
		req := &models.ImageRequest{}
		if err := rows.Scan(&req.ID, &req.Prompt, &req.N, &req.Size, &req.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan image request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image requests: %w", err)
	}
	return requests, nil
}

// GetImages returns the images generated for a request
func (r *ImageRepository) GetImages(ctx context.Context, requestID int64) ([]*models.GeneratedImage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uuid, request_id, data
		FROM generated_images
		WHERE request_id = ?`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query generated images: %w", err)
	}
	defer rows.Close()

	var images []*models.GeneratedImage
	for rows.Next() {
		img := &models.GeneratedImage{}
		var imgUUID string
		if err := rows.Scan(&imgUUID, &img.RequestID, &img.Data); err != nil {
			return nil, fmt.Errorf("failed to scan generated image: %w", err)
		}
		if img.UUID, err = uuid.Parse(imgUUID); err != nil {
			return nil, fmt.Errorf("failed to parse image uuid: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generated images: %w", err)
	}
	return images, nil
}

// DeleteRequest removes a request and cascades to its images
func (r *ImageRepository) DeleteRequest(ctx context.Context, requestID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM image_requests WHERE id = ?`, requestID); err != nil {
		return fmt.Errorf("failed to delete image request: %w", err)
	}
	return nil
}
