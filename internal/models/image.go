package models

import (
	"time"

	"github.com/google/uuid"
)

// ImageRequest records a single image-generation call: the prompt, how many
// images were asked for and at what size.
type ImageRequest struct {
	ID        int64     `json:"id"`
	Prompt    string    `json:"prompt"`
	N         int       `json:"n"`
	Size      string    `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// GeneratedImage is one image produced for a request
type GeneratedImage struct {
	UUID      uuid.UUID `json:"uuid"`
	RequestID int64     `json:"request_id"`
	Data      []byte    `json:"data"`
}
