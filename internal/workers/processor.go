package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/models"
	"github.com/botforge/botforge/internal/queue"
	"github.com/botforge/botforge/internal/services/ai"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DirectorySyncer runs one sync pass against the community directory
type DirectorySyncer interface {
	Sync(ctx context.Context) (int, error)
}

// JobProcessor consumes queue jobs: directory syncs and image generation
type JobProcessor struct {
	syncer   DirectorySyncer
	provider ai.Provider
	images   database.ImageStore
	jobQueue queue.JobQueue // for re-enqueueing jobs with delays
	logger   *zap.Logger
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(
	syncer DirectorySyncer,
	provider ai.Provider,
	images database.ImageStore,
	jobQueue queue.JobQueue,
	logger *zap.Logger,
) *JobProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobProcessor{
		syncer:   syncer,
		provider: provider,
		images:   images,
		jobQueue: jobQueue,
		logger:   logger,
	}
}

// ProcessDirectorySyncJob pulls updated bot records from the community
// directory into the local cache
func (p *JobProcessor) ProcessDirectorySyncJob(ctx context.Context, job *queue.Job) error {
	count, err := p.syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("directory sync failed: %w", err)
	}

	p.logger.Info("directory_sync_job_done",
		zap.String("job_id", job.ID.String()),
		zap.Int("bots_synced", count),
	)
	return nil
}

// ProcessImageGenerationJob generates images for a stored request and
// persists each result under it
func (p *JobProcessor) ProcessImageGenerationJob(ctx context.Context, job *queue.Job) error {
	if job.RequestID == nil {
		return fmt.Errorf("request_id is required for image generation job")
	}

	req, err := p.images.GetRequest(ctx, *job.RequestID)
	if err != nil {
		return fmt.Errorf("failed to load image request: %w", err)
	}

	results, err := p.provider.GenerateImages(ctx, req.Prompt, req.N, req.Size)
	if err != nil {
		return fmt.Errorf("failed to generate images: %w", err)
	}

	for _, data := range results {
		img := &models.GeneratedImage{
			UUID:      uuid.New(),
			RequestID: req.ID,
			Data:      data,
		}
		if err := p.images.SaveImage(ctx, img); err != nil {
			return fmt.Errorf("failed to store generated image: %w", err)
		}
	}

	p.logger.Info("image_generation_job_done",
		zap.String("job_id", job.ID.String()),
		zap.Int64("request_id", req.ID),
		zap.Int("image_count", len(results)),
	)
	return nil
}

// ProcessJob processes a job based on its type
func (p *JobProcessor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if !job.ShouldProcess() {
		p.logger.Debug("job_not_ready",
			zap.String("job_id", job.ID.String()),
			zap.Timep("not_before", job.NotBefore),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			p.logger.Warn("failed to ack job for later processing", zap.Error(ackErr))
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeDirectorySync:
		if err := p.ProcessDirectorySyncJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "directory sync")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeImageGeneration:
		if err := p.ProcessImageGenerationJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "image generation")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		// Unknown job type, send to DLQ
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Warn("failed to nack unknown job type", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError decides between delayed re-enqueue, immediate requeue, and
// the DLQ based on the error class and retry budget
func (p *JobProcessor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error, jobType string) error {
	// Credential failures and cancelled requests never recover by retrying
	if ai.IsInvalidCredentialError(err) || ai.IsCanceledError(err) {
		p.logger.Warn("job_not_retryable",
			zap.String("job_type", jobType),
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Warn("failed to nack job to DLQ", zap.Error(nackErr))
		}
		return fmt.Errorf("%s job failed permanently: %w", jobType, err)
	}

	// Rate limits get a delayed re-enqueue through the delayed exchange
	if ai.IsRateLimitError(err) && job.CanRetry() && p.jobQueue != nil {
		retryDelay := ai.GetRetryDelay(err, job.RetryCount)
		notBefore := time.Now().Add(retryDelay)

		delayedJob := &queue.Job{
			ID:         job.ID,
			Type:       job.Type,
			RequestID:  job.RequestID,
			NotBefore:  &notBefore,
			NotAfter:   job.NotAfter,
			Metadata:   job.Metadata,
			CreatedAt:  job.CreatedAt,
			RetryCount: job.RetryCount + 1,
			MaxRetries: job.MaxRetries,
		}

		if ackErr := msg.Ack(); ackErr != nil {
			p.logger.Warn("failed to ack rate limited job", zap.Error(ackErr))
		}

		if enqueueErr := p.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
			// Fall back to immediate requeue
			if nackErr := msg.Nack(true); nackErr != nil {
				p.logger.Warn("failed to nack rate limited job", zap.Error(nackErr))
			}
			return fmt.Errorf("rate limited, failed to re-enqueue: %w", enqueueErr)
		}

		p.logger.Info("job_delayed",
			zap.String("job_type", jobType),
			zap.String("job_id", job.ID.String()),
			zap.Time("not_before", notBefore),
			zap.Duration("delay", retryDelay),
		)
		return nil
	}

	if job.CanRetry() {
		job.IncrementRetry()
		p.logger.Warn("job_retrying",
			zap.String("job_type", jobType),
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			p.logger.Warn("failed to nack job", zap.Error(nackErr))
		}
		return fmt.Errorf("%s job failed (will retry): %w", jobType, err)
	}

	// Max retries exceeded, send to DLQ
	p.logger.Error("job_exhausted",
		zap.String("job_type", jobType),
		zap.String("job_id", job.ID.String()),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		p.logger.Warn("failed to nack job to DLQ", zap.Error(nackErr))
	}
	return fmt.Errorf("%s job failed (max retries): %w", jobType, err)
}
