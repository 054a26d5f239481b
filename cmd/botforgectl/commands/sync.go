package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/botforge/botforge/internal/config"
	"github.com/botforge/botforge/internal/queue"
)

// NewSyncCmd creates the sync command
func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Enqueue a directory sync job",
		Long:  "Enqueue a directory sync job for the worker to pick up",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close queue connection: %v\n", err)
				}
			}()

			job := queue.NewJob(queue.JobTypeDirectorySync, nil)
			if err := jobQueue.Enqueue(context.Background(), job); err != nil {
				return fmt.Errorf("failed to enqueue sync job: %w", err)
			}

			fmt.Printf("Enqueued sync job %s\n", job.ID)
			return nil
		},
	}
}
