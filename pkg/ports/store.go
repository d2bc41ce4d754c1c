package ports

import (
	"context"

	"github.com/aretw0/nonplanar/pkg/domain"
)

// JobStore defines the interface for persisting job records.
type JobStore interface {
	// Save persists the job under job.ID, replacing any previous record.
	Save(ctx context.Context, job *domain.Job) error

	// Load retrieves the job with the given ID.
	// Returns domain.ErrJobNotFound if the job does not exist.
	Load(ctx context.Context, id string) (*domain.Job, error)

	// Delete removes the job. Deleting a missing job is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of stored jobs, most recent first.
	List(ctx context.Context) ([]string, error)
}
