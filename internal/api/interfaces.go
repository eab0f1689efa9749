// interfaces.go - Dependencies the handlers call into
package api

import (
	"context"
	"io"

	"github.com/link-review/backend/internal/maintenance"
	"github.com/link-review/backend/internal/models"
	"github.com/link-review/backend/internal/review"
	"github.com/link-review/backend/internal/upload"
)

// Ingester turns an uploaded file into a reviewed dataset.
type Ingester interface {
	Ingest(ctx context.Context, partition, name string, r io.Reader) (*upload.Result, error)
}

// Reviewer drives the review cursor over a session's dataset.
type Reviewer interface {
	Current(partition string, r *models.ReviewState) (*review.View, error)
	Apply(partition string, r *models.ReviewState, action models.Action) (review.Outcome, error)
	Sheet(partition string, r *models.ReviewState) (*review.Sheet, error)
	Export(partition string, r *models.ReviewState) (string, string, error)
}

// Sweeper removes stale partitions.
type Sweeper interface {
	Sweep(ctx context.Context) (*maintenance.Result, error)
}
