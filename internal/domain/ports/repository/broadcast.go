package repository

import (
	"context"

	"linkbio-billing/internal/domain/model"
)

type BroadcastRepository interface {
	Create(ctx context.Context, j *model.BroadcastJob) error
	FindByID(ctx context.Context, id string) (*model.BroadcastJob, error)
	// Update persists status and progress counters.
	Update(ctx context.Context, j *model.BroadcastJob) error
}
