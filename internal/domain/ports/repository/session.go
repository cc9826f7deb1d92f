package repository

import (
	"context"

	"linkbio-billing/internal/domain/model"
)

type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	// Find returns domain.ErrSessionNotFound for unknown or expired sessions.
	Find(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}
