package mongodb

import (
	"context"
	"time"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo stores login sessions; the TTL index on expires_at removes
// them, the filter in Find covers the window before the TTL monitor runs.
type SessionRepo struct {
	col *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) *SessionRepo {
	return &SessionRepo{col: db.Collection(colSessions)}
}

func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	_, err := r.col.InsertOne(ctx, s)
	return mapErr(err, domain.ErrSessionNotFound)
}

func (r *SessionRepo) Find(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := r.col.FindOne(ctx, bson.M{"_id": id, "expires_at": bson.M{"$gt": time.Now().UTC()}}).Decode(&s)
	if err != nil {
		return nil, mapErr(err, domain.ErrSessionNotFound)
	}
	return &s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return mapErr(err, domain.ErrSessionNotFound)
}
