package mongodb

import (
	"context"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var _ repository.BroadcastRepository = (*BroadcastRepo)(nil)

type BroadcastRepo struct {
	col *mongo.Collection
}

func NewBroadcastRepo(db *mongo.Database) *BroadcastRepo {
	return &BroadcastRepo{col: db.Collection(colBroadcasts)}
}

func (r *BroadcastRepo) Create(ctx context.Context, j *model.BroadcastJob) error {
	_, err := r.col.InsertOne(ctx, j)
	return mapErr(err, domain.ErrNotFound)
}

func (r *BroadcastRepo) FindByID(ctx context.Context, id string) (*model.BroadcastJob, error) {
	var j model.BroadcastJob
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&j); err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	return &j, nil
}

func (r *BroadcastRepo) Update(ctx context.Context, j *model.BroadcastJob) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": j.ID}, j)
	if err != nil {
		return mapErr(err, domain.ErrNotFound)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
