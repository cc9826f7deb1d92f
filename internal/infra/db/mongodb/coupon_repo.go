package mongodb

import (
	"context"
	"time"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ repository.CouponRepository = (*CouponRepo)(nil)

type CouponRepo struct {
	col *mongo.Collection
}

func NewCouponRepo(db *mongo.Database) *CouponRepo {
	return &CouponRepo{col: db.Collection(colCoupons)}
}

func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) error {
	_, err := r.col.InsertOne(ctx, c)
	return mapErr(err, domain.ErrNotFound)
}

func (r *CouponRepo) Update(ctx context.Context, c *model.Coupon) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return mapErr(err, domain.ErrNotFound)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CouponRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, domain.ErrNotFound)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CouponRepo) findOne(ctx context.Context, filter bson.M) (*model.Coupon, error) {
	var c model.Coupon
	if err := r.col.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	return &c, nil
}

func (r *CouponRepo) FindByID(ctx context.Context, id string) (*model.Coupon, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *CouponRepo) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return r.findOne(ctx, bson.M{"code": model.NormalizeCode(code)})
}

func (r *CouponRepo) List(ctx context.Context) ([]*model.Coupon, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// ListPublic returns active public coupons that have not expired at now.
// Exhausted coupons are filtered by the caller.
func (r *CouponRepo) ListPublic(ctx context.Context, now time.Time) ([]*model.Coupon, error) {
	filter := bson.M{
		"is_active": true,
		"is_public": true,
		"$or": bson.A{
			bson.M{"expires_at": nil},
			bson.M{"expires_at": bson.M{"$gt": now}},
		},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// Redeem bumps used_count under the same guards as Coupon.IsValid, so two
// concurrent redemptions of the last use cannot both succeed.
func (r *CouponRepo) Redeem(ctx context.Context, code string, now time.Time) (bool, error) {
	filter := bson.M{
		"code":      model.NormalizeCode(code),
		"is_active": true,
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"expires_at": nil},
				bson.M{"expires_at": bson.M{"$gt": now}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"max_uses": nil},
				bson.M{"$expr": bson.M{"$lt": bson.A{"$used_count", "$max_uses"}}},
			}},
		},
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": now},
	})
	if err != nil {
		return false, mapErr(err, domain.ErrNotFound)
	}
	return res.ModifiedCount == 1, nil
}

func (r *CouponRepo) find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) ([]*model.Coupon, error) {
	cur, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	var out []*model.Coupon
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	return out, nil
}
