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

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	col *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{col: db.Collection(colUsers)}
}

func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	_, err := r.col.InsertOne(ctx, u)
	return mapErr(err, domain.ErrNotFound)
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepo) AddCheckout(ctx context.Context, userID string, c *model.Checkout) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$push": bson.M{"checkouts": bson.M{"$each": bson.A{c}, "$slice": -model.MaxPendingCheckouts}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return mapErr(err, domain.ErrNotFound)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ActivatePro matches plan_expires_at against prevExpiry; a nil prevExpiry
// also matches a missing field.
func (r *UserRepo) ActivatePro(ctx context.Context, userID, orderID string, prevExpiry *time.Time, expiresAt time.Time, sub *model.Subscription) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID, "checkouts.order_id": orderID, "plan_expires_at": prevExpiry},
		bson.M{
			"$set": bson.M{
				"plan":            model.PlanPro,
				"plan_expires_at": expiresAt,
				"subscription":    sub,
				"updated_at":      time.Now().UTC(),
			},
			"$pull":  bson.M{"checkouts": bson.M{"order_id": orderID}},
			"$unset": bson.M{"expiry_alert_sent_for": ""},
		},
	)
	if err != nil {
		return mapErr(err, domain.ErrOrderNotFound)
	}
	if res.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *UserRepo) SetPlan(ctx context.Context, userID string, plan model.Plan, expiresAt *time.Time, sub *model.Subscription) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$set": bson.M{
				"plan":            plan,
				"plan_expires_at": expiresAt,
				"subscription":    sub,
				"updated_at":      time.Now().UTC(),
			},
			"$unset": bson.M{"expiry_alert_sent_for": ""},
		},
	)
	if err != nil {
		return mapErr(err, domain.ErrNotFound)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) DowngradeIfBackedBy(ctx context.Context, userID, paymentID string) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"_id":                     userID,
			"plan":                    model.PlanPro,
			"subscription.status":     model.SubscriptionStatusActive,
			"subscription.payment_id": paymentID,
		},
		bson.M{
			"$set": bson.M{
				"plan":            model.PlanFree,
				"plan_expires_at": nil,
				"subscription":    nil,
				"updated_at":      time.Now().UTC(),
			},
			"$unset": bson.M{"expiry_alert_sent_for": ""},
		},
	)
	if err != nil {
		return false, mapErr(err, domain.ErrNotFound)
	}
	return res.ModifiedCount > 0, nil
}

// DowngradeExpired uses a pipeline update so a missing subscription stays
// null while an existing one keeps its provider ids with status expired.
func (r *UserRepo) DowngradeExpired(ctx context.Context, now time.Time) (int64, error) {
	update := bson.A{
		bson.M{"$set": bson.M{
			"plan":            model.PlanFree,
			"plan_expires_at": nil,
			"updated_at":      now,
			"subscription": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{bson.M{"$type": "$subscription"}, "object"}},
				bson.M{"$mergeObjects": bson.A{"$subscription", bson.M{"status": model.SubscriptionStatusExpired}}},
				nil,
			}},
		}},
	}
	res, err := r.col.UpdateMany(ctx,
		bson.M{"plan": model.PlanPro, "plan_expires_at": bson.M{"$lte": now}},
		update,
	)
	if err != nil {
		return 0, mapErr(err, domain.ErrNotFound)
	}
	return res.ModifiedCount, nil
}

func (r *UserRepo) FindExpiring(ctx context.Context, from, to time.Time) ([]*model.User, error) {
	filter := bson.M{
		"plan":            model.PlanPro,
		"plan_expires_at": bson.M{"$gt": from, "$lte": to},
		"$expr":           bson.M{"$ne": bson.A{"$expiry_alert_sent_for", "$plan_expires_at"}},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r *UserRepo) ClaimExpiryAlert(ctx context.Context, userID string, expiresAt time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"_id":                   userID,
			"plan_expires_at":       expiresAt,
			"expiry_alert_sent_for": bson.M{"$ne": expiresAt},
		},
		bson.M{"$set": bson.M{"expiry_alert_sent_for": expiresAt}},
	)
	if err != nil {
		return false, mapErr(err, domain.ErrNotFound)
	}
	return res.ModifiedCount == 1, nil
}

func (r *UserRepo) ReleaseExpiryAlert(ctx context.Context, userID string, expiresAt time.Time) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID, "expiry_alert_sent_for": expiresAt},
		bson.M{"$unset": bson.M{"expiry_alert_sent_for": ""}},
	)
	return mapErr(err, domain.ErrNotFound)
}

func audienceFilter(a model.Audience) bson.M {
	switch a {
	case model.AudienceFree:
		return bson.M{"plan": model.PlanFree}
	case model.AudiencePro:
		return bson.M{"plan": model.PlanPro}
	}
	return bson.M{}
}

func (r *UserRepo) ListByAudience(ctx context.Context, a model.Audience, afterID string, limit int) ([]*model.User, error) {
	filter := audienceFilter(a)
	if afterID != "" {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"email": 1, "username": 1, "plan": 1})
	return r.find(ctx, filter, opts)
}

func (r *UserRepo) CountByAudience(ctx context.Context, a model.Audience) (int64, error) {
	n, err := r.col.CountDocuments(ctx, audienceFilter(a))
	return n, mapErr(err, domain.ErrNotFound)
}

func (r *UserRepo) CountByPlan(ctx context.Context) ([]model.PlanCount, error) {
	pipeline := bson.A{
		bson.M{"$group": bson.M{"_id": "$plan", "count": bson.M{"$sum": 1}}},
		bson.M{"$sort": bson.M{"_id": 1}},
	}
	var out []model.PlanCount
	if err := aggregate(ctx, r.col, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepo) find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) ([]*model.User, error) {
	cur, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	var out []*model.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	return out, nil
}

// aggregate runs pipeline and decodes every result into out.
func aggregate(ctx context.Context, col *mongo.Collection, pipeline any, out any) error {
	cur, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return mapErr(err, domain.ErrNotFound)
	}
	if err := cur.All(ctx, out); err != nil {
		return mapErr(err, domain.ErrNotFound)
	}
	return nil
}
