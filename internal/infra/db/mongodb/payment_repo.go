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

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

type PaymentRepo struct {
	col *mongo.Collection
}

func NewPaymentRepo(db *mongo.Database) *PaymentRepo {
	return &PaymentRepo{col: db.Collection(colPayments)}
}

func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	_, err := r.col.InsertOne(ctx, p)
	return mapErr(err, domain.ErrNotFound)
}

func (r *PaymentRepo) findOne(ctx context.Context, filter bson.M) (*model.Payment, error) {
	var p model.Payment
	if err := r.col.FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	return &p, nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *PaymentRepo) FindByGatewayID(ctx context.Context, paymentID string) (*model.Payment, error) {
	return r.findOne(ctx, bson.M{"payment_id": paymentID})
}

func (r *PaymentRepo) FindByInvoice(ctx context.Context, invoiceNumber string) (*model.Payment, error) {
	return r.findOne(ctx, bson.M{"invoice_number": invoiceNumber})
}

func (r *PaymentRepo) ListByUser(ctx context.Context, userID string) ([]*model.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *PaymentRepo) List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapErr(err, domain.ErrNotFound)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(f.Offset)).
		SetLimit(int64(f.Limit))
	list, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// MarkRefunded is the only mutation a payment row sees after insert.
func (r *PaymentRepo) MarkRefunded(ctx context.Context, id, refundID string, at time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": model.PaymentStatusPaid},
		bson.M{"$set": bson.M{
			"status":      model.PaymentStatusRefunded,
			"refund_id":   refundID,
			"refunded_at": at,
		}},
	)
	if err != nil {
		return mapErr(err, domain.ErrNotFound)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRefundNotAllowed
	}
	return nil
}

func (r *PaymentRepo) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	pipeline := bson.A{
		bson.M{"$group": bson.M{
			"_id":    "$status",
			"count":  bson.M{"$sum": 1},
			"amount": bson.M{"$sum": "$amount"},
		}},
		bson.M{"$sort": bson.M{"_id": 1}},
	}
	var out []model.StatusCount
	if err := aggregate(ctx, r.col, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PaymentRepo) RevenueByMonth(ctx context.Context, since time.Time) ([]model.MonthlyRevenue, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"status":  model.PaymentStatusPaid,
			"paid_at": bson.M{"$gte": since},
		}},
		bson.M{"$group": bson.M{
			"_id":      bson.M{"$dateToString": bson.M{"format": "%Y-%m", "date": "$paid_at"}},
			"amount":   bson.M{"$sum": "$amount"},
			"payments": bson.M{"$sum": 1},
		}},
		bson.M{"$sort": bson.M{"_id": 1}},
	}
	var out []model.MonthlyRevenue
	if err := aggregate(ctx, r.col, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PaymentRepo) TopCoupons(ctx context.Context, limit int) ([]model.CouponUsage, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"coupon_code": bson.M{"$exists": true, "$ne": ""},
			"status":      bson.M{"$in": bson.A{model.PaymentStatusPaid, model.PaymentStatusRefunded}},
		}},
		bson.M{"$group": bson.M{
			"_id":         "$coupon_code",
			"redemptions": bson.M{"$sum": 1},
			"discount":    bson.M{"$sum": "$discount"},
		}},
		bson.M{"$sort": bson.D{{Key: "redemptions", Value: -1}, {Key: "_id", Value: 1}}},
		bson.M{"$limit": limit},
	}
	var out []model.CouponUsage
	if err := aggregate(ctx, r.col, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PaymentRepo) find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) ([]*model.Payment, error) {
	cur, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	var out []*model.Payment
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	return out, nil
}
