package mongodb

import (
	"context"
	"errors"
	"fmt"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/infra/metrics"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names.
const (
	colUsers      = "users"
	colPayments   = "payments"
	colCoupons    = "coupons"
	colSessions   = "sessions"
	colBroadcasts = "broadcast_jobs"
)

// Connect returns a pinged client and the configured database. Every command
// is timed into the db_command_duration_seconds histogram.
func Connect(ctx context.Context, cfg config.MongoConfig, logger *zerolog.Logger) (*mongo.Client, *mongo.Database, error) {
	monitor := &event.CommandMonitor{
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			metrics.ObserveDBCommand(e.CommandName, true, e.Duration)
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			metrics.ObserveDBCommand(e.CommandName, false, e.Duration)
			logger.Debug().Str("command", e.CommandName).Err(e.Failure).Msg("mongo command failed")
		},
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(serverAPI).
		SetMonitor(monitor).
		SetTimeout(cfg.Timeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info().Str("database", cfg.Database).Msg("connected to MongoDB")
	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates the unique and TTL indexes the repositories rely on
// for idempotency. Safe to run on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for col, models := range indexModels() {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", col, err)
		}
	}
	return nil
}

func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "plan", Value: 1}, {Key: "plan_expires_at", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "payment_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "invoice_number", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colCoupons: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSessions: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		colBroadcasts: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// mapErr translates driver errors into domain errors. notFound is returned
// for an empty result so callers can pick the sentinel that fits.
func mapErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return notFound
	case mongo.IsDuplicateKeyError(err):
		return domain.ErrAlreadyExists
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrOperationFailed, err)
}
