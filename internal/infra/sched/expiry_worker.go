package sched

import (
	"context"
	"time"

	"linkbio-billing/internal/usecase"

	"github.com/rs/zerolog"
)

// ExpiryWorker downgrades pro plans whose paid period has ended.
type ExpiryWorker struct {
	subUC usecase.SubscriptionUseCase
	now   func() time.Time
	log   *zerolog.Logger
}

func NewExpiryWorker(subUC usecase.SubscriptionUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		subUC: subUC,
		now:   time.Now,
		log:   &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	n, err := w.subUC.DowngradeExpired(ctx, w.now().UTC())
	if err != nil {
		return err
	}
	w.log.Info().Int64("count", n).Msg("expiry sweep done")
	return nil
}
