package sched

import (
	"context"
	"time"

	"linkbio-billing/internal/usecase"

	"github.com/rs/zerolog"
)

// NotificationWorker sends the pre-expiry reminder emails.
type NotificationWorker struct {
	notifUC usecase.NotificationUseCase
	now     func() time.Time
	log     *zerolog.Logger
}

func NewNotificationWorker(notifUC usecase.NotificationUseCase, logger *zerolog.Logger) *NotificationWorker {
	compLog := logger.With().Str("component", "NotificationWorker").Logger()
	return &NotificationWorker{
		notifUC: notifUC,
		now:     time.Now,
		log:     &compLog,
	}
}

func (w *NotificationWorker) Run(ctx context.Context) error {
	sent, err := w.notifUC.SendExpirationAlerts(ctx, w.now().UTC())
	if sent > 0 {
		w.log.Info().Int("count", sent).Msg("expiry notifications sent")
	}
	return err
}
