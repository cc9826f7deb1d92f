package mail

import (
	"context"

	"linkbio-billing/internal/domain/ports/adapter"
	"linkbio-billing/internal/infra/logging"

	"github.com/rs/zerolog"
)

var _ adapter.Mailer = (*NoopMailer)(nil)

// NoopMailer logs instead of sending. Used in development.
type NoopMailer struct {
	log *zerolog.Logger
	dev bool
}

func NewNoopMailer(logger *zerolog.Logger, dev bool) *NoopMailer {
	l := logger.With().Str("component", "NoopMailer").Logger()
	return &NoopMailer{log: &l, dev: dev}
}

func (n *NoopMailer) Send(ctx context.Context, e adapter.Email) error {
	n.log.Info().
		Str("to", logging.RedactEmail(e.To, n.dev)).
		Str("subject", e.Subject).
		Int("attachments", len(e.Attachments)).
		Msg("email suppressed")
	return nil
}
