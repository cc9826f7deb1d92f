package mail

import (
	"fmt"
	"strings"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// NewMailer picks the delivery backend named by cfg.Provider.
func NewMailer(cfg config.MailConfig, dev bool, logger *zerolog.Logger) (adapter.Mailer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "brevo":
		return NewBrevoMailer(cfg), nil
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "", "noop":
		return NewNoopMailer(logger, dev), nil
	}
	return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
}
