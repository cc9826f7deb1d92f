package usecase

import (
	"context"
	"fmt"
	"time"

	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/adapter"
	"linkbio-billing/internal/domain/ports/repository"
	"linkbio-billing/internal/infra/logging"
	"linkbio-billing/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// SendExpirationAlerts emails every pro user whose plan ends within the
	// lead window, at most once per expiry date. Returns the number sent.
	SendExpirationAlerts(ctx context.Context, now time.Time) (int, error)
	SendInvoice(ctx context.Context, user *model.User, p *model.Payment) error
	SendRefundConfirmation(ctx context.Context, user *model.User, p *model.Payment) error
}

type NotificationOptions struct {
	LeadDays int
	RenewURL string
	Issuer   adapter.Issuer
}

type notificationUC struct {
	users    repository.UserRepository
	mailer   adapter.Mailer
	renderer adapter.InvoiceRenderer
	opts     NotificationOptions
	log      *zerolog.Logger
}

func NewNotificationUseCase(
	users repository.UserRepository,
	mailer adapter.Mailer,
	renderer adapter.InvoiceRenderer,
	opts NotificationOptions,
	logger *zerolog.Logger,
) *notificationUC {
	if opts.LeadDays <= 0 {
		opts.LeadDays = 3
	}
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{users: users, mailer: mailer, renderer: renderer, opts: opts, log: &l}
}

func (n *notificationUC) SendExpirationAlerts(ctx context.Context, now time.Time) (int, error) {
	defer logging.TraceDuration(n.log, "NotificationUC.SendExpirationAlerts")()

	until := now.AddDate(0, 0, n.opts.LeadDays)
	candidates, err := n.users.FindExpiring(ctx, now, until)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, u := range candidates {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if u.PlanExpiresAt == nil {
			continue
		}
		exp := *u.PlanExpiresAt

		claimed, err := n.users.ClaimExpiryAlert(ctx, u.ID, exp)
		if err != nil {
			n.log.Error().Err(err).Str("user_id", u.ID).Msg("claim expiry alert")
			continue
		}
		if !claimed {
			metrics.IncExpiryAlert("skipped")
			continue
		}

		if err := n.sendExpiry(ctx, u, exp); err != nil {
			metrics.IncExpiryAlert("failed")
			n.log.Warn().Err(err).Str("user_id", u.ID).Msg("expiry alert not delivered; releasing claim")
			if rerr := n.users.ReleaseExpiryAlert(ctx, u.ID, exp); rerr != nil {
				n.log.Error().Err(rerr).Str("user_id", u.ID).Msg("release expiry alert claim")
			}
			continue
		}
		metrics.IncExpiryAlert("sent")
		sent++
	}
	return sent, nil
}

func (n *notificationUC) sendExpiry(ctx context.Context, u *model.User, exp time.Time) error {
	html, err := renderEmail("expiry", emailData{User: u, ExpiresAt: exp, RenewURL: n.opts.RenewURL})
	if err != nil {
		return err
	}
	err = n.mailer.Send(ctx, adapter.Email{
		To:      u.Email,
		ToName:  u.Username,
		Subject: "Your Pro plan expires soon",
		HTML:    html,
	})
	metrics.IncEmail("expiry_alert", err)
	return err
}

func (n *notificationUC) SendInvoice(ctx context.Context, user *model.User, p *model.Payment) error {
	pdf, err := n.renderer.Render(adapter.InvoiceData{Issuer: n.opts.Issuer, Customer: user, Payment: p})
	if err != nil {
		return fmt.Errorf("render invoice %s: %w", p.InvoiceNumber, err)
	}
	var exp time.Time
	if user.PlanExpiresAt != nil {
		exp = *user.PlanExpiresAt
	}
	html, err := renderEmail("invoice", emailData{User: user, Payment: p, ExpiresAt: exp})
	if err != nil {
		return err
	}
	err = n.mailer.Send(ctx, adapter.Email{
		To:      user.Email,
		ToName:  user.Username,
		Subject: "Your Pro invoice " + p.InvoiceNumber,
		HTML:    html,
		Attachments: []adapter.Attachment{{
			Name:        p.InvoiceNumber + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	})
	metrics.IncEmail("invoice", err)
	return err
}

func (n *notificationUC) SendRefundConfirmation(ctx context.Context, user *model.User, p *model.Payment) error {
	html, err := renderEmail("refund", emailData{User: user, Payment: p})
	if err != nil {
		return err
	}
	err = n.mailer.Send(ctx, adapter.Email{
		To:      user.Email,
		ToName:  user.Username,
		Subject: "Your refund has been processed",
		HTML:    html,
	})
	metrics.IncEmail("refund", err)
	return err
}
