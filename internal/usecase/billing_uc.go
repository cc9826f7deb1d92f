package usecase

import (
	"context"
	"errors"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/adapter"
	"linkbio-billing/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ BillingUseCase = (*billingUC)(nil)

type BillingOverview struct {
	Entitlements *model.Entitlements `json:"entitlements"`
	Payments     []*model.Payment    `json:"payments"`
}

// Requester identifies the caller of an ownership-checked operation.
type Requester struct {
	UserID string
	Admin  bool
}

type BillingUseCase interface {
	Overview(ctx context.Context, userID string) (*BillingOverview, error)
	// Invoice renders the PDF for invoiceNumber. Only the payer or an admin may fetch it.
	Invoice(ctx context.Context, who Requester, invoiceNumber string) ([]byte, *model.Payment, error)
}

type billingUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	renderer adapter.InvoiceRenderer
	issuer   adapter.Issuer
	log      *zerolog.Logger
}

func NewBillingUseCase(
	users repository.UserRepository,
	payments repository.PaymentRepository,
	renderer adapter.InvoiceRenderer,
	issuer adapter.Issuer,
	logger *zerolog.Logger,
) *billingUC {
	return &billingUC{users: users, payments: payments, renderer: renderer, issuer: issuer, log: logger}
}

func (b *billingUC) Overview(ctx context.Context, userID string) (*BillingOverview, error) {
	user, err := b.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := b.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*model.Payment{}
	}
	return &BillingOverview{Entitlements: user.Entitlements(), Payments: list}, nil
}

func (b *billingUC) Invoice(ctx context.Context, who Requester, invoiceNumber string) ([]byte, *model.Payment, error) {
	p, err := b.payments.FindByInvoice(ctx, invoiceNumber)
	if err != nil {
		return nil, nil, err
	}
	if p.UserID != who.UserID && !who.Admin {
		return nil, nil, domain.ErrForbidden
	}
	customer, err := b.users.FindByID(ctx, p.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}
	if customer == nil {
		// account deleted since; the invoice still renders
		customer = &model.User{ID: p.UserID}
	}
	pdf, err := b.renderer.Render(adapter.InvoiceData{Issuer: b.issuer, Customer: customer, Payment: p})
	if err != nil {
		b.log.Error().Err(err).Str("invoice", invoiceNumber).Msg("invoice render failed")
		return nil, nil, err
	}
	return pdf, p, nil
}
