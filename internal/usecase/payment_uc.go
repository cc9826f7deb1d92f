package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/adapter"
	"linkbio-billing/internal/domain/ports/repository"
	"linkbio-billing/internal/infra/logging"
	"linkbio-billing/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

type OrderResult struct {
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	KeyID      string `json:"keyId"`
	BaseAmount int64  `json:"baseAmount"`
	Discount   int64  `json:"discount"`
	CouponCode string `json:"couponCode,omitempty"`
}

type VerifyInput struct {
	OrderID    string
	PaymentID  string
	Signature  string
	CouponCode string // optional; informational, the order's coupon applies
}

type VerifyResult struct {
	Plan          model.Plan `json:"plan"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	InvoiceNumber string     `json:"invoiceNumber"`
	PaymentID     string     `json:"paymentId"`
}

type PaymentUseCase interface {
	// CreateOrder opens a gateway order for one pro month, optionally discounted by couponCode.
	CreateOrder(ctx context.Context, userID, couponCode string) (*OrderResult, error)
	// Verify checks the checkout signature and, on success, upgrades the user,
	// records the payment and emails the invoice. Repeated calls for the same
	// gateway payment return the first result.
	Verify(ctx context.Context, userID string, in VerifyInput) (*VerifyResult, error)
	// HandleWebhook authenticates and applies a gateway event.
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	// Refund reverses a paid payment at the gateway, then locally.
	Refund(ctx context.Context, paymentID string) (*model.Payment, error)
	List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error)
}

type paymentUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	coupons  CouponUseCase
	notify   NotificationUseCase
	gateway  adapter.PaymentGateway
	pricing  Pricing
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	users repository.UserRepository,
	payments repository.PaymentRepository,
	coupons CouponUseCase,
	notify NotificationUseCase,
	gateway adapter.PaymentGateway,
	pricing Pricing,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		users:    users,
		payments: payments,
		coupons:  coupons,
		notify:   notify,
		gateway:  gateway,
		pricing:  pricing,
		log:      &l,
	}
}

func (u *paymentUC) CreateOrder(ctx context.Context, userID, couponCode string) (*OrderResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateOrder")()
	log := logging.With(ctx, u.log)

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if user.IsPro(now) {
		return nil, domain.ErrAlreadyPro
	}

	var coupon *model.Coupon
	if model.NormalizeCode(couponCode) != "" {
		if coupon, err = u.coupons.Validate(ctx, couponCode); err != nil {
			return nil, err
		}
	}
	q := u.pricing.Quote(coupon)

	notes := map[string]string{"user_id": user.ID, "plan": string(model.PlanPro)}
	if coupon != nil {
		notes["coupon_code"] = coupon.Code
		if coupon.RazorpayOfferID != "" {
			notes["offer_id"] = coupon.RazorpayOfferID
		}
	}
	order, err := u.gateway.CreateOrder(ctx, adapter.OrderRequest{
		Amount:   q.Amount,
		Currency: u.pricing.Currency,
		Receipt:  "rcpt_" + ulid.Make().String(),
		Notes:    notes,
	})
	if err != nil {
		log.Error().Err(err).Msg("gateway order creation failed")
		return nil, fmt.Errorf("%w: create order: %v", domain.ErrGateway, err)
	}

	co := &model.Checkout{
		OrderID:    order.ID,
		Amount:     q.Amount,
		BaseAmount: q.Base,
		Discount:   q.Discount,
		Currency:   u.pricing.Currency,
		CreatedAt:  now,
	}
	if coupon != nil {
		co.CouponCode = coupon.Code
	}
	if err := u.users.AddCheckout(ctx, user.ID, co); err != nil {
		return nil, err
	}

	log.Info().Str("order_id", order.ID).Int64("amount", q.Amount).Str("coupon", co.CouponCode).Msg("order created")
	return &OrderResult{
		OrderID:    order.ID,
		Amount:     q.Amount,
		Currency:   u.pricing.Currency,
		KeyID:      u.gateway.KeyID(),
		BaseAmount: q.Base,
		Discount:   q.Discount,
		CouponCode: co.CouponCode,
	}, nil
}

func (u *paymentUC) Verify(ctx context.Context, userID string, in VerifyInput) (*VerifyResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Verify")()
	start := time.Now()

	res, err := u.verify(ctx, userID, in)
	switch {
	case err == nil:
		metrics.ObservePaymentVerify("ok", "", time.Since(start))
	case errors.Is(err, domain.ErrInvalidSignature):
		metrics.ObservePaymentVerify("fail", "invalid_signature", time.Since(start))
	case errors.Is(err, domain.ErrOrderNotFound):
		metrics.ObservePaymentVerify("fail", "order_not_found", time.Since(start))
	default:
		metrics.ObservePaymentVerify("fail", "error", time.Since(start))
	}
	return res, err
}

func (u *paymentUC) verify(ctx context.Context, userID string, in VerifyInput) (*VerifyResult, error) {
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !u.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		logging.With(ctx, u.log).Warn().Str("order_id", in.OrderID).Str("payment_id", in.PaymentID).Msg("payment signature mismatch")
		return nil, domain.ErrInvalidSignature
	}

	if res, done, err := u.alreadyRecorded(ctx, userID, in.PaymentID); err != nil || done {
		return res, err
	}
	return u.finalize(ctx, userID, in.OrderID, in.PaymentID, in.CouponCode)
}

// alreadyRecorded answers repeated callbacks for a payment that already has a row.
func (u *paymentUC) alreadyRecorded(ctx context.Context, userID, gatewayPaymentID string) (*VerifyResult, bool, error) {
	p, err := u.payments.FindByGatewayID(ctx, gatewayPaymentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if p.UserID != userID || p.Status == model.PaymentStatusFailed {
		return nil, true, domain.ErrOrderNotFound
	}
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, true, err
	}
	res := &VerifyResult{Plan: user.Plan, InvoiceNumber: p.InvoiceNumber, PaymentID: p.ID}
	if user.PlanExpiresAt != nil {
		res.ExpiresAt = *user.PlanExpiresAt
	}
	return res, true, nil
}

// finalize turns the user's pending checkout for orderID into a pro month.
// The checkout's coupon is authoritative; a differing couponCode is logged.
func (u *paymentUC) finalize(ctx context.Context, userID, orderID, gatewayPaymentID, couponCode string) (*VerifyResult, error) {
	log := logging.With(ctx, u.log).With().Str("order_id", orderID).Str("payment_id", gatewayPaymentID).Logger()

	user, co, now, err := u.activate(ctx, userID, orderID, gatewayPaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			// a concurrent callback consumed the checkout first
			if res, done, rerr := u.alreadyRecorded(ctx, userID, gatewayPaymentID); done {
				return res, rerr
			}
		}
		return nil, err
	}
	expiresAt := *user.PlanExpiresAt
	if code := model.NormalizeCode(couponCode); code != "" && code != co.CouponCode {
		log.Warn().Str("client_coupon", code).Str("order_coupon", co.CouponCode).Msg("client coupon differs from the order; order terms applied")
	}

	p := &model.Payment{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Plan:          model.PlanPro,
		Amount:        co.Amount,
		BaseAmount:    co.BaseAmount,
		Discount:      co.Discount,
		Currency:      co.Currency,
		Provider:      u.gateway.Name(),
		OrderID:       orderID,
		PaymentID:     gatewayPaymentID,
		InvoiceNumber: model.NewInvoiceNumber(now),
		CouponCode:    co.CouponCode,
		Status:        model.PaymentStatusPaid,
		CreatedAt:     now,
		PaidAt:        &now,
	}
	if err := u.payments.Create(ctx, p); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			if res, done, rerr := u.alreadyRecorded(ctx, userID, gatewayPaymentID); done {
				return res, rerr
			}
		}
		log.Error().Err(err).Msg("plan upgraded but payment row not written")
		return nil, fmt.Errorf("record payment: %w", err)
	}
	metrics.IncPayment(string(model.PaymentStatusPaid))
	metrics.AddPaymentRevenue(p.Currency, p.Amount)

	if p.CouponCode != "" {
		if err := u.coupons.Redeem(ctx, p.CouponCode); err != nil {
			log.Warn().Err(err).Str("coupon", p.CouponCode).Msg("coupon redemption not counted")
		}
	}
	if err := u.notify.SendInvoice(ctx, user, p); err != nil {
		log.Error().Err(err).Str("invoice", p.InvoiceNumber).Msg("invoice email failed")
	}

	log.Info().Str("invoice", p.InvoiceNumber).Time("expires_at", expiresAt).Msg("pro plan activated")
	return &VerifyResult{
		Plan:          model.PlanPro,
		ExpiresAt:     expiresAt,
		InvoiceNumber: p.InvoiceNumber,
		PaymentID:     p.ID,
	}, nil
}

const activateAttempts = 3

// activate consumes the checkout for orderID. The write is conditional on the
// expiry read here, so two orders paid at once each add their own month.
func (u *paymentUC) activate(ctx context.Context, userID, orderID, gatewayPaymentID string) (*model.User, *model.Checkout, time.Time, error) {
	for attempt := 1; ; attempt++ {
		user, err := u.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				err = domain.ErrOrderNotFound
			}
			return nil, nil, time.Time{}, err
		}
		co := user.PendingCheckout(orderID)
		if co == nil {
			return nil, nil, time.Time{}, domain.ErrOrderNotFound
		}
		now := time.Now().UTC()
		expiresAt := user.RenewalBase(now).AddDate(0, 1, 0)
		sub := model.NewActiveSubscription(u.gateway.Name(), orderID, gatewayPaymentID, now)
		err = u.users.ActivatePro(ctx, user.ID, orderID, user.PlanExpiresAt, expiresAt, sub)
		if err == nil {
			user.Plan, user.PlanExpiresAt, user.Subscription = model.PlanPro, &expiresAt, sub
			return user, co, now, nil
		}
		if !errors.Is(err, domain.ErrOrderNotFound) || attempt == activateAttempts {
			return nil, nil, time.Time{}, err
		}
	}
}

func (u *paymentUC) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	ev, err := u.gateway.ParseWebhook(body, signature)
	if err != nil {
		return err
	}
	log := logging.With(ctx, u.log).With().Str("event", ev.Event).Str("payment_id", ev.PaymentID).Logger()

	switch ev.Event {
	case EventPaymentCaptured:
		userID := ev.Notes["user_id"]
		if userID == "" || ev.OrderID == "" {
			log.Warn().Msg("captured payment without user or order; ignored")
			return nil
		}
		if _, done, err := u.alreadyRecorded(ctx, userID, ev.PaymentID); done || err != nil {
			return ignoreOrderNotFound(err)
		}
		_, err := u.finalize(ctx, userID, ev.OrderID, ev.PaymentID, "")
		if errors.Is(err, domain.ErrOrderNotFound) {
			log.Warn().Str("order_id", ev.OrderID).Msg("captured payment has no pending checkout")
			return nil
		}
		return err

	case EventPaymentFailed:
		if _, err := u.payments.FindByGatewayID(ctx, ev.PaymentID); err == nil {
			return nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		now := time.Now().UTC()
		p := &model.Payment{
			ID:            uuid.NewString(),
			UserID:        ev.Notes["user_id"],
			Plan:          model.PlanPro,
			Amount:        ev.Amount,
			BaseAmount:    ev.Amount,
			Currency:      ev.Currency,
			Provider:      u.gateway.Name(),
			OrderID:       ev.OrderID,
			PaymentID:     ev.PaymentID,
			CouponCode:    ev.Notes["coupon_code"],
			Status:        model.PaymentStatusFailed,
			FailureReason: ev.ErrorReason,
			CreatedAt:     now,
		}
		if err := u.payments.Create(ctx, p); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
		metrics.IncPayment(string(model.PaymentStatusFailed))
		log.Info().Str("reason", ev.ErrorReason).Msg("failed payment recorded")
		return nil

	default:
		log.Debug().Msg("webhook event ignored")
		return nil
	}
}

func ignoreOrderNotFound(err error) error {
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil
	}
	return err
}

func (u *paymentUC) Refund(ctx context.Context, paymentID string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Refund")()
	log := logging.With(ctx, u.log).With().Str("payment", paymentID).Logger()

	p, err := u.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	if err := p.CheckRefundable(); err != nil {
		metrics.IncRefund("rejected")
		return nil, err
	}

	res, err := u.gateway.Refund(ctx, p.PaymentID, p.Amount, map[string]string{
		"payment_id": p.ID,
		"invoice":    p.InvoiceNumber,
	})
	if err != nil {
		metrics.IncRefund("gateway_error")
		log.Error().Err(err).Msg("gateway refund failed")
		return nil, fmt.Errorf("%w: refund: %v", domain.ErrGateway, err)
	}

	now := time.Now().UTC()
	if err := u.payments.MarkRefunded(ctx, p.ID, res.ID, now); err != nil {
		metrics.IncRefund("error")
		log.Error().Err(err).Str("refund_id", res.ID).Msg("gateway refunded but payment not marked")
		return nil, err
	}
	p.Status, p.RefundID, p.RefundedAt = model.PaymentStatusRefunded, res.ID, &now
	metrics.IncRefund("ok")
	metrics.IncPayment(string(model.PaymentStatusRefunded))

	downgraded, err := u.users.DowngradeIfBackedBy(ctx, p.UserID, p.PaymentID)
	if err != nil {
		log.Error().Err(err).Msg("refund recorded but user not downgraded")
	}

	if user, err := u.users.FindByID(ctx, p.UserID); err != nil {
		log.Warn().Err(err).Msg("refund email skipped: user lookup failed")
	} else if err := u.notify.SendRefundConfirmation(ctx, user, p); err != nil {
		log.Warn().Err(err).Msg("refund confirmation email failed")
	}

	log.Info().Str("refund_id", res.ID).Bool("downgraded", downgraded).Msg("payment refunded")
	return p, nil
}

func (u *paymentUC) List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return u.payments.List(ctx, f)
}
