package api

import (
	"errors"
	"io"
	"net/http"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/infra/logging"
	"linkbio-billing/internal/usecase"
)

type createOrderRequest struct {
	CouponCode string `json:"couponCode" validate:"omitempty,max=64"`
}

type verifyRequest struct {
	OrderID    string `json:"razorpay_order_id" validate:"required"`
	PaymentID  string `json:"razorpay_payment_id" validate:"required"`
	Signature  string `json:"razorpay_signature" validate:"required"`
	CouponCode string `json:"couponCode" validate:"omitempty,max=64"`
}

type validateCouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type couponQuoteResponse struct {
	Code          string             `json:"code"`
	DiscountType  model.DiscountType `json:"discountType"`
	DiscountValue float64            `json:"discountValue"`
	Description   string             `json:"description"`
	BaseAmount    int64              `json:"baseAmount"`
	Discount      int64              `json:"discount"`
	FinalAmount   int64              `json:"finalAmount"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	// an empty body means no coupon, whatever the framing
	if err := decode(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.writeError(w, r, err)
		return
	}
	p, _ := principalFrom(r.Context())
	res, err := s.payments.CreateOrder(r.Context(), p.UserID, req.CouponCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, _ := principalFrom(r.Context())
	res, err := s.payments.Verify(r.Context(), p.UserID, usecase.VerifyInput{
		OrderID:    req.OrderID,
		PaymentID:  req.PaymentID,
		Signature:  req.Signature,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, _ := principalFrom(r.Context())
	q, err := s.coupons.Quote(r.Context(), p.UserID, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, couponQuoteResponse{
		Code:          q.Coupon.Code,
		DiscountType:  q.Coupon.DiscountType,
		DiscountValue: q.Coupon.DiscountValue,
		Description:   q.Coupon.Description,
		BaseAmount:    q.Quote.Base,
		Discount:      q.Quote.Discount,
		FinalAmount:   q.Quote.Amount,
	})
}

func (s *Server) handlePublicCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := s.coupons.ListPublic(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.PublicCoupon{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"coupons": list})
}

// handleWebhook needs the raw body: the signature covers the exact bytes sent.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	sig := r.Header.Get("X-Razorpay-Signature")
	if err := s.payments.HandleWebhook(r.Context(), body, sig); err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("webhook rejected")
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
