package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/infra/logging"
	"linkbio-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// ===== Coupons =====

type couponCreateRequest struct {
	Code            string     `json:"code" validate:"required,max=64"`
	Description     string     `json:"description" validate:"max=280"`
	DiscountType    string     `json:"discountType" validate:"required,oneof=percent fixed"`
	DiscountValue   float64    `json:"discountValue" validate:"gt=0"`
	MaxUses         *int       `json:"maxUses" validate:"omitempty,min=1"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	IsActive        *bool      `json:"isActive"`
	IsPublic        bool       `json:"isPublic"`
	RazorpayOfferID string     `json:"razorpayOfferId" validate:"max=64"`
}

type couponPatchRequest struct {
	Description   *string    `json:"description" validate:"omitempty,max=280"`
	DiscountType  *string    `json:"discountType" validate:"omitempty,oneof=percent fixed"`
	DiscountValue *float64   `json:"discountValue" validate:"omitempty,gt=0"`
	MaxUses       *int       `json:"maxUses" validate:"omitempty,min=1"`
	ClearMaxUses  bool       `json:"clearMaxUses"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	ClearExpiry   bool       `json:"clearExpiry"`
	IsActive      *bool      `json:"isActive"`
	IsPublic      *bool      `json:"isPublic"`
}

func (s *Server) handleListCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := s.coupons.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*model.Coupon{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"coupons": list})
}

func (s *Server) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponCreateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.coupons.Create(r.Context(), usecase.CouponInput{
		Code:            req.Code,
		Description:     req.Description,
		DiscountType:    model.DiscountType(req.DiscountType),
		DiscountValue:   req.DiscountValue,
		MaxUses:         req.MaxUses,
		ExpiresAt:       req.ExpiresAt,
		IsActive:        req.IsActive,
		IsPublic:        req.IsPublic,
		RazorpayOfferID: req.RazorpayOfferID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.audit(r, "coupon.create", c.ID)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponPatchRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	patch := usecase.CouponPatch{
		Description:   req.Description,
		DiscountValue: req.DiscountValue,
		MaxUses:       req.MaxUses,
		ClearMaxUses:  req.ClearMaxUses,
		ExpiresAt:     req.ExpiresAt,
		ClearExpiry:   req.ClearExpiry,
		IsActive:      req.IsActive,
		IsPublic:      req.IsPublic,
	}
	if req.DiscountType != nil {
		dt := model.DiscountType(*req.DiscountType)
		patch.DiscountType = &dt
	}
	id := chi.URLParam(r, "id")
	c, err := s.coupons.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.audit(r, "coupon.update", id)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.coupons.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.audit(r, "coupon.delete", id)
	w.WriteHeader(http.StatusNoContent)
}

// ===== Payments =====

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.PaymentFilter{
		Status: model.PaymentStatus(q.Get("status")),
		UserID: q.Get("userId"),
		Limit:  defaultPageSize,
	}
	switch f.Status {
	case "", model.PaymentStatusPaid, model.PaymentStatusFailed, model.PaymentStatusRefunded:
	default:
		s.writeError(w, r, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, f.Status))
		return
	}
	var err error
	if f.Offset, err = intParam(q.Get("offset"), 0); err != nil || f.Offset < 0 {
		s.writeError(w, r, fmt.Errorf("%w: offset", domain.ErrInvalidArgument))
		return
	}
	if f.Limit, err = intParam(q.Get("limit"), defaultPageSize); err != nil || f.Limit < 1 {
		s.writeError(w, r, fmt.Errorf("%w: limit", domain.ErrInvalidArgument))
		return
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}

	list, total, err := s.payments.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*model.Payment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payments": list,
		"total":    total,
		"offset":   f.Offset,
		"limit":    f.Limit,
	})
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.payments.Refund(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.audit(r, "payment.refund", id)
	writeJSON(w, http.StatusOK, p)
}

// ===== Users =====

type updatePlanRequest struct {
	Plan      string     `json:"plan" validate:"required,oneof=free pro"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req updatePlanRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	u, err := s.subscriptions.UpdateUserPlan(r.Context(), id, model.Plan(req.Plan), req.ExpiresAt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.audit(r, "user.plan", id)
	writeJSON(w, http.StatusOK, u)
}

// ===== Analytics & broadcasts =====

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	ov, err := s.stats.Overview(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

type broadcastRequest struct {
	Subject  string `json:"subject" validate:"required,max=200"`
	HTML     string `json:"html" validate:"required"`
	Audience string `json:"audience" validate:"required,oneof=all free pro"`
}

func (s *Server) handleStartBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, _ := principalFrom(r.Context())
	job, err := s.broadcasts.Start(r.Context(), usecase.BroadcastInput{
		Subject:   req.Subject,
		HTML:      req.HTML,
		Audience:  model.Audience(req.Audience),
		CreatedBy: p.UserID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.audit(r, "broadcast.start", job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetBroadcast(w http.ResponseWriter, r *http.Request) {
	job, err := s.broadcasts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) audit(r *http.Request, action, target string) {
	logging.With(r.Context(), s.log).Info().Str("action", action).Str("target", target).Msg("admin action")
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
