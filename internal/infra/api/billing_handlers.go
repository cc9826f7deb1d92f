package api

import (
	"fmt"
	"net/http"
	"strconv"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleBillingOverview(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	ov, err := s.billing.Overview(r.Context(), p.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	number := chi.URLParam(r, "invoiceNumber")
	pdf, pay, err := s.billing.Invoice(r.Context(), usecase.Requester{UserID: p.UserID, Admin: p.IsAdmin()}, number)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pay.InvoiceNumber+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleFeature(w http.ResponseWriter, r *http.Request) {
	feature, ok := model.ParseFeature(chi.URLParam(r, "feature"))
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: unknown feature %q", domain.ErrInvalidArgument, chi.URLParam(r, "feature")))
		return
	}
	p, _ := principalFrom(r.Context())
	if err := s.subscriptions.RequireFeature(r.Context(), p.UserID, feature); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feature": feature, "allowed": true})
}

type linkCheckRequest struct {
	Current *int `json:"current" validate:"required,min=0"`
}

func (s *Server) handleLinkCheck(w http.ResponseWriter, r *http.Request) {
	var req linkCheckRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, _ := principalFrom(r.Context())
	limits, err := s.subscriptions.CheckLinkLimit(r.Context(), p.UserID, *req.Current)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"allowed": true, "maxLinks": limits.MaxLinks, "current": *req.Current})
}
