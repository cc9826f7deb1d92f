package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/infra/logging"

	"github.com/go-playground/validator/v10"
)

const codeInternal = "INTERNAL"

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first errors.Is match wins.
var errorTable = []errorMapping{
	{domain.ErrInvalidArgument, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrCouponInvalid, http.StatusBadRequest, "COUPON_INVALID"},
	{domain.ErrCouponExhausted, http.StatusBadRequest, "COUPON_EXHAUSTED"},
	{domain.ErrInvalidSignature, http.StatusBadRequest, "INVALID_SIGNATURE"},
	{domain.ErrInvalidWebhook, http.StatusBadRequest, "INVALID_WEBHOOK"},

	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{domain.ErrSessionNotFound, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{domain.ErrProRequired, http.StatusForbidden, "PRO_REQUIRED"},
	{domain.ErrPlanLimitReached, http.StatusForbidden, "PLAN_LIMIT_REACHED"},

	{domain.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
	{domain.ErrPaymentNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},

	{domain.ErrAlreadyPro, http.StatusConflict, "ALREADY_PRO"},
	{domain.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
	{domain.ErrOfferLocked, http.StatusConflict, "OFFER_LOCKED"},
	{domain.ErrRefundNotAllowed, http.StatusConflict, "REFUND_NOT_ALLOWED"},

	{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},

	{domain.ErrGateway, http.StatusBadGateway, "GATEWAY_ERROR"},
	{domain.ErrMailFailed, http.StatusBadGateway, "MAIL_ERROR"},
}

var genericMessages = map[string]string{
	"GATEWAY_ERROR": "payment provider unavailable, please try again",
	"MAIL_ERROR":    "email could not be sent",
	codeInternal:    "internal error",
}

// classify maps err to a status, a stable code and a client-safe message.
// Dependency failures never leak their cause.
func classify(err error) (int, string, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			if msg, ok := genericMessages[m.code]; ok {
				return m.status, m.code, msg
			}
			return m.status, m.code, err.Error()
		}
	}
	return http.StatusInternalServerError, codeInternal, genericMessages[codeInternal]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("code", code).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and runs its validate tags.
var errEmptyBody = fmt.Errorf("%w: request body is empty", domain.ErrInvalidArgument)

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("%w: malformed JSON", domain.ErrInvalidArgument)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "email":
			parts = append(parts, field+" must be a valid email")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}
