//go:build !integration

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/infra/api"
	"linkbio-billing/internal/infra/logging"
	"linkbio-billing/internal/usecase"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type harness struct {
	handler  http.Handler
	auth     *api.AuthManager
	users    *mockUserUC
	payments *mockPaymentUC
	coupons  *mockCouponUC
	subs     *mockSubscriptionUC
	billing  *mockBillingUC
	stats    *mockStatsUC
	bcast    *mockBroadcastUC

	free, pro, admin *model.User
}

func newUser(t *testing.T, email string, plan model.Plan, role model.Role) *model.User {
	t.Helper()
	u, err := model.NewUser(email, strings.Split(email, "@")[0], "hash:password123")
	require.NoError(t, err)
	u.Plan, u.Role = plan, role
	if plan == model.PlanPro {
		exp := time.Now().Add(20 * 24 * time.Hour)
		u.PlanExpiresAt = &exp
	}
	return u
}

func newHarness(t *testing.T, checks map[string]api.HealthCheck) *harness {
	t.Helper()
	h := &harness{
		free:  newUser(t, "free@example.com", model.PlanFree, model.RoleUser),
		pro:   newUser(t, "pro@example.com", model.PlanPro, model.RoleUser),
		admin: newUser(t, "admin@example.com", model.PlanFree, model.RoleAdmin),
	}
	h.users = newMockUserUC(h.free, h.pro, h.admin)
	h.payments = &mockPaymentUC{}
	h.coupons = &mockCouponUC{}
	h.subs = &mockSubscriptionUC{users: h.users}
	h.billing = &mockBillingUC{}
	h.stats = &mockStatsUC{}
	h.bcast = &mockBroadcastUC{}
	h.auth = api.NewAuthManager(config.AuthConfig{JWTSecret: testSecret, CookieName: "lb_session"})

	srv := api.NewServer(api.UseCases{
		Users:         h.users,
		Payments:      h.payments,
		Coupons:       h.coupons,
		Subscriptions: h.subs,
		Billing:       h.billing,
		Stats:         h.stats,
		Broadcasts:    h.bcast,
	}, h.auth, config.HTTPConfig{RequestTimeout: 5 * time.Second}, checks, logging.Nop())
	h.handler = srv.Router()
	return h
}

func (h *harness) tokenFor(t *testing.T, u *model.User) string {
	t.Helper()
	sess, err := h.users.StartSession(context.Background(), u)
	require.NoError(t, err)
	tok, err := h.auth.Mint(httptest.NewRecorder(), sess)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

type errResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errResp {
	t.Helper()
	var e errResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), "body=%s", rec.Body.String())
	return e
}

func TestHealthAndMetrics(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := newHarness(t, map[string]api.HealthCheck{"mongo": func(context.Context) error { return nil }})
		rec := h.do(http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ok"`)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("degraded", func(t *testing.T) {
		h := newHarness(t, map[string]api.HealthCheck{"redis": func(context.Context) error { return errors.New("down") }})
		rec := h.do(http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "redis")
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do(http.MethodGet, "/metrics", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("inbound request id is echoed", func(t *testing.T) {
		h := newHarness(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("unknown route is JSON 404", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do(http.MethodGet, "/api/nope", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeErr(t, rec).Code)
	})
}

func TestAuthFlow(t *testing.T) {
	t.Run("register sets the session cookie", func(t *testing.T) {
		h := newHarness(t, nil)

		rec := h.do(http.MethodPost, "/api/auth/register", `{"email":"New@Example.com","username":"newbie","password":"password123"}`, "")

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var body struct {
			User  model.User `json:"user"`
			Token string     `json:"token"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "new@example.com", body.User.Email)
		assert.NotEmpty(t, body.Token)
		assert.NotContains(t, rec.Body.String(), "password")

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == "lb_session" {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, body.Token, cookie.Value)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do(http.MethodPost, "/api/auth/register", `{"email":"free@example.com","username":"again","password":"password123"}`, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_EXISTS", decodeErr(t, rec).Code)
	})

	t.Run("validation errors name the field", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do(http.MethodPost, "/api/auth/register", `{"email":"not-an-email","username":"ab","password":"x"}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		e := decodeErr(t, rec)
		assert.Equal(t, "INVALID_ARGUMENT", e.Code)
		assert.Contains(t, e.Error, "email must be a valid email")
		assert.Contains(t, e.Error, "username")
	})

	t.Run("malformed and unknown fields are rejected", func(t *testing.T) {
		h := newHarness(t, nil)
		assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/auth/login", `{"email":`, "").Code)
		assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/auth/login", `{"email":"a@b.co","password":"x","role":"admin"}`, "").Code)
		assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/auth/login", "", "").Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do(http.MethodPost, "/api/auth/login", `{"email":"free@example.com","password":"nope"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeErr(t, rec).Code)
	})

	t.Run("me, logout, then the token is dead", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do(http.MethodPost, "/api/auth/login", `{"email":"pro@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body struct{ Token string }
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		me := h.do(http.MethodGet, "/api/auth/me", "", body.Token)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Contains(t, me.Body.String(), `"maxLinks":-1`)

		assert.Equal(t, http.StatusNoContent, h.do(http.MethodPost, "/api/auth/logout", "", body.Token).Code)
		assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/auth/me", "", body.Token).Code)
	})

	t.Run("cookie works like a bearer token", func(t *testing.T) {
		h := newHarness(t, nil)
		tok := h.tokenFor(t, h.free)
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: "lb_session", Value: tok})
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forged tokens are rejected", func(t *testing.T) {
		h := newHarness(t, nil)
		sess, err := h.users.StartSession(context.Background(), h.free)
		require.NoError(t, err)
		claims := api.Claims{Role: model.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{ID: sess.ID, Subject: sess.UserID, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}

		otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
		require.NoError(t, err)
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		for name, tok := range map[string]string{"other key": otherKey, "alg none": none, "garbage": "abc.def.ghi"} {
			rec := h.do(http.MethodGet, "/api/auth/me", "", tok)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		}
	})

	t.Run("role comes from the session, not the token", func(t *testing.T) {
		h := newHarness(t, nil)
		sess, err := h.users.StartSession(context.Background(), h.free)
		require.NoError(t, err)
		claims := api.Claims{Role: model.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{ID: sess.ID, Subject: sess.UserID, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		rec := h.do(http.MethodGet, "/api/admin/analytics", "", tok)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("session store outage is a 500 without detail", func(t *testing.T) {
		h := newHarness(t, nil)
		tok := h.tokenFor(t, h.free)
		h.users.CheckErr = errors.New("mongo: connection refused")
		rec := h.do(http.MethodGet, "/api/auth/me", "", tok)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "mongo")
	})
}

func TestPaymentRoutes(t *testing.T) {
	t.Run("create order requires a session", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do(http.MethodPost, "/api/payment/create-order", `{}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("create order passes the coupon and the caller", func(t *testing.T) {
		h := newHarness(t, nil)
		var gotUser, gotCoupon string
		h.payments.CreateOrderFn = func(_ context.Context, userID, code string) (*usecase.OrderResult, error) {
			gotUser, gotCoupon = userID, code
			return &usecase.OrderResult{OrderID: "order_1", Amount: 13410, Currency: "INR", KeyID: "rzp_key", BaseAmount: 14900, Discount: 1490}, nil
		}

		rec := h.do(http.MethodPost, "/api/payment/create-order", `{"couponCode":"save10"}`, h.tokenFor(t, h.free))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, h.free.ID, gotUser)
		assert.Equal(t, "save10", gotCoupon)
		assert.JSONEq(t, `{"orderId":"order_1","amount":13410,"currency":"INR","keyId":"rzp_key","baseAmount":14900,"discount":1490}`, rec.Body.String())
	})

	t.Run("create order without a body", func(t *testing.T) {
		h := newHarness(t, nil)
		h.payments.CreateOrderFn = func(_ context.Context, _, code string) (*usecase.OrderResult, error) {
			assert.Empty(t, code)
			return &usecase.OrderResult{OrderID: "order_2", Amount: 14900, Currency: "INR"}, nil
		}
		rec := h.do(http.MethodPost, "/api/payment/create-order", "", h.tokenFor(t, h.free))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("create order with an empty chunked body", func(t *testing.T) {
		h := newHarness(t, nil)
		h.payments.CreateOrderFn = func(_ context.Context, _, code string) (*usecase.OrderResult, error) {
			assert.Empty(t, code)
			return &usecase.OrderResult{OrderID: "order_3", Amount: 14900, Currency: "INR"}, nil
		}
		// an unsized reader leaves ContentLength at -1, as a chunked upload does
		req := httptest.NewRequest(http.MethodPost, "/api/payment/create-order", io.MultiReader())
		req.Header.Set("Authorization", "Bearer "+h.tokenFor(t, h.free))
		require.Equal(t, int64(-1), req.ContentLength)
		rec := httptest.NewRecorder()

		h.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("create order with malformed JSON is rejected", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do(http.MethodPost, "/api/payment/create-order", `{"couponCode":`, h.tokenFor(t, h.free))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("pro user gets ALREADY_PRO", func(t *testing.T) {
		h := newHarness(t, nil)
		h.payments.CreateOrderFn = func(context.Context, string, string) (*usecase.OrderResult, error) {
			return nil, domain.ErrAlreadyPro
		}
		rec := h.do(http.MethodPost, "/api/payment/create-order", `{}`, h.tokenFor(t, h.pro))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_PRO", decodeErr(t, rec).Code)
	})

	t.Run("gateway failure hides the cause", func(t *testing.T) {
		h := newHarness(t, nil)
		h.payments.CreateOrderFn = func(context.Context, string, string) (*usecase.OrderResult, error) {
			return nil, errors.Join(domain.ErrGateway, errors.New("razorpay: BAD_REQUEST_ERROR key_secret"))
		}
		rec := h.do(http.MethodPost, "/api/payment/create-order", `{}`, h.tokenFor(t, h.free))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		e := decodeErr(t, rec)
		assert.Equal(t, "GATEWAY_ERROR", e.Code)
		assert.NotContains(t, e.Error, "key_secret")
	})

	t.Run("verify maps the checkout payload", func(t *testing.T) {
		h := newHarness(t, nil)
		exp := time.Date(2026, 11, 19, 10, 0, 0, 0, time.UTC)
		h.payments.VerifyFn = func(_ context.Context, userID string, in usecase.VerifyInput) (*usecase.VerifyResult, error) {
			assert.Equal(t, h.free.ID, userID)
			assert.Equal(t, usecase.VerifyInput{OrderID: "order_1", PaymentID: "pay_1", Signature: "abc", CouponCode: "SAVE10"}, in)
			return &usecase.VerifyResult{Plan: model.PlanPro, ExpiresAt: exp, InvoiceNumber: "INV-20261019-X", PaymentID: "pay_1"}, nil
		}

		rec := h.do(http.MethodPost, "/api/payment/verify",
			`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"abc","couponCode":"SAVE10"}`, h.tokenFor(t, h.free))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"expiresAt":"2026-11-19T10:00:00Z"`)
		assert.Contains(t, rec.Body.String(), `"plan":"pro"`)
	})

	t.Run("verify rejects a bad signature and missing fields", func(t *testing.T) {
		h := newHarness(t, nil)
		h.payments.VerifyFn = func(context.Context, string, usecase.VerifyInput) (*usecase.VerifyResult, error) {
			return nil, domain.ErrInvalidSignature
		}
		tok := h.tokenFor(t, h.free)

		rec := h.do(http.MethodPost, "/api/payment/verify", `{"razorpay_order_id":"o","razorpay_payment_id":"p","razorpay_signature":"bad"}`, tok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_SIGNATURE", decodeErr(t, rec).Code)

		rec = h.do(http.MethodPost, "/api/payment/verify", `{"razorpay_order_id":"o"}`, tok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeErr(t, rec).Error, "razorpay_payment_id is required")
	})

	t.Run("validate coupon returns the final amount", func(t *testing.T) {
		h := newHarness(t, nil)
		h.coupons.QuoteFn = func(_ context.Context, userID, code string) (*usecase.CouponQuote, error) {
			c := &model.Coupon{Code: "SAVE10", DiscountType: model.DiscountPercent, DiscountValue: 10, Description: "ten off"}
			return &usecase.CouponQuote{Coupon: c, Quote: model.PriceWithCoupon(14900, 100, c)}, nil
		}
		rec := h.do(http.MethodPost, "/api/payment/validate-coupon", `{"code":"save10"}`, h.tokenFor(t, h.free))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"code":"SAVE10","discountType":"percent","discountValue":10,"description":"ten off","baseAmount":14900,"discount":1490,"finalAmount":13410}`, rec.Body.String())
	})

	t.Run("coupon errors carry stable codes", func(t *testing.T) {
		h := newHarness(t, nil)
		tok := h.tokenFor(t, h.free)
		cases := map[error]struct {
			status int
			code   string
		}{
			domain.ErrCouponInvalid:   {http.StatusBadRequest, "COUPON_INVALID"},
			domain.ErrCouponExhausted: {http.StatusBadRequest, "COUPON_EXHAUSTED"},
			domain.ErrRateLimited:     {http.StatusTooManyRequests, "RATE_LIMITED"},
		}
		for cause, want := range cases {
			h.coupons.QuoteFn = func(context.Context, string, string) (*usecase.CouponQuote, error) { return nil, cause }
			rec := h.do(http.MethodPost, "/api/payment/validate-coupon", `{"code":"X"}`, tok)
			assert.Equal(t, want.status, rec.Code, cause.Error())
			assert.Equal(t, want.code, decodeErr(t, rec).Code)
		}
	})

	t.Run("public coupons need no session", func(t *testing.T) {
		h := newHarness(t, nil)
		h.coupons.ListPublicFn = func(context.Context) ([]model.PublicCoupon, error) { return nil, nil }
		rec := h.do(http.MethodGet, "/api/payment/coupons/public", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"coupons":[]}`, rec.Body.String())
	})

	t.Run("webhook forwards raw body and signature", func(t *testing.T) {
		h := newHarness(t, nil)
		raw := `{"event":"payment.captured","payload":{}}`
		h.payments.WebhookFn = func(_ context.Context, body []byte, sig string) error {
			assert.Equal(t, raw, string(body))
			if sig != "good" {
				return domain.ErrInvalidWebhook
			}
			return nil
		}

		req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", strings.NewReader(raw))
		req.Header.Set("X-Razorpay-Signature", "good")
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		req = httptest.NewRequest(http.MethodPost, "/api/payment/webhook", strings.NewReader(raw))
		req.Header.Set("X-Razorpay-Signature", "bad")
		rec = httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBillingAndEntitlementRoutes(t *testing.T) {
	t.Run("overview", func(t *testing.T) {
		h := newHarness(t, nil)
		h.billing.OverviewFn = func(_ context.Context, userID string) (*usecase.BillingOverview, error) {
			return &usecase.BillingOverview{Entitlements: h.pro.Entitlements(), Payments: []*model.Payment{{ID: "p1", UserID: userID}}}, nil
		}
		rec := h.do(http.MethodGet, "/api/billing", "", h.tokenFor(t, h.pro))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"payments":[{"id":"p1"`)
	})

	t.Run("invoice download", func(t *testing.T) {
		h := newHarness(t, nil)
		h.billing.InvoiceFn = func(_ context.Context, who usecase.Requester, number string) ([]byte, *model.Payment, error) {
			if who.UserID != h.pro.ID && !who.Admin {
				return nil, nil, domain.ErrForbidden
			}
			return []byte("%PDF-1.3 fake"), &model.Payment{InvoiceNumber: number}, nil
		}

		rec := h.do(http.MethodGet, "/api/billing/invoice/INV-20261019-A", "", h.tokenFor(t, h.pro))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "INV-20261019-A.pdf")
		assert.Equal(t, "%PDF-1.3 fake", rec.Body.String())

		rec = h.do(http.MethodGet, "/api/billing/invoice/INV-20261019-A", "", h.tokenFor(t, h.free))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = h.do(http.MethodGet, "/api/billing/invoice/INV-20261019-A", "", h.tokenFor(t, h.admin))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("feature gate", func(t *testing.T) {
		h := newHarness(t, nil)

		rec := h.do(http.MethodGet, "/api/entitlements/analytics", "", h.tokenFor(t, h.free))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "PRO_REQUIRED", decodeErr(t, rec).Code)

		rec = h.do(http.MethodGet, "/api/entitlements/customThemes", "", h.tokenFor(t, h.pro))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = h.do(http.MethodGet, "/api/entitlements/teleport", "", h.tokenFor(t, h.pro))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("link limit", func(t *testing.T) {
		h := newHarness(t, nil)
		tok := h.tokenFor(t, h.free)

		rec := h.do(http.MethodPost, "/api/entitlements/links/check", `{"current":4}`, tok)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = h.do(http.MethodPost, "/api/entitlements/links/check", `{"current":5}`, tok)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "PLAN_LIMIT_REACHED", decodeErr(t, rec).Code)

		rec = h.do(http.MethodPost, "/api/entitlements/links/check", `{}`, tok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = h.do(http.MethodPost, "/api/entitlements/links/check", `{"current":500}`, h.tokenFor(t, h.pro))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("panics become a JSON 500", func(t *testing.T) {
		h := newHarness(t, nil)
		h.billing.OverviewFn = func(context.Context, string) (*usecase.BillingOverview, error) { panic("boom") }
		rec := h.do(http.MethodGet, "/api/billing", "", h.tokenFor(t, h.free))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "INTERNAL", decodeErr(t, rec).Code)
	})
}

func TestAdminRoutes(t *testing.T) {
	t.Run("non-admins are forbidden", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do(http.MethodGet, "/api/admin/payments", "", h.tokenFor(t, h.pro))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/admin/payments", "", "").Code)
	})

	t.Run("payments list parses filters and caps the page", func(t *testing.T) {
		h := newHarness(t, nil)
		var got model.PaymentFilter
		h.payments.ListFn = func(_ context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
			got = f
			return nil, 42, nil
		}
		tok := h.tokenFor(t, h.admin)

		rec := h.do(http.MethodGet, "/api/admin/payments?status=refunded&userId=u1&offset=20&limit=1000", "", tok)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, model.PaymentFilter{Status: model.PaymentStatusRefunded, UserID: "u1", Offset: 20, Limit: 100}, got)
		assert.JSONEq(t, `{"payments":[],"total":42,"offset":20,"limit":100}`, rec.Body.String())

		assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/admin/payments?status=pending", "", tok).Code)
		assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/admin/payments?offset=-1", "", tok).Code)
	})

	t.Run("refund conflicts and success", func(t *testing.T) {
		h := newHarness(t, nil)
		h.payments.RefundFn = func(_ context.Context, id string) (*model.Payment, error) {
			if id == "p-refunded" {
				return nil, errors.Join(domain.ErrRefundNotAllowed, errors.New("payment is refunded"))
			}
			return &model.Payment{ID: id, Status: model.PaymentStatusRefunded}, nil
		}
		tok := h.tokenFor(t, h.admin)

		rec := h.do(http.MethodPost, "/api/admin/payments/p-refunded/refund", "", tok)
		assert.Equal(t, http.StatusConflict, rec.Code)
		e := decodeErr(t, rec)
		assert.Equal(t, "REFUND_NOT_ALLOWED", e.Code)
		assert.Contains(t, e.Error, "payment is refunded")

		rec = h.do(http.MethodPost, "/api/admin/payments/p1/refund", "", tok)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"refunded"`)
	})

	t.Run("coupon CRUD", func(t *testing.T) {
		h := newHarness(t, nil)
		tok := h.tokenFor(t, h.admin)
		h.coupons.CreateFn = func(_ context.Context, in usecase.CouponInput) (*model.Coupon, error) {
			assert.Equal(t, model.DiscountPercent, in.DiscountType)
			require.NotNil(t, in.MaxUses)
			assert.Equal(t, 50, *in.MaxUses)
			return &model.Coupon{ID: "c1", Code: "LAUNCH", DiscountType: in.DiscountType, DiscountValue: in.DiscountValue, IsActive: true}, nil
		}
		h.coupons.UpdateFn = func(_ context.Context, id string, p usecase.CouponPatch) (*model.Coupon, error) {
			if p.DiscountValue != nil {
				return nil, domain.ErrOfferLocked
			}
			assert.True(t, p.ClearExpiry)
			return &model.Coupon{ID: id}, nil
		}
		h.coupons.DeleteFn = func(_ context.Context, id string) error {
			if id == "missing" {
				return domain.ErrNotFound
			}
			return nil
		}
		h.coupons.ListFn = func(context.Context) ([]*model.Coupon, error) { return []*model.Coupon{{ID: "c1"}}, nil }

		rec := h.do(http.MethodPost, "/api/admin/coupons", `{"code":"launch","discountType":"percent","discountValue":20,"maxUses":50,"isPublic":true}`, tok)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = h.do(http.MethodPost, "/api/admin/coupons", `{"code":"launch","discountType":"bogo","discountValue":20}`, tok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = h.do(http.MethodPatch, "/api/admin/coupons/c1", `{"discountValue":30}`, tok)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "OFFER_LOCKED", decodeErr(t, rec).Code)

		rec = h.do(http.MethodPatch, "/api/admin/coupons/c1", `{"clearExpiry":true}`, tok)
		assert.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/admin/coupons/c1", "", tok).Code)
		assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/admin/coupons/missing", "", tok).Code)

		rec = h.do(http.MethodGet, "/api/admin/coupons", "", tok)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":"c1"`)
	})

	t.Run("plan override", func(t *testing.T) {
		h := newHarness(t, nil)
		h.subs.PlanFn = func(_ context.Context, userID string, plan model.Plan, exp *time.Time) (*model.User, error) {
			assert.Equal(t, h.free.ID, userID)
			assert.Equal(t, model.PlanPro, plan)
			assert.Nil(t, exp)
			return &model.User{ID: userID, Plan: plan}, nil
		}
		tok := h.tokenFor(t, h.admin)

		rec := h.do(http.MethodPatch, "/api/admin/users/"+h.free.ID+"/plan", `{"plan":"pro"}`, tok)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = h.do(http.MethodPatch, "/api/admin/users/"+h.free.ID+"/plan", `{"plan":"gold"}`, tok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("analytics", func(t *testing.T) {
		h := newHarness(t, nil)
		h.stats.Out = &model.StatsOverview{UsersByPlan: []model.PlanCount{{Plan: model.PlanPro, Count: 3}}}
		rec := h.do(http.MethodGet, "/api/admin/analytics", "", h.tokenFor(t, h.admin))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `{"plan":"pro","count":3}`)
	})

	t.Run("broadcast start then poll", func(t *testing.T) {
		h := newHarness(t, nil)
		tok := h.tokenFor(t, h.admin)

		rec := h.do(http.MethodPost, "/api/admin/broadcasts", `{"subject":"Go pro","html":"<p>hi</p>","audience":"free"}`, tok)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		var job model.BroadcastJob
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		assert.Equal(t, model.BroadcastQueued, job.Status)
		assert.Equal(t, h.admin.ID, job.CreatedBy)

		rec = h.do(http.MethodGet, "/api/admin/broadcasts/"+job.ID, "", tok)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = h.do(http.MethodGet, "/api/admin/broadcasts/nope", "", tok)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = h.do(http.MethodPost, "/api/admin/broadcasts", `{"subject":"x","html":"y","audience":"everyone"}`, tok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
