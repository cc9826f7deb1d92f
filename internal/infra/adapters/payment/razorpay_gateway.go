package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

const defaultRazorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayGateway implements adapter.PaymentGateway on the Razorpay REST API.
// Requests use HTTP basic auth with the key pair.
type RazorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

func NewRazorpayGateway(cfg config.RazorpayConfig) (*RazorpayGateway, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("razorpay key id/secret empty")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultRazorpayBaseURL
	}
	return &RazorpayGateway{
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       base,
		client:        &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *RazorpayGateway) Name() string  { return "razorpay" }
func (g *RazorpayGateway) KeyID() string { return g.keyID }

// apiError is the error envelope Razorpay returns on 4xx/5xx.
type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (g *RazorpayGateway) post(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && ae.Error.Code != "" {
			return fmt.Errorf("razorpay %s: %s (%s)", path, ae.Error.Description, ae.Error.Code)
		}
		return fmt.Errorf("razorpay %s: http %d", path, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, r adapter.OrderRequest) (*adapter.GatewayOrder, error) {
	payload := map[string]any{
		"amount":   r.Amount,
		"currency": r.Currency,
		"receipt":  r.Receipt,
	}
	if len(r.Notes) > 0 {
		payload["notes"] = r.Notes
	}
	var out struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Receipt  string `json:"receipt"`
		Status   string `json:"status"`
	}
	if err := g.post(ctx, "/orders", payload, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("razorpay order: empty id")
	}
	return &adapter.GatewayOrder{ID: out.ID, Amount: out.Amount, Currency: out.Currency, Receipt: out.Receipt, Status: out.Status}, nil
}

// CreateOffer mirrors a coupon as an offer. Accounts without the offers API
// get an error here; callers treat the mirror as optional.
func (g *RazorpayGateway) CreateOffer(ctx context.Context, r adapter.OfferRequest) (string, error) {
	payload := map[string]any{
		"name":         r.Code,
		"display_text": r.Description,
		"type":         "instant",
	}
	switch r.DiscountType {
	case model.DiscountPercent:
		payload["percent_rate"] = int64(r.DiscountValue * 100) // basis points
	default:
		payload["flat_cashback"] = int64(r.DiscountValue)
	}
	if r.ExpiresAt != nil {
		payload["ends_at"] = r.ExpiresAt.Unix()
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := g.post(ctx, "/offers", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (g *RazorpayGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*adapter.RefundResult, error) {
	payload := map[string]any{"amount": amount}
	if len(notes) > 0 {
		payload["notes"] = notes
	}
	var out struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
		Status string `json:"status"`
	}
	if err := g.post(ctx, "/payments/"+paymentID+"/refund", payload, &out); err != nil {
		return nil, err
	}
	return &adapter.RefundResult{ID: out.ID, Status: out.Status, Amount: out.Amount}, nil
}

// VerifySignature checks hex(HMAC-SHA256(key_secret, orderID|paymentID)).
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return validHMAC(g.keySecret, orderID+"|"+paymentID, signature)
}

func (g *RazorpayGateway) ParseWebhook(body []byte, signature string) (*adapter.WebhookEvent, error) {
	if g.webhookSecret == "" || signature == "" || !validHMAC(g.webhookSecret, string(body), signature) {
		return nil, domain.ErrInvalidWebhook
	}
	var env struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID               string `json:"id"`
					OrderID          string `json:"order_id"`
					Amount           int64  `json:"amount"`
					Currency         string `json:"currency"`
					Notes            notes  `json:"notes"`
					ErrorReason      string `json:"error_reason"`
					ErrorDescription string `json:"error_description"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	e := env.Payload.Payment.Entity
	reason := e.ErrorDescription
	if reason == "" {
		reason = e.ErrorReason
	}
	return &adapter.WebhookEvent{
		Event:       env.Event,
		PaymentID:   e.ID,
		OrderID:     e.OrderID,
		Amount:      e.Amount,
		Currency:    e.Currency,
		Notes:       map[string]string(e.Notes),
		ErrorReason: reason,
	}, nil
}

// notes is the entity notes object. Razorpay sends [] instead of {} when
// no notes were set.
type notes map[string]string

func (n *notes) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "null", "[]":
		*n = notes{}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*n = m
	return nil
}

func sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func validHMAC(secret, message, signature string) bool {
	return hmac.Equal([]byte(sign(secret, message)), []byte(signature))
}
