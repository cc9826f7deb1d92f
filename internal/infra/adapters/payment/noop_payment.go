package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for local development. It signs
// with a fixed secret so a developer can complete checkout with Sign.
type NoopPaymentGateway struct {
	mu     sync.Mutex
	seq    int64
	secret string
	orders map[string]int64 // order id -> amount
}

func NewNoopPaymentGateway(secret string) *NoopPaymentGateway {
	if secret == "" {
		secret = "dev_secret"
	}
	return &NoopPaymentGateway{secret: secret, orders: make(map[string]int64)}
}

func (g *NoopPaymentGateway) Name() string  { return "noop" }
func (g *NoopPaymentGateway) KeyID() string { return "noop_key" }

func (g *NoopPaymentGateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_noop%d", prefix, g.seq)
}

func (g *NoopPaymentGateway) CreateOrder(ctx context.Context, r adapter.OrderRequest) (*adapter.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next("order")
	g.orders[id] = r.Amount
	return &adapter.GatewayOrder{ID: id, Amount: r.Amount, Currency: r.Currency, Receipt: r.Receipt, Status: "created"}, nil
}

func (g *NoopPaymentGateway) CreateOffer(ctx context.Context, r adapter.OfferRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next("offer"), nil
}

func (g *NoopPaymentGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*adapter.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &adapter.RefundResult{ID: g.next("rfnd"), Status: "processed", Amount: amount}, nil
}

// Sign produces the signature VerifySignature accepts.
func (g *NoopPaymentGateway) Sign(orderID, paymentID string) string {
	return sign(g.secret, orderID+"|"+paymentID)
}

func (g *NoopPaymentGateway) VerifySignature(orderID, paymentID, signature string) bool {
	g.mu.Lock()
	_, known := g.orders[orderID]
	g.mu.Unlock()
	return known && validHMAC(g.secret, orderID+"|"+paymentID, signature)
}

// ParseWebhook accepts events signed with the dev secret, in the flat
// adapter.WebhookEvent JSON shape.
func (g *NoopPaymentGateway) ParseWebhook(body []byte, signature string) (*adapter.WebhookEvent, error) {
	if !validHMAC(g.secret, string(body), signature) {
		return nil, domain.ErrInvalidWebhook
	}
	var ev adapter.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return &ev, nil
}
