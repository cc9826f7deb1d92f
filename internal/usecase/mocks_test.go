// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/adapter"
	"linkbio-billing/internal/domain/ports/repository"
	"linkbio-billing/internal/infra/worker"

	"github.com/rs/zerolog"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Users ---

var _ repository.UserRepository = (*memUserRepo)(nil)

// memUserRepo mirrors the conditional-update semantics of the Mongo repository.
type memUserRepo struct {
	mu     sync.Mutex
	store  map[string]*model.User
	writes int // successful mutations, used to assert idempotence

	FindErr error
	// BeforeActivate runs once ahead of the next ActivatePro
	BeforeActivate func(m *memUserRepo)
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	m := &memUserRepo{store: make(map[string]*model.User)}
	for _, u := range users {
		cp := *u
		m.store[u.ID] = &cp
	}
	return m
}

func (m *memUserRepo) get(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.store[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (m *memUserRepo) Create(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.store {
		if e.Email == u.Email || e.Username == u.Username {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	m.store[u.ID] = &cp
	m.writes++
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	if u := m.get(id); u != nil {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.store {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) AddCheckout(ctx context.Context, userID string, c *model.Checkout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return domain.ErrNotFound
	}
	// fresh slice so copies handed out by get keep their own view
	cos := append(append([]model.Checkout{}, u.Checkouts...), *c)
	if len(cos) > model.MaxPendingCheckouts {
		cos = cos[len(cos)-model.MaxPendingCheckouts:]
	}
	u.Checkouts = cos
	m.writes++
	return nil
}

func (m *memUserRepo) ActivatePro(ctx context.Context, userID, orderID string, prevExpiry *time.Time, expiresAt time.Time, sub *model.Subscription) error {
	if hook := m.BeforeActivate; hook != nil {
		m.BeforeActivate = nil
		hook(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok || u.PendingCheckout(orderID) == nil || !sameInstant(u.PlanExpiresAt, prevExpiry) {
		return domain.ErrOrderNotFound
	}
	var rest []model.Checkout
	for _, c := range u.Checkouts {
		if c.OrderID != orderID {
			rest = append(rest, c)
		}
	}
	s := *sub
	u.Plan, u.PlanExpiresAt, u.Subscription = model.PlanPro, &expiresAt, &s
	u.Checkouts, u.ExpiryAlertSentFor = rest, nil
	m.writes++
	return nil
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (m *memUserRepo) SetPlan(ctx context.Context, userID string, plan model.Plan, expiresAt *time.Time, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Plan, u.PlanExpiresAt, u.Subscription, u.ExpiryAlertSentFor = plan, expiresAt, sub, nil
	m.writes++
	return nil
}

func (m *memUserRepo) DowngradeIfBackedBy(ctx context.Context, userID, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok || u.Plan != model.PlanPro || !u.Subscription.BackedBy(paymentID) {
		return false, nil
	}
	u.Plan, u.PlanExpiresAt, u.Subscription = model.PlanFree, nil, nil
	m.writes++
	return true, nil
}

func (m *memUserRepo) DowngradeExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.store {
		if u.Plan == model.PlanPro && u.PlanExpiresAt != nil && !u.PlanExpiresAt.After(now) {
			u.Plan, u.PlanExpiresAt = model.PlanFree, nil
			if u.Subscription != nil {
				u.Subscription.Status = model.SubscriptionStatusExpired
			}
			n++
		}
	}
	if n > 0 {
		m.writes++
	}
	return n, nil
}

func (m *memUserRepo) FindExpiring(ctx context.Context, from, to time.Time) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.store {
		if u.Plan != model.PlanPro || u.PlanExpiresAt == nil {
			continue
		}
		exp := *u.PlanExpiresAt
		if !exp.After(from) || exp.After(to) {
			continue
		}
		if u.ExpiryAlertSentFor != nil && u.ExpiryAlertSentFor.Equal(exp) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUserRepo) ClaimExpiryAlert(ctx context.Context, userID string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok || u.PlanExpiresAt == nil || !u.PlanExpiresAt.Equal(expiresAt) {
		return false, nil
	}
	if u.ExpiryAlertSentFor != nil && u.ExpiryAlertSentFor.Equal(expiresAt) {
		return false, nil
	}
	at := expiresAt
	u.ExpiryAlertSentFor = &at
	m.writes++
	return true, nil
}

func (m *memUserRepo) ReleaseExpiryAlert(ctx context.Context, userID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.store[userID]; ok && u.ExpiryAlertSentFor != nil && u.ExpiryAlertSentFor.Equal(expiresAt) {
		u.ExpiryAlertSentFor = nil
		m.writes++
	}
	return nil
}

func (m *memUserRepo) audience(a model.Audience) []*model.User {
	var out []*model.User
	for _, u := range m.store {
		if a == model.AudienceAll || string(u.Plan) == string(a) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memUserRepo) ListByAudience(ctx context.Context, a model.Audience, afterID string, limit int) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.audience(a) {
		if u.ID > afterID && len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) CountByAudience(ctx context.Context, a model.Audience) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.audience(a))), nil
}

func (m *memUserRepo) CountByPlan(ctx context.Context) ([]model.PlanCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[model.Plan]int64{}
	for _, u := range m.store {
		counts[u.Plan]++
	}
	var out []model.PlanCount
	for p, c := range counts {
		out = append(out, model.PlanCount{Plan: p, Count: c})
	}
	return out, nil
}

// --- Payments ---

var _ repository.PaymentRepository = (*memPaymentRepo)(nil)

type memPaymentRepo struct {
	mu     sync.Mutex
	store  map[string]*model.Payment
	writes int

	CreateErr error
}

func newMemPaymentRepo(ps ...*model.Payment) *memPaymentRepo {
	m := &memPaymentRepo{store: make(map[string]*model.Payment)}
	for _, p := range ps {
		cp := *p
		m.store[p.ID] = &cp
	}
	return m
}

func (m *memPaymentRepo) all() []*model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Payment, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memPaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.store {
		if e.PaymentID == p.PaymentID || (p.InvoiceNumber != "" && e.InvoiceNumber == p.InvoiceNumber) {
			return domain.ErrAlreadyExists
		}
	}
	cp := *p
	m.store[p.ID] = &cp
	m.writes++
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.store[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) findBy(match func(p *model.Payment) bool) (*model.Payment, error) {
	for _, p := range m.all() {
		if match(p) {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) FindByGatewayID(ctx context.Context, paymentID string) (*model.Payment, error) {
	return m.findBy(func(p *model.Payment) bool { return p.PaymentID == paymentID })
}

func (m *memPaymentRepo) FindByInvoice(ctx context.Context, invoice string) (*model.Payment, error) {
	return m.findBy(func(p *model.Payment) bool { return p.InvoiceNumber == invoice })
}

func (m *memPaymentRepo) ListByUser(ctx context.Context, userID string) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range m.all() {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	var matched []*model.Payment
	for _, p := range m.all() {
		if (f.Status == "" || p.Status == f.Status) && (f.UserID == "" || p.UserID == f.UserID) {
			matched = append(matched, p)
		}
	}
	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []*model.Payment{}, total, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (m *memPaymentRepo) MarkRefunded(ctx context.Context, id, refundID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PaymentStatusPaid {
		return domain.ErrRefundNotAllowed
	}
	p.Status, p.RefundID, p.RefundedAt = model.PaymentStatusRefunded, refundID, &at
	m.writes++
	return nil
}

func (m *memPaymentRepo) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	counts := map[model.PaymentStatus]*model.StatusCount{}
	for _, p := range m.all() {
		c, ok := counts[p.Status]
		if !ok {
			c = &model.StatusCount{Status: p.Status}
			counts[p.Status] = c
		}
		c.Count++
		c.Amount += p.Amount
	}
	var out []model.StatusCount
	for _, c := range counts {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memPaymentRepo) RevenueByMonth(ctx context.Context, since time.Time) ([]model.MonthlyRevenue, error) {
	byMonth := map[string]*model.MonthlyRevenue{}
	for _, p := range m.all() {
		if p.Status != model.PaymentStatusPaid || p.PaidAt == nil || p.PaidAt.Before(since) {
			continue
		}
		key := p.PaidAt.UTC().Format("2006-01")
		r, ok := byMonth[key]
		if !ok {
			r = &model.MonthlyRevenue{Month: key}
			byMonth[key] = r
		}
		r.Amount += p.Amount
		r.Payments++
	}
	var out []model.MonthlyRevenue
	for _, r := range byMonth {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (m *memPaymentRepo) TopCoupons(ctx context.Context, limit int) ([]model.CouponUsage, error) {
	return nil, nil
}

// --- Coupons ---

var _ repository.CouponRepository = (*memCouponRepo)(nil)

type memCouponRepo struct {
	mu    sync.Mutex
	store map[string]*model.Coupon
}

func newMemCouponRepo(cs ...*model.Coupon) *memCouponRepo {
	m := &memCouponRepo{store: make(map[string]*model.Coupon)}
	for _, c := range cs {
		cp := *c
		m.store[c.ID] = &cp
	}
	return m
}

func (m *memCouponRepo) Create(ctx context.Context, c *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.store {
		if e.Code == c.Code {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *memCouponRepo) Update(ctx context.Context, c *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[c.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *memCouponRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *memCouponRepo) FindByID(ctx context.Context, id string) (*model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.store[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCouponRepo) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCouponRepo) List(ctx context.Context) ([]*model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Coupon
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memCouponRepo) ListPublic(ctx context.Context, now time.Time) ([]*model.Coupon, error) {
	all, _ := m.List(ctx)
	var out []*model.Coupon
	for _, c := range all {
		if c.IsActive && c.IsPublic {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCouponRepo) Redeem(ctx context.Context, code string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.Code == code {
			if !c.IsValid(now) {
				return false, nil
			}
			c.UsedCount++
			return true, nil
		}
	}
	return false, nil
}

// --- Sessions ---

type memSessionRepo struct {
	mu    sync.Mutex
	store map[string]*model.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{store: make(map[string]*model.Session)}
}

func (m *memSessionRepo) Create(ctx context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSessionRepo) Find(ctx context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.store[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *memSessionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

// --- Broadcast jobs ---

type memBroadcastRepo struct {
	mu      sync.Mutex
	store   map[string]*model.BroadcastJob
	updates int
}

func newMemBroadcastRepo() *memBroadcastRepo {
	return &memBroadcastRepo{store: make(map[string]*model.BroadcastJob)}
}

func (m *memBroadcastRepo) Create(ctx context.Context, j *model.BroadcastJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.store[j.ID] = &cp
	return nil
}

func (m *memBroadcastRepo) FindByID(ctx context.Context, id string) (*model.BroadcastJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.store[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memBroadcastRepo) Update(ctx context.Context, j *model.BroadcastJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.store[j.ID] = &cp
	m.updates++
	return nil
}

// --- Gateway ---

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

// MockPaymentGateway signs with a real HMAC so signature checks behave like production.
type MockPaymentGateway struct {
	mu     sync.Mutex
	Secret string
	seq    int

	Orders  []adapter.OrderRequest
	Refunds []string

	CreateOrderFunc func(ctx context.Context, req adapter.OrderRequest) (*adapter.GatewayOrder, error)
	CreateOfferFunc func(ctx context.Context, req adapter.OfferRequest) (string, error)
	RefundFunc      func(ctx context.Context, paymentID string, amount int64) (*adapter.RefundResult, error)
	ParseWebhookFn  func(body []byte, signature string) (*adapter.WebhookEvent, error)
}

func newMockGateway() *MockPaymentGateway {
	return &MockPaymentGateway{Secret: "test_secret"}
}

func (m *MockPaymentGateway) Name() string  { return "razorpay" }
func (m *MockPaymentGateway) KeyID() string { return "rzp_test_key" }

func (m *MockPaymentGateway) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(m.Secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req adapter.OrderRequest) (*adapter.GatewayOrder, error) {
	m.mu.Lock()
	m.Orders = append(m.Orders, req)
	m.seq++
	id := fmt.Sprintf("order_%d", m.seq)
	m.mu.Unlock()
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return &adapter.GatewayOrder{ID: id, Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (m *MockPaymentGateway) CreateOffer(ctx context.Context, req adapter.OfferRequest) (string, error) {
	if m.CreateOfferFunc != nil {
		return m.CreateOfferFunc(ctx, req)
	}
	return "offer_" + strings.ToLower(req.Code), nil
}

func (m *MockPaymentGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*adapter.RefundResult, error) {
	m.mu.Lock()
	m.Refunds = append(m.Refunds, paymentID)
	m.mu.Unlock()
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, paymentID, amount)
	}
	return &adapter.RefundResult{ID: "rfnd_" + paymentID, Status: "processed", Amount: amount}, nil
}

func (m *MockPaymentGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(m.Sign(orderID, paymentID)), []byte(signature))
}

func (m *MockPaymentGateway) ParseWebhook(body []byte, signature string) (*adapter.WebhookEvent, error) {
	if m.ParseWebhookFn != nil {
		return m.ParseWebhookFn(body, signature)
	}
	if signature != "ok" {
		return nil, domain.ErrInvalidWebhook
	}
	var ev adapter.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// --- Mail, invoices, cache ---

type mockMailer struct {
	mu   sync.Mutex
	sent []adapter.Email
	Err  error
}

func (m *mockMailer) Send(ctx context.Context, e adapter.Email) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

func (m *mockMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type stubRenderer struct{ Err error }

func (s stubRenderer) Render(d adapter.InvoiceData) ([]byte, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return []byte("%PDF-" + d.Payment.InvoiceNumber), nil
}

type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemCache() *memCache { return &memCache{items: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = val
	return nil
}

func (c *memCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

// countingLimiter allows the first Limit calls per key.
type countingLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	Err    error
}

func newCountingLimiter() *countingLimiter { return &countingLimiter{counts: map[string]int{}} }

func (l *countingLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if l.Err != nil {
		return false, l.Err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

// syncSubmitter runs jobs inline so broadcast tests stay deterministic.
type syncSubmitter struct{ Err error }

func (s syncSubmitter) SubmitJob(job worker.Job) error {
	if s.Err != nil {
		return s.Err
	}
	return job.Run(context.Background())
}

// cancelledSubmitter runs jobs inline on a context that is already done.
type cancelledSubmitter struct{}

func (cancelledSubmitter) SubmitJob(job worker.Job) error {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = job.Run(ctx)
	return nil
}

var errBoom = errors.New("boom")
