//go:build !integration

package api_test

import (
	"context"
	"sync"
	"time"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/usecase"
)

// --- users & sessions ---

type mockUserUC struct {
	usecase.UserUseCase
	mu       sync.Mutex
	users    map[string]*model.User // by id
	sessions map[string]*model.Session
	CheckErr error
}

func newMockUserUC(users ...*model.User) *mockUserUC {
	m := &mockUserUC{users: map[string]*model.User{}, sessions: map[string]*model.Session{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserUC) Register(ctx context.Context, email, username, password string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == model.NormalizeEmail(email) {
			return nil, domain.ErrAlreadyExists
		}
	}
	u, err := model.NewUser(email, username, "hash:"+password)
	if err != nil {
		return nil, err
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserUC) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == model.NormalizeEmail(email) && u.PasswordHash == "hash:"+password {
			return u, nil
		}
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *mockUserUC) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserUC) StartSession(ctx context.Context, u *model.User) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	s := &model.Session{ID: "sess-" + u.ID + "-" + now.Format("150405.000000000"), UserID: u.ID, Role: u.Role, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *mockUserUC) CheckSession(ctx context.Context, id string) (*model.Session, error) {
	if m.CheckErr != nil {
		return nil, m.CheckErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *mockUserUC) EndSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// --- payments ---

type mockPaymentUC struct {
	usecase.PaymentUseCase
	CreateOrderFn func(ctx context.Context, userID, couponCode string) (*usecase.OrderResult, error)
	VerifyFn      func(ctx context.Context, userID string, in usecase.VerifyInput) (*usecase.VerifyResult, error)
	WebhookFn     func(ctx context.Context, body []byte, signature string) error
	RefundFn      func(ctx context.Context, paymentID string) (*model.Payment, error)
	ListFn        func(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error)
}

func (m *mockPaymentUC) CreateOrder(ctx context.Context, userID, couponCode string) (*usecase.OrderResult, error) {
	return m.CreateOrderFn(ctx, userID, couponCode)
}

func (m *mockPaymentUC) Verify(ctx context.Context, userID string, in usecase.VerifyInput) (*usecase.VerifyResult, error) {
	return m.VerifyFn(ctx, userID, in)
}

func (m *mockPaymentUC) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return m.WebhookFn(ctx, body, signature)
}

func (m *mockPaymentUC) Refund(ctx context.Context, paymentID string) (*model.Payment, error) {
	return m.RefundFn(ctx, paymentID)
}

func (m *mockPaymentUC) List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	return m.ListFn(ctx, f)
}

// --- coupons ---

type mockCouponUC struct {
	usecase.CouponUseCase
	QuoteFn      func(ctx context.Context, userID, code string) (*usecase.CouponQuote, error)
	CreateFn     func(ctx context.Context, in usecase.CouponInput) (*model.Coupon, error)
	UpdateFn     func(ctx context.Context, id string, p usecase.CouponPatch) (*model.Coupon, error)
	DeleteFn     func(ctx context.Context, id string) error
	ListFn       func(ctx context.Context) ([]*model.Coupon, error)
	ListPublicFn func(ctx context.Context) ([]model.PublicCoupon, error)
}

func (m *mockCouponUC) Quote(ctx context.Context, userID, code string) (*usecase.CouponQuote, error) {
	return m.QuoteFn(ctx, userID, code)
}

func (m *mockCouponUC) Create(ctx context.Context, in usecase.CouponInput) (*model.Coupon, error) {
	return m.CreateFn(ctx, in)
}

func (m *mockCouponUC) Update(ctx context.Context, id string, p usecase.CouponPatch) (*model.Coupon, error) {
	return m.UpdateFn(ctx, id, p)
}

func (m *mockCouponUC) Delete(ctx context.Context, id string) error { return m.DeleteFn(ctx, id) }

func (m *mockCouponUC) List(ctx context.Context) ([]*model.Coupon, error) { return m.ListFn(ctx) }

func (m *mockCouponUC) ListPublic(ctx context.Context) ([]model.PublicCoupon, error) {
	return m.ListPublicFn(ctx)
}

// --- entitlements ---

type mockSubscriptionUC struct {
	usecase.SubscriptionUseCase
	users *mockUserUC
	// PlanFn records admin overrides
	PlanFn func(ctx context.Context, userID string, plan model.Plan, expiresAt *time.Time) (*model.User, error)
}

func (m *mockSubscriptionUC) limits(userID string) (model.PlanLimits, error) {
	u, err := m.users.GetByID(context.Background(), userID)
	if err != nil {
		return model.PlanLimits{}, err
	}
	return model.LimitsFor(u.Plan), nil
}

func (m *mockSubscriptionUC) RequireFeature(ctx context.Context, userID string, f model.Feature) error {
	l, err := m.limits(userID)
	if err != nil {
		return err
	}
	if !l.Allows(f) {
		return domain.ErrProRequired
	}
	return nil
}

func (m *mockSubscriptionUC) CheckLinkLimit(ctx context.Context, userID string, current int) (*model.PlanLimits, error) {
	l, err := m.limits(userID)
	if err != nil {
		return nil, err
	}
	if !l.CanAddLink(current) {
		return &l, domain.ErrPlanLimitReached
	}
	return &l, nil
}

func (m *mockSubscriptionUC) UpdateUserPlan(ctx context.Context, userID string, plan model.Plan, expiresAt *time.Time) (*model.User, error) {
	return m.PlanFn(ctx, userID, plan, expiresAt)
}

// --- billing, stats, broadcasts ---

type mockBillingUC struct {
	OverviewFn func(ctx context.Context, userID string) (*usecase.BillingOverview, error)
	InvoiceFn  func(ctx context.Context, who usecase.Requester, number string) ([]byte, *model.Payment, error)
}

func (m *mockBillingUC) Overview(ctx context.Context, userID string) (*usecase.BillingOverview, error) {
	return m.OverviewFn(ctx, userID)
}

func (m *mockBillingUC) Invoice(ctx context.Context, who usecase.Requester, number string) ([]byte, *model.Payment, error) {
	return m.InvoiceFn(ctx, who, number)
}

type mockStatsUC struct {
	Out *model.StatsOverview
	Err error
}

func (m *mockStatsUC) Overview(ctx context.Context) (*model.StatsOverview, error) { return m.Out, m.Err }

type mockBroadcastUC struct {
	mu   sync.Mutex
	jobs map[string]*model.BroadcastJob
}

func (m *mockBroadcastUC) Start(ctx context.Context, in usecase.BroadcastInput) (*model.BroadcastJob, error) {
	job, err := model.NewBroadcastJob(in.Subject, in.HTML, in.Audience, in.CreatedBy)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs == nil {
		m.jobs = map[string]*model.BroadcastJob{}
	}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *mockBroadcastUC) Get(ctx context.Context, id string) (*model.BroadcastJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, domain.ErrNotFound
}
