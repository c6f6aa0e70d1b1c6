//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/adapter"
	"blog-subscription-platform/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu        sync.Mutex
	data      map[string]*model.Payment
	bySession map[string]string
	refunded  map[string]int64 // paymentID -> already refunded sum

	SaveFunc            func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByIDFunc        func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	UpdateStatusIfFunc  func(ctx context.Context, tx repository.Tx, id string, to model.PaymentStatus, from ...model.PaymentStatus) (bool, error)
	MarkSucceededFunc   func(ctx context.Context, tx repository.Tx, id string, intentID string, paidAt time.Time) (bool, error)
	MarkFailedFunc      func(ctx context.Context, tx repository.Tx, id string, reason string) (bool, error)
	SumRefundedFunc     func(ctx context.Context, tx repository.Tx, paymentID string) (int64, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{
		data:      map[string]*model.Payment{},
		bySession: map[string]string{},
		refunded:  map[string]int64{},
	}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.data[p.ID] = &cp
	if p.ProviderSessionID != nil {
		r.bySession[*p.ProviderSessionID] = p.ID
	}
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindByProviderSessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.bySession[sessionID]; ok {
		cp := *r.data[id]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, f repository.PaymentFilter) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.UserID != userID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockPaymentRepo) UpdateStatusIfIn(ctx context.Context, tx repository.Tx, id string, to model.PaymentStatus, from ...model.PaymentStatus) (bool, error) {
	if r.UpdateStatusIfFunc != nil {
		return r.UpdateStatusIfFunc(ctx, tx, id, to, from...)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	for _, st := range from {
		if p.Status == st {
			p.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *MockPaymentRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, id string, intentID string, paidAt time.Time) (bool, error) {
	if r.MarkSucceededFunc != nil {
		return r.MarkSucceededFunc(ctx, tx, id, intentID, paidAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !p.Open() {
		return false, nil
	}
	p.Status = model.PaymentStatusSucceeded
	if intentID != "" {
		p.ProviderIntentID = &intentID
	}
	p.PaidAt = &paidAt
	return true, nil
}

func (r *MockPaymentRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string, reason string) (bool, error) {
	if r.MarkFailedFunc != nil {
		return r.MarkFailedFunc(ctx, tx, id, reason)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !p.Open() {
		return false, nil
	}
	p.Status = model.PaymentStatusFailed
	p.FailureReason = &reason
	return true, nil
}

func (r *MockPaymentRepo) SetProviderSession(ctx context.Context, tx repository.Tx, id string, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ProviderSessionID = &sessionID
	r.bySession[sessionID] = id
	return nil
}

func (r *MockPaymentRepo) SetProviderIntent(ctx context.Context, tx repository.Tx, id string, intentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ProviderIntentID = &intentID
	return nil
}

func (r *MockPaymentRepo) SumRefunded(ctx context.Context, tx repository.Tx, paymentID string) (int64, error) {
	if r.SumRefundedFunc != nil {
		return r.SumRefundedFunc(ctx, tx, paymentID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refunded[paymentID], nil
}

func (r *MockPaymentRepo) SetRefunded(paymentID string, sum int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunded[paymentID] = sum
}

func (r *MockPaymentRepo) ListOpenOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.Open() && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) DeleteFinishedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, p := range r.data {
		final := p.Status == model.PaymentStatusFailed || p.Status == model.PaymentStatusCancelled
		if final && p.CreatedAt.Before(cutoff) {
			delete(r.data, id)
			n++
		}
	}
	return n, nil
}

func (r *MockPaymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int64{}
	for _, p := range r.data {
		out[strings.ToLower(string(p.Status))]++
	}
	return out, nil
}

func (r *MockPaymentRepo) SumSucceededByPeriod(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, p := range r.data {
		if p.Status == model.PaymentStatusSucceeded && (since.IsZero() || p.CreatedAt.After(since)) {
			sum += p.Amount
		}
	}
	return sum, nil
}

// Get peeks at the stored row without the not-found error path.
func (r *MockPaymentRepo) Get(id string) *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[id]
}

// ---- Mock PaymentAttemptRepository ----

type MockAttemptRepo struct {
	mu   sync.Mutex
	rows []*model.PaymentAttempt

	SaveFunc func(ctx context.Context, tx repository.Tx, a *model.PaymentAttempt) error
}

var _ repository.PaymentAttemptRepository = (*MockAttemptRepo)(nil)

func NewMockAttemptRepo() *MockAttemptRepo { return &MockAttemptRepo{} }

func (r *MockAttemptRepo) Save(ctx context.Context, tx repository.Tx, a *model.PaymentAttempt) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MockAttemptRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.PaymentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentAttempt
	for _, a := range r.rows {
		if a.PaymentID == paymentID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.SubscriptionPlan
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.SubscriptionPlan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *plan
	r.data[plan.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionPlan
	for _, p := range r.data {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription

	ActivateFunc func(ctx context.Context, tx repository.Tx, id string, startAt, endAt time.Time) (bool, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.data[sub.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) Activate(ctx context.Context, tx repository.Tx, id string, startAt, endAt time.Time) (bool, error) {
	if r.ActivateFunc != nil {
		return r.ActivateFunc(ctx, tx, id, startAt, endAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.Status != model.SubscriptionStatusPending {
		return false, nil
	}
	s.Status = model.SubscriptionStatusActive
	s.StartAt = &startAt
	s.EndAt = &endAt
	return true, nil
}

func (r *MockSubscriptionRepo) ReopenPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.Status != model.SubscriptionStatusCancelled || s.StartAt != nil {
		return false, nil
	}
	s.Status = model.SubscriptionStatusPending
	return true, nil
}

func (r *MockSubscriptionRepo) UpdateStatusIfIn(ctx context.Context, tx repository.Tx, id string, to model.SubscriptionStatus, from ...model.SubscriptionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	for _, st := range from {
		if s.Status == st {
			s.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *MockSubscriptionRepo) ListDueForExpiry(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive && s.EndAt != nil && s.EndAt.Before(now) {
			cp := *s
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) CountActiveByPlan(ctx context.Context, tx repository.Tx) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int64{}
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive {
			out[s.PlanName]++
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) Get(id string) *model.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[id]
}

// ---- Mock SubscriptionHistoryRepository ----

type MockHistoryRepo struct {
	mu   sync.Mutex
	rows []*model.SubscriptionHistory
}

var _ repository.SubscriptionHistoryRepository = (*MockHistoryRepo)(nil)

func NewMockHistoryRepo() *MockHistoryRepo { return &MockHistoryRepo{} }

func (r *MockHistoryRepo) Save(ctx context.Context, tx repository.Tx, h *model.SubscriptionHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *h
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MockHistoryRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionHistory
	for _, h := range r.rows {
		if h.SubscriptionID == subscriptionID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Actions returns the recorded action names in insertion order.
func (r *MockHistoryRepo) Actions(subscriptionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, h := range r.rows {
		if h.SubscriptionID == subscriptionID {
			out = append(out, h.Action)
		}
	}
	return out
}

// ---- Mock PinnedPostRepository ----

type MockPinnedPostRepo struct {
	mu     sync.Mutex
	byUser map[string]*model.PinnedPost
}

var _ repository.PinnedPostRepository = (*MockPinnedPostRepo)(nil)

func NewMockPinnedPostRepo() *MockPinnedPostRepo {
	return &MockPinnedPostRepo{byUser: map[string]*model.PinnedPost{}}
}

func (r *MockPinnedPostRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.PinnedPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byUser[p.UserID] = &cp
	return nil
}

func (r *MockPinnedPostRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.PinnedPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byUser[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPinnedPostRepo) DeleteByUser(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[userID]; !ok {
		return false, nil
	}
	delete(r.byUser, userID)
	return true, nil
}

// ---- Mock PostRepository ----

type MockPostRepo struct {
	mu   sync.Mutex
	data map[string]*model.Post
}

var _ repository.PostRepository = (*MockPostRepo)(nil)

func NewMockPostRepo() *MockPostRepo {
	return &MockPostRepo{data: map[string]*model.Post{}}
}

func (r *MockPostRepo) Add(p *model.Post) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
}

func (r *MockPostRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// ---- Mock UserRepository ----

// MockUserRepo answers every lookup with a synthesized user unless a
// Func override or an explicit Add says otherwise.
type MockUserRepo struct {
	mu   sync.Mutex
	data map[string]*model.User

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{data: map[string]*model.User{}}
}

func (r *MockUserRepo) Add(u *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.data[u.ID] = &cp
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.data[id]; ok {
		cp := *u
		return &cp, nil
	}
	return &model.User{ID: id, Username: "user-" + id}, nil
}

func (r *MockUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.data {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- Mock RefundRepository ----

type MockRefundRepo struct {
	mu   sync.Mutex
	data map[string]*model.Refund

	SaveFunc func(ctx context.Context, tx repository.Tx, rf *model.Refund) error
}

var _ repository.RefundRepository = (*MockRefundRepo)(nil)

func NewMockRefundRepo() *MockRefundRepo {
	return &MockRefundRepo{data: map[string]*model.Refund{}}
}

func (r *MockRefundRepo) Save(ctx context.Context, tx repository.Tx, rf *model.Refund) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, rf)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rf
	r.data[rf.ID] = &cp
	return nil
}

func (r *MockRefundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rf, ok := r.data[id]; ok {
		cp := *rf
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockRefundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Refund
	for _, rf := range r.data {
		if rf.PaymentID == paymentID {
			cp := *rf
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockRefundRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Refund
	for _, rf := range r.data {
		cp := *rf
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockRefundRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.RefundStatus, providerRefundID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	rf.Status = status
	if providerRefundID != nil {
		rf.ProviderRefundID = providerRefundID
	}
	return nil
}

func (r *MockRefundRepo) Get(id string) *model.Refund {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[id]
}

// ---- Mock WebhookEventRepository ----

type MockWebhookEventRepo struct {
	mu         sync.Mutex
	data       map[string]*model.WebhookEvent // by internal id
	byExternal map[string]string

	SaveFunc func(ctx context.Context, tx repository.Tx, e *model.WebhookEvent) error
}

var _ repository.WebhookEventRepository = (*MockWebhookEventRepo)(nil)

func NewMockWebhookEventRepo() *MockWebhookEventRepo {
	return &MockWebhookEventRepo{
		data:       map[string]*model.WebhookEvent{},
		byExternal: map[string]string{},
	}
}

func (r *MockWebhookEventRepo) Save(ctx context.Context, tx repository.Tx, e *model.WebhookEvent) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byExternal[e.ExternalEventID]; dup {
		return domain.ErrConflict
	}
	cp := *e
	r.data[e.ID] = &cp
	r.byExternal[e.ExternalEventID] = e.ID
	return nil
}

func (r *MockWebhookEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.data[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockWebhookEventRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byExternal[externalID]; ok {
		cp := *r.data[id]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockWebhookEventRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.WebhookEventStatus, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = status
	if lastError != "" {
		e.LastError = &lastError
	} else {
		e.LastError = nil
	}
	e.UpdatedAt = time.Now()
	return nil
}

func (r *MockWebhookEventRepo) ListFailedSince(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WebhookEvent
	for _, e := range r.data {
		if e.Status == model.WebhookEventStatusFailed && e.CreatedAt.After(since) {
			cp := *e
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MockWebhookEventRepo) DeleteSettledBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.data {
		settled := e.Status == model.WebhookEventStatusProcessed || e.Status == model.WebhookEventStatusIgnored
		if settled && e.CreatedAt.Before(cutoff) {
			delete(r.byExternal, e.ExternalEventID)
			delete(r.data, id)
			n++
		}
	}
	return n, nil
}

func (r *MockWebhookEventRepo) GetByExternal(externalID string) *model.WebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byExternal[externalID]; ok {
		return r.data[id]
	}
	return nil
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu       sync.Mutex
	sessions int

	CreateCheckoutSessionFunc func(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error)
	RetrieveSessionFunc       func(ctx context.Context, sessionID string) (adapter.SessionInfo, error)
	RefundPaymentFunc         func(ctx context.Context, intentID string, amount int64, reason string) (adapter.RefundResult, error)
	VerifyEventFunc           func(payload []byte, signature string) (adapter.Event, error)
	ParseEventFunc            func(payload []byte) (adapter.Event, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway { return &MockGateway{} }

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) CreateCheckoutSession(ctx context.Context, req adapter.CheckoutRequest) (adapter.CheckoutSession, error) {
	if g.CreateCheckoutSessionFunc != nil {
		return g.CreateCheckoutSessionFunc(ctx, req)
	}
	g.mu.Lock()
	g.sessions++
	g.mu.Unlock()
	id := "cs_test_" + uuid.NewString()[:8]
	return adapter.CheckoutSession{
		SessionID: id,
		PayURL:    "https://checkout.example.com/" + id,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}, nil
}

func (g *MockGateway) RetrieveSession(ctx context.Context, sessionID string) (adapter.SessionInfo, error) {
	if g.RetrieveSessionFunc != nil {
		return g.RetrieveSessionFunc(ctx, sessionID)
	}
	return adapter.SessionInfo{SessionID: sessionID, PaymentStatus: "unpaid"}, nil
}

func (g *MockGateway) RefundPayment(ctx context.Context, intentID string, amount int64, reason string) (adapter.RefundResult, error) {
	if g.RefundPaymentFunc != nil {
		return g.RefundPaymentFunc(ctx, intentID, amount, reason)
	}
	return adapter.RefundResult{ID: "re_" + uuid.NewString()[:8], Status: "succeeded"}, nil
}

func (g *MockGateway) VerifyEvent(payload []byte, signature string) (adapter.Event, error) {
	if g.VerifyEventFunc != nil {
		return g.VerifyEventFunc(payload, signature)
	}
	return adapter.Event{}, domain.ErrInvalidSignature
}

func (g *MockGateway) ParseEvent(payload []byte) (adapter.Event, error) {
	if g.ParseEventFunc != nil {
		return g.ParseEventFunc(payload)
	}
	return adapter.Event{}, domain.ErrInvalidArgument
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.ErrOn[key]; ok {
		return "", err
	}
	if _, busy := l.held[key]; busy {
		return "", domain.ErrLockBusy
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && cur == token {
		delete(l.held, key)
	}
	return nil
}

// =============================
// Infrastructure
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs the function immediately without a real transaction. Tests
// that need to verify transactional behavior assign WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
