package subscription

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sflix/server/internal/module/payment/provider"
	"github.com/sflix/server/internal/module/plan"
)

// --- Store ---

type userDoc struct {
	Email        string
	Username     string
	Subscription Subscription
}

type memoryStore struct {
	mu     sync.Mutex
	users  map[string]*userDoc
	writes int

	mergeErr  error
	demoteErr map[string]error
	getErr    error

	// beforeMerge runs ahead of each merge, outside the lock.
	beforeMerge func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:     make(map[string]*userDoc),
		demoteErr: make(map[string]error),
	}
}

func (m *memoryStore) put(userID string, doc *userDoc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = doc
}

func (m *memoryStore) doc(userID string) *userDoc {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.users[userID]
	if !ok {
		return nil
	}
	cp := *d
	return &cp
}

func (m *memoryStore) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	sub := d.Subscription
	return &sub, nil
}

func (m *memoryStore) MergeSubscription(ctx context.Context, userID string, patch *Patch) error {
	if m.beforeMerge != nil {
		m.beforeMerge()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeErr != nil {
		return m.mergeErr
	}
	d, ok := m.users[userID]
	if !ok {
		if patch.IfVersion != nil {
			return ErrConcurrentUpdate
		}
		d = &userDoc{}
		m.users[userID] = d
	}
	if patch.IfVersion != nil && *patch.IfVersion != d.Subscription.Version {
		return ErrConcurrentUpdate
	}
	patch.Apply(&d.Subscription)
	m.writes++
	return nil
}

func (m *memoryStore) DemoteExpired(ctx context.Context, userID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.demoteErr[userID]; err != nil {
		return false, err
	}
	d, ok := m.users[userID]
	if !ok || !Expired(d.Subscription, now) {
		return false, nil
	}
	d.Subscription.Status = StatusInactive
	d.Subscription.Version++
	m.writes++
	return true, nil
}

func (m *memoryStore) records(keep func(Subscription) bool) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for id, d := range m.users {
		if keep(d.Subscription) {
			out = append(out, Record{UserID: id, Email: d.Email, Username: d.Username, Subscription: d.Subscription})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (m *memoryStore) ListActive(ctx context.Context) ([]Record, error) {
	return m.records(func(s Subscription) bool { return s.Status == StatusActive }), nil
}

func (m *memoryStore) ListSubscriptions(ctx context.Context) ([]Record, error) {
	return m.records(func(s Subscription) bool { return !s.IsZero() }), nil
}

func (m *memoryStore) FindBySubscriptionRef(ctx context.Context, ref string) (*Record, error) {
	for _, r := range m.records(func(s Subscription) bool { return s.SubscriptionRef == ref }) {
		return &r, nil
	}
	return nil, ErrNotFound
}

// --- Provider ---

type fakeProvider struct {
	sessions      map[string]*provider.CheckoutSession
	subscriptions map[string]*provider.Subscription

	createErr error
	getErr    error

	created []*provider.CheckoutRequest
	calls   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		sessions:      make(map[string]*provider.CheckoutSession),
		subscriptions: make(map[string]*provider.Subscription),
	}
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	f.calls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	id := "cs_test_" + req.ClientReference
	s := &provider.CheckoutSession{
		ID:              id,
		URL:             "https://checkout.example/" + id,
		PaymentStatus:   "unpaid",
		ClientReference: req.ClientReference,
	}
	f.sessions[id] = s
	return s, nil
}

func (f *fakeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*provider.CheckoutSession, error) {
	f.calls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, provider.ErrResourceMissing
	}
	cp := *s
	return &cp, nil
}

func (f *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*provider.Subscription, error) {
	f.calls++
	s, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, provider.ErrResourceMissing
	}
	cp := *s
	return &cp, nil
}

// pay marks a session paid and attaches a billing period to it.
func (f *fakeProvider) pay(sessionID string, sub *provider.Subscription) {
	s := f.sessions[sessionID]
	s.PaymentStatus = provider.PaymentStatusPaid
	s.SubscriptionRef = sub.ID
	f.subscriptions[sub.ID] = sub
}

// --- Catalog ---

type fakeCatalog struct {
	plans []*plan.Plan
	err   error
}

func (c *fakeCatalog) Get(ctx context.Context, id uuid.UUID) (*plan.Plan, error) {
	if c.err != nil {
		return nil, c.err
	}
	for _, p := range c.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, plan.ErrPlanNotFound
}

func (c *fakeCatalog) FindByPrice(ctx context.Context, price float64) (*plan.Plan, error) {
	if c.err != nil {
		return nil, c.err
	}
	var found *plan.Plan
	for _, p := range c.plans {
		if p.IsActive() && p.Price == price {
			if found != nil {
				return nil, plan.ErrPlanAmbiguous
			}
			found = p
		}
	}
	if found == nil {
		return nil, plan.ErrPlanNotFound
	}
	return found, nil
}

func (c *fakeCatalog) FindByExternalRef(ctx context.Context, ref string) (*plan.Plan, error) {
	if c.err != nil {
		return nil, c.err
	}
	for _, p := range c.plans {
		if p.ExternalPriceRef == ref {
			return p, nil
		}
	}
	return nil, plan.ErrPlanNotFound
}

var errBoom = errors.New("boom")

func basicPlan() *plan.Plan {
	return &plan.Plan{
		ID:               uuid.MustParse("0b7c5f38-3f7a-4f0e-9d5b-2a1f3c4d5e6f"),
		Title:            "Basic",
		Price:            499,
		ExternalPriceRef: "price_basic",
		DurationType:     plan.DurationMonthly,
		Status:           plan.StatusActive,
	}
}
