// Package testutil provides in-memory doubles for testing the application layer.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/repolens/gatekeeper/internal/domain/accesstoken"
	"github.com/repolens/gatekeeper/internal/domain/subscription"
	"github.com/repolens/gatekeeper/internal/domain/usage"
	"github.com/repolens/gatekeeper/internal/domain/user"
	"github.com/repolens/gatekeeper/internal/infrastructure/cache"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// NewMockLogger returns a logger that discards everything.
func NewMockLogger() logger.Interface {
	return logger.NewNop()
}

// Transactor runs fn directly; the in-memory repositories are not transactional.
type Transactor struct{}

func (Transactor) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockPlanRepository is an in-memory subscription.PlanRepository.
type MockPlanRepository struct {
	mu     sync.RWMutex
	plans  map[string]*subscription.Plan
	nextID uint

	GetError    error
	UpdateError error
}

func NewMockPlanRepository(plans ...*subscription.Plan) *MockPlanRepository {
	m := &MockPlanRepository{plans: make(map[string]*subscription.Plan)}
	for _, p := range plans {
		_ = m.Create(context.Background(), p)
	}
	return m
}

func (m *MockPlanRepository) GetBySlug(_ context.Context, slug string) (*subscription.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	p, ok := m.plans[slug]
	if !ok {
		return nil, subscription.ErrPlanNotFound
	}
	return p, nil
}

func (m *MockPlanRepository) GetByStripePriceID(_ context.Context, priceID string) (*subscription.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.plans {
		if priceID != "" && p.StripePriceID() == priceID {
			return p, nil
		}
	}
	return nil, subscription.ErrPlanNotFound
}

func (m *MockPlanRepository) List(_ context.Context) ([]*subscription.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*subscription.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder() != out[j].SortOrder() {
			return out[i].SortOrder() < out[j].SortOrder()
		}
		return out[i].ID() < out[j].ID()
	})
	return out, nil
}

func (m *MockPlanRepository) Create(_ context.Context, p *subscription.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[p.Slug()]; ok {
		return subscription.ErrPlanSlugExists
	}
	m.nextID++
	p.SetID(m.nextID)
	m.plans[p.Slug()] = p
	return nil
}

func (m *MockPlanRepository) Update(_ context.Context, p *subscription.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.plans[p.Slug()]; !ok {
		return subscription.ErrPlanNotFound
	}
	m.plans[p.Slug()] = p
	return nil
}

// Delete removes a plan; used to simulate a deployment without seeds.
func (m *MockPlanRepository) Delete(slug string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.plans, slug)
}

// MockSubscriptionRepository is an in-memory subscription.SubscriptionRepository.
type MockSubscriptionRepository struct {
	mu     sync.RWMutex
	subs   map[string]*subscription.Subscription
	nextID uint

	GetError  error
	SaveError error
	GetCalls  int
	SaveCalls int
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{subs: make(map[string]*subscription.Subscription)}
}

func (m *MockSubscriptionRepository) GetBySubject(_ context.Context, subject string) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetError != nil {
		return nil, m.GetError
	}
	s, ok := m.subs[subject]
	if !ok {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return s, nil
}

func (m *MockSubscriptionRepository) Save(_ context.Context, s *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}
	if s.ID() == 0 {
		if existing, ok := m.subs[s.Subject()]; ok {
			s.SetID(existing.ID())
		} else {
			m.nextID++
			s.SetID(m.nextID)
		}
	}
	m.subs[s.Subject()] = s
	return nil
}

// Count returns the number of stored rows.
func (m *MockSubscriptionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// MockUserRepository is an in-memory user.Repository.
type MockUserRepository struct {
	mu     sync.RWMutex
	users  map[string]*user.User
	nextID uint

	UpsertError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*user.User)}
}

func (m *MockUserRepository) GetBySubject(_ context.Context, subject string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[subject]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepository) GetByBillingCustomerID(_ context.Context, customerID string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if customerID != "" && u.BillingCustomerID() == customerID {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *MockUserRepository) Upsert(_ context.Context, u *user.User) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertError != nil {
		return nil, m.UpsertError
	}
	if existing, ok := m.users[u.Subject()]; ok {
		existing.UpdateProfile(u.Email(), u.Name())
		return existing, nil
	}
	m.nextID++
	u.SetID(m.nextID)
	m.users[u.Subject()] = u
	return u, nil
}

func (m *MockUserRepository) Update(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Subject()]; !ok {
		return user.ErrUserNotFound
	}
	m.users[u.Subject()] = u
	return nil
}

// AddUser stores u, linking it to a billing customer when customerID is set.
func (m *MockUserRepository) AddUser(subject, customerID string) *user.User {
	u, _ := user.NewUser(subject, subject+"@example.com", subject)
	if customerID != "" {
		_ = u.LinkBillingCustomer(customerID)
	}
	stored, _ := m.Upsert(context.Background(), u)
	return stored
}

// MockAccessTokenRepository is an in-memory accesstoken.Repository.
type MockAccessTokenRepository struct {
	mu   sync.RWMutex
	rows map[string]*accesstoken.AccessToken

	CreateError   error
	LastUsedError error
}

func NewMockAccessTokenRepository() *MockAccessTokenRepository {
	return &MockAccessTokenRepository{rows: make(map[string]*accesstoken.AccessToken)}
}

func (m *MockAccessTokenRepository) Create(_ context.Context, t *accesstoken.AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	m.rows[t.TokenHash()] = t
	return nil
}

func (m *MockAccessTokenRepository) GetByHash(_ context.Context, hash string) (*accesstoken.AccessToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.rows[hash]
	if !ok {
		return nil, accesstoken.ErrTokenNotFound
	}
	return t, nil
}

func (m *MockAccessTokenRepository) MarkRevoked(_ context.Context, hash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[hash]
	if !ok {
		return accesstoken.ErrTokenNotFound
	}
	t.Revoke(at)
	return nil
}

func (m *MockAccessTokenRepository) UpdateLastUsed(_ context.Context, hash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LastUsedError != nil {
		return m.LastUsedError
	}
	if t, ok := m.rows[hash]; ok {
		t.MarkUsed(at)
	}
	return nil
}

func (m *MockAccessTokenRepository) RevokeAllForSubject(_ context.Context, subject string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.rows {
		if t.Subject() == subject && t.Revoke(at) {
			n++
		}
	}
	return n, nil
}

// Put replaces the stored record for its hash.
func (m *MockAccessTokenRepository) Put(t *accesstoken.AccessToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[t.TokenHash()] = t
}

// MockCounterRepository is an in-memory usage.CounterRepository with the
// same atomicity as the SQL implementation.
type MockCounterRepository struct {
	mu     sync.Mutex
	counts map[usage.CounterKey]int64

	Error error
}

func NewMockCounterRepository() *MockCounterRepository {
	return &MockCounterRepository{counts: make(map[usage.CounterKey]int64)}
}

func (m *MockCounterRepository) Increment(_ context.Context, key usage.CounterKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return 0, m.Error
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *MockCounterRepository) IncrementIfBelow(_ context.Context, key usage.CounterKey, limit int64) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return false, 0, m.Error
	}
	if m.counts[key] >= limit {
		return false, m.counts[key], nil
	}
	m.counts[key]++
	return true, m.counts[key], nil
}

func (m *MockCounterRepository) Get(_ context.Context, key usage.CounterKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return 0, m.Error
	}
	return m.counts[key], nil
}

// Set forces a counter value.
func (m *MockCounterRepository) Set(key usage.CounterKey, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key] = n
}

// MockEventRepository is an in-memory usage.EventRepository.
type MockEventRepository struct {
	mu     sync.Mutex
	events []*usage.Event

	AppendError error
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{}
}

func (m *MockEventRepository) Append(_ context.Context, e *usage.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendError != nil {
		return m.AppendError
	}
	m.events = append(m.events, e)
	return nil
}

func (m *MockEventRepository) ListBySubject(_ context.Context, subject string, since time.Time, limit int) ([]*usage.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*usage.Event
	for _, e := range m.events {
		if e.Subject == subject && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockEventRepository) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, e := range m.events {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

// Events returns a copy of everything appended.
func (m *MockEventRepository) Events() []*usage.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*usage.Event(nil), m.events...)
}

// MockSubscriptionCache is an in-memory cache.SubscriptionCache.
type MockSubscriptionCache struct {
	mu      sync.Mutex
	entries map[string]*cache.CachedSubscription
	fences  map[string]int64

	GetError      error
	Invalidations int
}

func NewMockSubscriptionCache() *MockSubscriptionCache {
	return &MockSubscriptionCache{
		entries: make(map[string]*cache.CachedSubscription),
		fences:  make(map[string]int64),
	}
}

func (m *MockSubscriptionCache) Get(_ context.Context, subject string) (*cache.CachedSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.entries[subject], nil
}

func (m *MockSubscriptionCache) Fence(_ context.Context, subject string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fences[subject], nil
}

func (m *MockSubscriptionCache) Set(_ context.Context, subject string, fence int64, snap *cache.CachedSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fences[subject] != fence {
		return cache.ErrFenceMoved
	}
	m.entries[subject] = snap
	return nil
}

func (m *MockSubscriptionCache) SetNullMarker(_ context.Context, subject string, fence int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fences[subject] != fence {
		return cache.ErrFenceMoved
	}
	m.entries[subject] = &cache.CachedSubscription{NotFound: true}
	return nil
}

func (m *MockSubscriptionCache) Invalidate(_ context.Context, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidations++
	m.fences[subject]++
	delete(m.entries, subject)
	return nil
}

// Entry returns the cached snapshot for subject, or nil.
func (m *MockSubscriptionCache) Entry(subject string) *cache.CachedSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[subject]
}
