package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/promoforge/promoforge/internal/billing"
	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/repository"
	"github.com/promoforge/promoforge/internal/storage"
)

// fakeUsageStore mirrors the database store's merge and lock semantics
// in memory. The mutex stands in for the row lock.
type fakeUsageStore struct {
	mu   sync.Mutex
	recs map[uuid.UUID]*domain.UsageRecord

	getErr error
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{recs: make(map[uuid.UUID]*domain.UsageRecord)}
}

func (f *fakeUsageStore) ensure(userID uuid.UUID, now time.Time) *domain.UsageRecord {
	rec, ok := f.recs[userID]
	if !ok {
		rec = domain.NewUsageRecord(userID, now)
		f.recs[userID] = rec
	}
	return rec
}

func (f *fakeUsageStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.recs[userID]; ok {
		clone := *rec
		return &clone, nil
	}
	return domain.NewUsageRecord(userID, time.Now()), nil
}

func (f *fakeUsageStore) UpsertBilling(ctx context.Context, userID uuid.UUID, tier domain.Tier, source domain.TierSource, customerID, subscriptionID string, subscriptionEnd *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.ensure(userID, time.Now())
	rec.Tier = tier
	rec.TierSource = source
	if customerID != "" {
		rec.StripeCustomerID = customerID
	}
	rec.StripeSubscriptionID = subscriptionID
	rec.SubscriptionEnd = subscriptionEnd
	return nil
}

func (f *fakeUsageStore) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.ensure(userID, at)
	rec.Tier = domain.TierPro
	rec.TierSource = domain.TierSourceCoupon
	rec.CouponApplied = code
	rec.CouponAppliedAt = &at
	return nil
}

func (f *fakeUsageStore) CheckAndIncrement(ctx context.Context, userID uuid.UUID, category domain.Category, now time.Time) (*domain.IncrementResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := f.ensure(userID, now)
	rolled := rec.RollIfNeeded(now)

	limit := domain.LimitsFor(rec.Tier).For(category)
	count := rec.Counters.For(category)
	allowed := limit == domain.Unlimited || count < limit
	if allowed {
		rec.Counters = rec.Counters.Add(category)
	}

	remaining := 0
	if limit == domain.Unlimited {
		remaining = domain.Unlimited
	} else if left := limit - rec.Counters.For(category); left > 0 {
		remaining = left
	}

	return &domain.IncrementResult{
		Allowed:     allowed,
		Rolled:      rolled,
		Tier:        rec.Tier,
		Counters:    rec.Counters,
		Limit:       limit,
		Remaining:   remaining,
		PeriodStart: rec.PeriodStart,
	}, nil
}

// seed installs a record directly, bypassing the merge rules.
func (f *fakeUsageStore) seed(rec *domain.UsageRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[rec.UserID] = rec
}

func (f *fakeUsageStore) record(userID uuid.UUID) *domain.UsageRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[userID]
}

// fakeBilling is a scriptable billing.Service.
type fakeBilling struct {
	customerID string
	sub        *billing.ActiveSubscription
	tiers      map[string]domain.Tier

	customerErr error
	subErr      error
}

func (f *fakeBilling) FindCustomerByEmail(email string) (string, error) {
	return f.customerID, f.customerErr
}

func (f *fakeBilling) FindActiveSubscription(customerID string) (*billing.ActiveSubscription, error) {
	return f.sub, f.subErr
}

func (f *fakeBilling) TierForProductID(productID string) domain.Tier {
	if tier, ok := f.tiers[productID]; ok {
		return tier
	}
	return domain.TierFree
}

func (f *fakeBilling) CreateCheckoutSession(customerEmail, priceID, successURL, cancelURL string) (string, error) {
	return "https://checkout.stripe.test/session", nil
}

func (f *fakeBilling) CreatePortalSession(customerID, returnURL string) (string, error) {
	return "https://billing.stripe.test/portal", nil
}

func (f *fakeBilling) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	return stripe.Event{}, nil
}

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*domain.User
	byEmail  map[string]*domain.User
	sessions map[string]*domain.Session
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:     make(map[uuid.UUID]*domain.User),
		byEmail:  make(map[string]*domain.User),
		sessions: make(map[string]*domain.Session),
	}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byEmail[user.Email]; exists {
		return nil, repository.ErrDuplicateEmail
	}
	clone := *user
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	f.byID[clone.ID] = &clone
	f.byEmail[clone.Email] = &clone
	out := clone
	return &out, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byEmail[email]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) CreateSession(ctx context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *session
	clone.CreatedAt = time.Now()
	f.sessions[session.TokenHash] = &clone
	return nil
}

func (f *fakeUserStore) GetUserBySessionTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[tokenHash]
	if !ok || sess.IsExpired() {
		return nil, repository.ErrNotFound
	}
	if u, ok := f.byID[sess.UserID]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

func (f *fakeUserStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, sess := range f.sessions {
		if sess.IsExpired() {
			delete(f.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (f *fakeUserStore) ListRecentlyActiveUserIDs(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, sess := range f.sessions {
		if sess.CreatedAt.After(since) && !sess.IsExpired() && !seen[sess.UserID] {
			seen[sess.UserID] = true
			ids = append(ids, sess.UserID)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

// fakeGenerationStore records inserted generations.
type fakeGenerationStore struct {
	mu    sync.Mutex
	items []repository.Generation
}

func (f *fakeGenerationStore) Insert(ctx context.Context, g *repository.Generation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *g
	clone.CreatedAt = time.Now()
	f.items = append(f.items, clone)
	return nil
}

func (f *fakeGenerationStore) ListByUser(ctx context.Context, userID uuid.UUID, category domain.Category, limit int) ([]repository.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Generation
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		g := f.items[i]
		if g.UserID == userID && g.Category == category {
			out = append(out, g)
		}
	}
	return out, nil
}

// fakeProductStore records inserted products.
type fakeProductStore struct {
	mu    sync.Mutex
	items []repository.Product
}

func (f *fakeProductStore) Insert(ctx context.Context, p *repository.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *p
	clone.CreatedAt = time.Now()
	f.items = append(f.items, clone)
	return nil
}

func (f *fakeProductStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Product
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].UserID == userID {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *fakeProductStore) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.items {
		if p.ID == productID && p.UserID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

// memStorage is an in-memory storage.Storage.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Put(ctx context.Context, key string, data io.Reader, opts storage.PutOptions) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStorage) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), storage.ObjectInfo{Key: key, Size: int64(len(b))}, nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "mem://" + key, nil
}

func (m *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}
