//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/adapter"
	"city-plot-engine/internal/domain/ports/repository"
)

// ---- In-memory UserRepository ----

type MockUserRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.User
	SaveFunc func(ctx context.Context, tx repository.Tx, u *model.User) error
	saveErr error
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[string]*model.User)}
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	cp.Version++
	m.store[u.ID] = &cp
	u.Version = cp.Version
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return m.FindByID(ctx, tx, id)
}

func (m *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

// ---- In-memory PlotRepository ----

type MockPlotRepo struct {
	mu         sync.RWMutex
	store      map[string]*model.Plot
	InsertFunc func(ctx context.Context, tx repository.Tx, p *model.Plot) error
}

func NewMockPlotRepo() *MockPlotRepo {
	return &MockPlotRepo{store: make(map[string]*model.Plot)}
}

var _ repository.PlotRepository = (*MockPlotRepo)(nil)

func (m *MockPlotRepo) Insert(ctx context.Context, tx repository.Tx, p *model.Plot) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.store {
		if other.Position == p.Position {
			return domain.ErrPositionOccupied
		}
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPlotRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlotRepo) FindByPosition(ctx context.Context, tx repository.Tx, pos model.Position) (*model.Plot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.Position == pos {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPlotRepo) CountWithinRadius(ctx context.Context, tx repository.Tx, center model.Position, radius float64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cnt := 0
	for _, p := range m.store {
		if p.Position.DistanceTo(center) <= radius {
			cnt++
		}
	}
	return cnt, nil
}

func (m *MockPlotRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Plot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Plot
	for _, p := range m.store {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPlotRepo) UpdatePaymentStatus(ctx context.Context, tx repository.Tx, id string, status model.PlotPaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.PaymentStatus = status
	return nil
}

// ---- In-memory TransactionRepository ----

type MockTransactionRepo struct {
	mu                     sync.RWMutex
	store                  map[string]*model.Transaction
	SaveFunc               func(ctx context.Context, tx repository.Tx, t *model.Transaction) error
	CountCompletedNearFunc func(ctx context.Context, center model.Position, radius float64, since time.Time) (int, error)
}

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{store: make(map[string]*model.Transaction)}
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func (m *MockTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// The idempotency key column is unique in the real store.
	if t.IdempotencyKey != nil {
		for id, other := range m.store {
			if id != t.ID && other.IdempotencyKey != nil && *other.IdempotencyKey == *t.IdempotencyKey {
				return domain.ErrAlreadyExists
			}
		}
	}
	cp := cloneTx(t)
	m.store[t.ID] = cp
	return nil
}

func (m *MockTransactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTx(t), nil
}

func (m *MockTransactionRepo) FindByIdempotencyKey(ctx context.Context, tx repository.Tx, key string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			return cloneTx(t), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTransactionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	t.CompletedAt = completedAt
	t.UpdatedAt = time.Now()
	return nil
}

func (m *MockTransactionRepo) CountCompletedNear(ctx context.Context, tx repository.Tx, center model.Position, radius float64, since time.Time) (int, error) {
	if m.CountCompletedNearFunc != nil {
		return m.CountCompletedNearFunc(ctx, center, radius, since)
	}
	return 0, nil
}

func (m *MockTransactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Transaction
	for _, t := range m.store {
		if t.Status == model.TxStatusPending && t.CreatedAt.Before(olderThan) {
			out = append(out, cloneTx(t))
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockTransactionRepo) SumCompletedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, t := range m.store {
		if t.Status == model.TxStatusCompleted {
			sum += t.AmountCents
		}
	}
	return sum, nil
}

func cloneTx(t *model.Transaction) *model.Transaction {
	cp := *t
	if t.Metadata != nil {
		cp.Metadata = make(map[string]interface{}, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	if t.PlotID != nil {
		id := *t.PlotID
		cp.PlotID = &id
	}
	if t.IdempotencyKey != nil {
		k := *t.IdempotencyKey
		cp.IdempotencyKey = &k
	}
	return &cp
}

// ---- In-memory IdempotencyStore ----

type MockIdemStore struct {
	mu    sync.RWMutex
	store map[string]*repository.PurchaseReceipt
}

func NewMockIdemStore() *MockIdemStore {
	return &MockIdemStore{store: make(map[string]*repository.PurchaseReceipt)}
}

var _ repository.IdempotencyStore = (*MockIdemStore)(nil)

func (m *MockIdemStore) Get(ctx context.Context, key string) (*repository.PurchaseReceipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.store[key]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MockIdemStore) Put(ctx context.Context, key string, r *repository.PurchaseReceipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.store[key] = &cp
	return nil
}

// ---- TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the function immediately with NoTX. Tests that need to observe
// rollback behavior assign a custom WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- PaymentGateway ----

type MockPaymentGateway struct {
	CreateIntentFunc func(ctx context.Context, amountCents int64, meta map[string]interface{}) (string, error)
	ChargeFunc       func(ctx context.Context, amountCents int64, method adapter.PaymentMethod) (adapter.ChargeResult, error)
	RefundFunc       func(ctx context.Context, referenceID string, amountCents int64, reason string) (adapter.ChargeResult, error)
	RefundCalls      int
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, amountCents int64, meta map[string]interface{}) (string, error) {
	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, amountCents, meta)
	}
	return "cs_test_secret", nil
}

func (m *MockPaymentGateway) Charge(ctx context.Context, amountCents int64, method adapter.PaymentMethod) (adapter.ChargeResult, error) {
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, amountCents, method)
	}
	return adapter.ChargeResult{ReferenceID: "ch_test"}, nil
}

func (m *MockPaymentGateway) Refund(ctx context.Context, referenceID string, amountCents int64, reason string) (adapter.ChargeResult, error) {
	m.RefundCalls++
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, referenceID, amountCents, reason)
	}
	return adapter.ChargeResult{ReferenceID: "re_test"}, nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
