// Package memory provides the in-memory account table.
// Account lookup is lock-free, name registration is guarded by its own
// mutex and every account carries a private mutex for balance changes, so
// creating accounts never serializes against balance mutations and
// mutations on different accounts never share a lock.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("infra/memory")

type accountEntry struct {
	mu        sync.Mutex
	id        string
	name      string
	balance   int64
	createdAt time.Time
}

func (e *accountEntry) snapshot() *domain.Account {
	return &domain.Account{
		ID:        e.id,
		Name:      e.name,
		Balance:   e.balance,
		CreatedAt: e.createdAt,
	}
}

// AccountStore is a concurrency-safe in-memory implementation of port.AccountStore.
type AccountStore struct {
	accounts sync.Map // id -> *accountEntry

	namesMu sync.Mutex
	names   map[string]string // name -> id

	count  atomic.Int64
	newID  func() string
	logger *zap.Logger
}

// NewAccountStore creates an empty account table.
func NewAccountStore(logger *zap.Logger) *AccountStore {
	return &AccountStore{
		names:  make(map[string]string),
		newID:  func() string { return uuid.New().String() },
		logger: logger,
	}
}

var _ port.AccountStore = (*AccountStore)(nil)

// ============================================================
// Accounts
// ============================================================

// CreateAccount registers a new account with a zero balance.
// Names are matched exactly (case-sensitive).
func (s *AccountStore) CreateAccount(ctx context.Context, name string) (*domain.Account, error) {
	_, span := tracer.Start(ctx, "Memory.CreateAccount")
	defer span.End()

	s.namesMu.Lock()
	defer s.namesMu.Unlock()

	if _, taken := s.names[name]; taken {
		return nil, &domain.ErrDuplicateName{Name: name}
	}

	e := &accountEntry{
		id:        s.newID(),
		name:      name,
		createdAt: time.Now().UTC(),
	}
	s.accounts.Store(e.id, e)
	s.names[name] = e.id
	s.count.Add(1)

	span.SetAttributes(attribute.String("account.id", e.id))
	s.logger.Debug("memory: account created",
		zap.String("account_id", e.id),
		zap.String("name", name),
	)

	return e.snapshot(), nil
}

// GetAccount returns a snapshot of the account as of the last completed mutation.
func (s *AccountStore) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	_, span := tracer.Start(ctx, "Memory.GetAccount")
	defer span.End()

	e, err := s.lookup(accountID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), nil
}

// MutateBalance applies fn to the balance while holding the account's lock.
// fn sees the balance at the moment of exclusive access; if it returns an
// error, or a negative balance, the stored balance is left untouched.
func (s *AccountStore) MutateBalance(ctx context.Context, accountID string, fn port.BalanceFunc) (int64, error) {
	_, span := tracer.Start(ctx, "Memory.MutateBalance")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	e, err := s.lookup(accountID)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.balance)
	if err != nil {
		return 0, err
	}
	if next < 0 {
		return 0, fmt.Errorf("balance of account %s would become negative (%d)", accountID, next)
	}

	s.logger.Debug("memory: balance updated",
		zap.String("account_id", accountID),
		zap.Int64("old_balance", e.balance),
		zap.Int64("new_balance", next),
	)
	e.balance = next
	return next, nil
}

// CountAccounts returns the number of accounts in the table.
func (s *AccountStore) CountAccounts() int {
	return int(s.count.Load())
}

func (s *AccountStore) lookup(accountID string) (*accountEntry, error) {
	v, ok := s.accounts.Load(accountID)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return v.(*accountEntry), nil
}
