package port

import (
	"context"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
)

// BalanceFunc maps the balance observed under exclusive access to the new
// balance. Returning an error aborts the mutation.
type BalanceFunc func(balance int64) (int64, error)

// AccountStore owns the id -> account mapping.
type AccountStore interface {
	CreateAccount(ctx context.Context, name string) (*domain.Account, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	MutateBalance(ctx context.Context, accountID string, fn BalanceFunc) (int64, error)
	CountAccounts() int
}
