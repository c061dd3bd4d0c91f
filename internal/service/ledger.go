// Package service provides the business logic layer (use cases).
// Ledger is the single entry point used by the HTTP layer: it creates
// accounts, applies deposits and settles wagers.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/infra/observability"
	"github.com/boddenberg/wager-ledger-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

// Ledger orchestrates account operations over an injected AccountStore.
type Ledger struct {
	store         port.AccountStore
	engine        *WagerEngine
	depositAmount int64
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewLedger creates the ledger facade.
func NewLedger(
	store port.AccountStore,
	engine *WagerEngine,
	depositAmount int64,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		store:         store,
		engine:        engine,
		depositAmount: depositAmount,
		metrics:       metrics,
		logger:        logger,
	}
}

// ============================================================
// Accounts
// ============================================================

// CreateAccount registers a new account under a unique name.
func (l *Ledger) CreateAccount(ctx context.Context, name string) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "Ledger.CreateAccount")
	defer span.End()
	defer l.observe("create_account", time.Now())

	if strings.TrimSpace(name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
	}

	acct, err := l.store.CreateAccount(ctx, name)
	if err != nil {
		l.reject(err)
		return nil, err
	}
	l.metrics.IncrAccountCreated(l.store.CountAccounts())
	span.SetAttributes(attribute.String("account.id", acct.ID))

	l.logger.Info("account created",
		zap.String("account_id", acct.ID),
		zap.String("name", acct.Name),
	)
	return acct, nil
}

// GetAccount returns the current account snapshot.
func (l *Ledger) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "Ledger.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	return l.store.GetAccount(ctx, accountID)
}

// Deposit tops the account up by the fixed deposit amount.
func (l *Ledger) Deposit(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "Ledger.Deposit")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))
	defer l.observe("deposit", time.Now())

	amount := l.depositAmount
	balance, err := l.store.MutateBalance(ctx, accountID, func(current int64) (int64, error) {
		return current + amount, nil
	})
	if err != nil {
		l.reject(err)
		return nil, err
	}
	l.metrics.IncrDeposit()

	l.logger.Info("deposit applied",
		zap.String("account_id", accountID),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance),
	)

	// Another operation may have changed the balance since; report the
	// value this deposit produced.
	acct, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	acct.Balance = balance
	return acct, nil
}

// ============================================================
// Wagers
// ============================================================

// Wager stakes bet credits on a single draw.
func (l *Ledger) Wager(ctx context.Context, accountID string, bet int64) (*domain.WagerOutcome, error) {
	ctx, span := ledgerTracer.Start(ctx, "Ledger.Wager")
	defer span.End()
	defer l.observe("wager", time.Now())

	outcome, err := l.engine.Evaluate(ctx, accountID, bet)
	if err != nil {
		l.reject(err)
		return nil, err
	}
	l.metrics.RecordWager(outcome.Won)

	l.logger.Info("wager settled",
		zap.String("account_id", accountID),
		zap.Int64("bet", bet),
		zap.Bool("won", outcome.Won),
		zap.Int64("balance", outcome.Balance),
	)
	return outcome, nil
}

// CountAccounts reports the size of the account table.
func (l *Ledger) CountAccounts() int {
	return l.store.CountAccounts()
}

func (l *Ledger) observe(operation string, start time.Time) {
	l.metrics.RecordDuration(operation, time.Since(start))
}

func (l *Ledger) reject(err error) {
	var (
		notFound  *domain.ErrNotFound
		duplicate *domain.ErrDuplicateName
		invalid   *domain.ErrInvalidBet
		funds     *domain.ErrInsufficientFunds
	)
	switch {
	case errors.As(err, &notFound):
		l.metrics.IncrRejection("not_found")
	case errors.As(err, &duplicate):
		l.metrics.IncrRejection("duplicate_name")
	case errors.As(err, &invalid):
		l.metrics.IncrRejection("invalid_bet")
	case errors.As(err, &funds):
		l.metrics.IncrRejection("insufficient_funds")
	default:
		l.logger.Error("ledger operation failed", zap.Error(err))
	}
}
