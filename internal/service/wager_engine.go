package service

import (
	"context"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var wagerTracer = otel.Tracer("service/wager")

// WagerEngine validates bets, draws outcomes and settles them against the
// account store.
type WagerEngine struct {
	store     port.AccountStore
	generator port.OutcomeGenerator
	rules     domain.WagerRules
	logger    *zap.Logger
}

// NewWagerEngine creates a wager engine with the given table rules.
func NewWagerEngine(store port.AccountStore, generator port.OutcomeGenerator, rules domain.WagerRules, logger *zap.Logger) *WagerEngine {
	return &WagerEngine{store: store, generator: generator, rules: rules, logger: logger}
}

// Rules returns the limits the engine enforces.
func (e *WagerEngine) Rules() domain.WagerRules {
	return e.rules
}

// Evaluate settles a single bet. Checks run in order: bet range, account
// existence, then funds. The funds check runs inside the store's critical
// section so concurrent bets on one account cannot both pass it against a
// balance that covers only one of them.
func (e *WagerEngine) Evaluate(ctx context.Context, accountID string, bet int64) (*domain.WagerOutcome, error) {
	ctx, span := wagerTracer.Start(ctx, "WagerEngine.Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.Int64("wager.bet", bet),
	)

	if bet < e.rules.MinBet || bet > e.rules.MaxBet {
		return nil, &domain.ErrInvalidBet{Bet: bet, Min: e.rules.MinBet, Max: e.rules.MaxBet}
	}

	if _, err := e.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	result := e.generator.Draw(ctx)
	won := result == domain.WinningSymbol

	balance, err := e.store.MutateBalance(ctx, accountID, func(current int64) (int64, error) {
		if current < bet {
			return 0, &domain.ErrInsufficientFunds{Available: current, Required: bet}
		}
		if won {
			return current + e.rules.PayoutMultiplier*bet, nil
		}
		return current - bet, nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("wager.result", int(result)),
		attribute.Bool("wager.won", won),
	)
	e.logger.Debug("wager settled",
		zap.String("account_id", accountID),
		zap.Int64("bet", bet),
		zap.Int("result", int(result)),
		zap.Bool("won", won),
		zap.Int64("balance", balance),
	)

	return &domain.WagerOutcome{
		AccountID: accountID,
		Bet:       bet,
		Result:    result,
		Won:       won,
		Balance:   balance,
	}, nil
}
