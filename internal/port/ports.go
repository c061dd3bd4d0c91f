// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
)

// OutcomeGenerator draws one symbol from the fixed outcome space with
// uniform probability. Implementations must be safe for concurrent use.
type OutcomeGenerator interface {
	Draw(ctx context.Context) domain.Symbol
}

// EntropySource returns a uniformly random int in [0, n) from an external
// randomness service.
type EntropySource interface {
	Intn(ctx context.Context, n int) (int, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
