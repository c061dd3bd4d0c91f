package service

import (
	"context"
	"math/rand/v2"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/infra/observability"
	"github.com/boddenberg/wager-ledger-go/internal/port"

	"go.uber.org/zap"
)

// UniformGenerator draws symbols uniformly from the outcome space using
// the process-wide math/rand source, which is safe for concurrent use.
type UniformGenerator struct{}

// NewUniformGenerator returns the local outcome generator.
func NewUniformGenerator() *UniformGenerator {
	return &UniformGenerator{}
}

// Draw returns one symbol in [0, SymbolCount).
func (UniformGenerator) Draw(context.Context) domain.Symbol {
	return domain.Symbol(rand.IntN(domain.SymbolCount))
}

// RemoteOutcomeGenerator draws from an external entropy service and falls
// back to a local generator whenever the service fails, so a draw never
// errors out.
type RemoteOutcomeGenerator struct {
	source   port.EntropySource
	fallback port.OutcomeGenerator
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewRemoteOutcomeGenerator wires the remote source with its fallback.
func NewRemoteOutcomeGenerator(
	source port.EntropySource,
	fallback port.OutcomeGenerator,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *RemoteOutcomeGenerator {
	return &RemoteOutcomeGenerator{
		source:   source,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger,
	}
}

// Draw returns one symbol in [0, SymbolCount).
func (g *RemoteOutcomeGenerator) Draw(ctx context.Context) domain.Symbol {
	n, err := g.source.Intn(ctx, domain.SymbolCount)
	if err == nil && n >= 0 && n < domain.SymbolCount {
		return domain.Symbol(n)
	}

	if err == nil {
		g.logger.Warn("entropy source returned out-of-range value", zap.Int("value", n))
	} else {
		g.logger.Warn("entropy source failed, using local generator", zap.Error(err))
		g.metrics.IncrExternalError("entropy")
	}
	g.metrics.IncrEntropyFallback()
	return g.fallback.Draw(ctx)
}
