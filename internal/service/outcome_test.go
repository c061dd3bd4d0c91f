package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/infra/observability"
	"github.com/boddenberg/wager-ledger-go/internal/service"

	"go.uber.org/zap"
)

type mockEntropySource struct {
	value int
	err   error
	calls int
}

func (m *mockEntropySource) Intn(_ context.Context, _ int) (int, error) {
	m.calls++
	return m.value, m.err
}

func TestUniformGenerator_CoversOutcomeSpace(t *testing.T) {
	gen := service.NewUniformGenerator()
	counts := make(map[domain.Symbol]int)

	const draws = 20000
	for i := 0; i < draws; i++ {
		s := gen.Draw(context.Background())
		if s < 0 || int(s) >= domain.SymbolCount {
			t.Fatalf("symbol %d outside the outcome space", s)
		}
		counts[s]++
	}

	if len(counts) != domain.SymbolCount {
		t.Fatalf("expected all %d symbols, saw %d", domain.SymbolCount, len(counts))
	}
	expected := draws / domain.SymbolCount
	for s, n := range counts {
		if n < expected*8/10 || n > expected*12/10 {
			t.Errorf("symbol %d drawn %d times, expected about %d", s, n, expected)
		}
	}
}

func TestRemoteOutcomeGenerator(t *testing.T) {
	tests := []struct {
		name          string
		source        *mockEntropySource
		want          domain.Symbol
		wantFallbacks int64
	}{
		{name: "remote value", source: &mockEntropySource{value: 7}, want: 7},
		{name: "remote error", source: &mockEntropySource{err: errors.New("boom")}, want: domain.WinningSymbol, wantFallbacks: 1},
		{name: "out of range", source: &mockEntropySource{value: domain.SymbolCount}, want: domain.WinningSymbol, wantFallbacks: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := observability.NewMetrics()
			gen := service.NewRemoteOutcomeGenerator(tt.source, alwaysWin, metrics, zap.NewNop())

			if got := gen.Draw(context.Background()); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
			if tt.source.calls != 1 {
				t.Errorf("expected 1 remote call, got %d", tt.source.calls)
			}
			if got := metrics.GetLedgerSnapshot().EntropyFallbacks; got != tt.wantFallbacks {
				t.Errorf("expected %d fallbacks, got %d", tt.wantFallbacks, got)
			}
		})
	}
}
