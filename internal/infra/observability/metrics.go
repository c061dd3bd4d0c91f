package observability

import (
	"time"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	externalErrors    *prometheus.CounterVec
	accountsCreated   prometheus.Counter
	accounts          prometheus.Gauge
	deposits          prometheus.Counter
	wagers            *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	entropyFallbacks  prometheus.Counter
	idempotentReplays prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		accountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_accounts_created_total",
			Help: "Total accounts created.",
		}),
		accounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_accounts",
			Help: "Number of accounts in the table.",
		}),
		deposits: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_deposits_total",
			Help: "Total deposits applied.",
		}),
		wagers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_wagers_total",
				Help: "Total settled wagers by outcome.",
			},
			[]string{"outcome"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rejections_total",
				Help: "Total rejected operations by reason.",
			},
			[]string{"reason"},
		),
		entropyFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_entropy_fallbacks_total",
			Help: "Draws served by the local generator after a remote entropy failure.",
		}),
		idempotentReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_idempotent_replays_total",
			Help: "Responses replayed from the idempotency cache.",
		}),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrAccountCreated counts a new account and updates the table size gauge.
func (m *Metrics) IncrAccountCreated(total int) {
	m.accountsCreated.Inc()
	m.accounts.Set(float64(total))
}

// IncrDeposit increments the deposit counter.
func (m *Metrics) IncrDeposit() {
	m.deposits.Inc()
}

// RecordWager counts a settled wager.
func (m *Metrics) RecordWager(won bool) {
	if won {
		m.wagers.WithLabelValues("won").Inc()
		return
	}
	m.wagers.WithLabelValues("lost").Inc()
}

// IncrRejection counts an operation rejected with a domain error.
func (m *Metrics) IncrRejection(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

// IncrEntropyFallback counts a draw that fell back to the local generator.
func (m *Metrics) IncrEntropyFallback() {
	m.entropyFallbacks.Inc()
}

// IncrIdempotentReplay counts a cached response replay.
func (m *Metrics) IncrIdempotentReplay() {
	m.idempotentReplays.Inc()
}

// GetLedgerSnapshot returns the counters suitable for the
// GET /v1/metrics/ledger endpoint.
func (m *Metrics) GetLedgerSnapshot() *domain.LedgerMetrics {
	won := getCounterValue(m.wagers, "won")
	lost := getCounterValue(m.wagers, "lost")
	rejected := getCounterValue(m.rejections, "invalid_bet") +
		getCounterValue(m.rejections, "insufficient_funds") +
		getCounterValue(m.rejections, "not_found") +
		getCounterValue(m.rejections, "duplicate_name")

	winRate := float64(0)
	if won+lost > 0 {
		winRate = won / (won + lost)
	}

	return &domain.LedgerMetrics{
		AccountsCreated:  int64(readCounter(m.accountsCreated)),
		Deposits:         int64(readCounter(m.deposits)),
		WagersWon:        int64(won),
		WagersLost:       int64(lost),
		Rejections:       int64(rejected),
		WinRate:          winRate,
		DesignedWinRate:  1.0 / float64(domain.SymbolCount),
		EntropyFallbacks: int64(readCounter(m.entropyFallbacks)),
		Period:           "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return readCounter(cv.WithLabelValues(label))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
