// Package observability provides a metrics hook backed by Prometheus.
//
// Register it on the engine with bankcore.WithHook; it observes committed
// operations only, so counters never include rolled-back work.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
)

// Metrics is a bankcore hook that exports operation counters and volume
// totals to a Prometheus registry.
type Metrics struct {
	operations *prometheus.CounterVec
	volume     *prometheus.CounterVec
}

// NewMetrics creates the hook and registers its collectors. A nil
// registerer falls back to the default registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bankcore",
			Name:      "operations_total",
			Help:      "Committed engine operations by type.",
		}, []string{"operation"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bankcore",
			Name:      "volume_minor_units_total",
			Help:      "Committed operation volume in minor currency units.",
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{m.operations, m.volume} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Name implements hook.Hook.
func (m *Metrics) Name() string { return "prometheus-metrics" }

func (m *Metrics) observe(operation string, amount int64) {
	m.operations.WithLabelValues(operation).Inc()
	m.volume.WithLabelValues(operation).Add(float64(amount))
}

// OnDeposit implements hook.DepositListener.
func (m *Metrics) OnDeposit(_ context.Context, e *entry.Entry) error {
	m.observe("deposit", e.Amount)
	return nil
}

// OnTransfer implements hook.TransferListener.
func (m *Metrics) OnTransfer(_ context.Context, e *entry.Entry) error {
	m.observe("transfer", e.Amount)
	return nil
}

// OnEscrowCreated implements hook.EscrowListener.
func (m *Metrics) OnEscrowCreated(_ context.Context, es *escrow.Escrow) error {
	m.observe("escrow_create", es.Amount)
	return nil
}

// OnEscrowReleased implements hook.EscrowListener.
func (m *Metrics) OnEscrowReleased(_ context.Context, es *escrow.Escrow) error {
	m.observe("escrow_release", es.Amount)
	return nil
}

// OnEscrowDisputed implements hook.EscrowListener.
func (m *Metrics) OnEscrowDisputed(_ context.Context, es *escrow.Escrow) error {
	m.observe("escrow_dispute", es.Amount)
	return nil
}

// OnCreditExtended implements hook.CreditListener.
func (m *Metrics) OnCreditExtended(_ context.Context, l *credit.Line) error {
	m.observe("credit_extend", l.LimitAmount)
	return nil
}

// OnCreditDrawn implements hook.CreditListener.
func (m *Metrics) OnCreditDrawn(_ context.Context, _ *credit.Line, t *credit.Transaction) error {
	m.observe("credit_draw", t.Amount)
	return nil
}

// OnCreditRepaid implements hook.CreditListener.
func (m *Metrics) OnCreditRepaid(_ context.Context, _ *credit.Line, t *credit.Transaction) error {
	m.observe("credit_repay", t.Amount)
	return nil
}

// OnCreditSettled implements hook.CreditListener.
func (m *Metrics) OnCreditSettled(_ context.Context, _ *credit.Line, t *credit.Transaction) error {
	m.observe("credit_settle", t.Amount)
	return nil
}

// OnCreditRevoked implements hook.CreditListener.
func (m *Metrics) OnCreditRevoked(_ context.Context, l *credit.Line) error {
	m.observe("credit_revoke", 0)
	return nil
}
