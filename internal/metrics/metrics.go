// Package metrics exposes pool activity as Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"poolsim/internal/model"
	"poolsim/internal/pool"
)

const namespace = "poolsim"

// Metrics counts operations by outcome and tracks the latest pool state.
// It satisfies scenario.Observer.
type Metrics struct {
	registry *prometheus.Registry

	operations  *prometheus.CounterVec
	reserveA    prometheus.Gauge
	reserveB    prometheus.Gauge
	totalShares prometheus.Gauge
	spotPrice   prometheus.Gauge
	earningsA   prometheus.Gauge
	earningsB   prometheus.Gauge
}

func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "number of pool operations by op and result code",
		}, []string{"op", "result"}),
		reserveA: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reserve_a",
			Help:      "current reserve of asset A",
		}),
		reserveB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reserve_b",
			Help:      "current reserve of asset B",
		}),
		totalShares: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_shares",
			Help:      "outstanding LP shares",
		}),
		spotPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spot_price",
			Help:      "reserve B per unit of reserve A",
		}),
		earningsA: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "protocol_earnings_a",
			Help:      "team fees collected in asset A",
		}),
		earningsB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "protocol_earnings_b",
			Help:      "team fees collected in asset B",
		}),
	}

	err := errors.Join(
		m.registry.Register(m.operations),
		m.registry.Register(m.reserveA),
		m.registry.Register(m.reserveB),
		m.registry.Register(m.totalShares),
		m.registry.Register(m.spotPrice),
		m.registry.Register(m.earningsA),
		m.registry.Register(m.earningsB),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records the outcome of op and the pool state after it.
func (m *Metrics) Observe(op string, err error, snapshot model.PoolSnapshot) {
	result := "ok"
	if err != nil {
		result = pool.Code(err)
		if result == "" {
			result = "ERROR"
		}
	}
	m.operations.WithLabelValues(op, result).Inc()

	m.reserveA.Set(snapshot.ReserveA.InexactFloat64())
	m.reserveB.Set(snapshot.ReserveB.InexactFloat64())
	m.totalShares.Set(snapshot.TotalShares.InexactFloat64())
	m.spotPrice.Set(snapshot.SpotPrice.InexactFloat64())
	m.earningsA.Set(snapshot.ProtocolEarningsA.InexactFloat64())
	m.earningsB.Set(snapshot.ProtocolEarningsB.InexactFloat64())
}
