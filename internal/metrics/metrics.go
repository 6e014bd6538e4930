package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"soondex/internal/dex"
)

// Metrics holds the exchange counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Operations   *prometheus.CounterVec
	SwapVolume   *prometheus.CounterVec
	SwapFees     *prometheus.CounterVec
	PoolReserves *prometheus.GaugeVec
	OpenOrders   *prometheus.GaugeVec
}

// New registers the exchange metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "soondex",
				Name:      "operations_total",
				Help:      "Pool operations by name and result",
			},
			[]string{"op", "result"},
		),
		SwapVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "soondex",
				Name:      "swap_volume_total",
				Help:      "Swap input volume in base units",
			},
			[]string{"mint"},
		),
		SwapFees: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "soondex",
				Name:      "swap_fees_total",
				Help:      "Swap fees retained by pools in base units",
			},
			[]string{"mint"},
		),
		PoolReserves: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "soondex",
				Name:      "pool_reserves",
				Help:      "Committed pool reserves",
			},
			[]string{"pool", "side"},
		),
		OpenOrders: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "soondex",
				Name:      "pool_open_orders",
				Help:      "Open limit orders per pool",
			},
			[]string{"pool"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOperation counts one finished operation.
func (m *Metrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, Result(err)).Inc()
}

func (m *Metrics) ObserveSwap(mint string, amountIn, fee uint64) {
	if m == nil {
		return
	}
	m.SwapVolume.WithLabelValues(mint).Add(float64(amountIn))
	m.SwapFees.WithLabelValues(mint).Add(float64(fee))
}

func (m *Metrics) ObservePool(pool string, reserveX, reserveY uint64, openOrders int) {
	if m == nil {
		return
	}
	m.PoolReserves.WithLabelValues(pool, "x").Set(float64(reserveX))
	m.PoolReserves.WithLabelValues(pool, "y").Set(float64(reserveY))
	m.OpenOrders.WithLabelValues(pool).Set(float64(openOrders))
}

// ForgetPool drops the gauges of a removed pool.
func (m *Metrics) ForgetPool(pool string) {
	if m == nil {
		return
	}
	m.PoolReserves.DeleteLabelValues(pool, "x")
	m.PoolReserves.DeleteLabelValues(pool, "y")
	m.OpenOrders.DeleteLabelValues(pool)
}

// WriteTextfile dumps the registry in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Result maps an operation error to a low-cardinality label value.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	var de *dex.Error
	if errors.As(err, &de) {
		return de.Name
	}
	return "error"
}

// CodeLabel formats a dex error code for logs and labels.
func CodeLabel(err error) string {
	if code := dex.Code(err); code != 0 {
		return strconv.FormatUint(uint64(code), 10)
	}
	return ""
}
