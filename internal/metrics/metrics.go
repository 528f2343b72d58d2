// Package metrics exposes Prometheus counters for the trading loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Trading loop ticks executed"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Strategy signals emitted"},
		[]string{"symbol", "action"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted by outcome"},
		[]string{"symbol", "side", "status"},
	)
	RiskExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "risk_exits_total", Help: "Forced exits triggered by stop-loss or take-profit"},
		[]string{"symbol", "kind"},
	)
	TickErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tick_errors_total", Help: "Ticks aborted by gateway or internal faults"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, SignalsTotal, OrdersTotal, RiskExitsTotal, TickErrorsTotal)
}

// Serve exposes /metrics on addr in a background goroutine.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
