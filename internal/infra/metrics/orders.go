package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersCreatedTotal,
		ordersSynthesizedTotal,
		reconcileTotal,
		ordersAbandonedTotal,
	)
}

var (
	ordersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of checkout orders created.",
		},
	)

	ordersSynthesizedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_synthesized_total",
			Help: "Orders auto-created from gateway payments with lost correlation.",
		},
	)

	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconcile_total",
			Help: "Gateway payment reconciliations by outcome (ok/error/not_paid/gateway_error).",
		},
		[]string{"outcome"},
	)

	ordersAbandonedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_abandoned_total",
			Help: "Stale pending orders cancelled by the abandoned-checkout sweep.",
		},
	)
)

func IncOrderCreated() {
	ordersCreatedTotal.Inc()
}

func IncOrderSynthesized() {
	ordersSynthesizedTotal.Inc()
}

func IncReconcile(outcome string) {
	reconcileTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddOrdersAbandoned(count int) {
	ordersAbandonedTotal.Add(float64(count))
}
