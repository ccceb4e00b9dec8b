package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		invoicesBilledTotal,
		trialsPromotedTotal,
		schedulesReconciledTotal,
	)
}

var (
	invoicesBilledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_invoices_billed_total",
			Help: "Invoice payment attempts by outcome (paid/failed/skipped).",
		},
		[]string{"outcome"},
	)

	trialsPromotedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_trials_promoted_total",
			Help: "Trial subscriptions promoted to active billing.",
		},
	)

	schedulesReconciledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_schedules_reconciled_total",
			Help: "Remote schedule reconciliations by outcome (recovered/created/failed).",
		},
		[]string{"outcome"},
	)
)

func IncInvoiceBilled(outcome string) {
	invoicesBilledTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncTrialPromoted() {
	trialsPromotedTotal.Inc()
}

func IncScheduleReconciled(outcome string) {
	schedulesReconciledTotal.WithLabelValues(norm(outcome)).Inc()
}
