package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		pointsMovedTotal,
		membershipChangesTotal,
	)
}

var (
	pointsMovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_moved_total",
			Help: "Absolute point amounts moved through the ledger by entry type.",
		},
		[]string{"type"},
	)

	membershipChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_changes_total",
			Help: "Membership tier recomputations that changed the level, by new level.",
		},
		[]string{"level"},
	)
)

func AddPointsMoved(entryType string, points int) {
	if points < 0 {
		points = -points
	}
	pointsMovedTotal.WithLabelValues(norm(entryType)).Add(float64(points))
}

func IncMembershipChange(level string) {
	membershipChangesTotal.WithLabelValues(norm(level)).Inc()
}
