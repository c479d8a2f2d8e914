package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		plotsAllocatedTotal,
		plotRevenueTotal,
		freeSquaresConsumedTotal,
		positionConflictsTotal,
	)
}

var (
	plotsAllocatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plots_allocated_total",
			Help: "Plots allocated, labeled by payment status (free/paid/paid_with_credits).",
		},
		[]string{"payment_status"},
	)

	plotRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plot_revenue_total",
			Help: "Total monetary value of plot purchases in cents, labeled by currency.",
		},
		[]string{"currency"},
	)

	freeSquaresConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "free_squares_consumed_total",
			Help: "Lifetime free squares consumed across all allocations.",
		},
	)

	positionConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plot_position_conflicts_total",
			Help: "Purchase attempts rejected because the position was already taken.",
		},
	)
)

func IncPlotAllocated(paymentStatus string) {
	plotsAllocatedTotal.WithLabelValues(norm(paymentStatus)).Inc()
}

func AddPlotRevenue(currency string, amountCents int64) {
	if amountCents > 0 {
		plotRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amountCents))
	}
}

func AddFreeSquaresConsumed(n int) {
	if n > 0 {
		freeSquaresConsumedTotal.Add(float64(n))
	}
}

func IncPositionConflict() { positionConflictsTotal.Inc() }
