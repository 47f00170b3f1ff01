// Package metrics exposes circulation counters and gauges to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/mrlokans/librarydesk/internal/entities"
)

const namespace = "librarydesk"

var (
	// CheckoutsTotal counts checkout attempts by outcome ("ok" or the
	// rejection kind, e.g. "book_unavailable").
	CheckoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	// CheckinsTotal counts check-in attempts. Successful returns are split
	// into "on_time" and "late".
	CheckinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_total",
			Help:      "Check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	FinesAssessedAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fines_assessed_amount_total",
			Help:      "Sum of fines assessed on late returns",
		},
	)

	FinePaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fine_payments_total",
			Help:      "Fine payment attempts by outcome",
		},
		[]string{"outcome"},
	)

	ActiveLoans = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_loans",
			Help:      "Loans currently out, as of the last overdue report",
		},
	)

	OverdueLoans = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_loans",
			Help:      "Active loans past their due date, as of the last overdue report",
		},
	)

	UnpaidFinesAmount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unpaid_fines_amount",
			Help:      "Sum of unpaid fines, as of the last overdue report",
		},
	)

	OverdueReportTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_report_last_run_timestamp_seconds",
			Help:      "Unix time of the last completed overdue report",
		},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_rate_limited_total",
			Help:      "API requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

func RecordCheckout(outcome string) {
	CheckoutsTotal.WithLabelValues(outcome).Inc()
}

// RecordCheckin counts a check-in and, when a fine was assessed, adds it to
// the assessed amount.
func RecordCheckin(outcome string, fine decimal.Decimal) {
	CheckinsTotal.WithLabelValues(outcome).Inc()
	if fine.IsPositive() {
		FinesAssessedAmount.Add(fine.InexactFloat64())
	}
}

func RecordFinePayment(outcome string) {
	FinePaymentsTotal.WithLabelValues(outcome).Inc()
}

// SetOverdueSummary publishes the gauges from an overdue report.
func SetOverdueSummary(summary entities.OverdueSummary) {
	ActiveLoans.Set(float64(summary.ActiveLoans))
	OverdueLoans.Set(float64(summary.OverdueLoans))
	UnpaidFinesAmount.Set(summary.UnpaidFineTotal.InexactFloat64())
	OverdueReportTimestamp.Set(float64(time.Now().Unix()))
}

func RecordRateLimited(route string) {
	RateLimitedTotal.WithLabelValues(route).Inc()
}
