package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/metrics"
)

// OverdueReporter computes the current overdue picture.
type OverdueReporter interface {
	OverdueSummary(ctx context.Context) (entities.OverdueSummary, error)
}

// OverdueReportTask refreshes the overdue loan and unpaid fine gauges.
type OverdueReportTask struct {
	Trigger string `json:"trigger"` // "schedule" or "manual"
}

func (t OverdueReportTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "overdue_report",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func OverdueReportProcessor(reporter OverdueReporter) backlite.QueueProcessor[OverdueReportTask] {
	return func(ctx context.Context, task OverdueReportTask) error {
		if reporter == nil {
			return fmt.Errorf("overdue reporter not configured")
		}

		summary, err := reporter.OverdueSummary(ctx)
		if err != nil {
			return fmt.Errorf("overdue report: %w", err)
		}
		metrics.SetOverdueSummary(summary)

		log.Printf("[TASK] Overdue report (%s) as of %s: %d active loans, %d overdue, %d unpaid fines totalling $%s",
			task.Trigger, summary.AsOf.Format("2006-01-02"), summary.ActiveLoans, summary.OverdueLoans,
			summary.UnpaidFineCount, summary.UnpaidFineTotal.StringFixed(2))
		return nil
	}
}

func NewOverdueReportQueue(reporter OverdueReporter) backlite.Queue {
	return backlite.NewQueue(OverdueReportProcessor(reporter))
}
