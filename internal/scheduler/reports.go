// Package scheduler enqueues the periodic circulation jobs: the overdue
// report and audit trail cleanup. The jobs themselves run on the task queue.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/librarydesk/internal/tasks"
)

// Enqueuer saves tasks to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

type Config struct {
	OverdueSchedule      string
	AuditCleanupSchedule string // Empty disables cleanup
	AuditRetentionDays   int
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

const (
	jobOverdueReport = "overdue_report"
	jobAuditCleanup  = "cleanup_audit_events"
)

type ReportScheduler struct {
	queue Enqueuer
	cfg   Config

	cron      *cron.Cron
	entries   map[string]cron.EntryID
	mu        sync.RWMutex
	isRunning bool
}

func NewReportScheduler(queue Enqueuer, cfg Config) *ReportScheduler {
	return &ReportScheduler{
		queue:   queue,
		cfg:     cfg,
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
	}
}

// Start registers the jobs and starts the cron loop. The scheduler stops
// when ctx is cancelled.
func (s *ReportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	err := s.addJob(jobOverdueReport, s.cfg.OverdueSchedule, func() backlite.Task {
		return tasks.OverdueReportTask{Trigger: "schedule"}
	})
	if err != nil {
		return err
	}
	if s.cfg.AuditCleanupSchedule != "" {
		err := s.addJob(jobAuditCleanup, s.cfg.AuditCleanupSchedule, func() backlite.Task {
			return tasks.CleanupAuditEventsTask{RetentionDays: s.cfg.AuditRetentionDays}
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	s.isRunning = true
	for name, id := range s.entries {
		log.Printf("Report scheduler: %s scheduled, next run %v", name, s.cron.Entry(id).Next)
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *ReportScheduler) addJob(name, schedule string, build func() backlite.Task) error {
	if err := ValidateCronSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s' for %s: %w", schedule, name, err)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.queue.Enqueue(ctx, build()); err != nil {
			log.Printf("Report scheduler: failed to enqueue %s: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

// Stop waits for running enqueue calls and stops the cron loop.
func (s *ReportScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false

	log.Printf("Report scheduler: stopped")
}

// RunOverdueReport enqueues an overdue report outside the schedule.
func (s *ReportScheduler) RunOverdueReport(ctx context.Context) (string, error) {
	ids, err := s.queue.Enqueue(ctx, tasks.OverdueReportTask{Trigger: "manual"})
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("queue returned no task id")
	}
	return ids[0], nil
}

func (s *ReportScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the named job fires next, or nil when it is not
// scheduled.
func (s *ReportScheduler) NextRun(job string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.entries[job]
	if !ok || !s.isRunning {
		return nil
	}
	next := s.cron.Entry(id).Next
	return &next
}
