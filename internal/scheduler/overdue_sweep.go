// Package scheduler runs the periodic catalog jobs. Jobs only enqueue
// tasks; the task queue does the work.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/locallibrary/internal/tasks"
)

// Enqueuer accepts tasks for background processing. tasks.Client
// implements it.
type Enqueuer interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// OverdueSweepScheduler enqueues the overdue sweep, followed by an audit
// trail cleanup, on a cron schedule.
type OverdueSweepScheduler struct {
	queue         Enqueuer
	schedule      string
	retentionDays int

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewOverdueSweepScheduler creates a scheduler firing on schedule in loc.
func NewOverdueSweepScheduler(queue Enqueuer, schedule string, retentionDays int, loc *time.Location) *OverdueSweepScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &OverdueSweepScheduler{
		queue:         queue,
		schedule:      schedule,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithParser(cronParser), cron.WithLocation(loc)),
	}
}

// Start schedules the job. It stops by itself when ctx is cancelled.
func (s *OverdueSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunNow(); err != nil {
			log.Printf("[SCHEDULER] Overdue sweep: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("[SCHEDULER] Overdue sweep scheduled with '%s'. Next run: %v",
		s.schedule, s.cron.Entry(entryID).Next)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job to finish and stops the schedule.
func (s *OverdueSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("[SCHEDULER] Overdue sweep stopped")
}

// RunNow enqueues one sweep and one audit cleanup immediately and returns
// their task IDs.
func (s *OverdueSweepScheduler) RunNow() ([]string, error) {
	ids, err := s.queue.Enqueue(
		tasks.OverdueSweepTask{},
		tasks.CleanupAuditEventsTask{RetentionDays: s.retentionDays},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue overdue sweep: %w", err)
	}
	log.Printf("[SCHEDULER] Enqueued overdue sweep tasks %v", ids)
	return ids, nil
}

func (s *OverdueSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the job fires next, or nil if it is not scheduled.
func (s *OverdueSweepScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}
