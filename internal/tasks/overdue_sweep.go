package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/locallibrary/internal/circulation"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// LoanSource lists every copy currently on loan.
// database/loans.Repository implements it.
type LoanSource interface {
	ListAllOnLoan() ([]entities.BookInstance, error)
}

// OverdueRecorder records one borrower's overdue copies.
// audit.Service implements it.
type OverdueRecorder interface {
	LogOverdue(borrowerID uint, instanceIDs []string, asOf time.Time) error
	HasOverdueNotice(borrowerID uint, asOf time.Time) (bool, error)
}

// OverdueSweepTask finds the copies that were due back before AsOf and
// records a notice per borrower. It only reads loans. A borrower already
// noticed for AsOf is skipped, so retries and reruns record nothing twice.
type OverdueSweepTask struct {
	// AsOf is the sweep day as YYYY-MM-DD. Empty means the day the task runs.
	AsOf string `json:"as_of"`
}

func (t OverdueSweepTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "overdue_sweep",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// OverdueSweepProcessor builds the processor for OverdueSweepTask. today
// supplies the sweep day when the task carries none.
func OverdueSweepProcessor(loans LoanSource, recorder OverdueRecorder, today func() time.Time) backlite.QueueProcessor[OverdueSweepTask] {
	return func(ctx context.Context, task OverdueSweepTask) error {
		if loans == nil || recorder == nil {
			return fmt.Errorf("overdue sweep not configured")
		}

		asOf := today()
		if task.AsOf != "" {
			d, err := entities.ParseDate(task.AsOf)
			if err != nil {
				return fmt.Errorf("overdue sweep: %w", err)
			}
			asOf = d
		}

		onLoan, err := loans.ListAllOnLoan()
		if err != nil {
			return fmt.Errorf("overdue sweep: list loans: %w", err)
		}

		byBorrower := circulation.GroupByBorrower(circulation.Overdue(onLoan, asOf))
		skipped := 0
		for borrowerID, instances := range byBorrower {
			if err := ctx.Err(); err != nil {
				return err
			}
			done, err := recorder.HasOverdueNotice(borrowerID, asOf)
			if err != nil {
				return fmt.Errorf("overdue sweep: check borrower %d: %w", borrowerID, err)
			}
			if done {
				skipped++
				continue
			}
			ids := make([]string, 0, len(instances))
			for _, inst := range instances {
				ids = append(ids, inst.ID.String())
			}
			if err := recorder.LogOverdue(borrowerID, ids, asOf); err != nil {
				return fmt.Errorf("overdue sweep: record borrower %d: %w", borrowerID, err)
			}
		}

		log.Printf("[TASK] Overdue sweep for %s: %d borrower(s) with overdue loans, %d already noticed",
			asOf.Format(entities.DateLayout), len(byBorrower), skipped)
		return nil
	}
}

func NewOverdueSweepQueue(loans LoanSource, recorder OverdueRecorder, today func() time.Time) backlite.Queue {
	return backlite.NewQueue(OverdueSweepProcessor(loans, recorder, today))
}
