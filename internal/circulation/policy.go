// Package circulation holds the loan rules of the catalog: which copies are
// available, which are out on loan and in what order, and the renewal of a
// loan's due date.
package circulation

import (
	"sort"
	"time"

	"github.com/mrlokans/locallibrary/internal/entities"
)

// CountAvailable returns how many copies can be borrowed right now.
func CountAvailable(instances []entities.BookInstance) int {
	n := 0
	for _, inst := range instances {
		if inst.Status == entities.LoanStatusAvailable {
			n++
		}
	}
	return n
}

// OnLoanFor returns the borrower's on-loan copies, soonest due first.
func OnLoanFor(instances []entities.BookInstance, borrowerID uint) []entities.BookInstance {
	out := make([]entities.BookInstance, 0)
	for _, inst := range instances {
		if inst.Status == entities.LoanStatusOnLoan && inst.BorrowerID != nil && *inst.BorrowerID == borrowerID {
			out = append(out, inst)
		}
	}
	sortByDueBack(out)
	return out
}

// OnLoanAll returns every on-loan copy, soonest due first.
func OnLoanAll(instances []entities.BookInstance) []entities.BookInstance {
	out := make([]entities.BookInstance, 0)
	for _, inst := range instances {
		if inst.Status == entities.LoanStatusOnLoan {
			out = append(out, inst)
		}
	}
	sortByDueBack(out)
	return out
}

// Overdue returns on-loan copies whose due date is before today.
func Overdue(instances []entities.BookInstance, today time.Time) []entities.BookInstance {
	out := make([]entities.BookInstance, 0)
	for _, inst := range OnLoanAll(instances) {
		if inst.IsOverdue(today) {
			out = append(out, inst)
		}
	}
	return out
}

// GroupByBorrower buckets copies by borrower id. Copies without a borrower
// are dropped.
func GroupByBorrower(instances []entities.BookInstance) map[uint][]entities.BookInstance {
	groups := make(map[uint][]entities.BookInstance)
	for _, inst := range instances {
		if inst.BorrowerID == nil {
			continue
		}
		groups[*inst.BorrowerID] = append(groups[*inst.BorrowerID], inst)
	}
	return groups
}

// Copies without a due date go last.
func sortByDueBack(instances []entities.BookInstance) {
	sort.SliceStable(instances, func(i, j int) bool {
		a, b := instances[i].DueBack, instances[j].DueBack
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
