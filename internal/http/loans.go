package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// LoanItem is one borrowed copy as shown in the loan lists.
type LoanItem struct {
	ID        uuid.UUID `json:"id"`
	BookID    uint      `json:"book_id"`
	Title     string    `json:"title"`
	BookURL   string    `json:"book_url"`
	Imprint   string    `json:"imprint"`
	DueBack   string    `json:"due_back"`
	IsOverdue bool      `json:"is_overdue"`
	Borrower  string    `json:"borrower,omitempty"`
	RenewURL  string    `json:"renew_url,omitempty"`
}

// LoansController serves the borrower and staff views of current loans.
type LoansController struct {
	loans    LoanReader
	today    func() time.Time
	pageSize int
}

func NewLoansController(loans LoanReader, today func() time.Time, pageSize int) *LoansController {
	return &LoansController{loans: loans, today: today, pageSize: pageSize}
}

// MyBooks lists the caller's copies on loan, soonest due first.
// GET /catalog/mybooks/
func (lc *LoansController) MyBooks(c *gin.Context) {
	userID := auth.GetUserID(c)
	today := lc.today()

	respondPage(c, lc.pageSize, func(limit, offset int) ([]LoanItem, int64, error) {
		instances, total, err := lc.loans.ListOnLoanByBorrower(userID, limit, offset)
		return toLoanItems(instances, today, false), total, err
	}, "list my loans")
}

// Borrowed lists every copy on loan with its borrower, for staff.
// GET /catalog/borrowed/
func (lc *LoansController) Borrowed(c *gin.Context) {
	today := lc.today()

	respondPage(c, lc.pageSize, func(limit, offset int) ([]LoanItem, int64, error) {
		instances, total, err := lc.loans.ListOnLoan(limit, offset)
		return toLoanItems(instances, today, true), total, err
	}, "list borrowed")
}

func toLoanItems(instances []entities.BookInstance, today time.Time, staff bool) []LoanItem {
	items := make([]LoanItem, 0, len(instances))
	for _, inst := range instances {
		item := LoanItem{
			ID:        inst.ID,
			BookID:    inst.BookID,
			Imprint:   inst.Imprint,
			DueBack:   entities.FormatDate(inst.DueBack),
			IsOverdue: inst.IsOverdue(today),
		}
		if inst.Book != nil {
			item.Title = inst.Book.Title
			item.BookURL = inst.Book.URL()
		}
		if staff {
			if inst.Borrower != nil {
				item.Borrower = inst.Borrower.Username
			}
			item.RenewURL = renewURL(inst.ID)
		}
		items = append(items, item)
	}
	return items
}

func renewURL(id uuid.UUID) string {
	return "/catalog/book/" + id.String() + "/renew/"
}
