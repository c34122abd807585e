// Package loans provides database operations for book copies that are out
// on loan: the borrower listings and the renewal write.
package loans

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/entities"
)

// dueBackOrder sorts by due date ascending with undated copies last. The id
// tie-break keeps pages stable.
const dueBackOrder = "due_back IS NULL, due_back ASC, id ASC"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetInstance loads a copy together with its book.
func (r *Repository) GetInstance(id uuid.UUID) (*entities.BookInstance, error) {
	var instance entities.BookInstance
	if err := r.db.Preload("Book").First(&instance, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

// UpdateDueBack persists a new due date in a single UPDATE.
func (r *Repository) UpdateDueBack(id uuid.UUID, dueBack time.Time) error {
	result := r.db.Model(&entities.BookInstance{}).
		Where("id = ?", id).
		Update("due_back", dueBack)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListOnLoanByBorrower returns a page of the borrower's on-loan copies,
// soonest due first.
func (r *Repository) ListOnLoanByBorrower(borrowerID uint, limit, offset int) ([]entities.BookInstance, int64, error) {
	query := r.db.Model(&entities.BookInstance{}).
		Where("status = ? AND borrower_id = ?", entities.LoanStatusOnLoan, borrowerID)
	return r.page(query, limit, offset)
}

// ListOnLoan returns a page of every on-loan copy, soonest due first.
func (r *Repository) ListOnLoan(limit, offset int) ([]entities.BookInstance, int64, error) {
	query := r.db.Model(&entities.BookInstance{}).
		Where("status = ?", entities.LoanStatusOnLoan)
	return r.page(query, limit, offset)
}

func (r *Repository) page(query *gorm.DB, limit, offset int) ([]entities.BookInstance, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	var instances []entities.BookInstance
	err := query.Preload("Book").Preload("Borrower").
		Order(dueBackOrder).
		Limit(limit).Offset(offset).
		Find(&instances).Error
	return instances, total, err
}

// ListAllOnLoan returns every on-loan copy with its book and borrower.
func (r *Repository) ListAllOnLoan() ([]entities.BookInstance, error) {
	var instances []entities.BookInstance
	err := r.db.Preload("Book").Preload("Borrower").
		Where("status = ?", entities.LoanStatusOnLoan).
		Order(dueBackOrder).
		Find(&instances).Error
	return instances, err
}

// Lend marks a copy as on loan to the borrower until dueBack.
func (r *Repository) Lend(id uuid.UUID, borrowerID uint, dueBack time.Time) error {
	result := r.db.Model(&entities.BookInstance{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      entities.LoanStatusOnLoan,
			"borrower_id": borrowerID,
			"due_back":    dueBack,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
