// Package fines stores the FINES table: at most one fine per loan, keyed by
// loan_id.
package fines

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarydesk/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Upsert records the fine amount for a loan in a single statement. An
// existing fine is overwritten and marked unpaid again.
func (r *Repository) Upsert(ctx context.Context, loanID uint, amount decimal.Decimal) error {
	fine := entities.Fine{LoanID: loanID, Amount: amount, Paid: false}
	return r.db.WithContext(ctx).Omit("Loan").Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "loan_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"fine_amt": amount,
			"paid":     false,
		}),
	}).Create(&fine).Error
}

func (r *Repository) Get(ctx context.Context, loanID uint) (*entities.Fine, error) {
	var fine entities.Fine
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&fine).Error
	if err != nil {
		return nil, err
	}
	return &fine, nil
}

// MarkPaid flips an unpaid fine to paid. It returns false when the fine was
// already paid or does not exist.
func (r *Repository) MarkPaid(ctx context.Context, loanID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entities.Fine{}).
		Where("loan_id = ? AND paid = ?", loanID, false).
		Update("paid", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListForBorrower returns the borrower's fines joined with loan and book
// details, latest due date first.
func (r *Repository) ListForBorrower(ctx context.Context, cardID string, onlyUnpaid bool) ([]entities.FineView, error) {
	query := r.db.WithContext(ctx).Table("fines").
		Select("fines.loan_id, book_loans.isbn, books.title, fines.fine_amt AS amount, fines.paid, " +
			"book_loans.date_out, book_loans.due_date, book_loans.date_in").
		Joins("JOIN book_loans ON book_loans.loan_id = fines.loan_id").
		Joins("JOIN books ON books.isbn = book_loans.isbn").
		Where("book_loans.card_id = ?", cardID)
	if onlyUnpaid {
		query = query.Where("fines.paid = ?", false)
	}

	views := []entities.FineView{}
	err := query.Order("book_loans.due_date DESC, fines.loan_id DESC").Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

// UnpaidTotals returns the number and the sum of unpaid fines. The sum is
// computed in decimal on the Go side so no float rounding creeps in.
func (r *Repository) UnpaidTotals(ctx context.Context) (int64, decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).Model(&entities.Fine{}).
		Where("paid = ?", false).
		Pluck("fine_amt", &amounts).Error
	if err != nil {
		return 0, decimal.Zero, err
	}

	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return int64(len(amounts)), total, nil
}
