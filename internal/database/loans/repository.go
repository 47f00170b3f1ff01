// Package loans stores BOOK_LOANS rows. A loan with a NULL date_in is active;
// a book is available exactly when it has no active loan.
package loans

import (
	"context"
	"time"

	"gorm.io/gorm"

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

func (r *Repository) Create(ctx context.Context, loan *entities.Loan) error {
	return r.db.WithContext(ctx).Omit("Book", "Borrower").Create(loan).Error
}

func (r *Repository) Get(ctx context.Context, loanID uint) (*entities.Loan, error) {
	var loan entities.Loan
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// IsAvailable reports whether the ISBN has no active loan. It does not check
// that the ISBN is in the catalog.
func (r *Repository) IsAvailable(ctx context.Context, isbn string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Loan{}).
		Where("isbn = ? AND date_in IS NULL", isbn).
		Count(&count).Error
	return count == 0, err
}

// ActiveISBNs returns the subset of isbns that are currently on loan.
func (r *Repository) ActiveISBNs(ctx context.Context, isbns []string) (map[string]bool, error) {
	active := make(map[string]bool)
	if len(isbns) == 0 {
		return active, nil
	}

	var onLoan []string
	err := r.db.WithContext(ctx).Model(&entities.Loan{}).
		Where("isbn IN ? AND date_in IS NULL", isbns).
		Pluck("isbn", &onLoan).Error
	if err != nil {
		return nil, err
	}
	for _, isbn := range onLoan {
		active[isbn] = true
	}
	return active, nil
}

// Close sets date_in on an active loan. It returns false when the loan was
// already closed (or does not exist), so two concurrent check-ins cannot
// both succeed.
func (r *Repository) Close(ctx context.Context, loanID uint, dateIn time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entities.Loan{}).
		Where("loan_id = ? AND date_in IS NULL", loanID).
		Update("date_in", dateIn)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListForBorrower returns the borrower's loans with book titles, newest first.
// Closed loans are included only when includeHistory is set.
func (r *Repository) ListForBorrower(ctx context.Context, cardID string, includeHistory bool) ([]entities.LoanView, error) {
	query := r.db.WithContext(ctx).Table("book_loans").
		Select("book_loans.loan_id, book_loans.isbn, books.title, book_loans.card_id, " +
			"book_loans.date_out, book_loans.due_date, book_loans.date_in").
		Joins("JOIN books ON books.isbn = book_loans.isbn").
		Where("book_loans.card_id = ?", cardID)
	if !includeHistory {
		query = query.Where("book_loans.date_in IS NULL")
	}

	views := []entities.LoanView{}
	err := query.Order("book_loans.date_out DESC, book_loans.loan_id DESC").Scan(&views).Error
	if err != nil {
		return nil, err
	}
	for i := range views {
		views[i].Active = views[i].DateIn == nil
	}
	return views, nil
}

func (r *Repository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Loan{}).Where("date_in IS NULL").Count(&count).Error
	return count, err
}

// CountOverdue counts active loans whose due date is before today.
func (r *Repository) CountOverdue(ctx context.Context, today time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Loan{}).
		Where("date_in IS NULL AND due_date < ?", today).
		Count(&count).Error
	return count, err
}
