// Package circulation implements the loan and fine lifecycle of the library:
// checking books out to borrowers, taking them back, assessing late fines
// and settling them.
//
// Every mutating operation runs in a single database transaction. The
// connection takes the SQLite write lock when the transaction begins, so
// the checks and the write that follows cannot interleave with another
// checkout or check-in.
package circulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/borrowers"
	"github.com/mrlokans/librarydesk/internal/database/catalog"
	"github.com/mrlokans/librarydesk/internal/database/loans"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/metrics"
)

// Auditor receives the outcome of every mutating operation, successful or not.
type Auditor interface {
	LogCheckout(ctx context.Context, isbn, cardID string, loan *entities.Loan, err error)
	LogCheckin(ctx context.Context, loanID uint, result *CheckinResult, err error)
	LogFinePayment(ctx context.Context, loanID uint, fine *entities.Fine, err error)
	LogBorrowerRegistered(ctx context.Context, borrower *entities.Borrower, err error)
}

type Service struct {
	db        *gorm.DB
	catalog   *catalog.Repository
	borrowers *borrowers.Repository
	loans     *loans.Repository
	ledger    *Ledger
	policy    Policy
	clock     Clock
	auditor   Auditor
}

func NewService(db *gorm.DB, policy Policy, clock Clock) *Service {
	if clock == nil {
		clock = SystemClock
	}
	return &Service{
		db:        db,
		catalog:   catalog.NewRepository(db),
		borrowers: borrowers.NewRepository(db),
		loans:     loans.NewRepository(db),
		ledger:    NewLedger(db, policy.FineRatePerDay),
		policy:    policy,
		clock:     clock,
	}
}

// SetAuditor attaches an audit sink. Without one nothing is audited.
func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// Checkout lends the book to the borrower. The checks run in this order:
// borrower exists, borrower under the loan limit, book in the catalog, book
// not already out.
func (s *Service) Checkout(ctx context.Context, isbn, cardID string) (loan *entities.Loan, err error) {
	isbn = strings.TrimSpace(isbn)
	cardID = strings.TrimSpace(cardID)

	defer func() {
		metrics.RecordCheckout(outcome(err))
		if s.auditor != nil {
			s.auditor.LogCheckout(ctx, isbn, cardID, loan, err)
		}
	}()

	if isbn == "" || cardID == "" {
		return nil, newError(KindInvalidInput, "ISBN and card ID are both required.")
	}

	dateOut := Today(s.clock)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.borrowers.WithTx(tx).Exists(ctx, cardID)
		if err != nil {
			return storageError("look up the borrower", err)
		}
		if !exists {
			return newError(KindBorrowerNotFound, "Borrower %s not found.", cardID)
		}

		active, err := s.borrowers.WithTx(tx).ActiveLoanCount(ctx, cardID)
		if err != nil {
			return storageError("count active loans", err)
		}
		if active >= int64(s.policy.MaxActiveLoans) {
			return newError(KindLoanLimitExceeded,
				"Borrower %s already has %d active loans (limit %d).", cardID, active, s.policy.MaxActiveLoans)
		}

		inCatalog, err := s.catalog.WithTx(tx).Exists(ctx, isbn)
		if err != nil {
			return storageError("look up the book", err)
		}
		if !inCatalog {
			return newError(KindCatalogEntryNotFound, "No book with ISBN %s in the catalog.", isbn)
		}

		available, err := s.loans.WithTx(tx).IsAvailable(ctx, isbn)
		if err != nil {
			return storageError("check availability", err)
		}
		if !available {
			return unavailable(isbn)
		}

		created := &entities.Loan{
			ISBN:    isbn,
			CardID:  cardID,
			DateOut: dateOut,
			DueDate: dateOut.AddDate(0, 0, s.policy.LoanDays),
		}
		if err := s.loans.WithTx(tx).Create(ctx, created); err != nil {
			if database.IsDuplicateKey(err) {
				return unavailable(isbn)
			}
			return storageError("create the loan", err)
		}
		loan = created
		return nil
	})
	if err != nil {
		// A commit can still lose the race on the active loan index.
		if database.IsDuplicateKey(err) {
			return nil, unavailable(isbn)
		}
		return nil, asCirculationError("check out the book", err)
	}

	log.Printf("[CIRCULATION] Loan %d: %s checked out to %s, due %s",
		loan.ID, loan.ISBN, loan.CardID, loan.DueDate.Format("2006-01-02"))
	return loan, nil
}

func unavailable(isbn string) *Error {
	return newError(KindBookUnavailable, "Book %s is already checked out.", isbn)
}

// CheckoutMessage is the confirmation shown after a successful checkout.
func CheckoutMessage(loan *entities.Loan) string {
	return fmt.Sprintf("Book %s checked out to borrower %s. Loan ID %d, due %s.",
		loan.ISBN, loan.CardID, loan.ID, loan.DueDate.Format("2006-01-02"))
}

// Checkin closes an active loan as of today and fines the borrower when the
// book comes back after its due date.
func (s *Service) Checkin(ctx context.Context, loanID uint) (result *CheckinResult, err error) {
	defer func() {
		fine := decimal.Zero
		label := outcome(err)
		if result != nil {
			fine = result.Fine
			label = result.outcome()
		}
		metrics.RecordCheckin(label, fine)
		if s.auditor != nil {
			s.auditor.LogCheckin(ctx, loanID, result, err)
		}
	}()

	dateIn := Today(s.clock)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.loans.WithTx(tx)

		loan, err := repo.Get(ctx, loanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(KindLoanNotFound, "No loan found with ID %d.", loanID)
		}
		if err != nil {
			return storageError("look up the loan", err)
		}
		if !loan.IsActive() {
			return alreadyReturned(loanID)
		}

		closed, err := repo.Close(ctx, loanID, dateIn)
		if err != nil {
			return storageError("close the loan", err)
		}
		if !closed {
			return alreadyReturned(loanID)
		}
		loan.DateIn = &dateIn

		daysLate := DaysBetween(loan.DueDate, dateIn)
		res := &CheckinResult{Loan: loan, DaysLate: daysLate, Fine: s.ledger.Assess(daysLate)}
		if daysLate > 0 {
			if err := s.ledger.Record(ctx, tx, loanID, res.Fine); err != nil {
				return storageError("record the fine", err)
			}
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, asCirculationError("check in the book", err)
	}

	log.Printf("[CIRCULATION] Loan %d: returned %d day(s) relative to due date, fine %s",
		loanID, result.DaysLate, result.Fine.StringFixed(2))
	return result, nil
}

func alreadyReturned(loanID uint) *Error {
	return newError(KindAlreadyReturned, "Loan %d has already been returned.", loanID)
}

// PayFine settles the fine recorded for a loan.
func (s *Service) PayFine(ctx context.Context, loanID uint) (*entities.Fine, error) {
	fine, err := s.ledger.Pay(ctx, loanID)
	if s.auditor != nil {
		s.auditor.LogFinePayment(ctx, loanID, fine, err)
	}
	return fine, err
}

// PaymentMessage is the confirmation shown after a fine is paid.
func PaymentMessage(fine *entities.Fine) string {
	return fmt.Sprintf("Fine of $%s for loan %d marked as paid.", fine.Amount.StringFixed(2), fine.LoanID)
}

// Borrower returns the borrower holding the card.
func (s *Service) Borrower(ctx context.Context, cardID string) (*entities.Borrower, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, newError(KindInvalidInput, "Card ID is required.")
	}

	b, err := s.borrowers.Get(ctx, cardID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindBorrowerNotFound, "Borrower %s not found.", cardID)
	}
	if err != nil {
		return nil, storageError("look up the borrower", err)
	}
	return b, nil
}

// RegisterBorrower issues a new library card. Name, SSN and address are
// required; an empty phone is stored as NULL.
func (s *Service) RegisterBorrower(ctx context.Context, b *entities.Borrower) (err error) {
	defer func() {
		if s.auditor != nil {
			s.auditor.LogBorrowerRegistered(ctx, b, err)
		}
	}()

	b.Name = strings.TrimSpace(b.Name)
	b.SSN = strings.TrimSpace(b.SSN)
	b.Address = strings.TrimSpace(b.Address)
	if b.Phone != nil && strings.TrimSpace(*b.Phone) == "" {
		b.Phone = nil
	}
	if b.Name == "" || b.SSN == "" || b.Address == "" {
		return newError(KindInvalidInput, "Name, SSN and address are required.")
	}

	if err := s.borrowers.Create(ctx, b); err != nil {
		if database.IsDuplicateKey(err) {
			return newError(KindBorrowerExists, "A borrower with this SSN or card ID already exists.")
		}
		return storageError("register the borrower", err)
	}
	return nil
}

// BorrowerLoans lists the borrower's active loans, or all loans when
// includeHistory is set, newest first. An unknown card yields an empty list.
func (s *Service) BorrowerLoans(ctx context.Context, cardID string, includeHistory bool) ([]entities.LoanView, error) {
	views, err := s.loans.ListForBorrower(ctx, strings.TrimSpace(cardID), includeHistory)
	if err != nil {
		return nil, storageError("list loans", err)
	}
	return views, nil
}

// BorrowerFines lists the borrower's fines, latest due date first.
func (s *Service) BorrowerFines(ctx context.Context, cardID string, onlyUnpaid bool) ([]entities.FineView, error) {
	return s.ledger.ListForBorrower(ctx, strings.TrimSpace(cardID), onlyUnpaid)
}

// Search finds catalog entries by exact ISBN or by title or author
// substring, each annotated with its current availability.
func (s *Service) Search(ctx context.Context, query string) ([]entities.CatalogEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newError(KindInvalidInput, "Search query is required.")
	}

	books, err := s.catalog.Search(ctx, query)
	if err != nil {
		return nil, storageError("search the catalog", err)
	}

	isbns := make([]string, 0, len(books))
	for _, b := range books {
		isbns = append(isbns, b.ISBN)
	}
	onLoan, err := s.loans.ActiveISBNs(ctx, isbns)
	if err != nil {
		return nil, storageError("check availability", err)
	}

	entries := make([]entities.CatalogEntry, 0, len(books))
	for _, b := range books {
		entries = append(entries, entities.CatalogEntry{
			ISBN:      b.ISBN,
			Title:     b.Title,
			Authors:   b.AuthorNames(),
			Available: !onLoan[b.ISBN],
		})
	}
	return entries, nil
}

// IsAvailable reports whether the ISBN has no active loan.
func (s *Service) IsAvailable(ctx context.Context, isbn string) (bool, error) {
	ok, err := s.loans.IsAvailable(ctx, strings.TrimSpace(isbn))
	if err != nil {
		return false, storageError("check availability", err)
	}
	return ok, nil
}

// OverdueSummary counts active and overdue loans and totals unpaid fines as
// of today.
func (s *Service) OverdueSummary(ctx context.Context) (entities.OverdueSummary, error) {
	today := Today(s.clock)
	summary := entities.OverdueSummary{AsOf: today}

	var err error
	if summary.ActiveLoans, err = s.loans.CountActive(ctx); err != nil {
		return summary, storageError("count active loans", err)
	}
	if summary.OverdueLoans, err = s.loans.CountOverdue(ctx, today); err != nil {
		return summary, storageError("count overdue loans", err)
	}
	if summary.UnpaidFineCount, summary.UnpaidFineTotal, err = s.ledger.UnpaidTotals(ctx); err != nil {
		return summary, err
	}
	return summary, nil
}
