package circulation

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/database/fines"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/metrics"
)

// Ledger records fines for late returns and settles them.
type Ledger struct {
	db    *gorm.DB
	fines *fines.Repository
	rate  decimal.Decimal
}

func NewLedger(db *gorm.DB, rate decimal.Decimal) *Ledger {
	return &Ledger{
		db:    db,
		fines: fines.NewRepository(db),
		rate:  rate,
	}
}

// Assess returns the fine for a return daysLate days past due. Returns on or
// before the due date cost nothing.
func (l *Ledger) Assess(daysLate int) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	return l.rate.Mul(decimal.NewFromInt(int64(daysLate))).Round(2)
}

// Record writes the fine for a loan inside the caller's transaction.
func (l *Ledger) Record(ctx context.Context, tx *gorm.DB, loanID uint, amount decimal.Decimal) error {
	return l.fines.WithTx(tx).Upsert(ctx, loanID, amount)
}

// Pay marks the loan's fine as paid. A fine can be paid exactly once.
func (l *Ledger) Pay(ctx context.Context, loanID uint) (fine *entities.Fine, err error) {
	defer func() { metrics.RecordFinePayment(outcome(err)) }()

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := l.fines.WithTx(tx)

		found, err := repo.Get(ctx, loanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(KindFineNotFound, "No fine recorded for loan %d.", loanID)
		}
		if err != nil {
			return storageError("look up the fine", err)
		}
		if found.Paid {
			return newError(KindAlreadyPaid, "Fine for loan %d has already been paid.", loanID)
		}

		ok, err := repo.MarkPaid(ctx, loanID)
		if err != nil {
			return storageError("record the payment", err)
		}
		if !ok {
			return newError(KindAlreadyPaid, "Fine for loan %d has already been paid.", loanID)
		}

		found.Paid = true
		fine = found
		return nil
	})
	if err != nil {
		return nil, asCirculationError("record the payment", err)
	}
	return fine, nil
}

// ListForBorrower returns the borrower's fines, latest due date first. An
// unknown card yields an empty list.
func (l *Ledger) ListForBorrower(ctx context.Context, cardID string, onlyUnpaid bool) ([]entities.FineView, error) {
	views, err := l.fines.ListForBorrower(ctx, cardID, onlyUnpaid)
	if err != nil {
		return nil, storageError("list fines", err)
	}
	return views, nil
}

// UnpaidTotals returns how many fines are unpaid and their sum.
func (l *Ledger) UnpaidTotals(ctx context.Context) (int64, decimal.Decimal, error) {
	count, total, err := l.fines.UnpaidTotals(ctx)
	if err != nil {
		return 0, decimal.Zero, storageError("sum unpaid fines", err)
	}
	return count, total, nil
}
