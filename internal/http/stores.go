package http

import (
	"context"

	"github.com/mrlokans/librarydesk/internal/circulation"
	auditRepo "github.com/mrlokans/librarydesk/internal/database/audit"
	"github.com/mrlokans/librarydesk/internal/entities"
)

// Each controller depends only on the slice of the circulation desk it
// uses. *circulation.Service satisfies all of them.

type CatalogSearcher interface {
	Search(ctx context.Context, query string) ([]entities.CatalogEntry, error)
}

type LoanDesk interface {
	Checkout(ctx context.Context, isbn, cardID string) (*entities.Loan, error)
	Checkin(ctx context.Context, loanID uint) (*circulation.CheckinResult, error)
}

type FineDesk interface {
	PayFine(ctx context.Context, loanID uint) (*entities.Fine, error)
}

type BorrowerDirectory interface {
	Borrower(ctx context.Context, cardID string) (*entities.Borrower, error)
	RegisterBorrower(ctx context.Context, b *entities.Borrower) error
	BorrowerLoans(ctx context.Context, cardID string, includeHistory bool) ([]entities.LoanView, error)
	BorrowerFines(ctx context.Context, cardID string, onlyUnpaid bool) ([]entities.FineView, error)
}

type OverdueReporter interface {
	OverdueSummary(ctx context.Context) (entities.OverdueSummary, error)
}

// ReportTrigger queues an overdue report outside the schedule.
type ReportTrigger interface {
	RunOverdueReport(ctx context.Context) (string, error)
}

type AuditReader interface {
	Events(ctx context.Context, filter auditRepo.Filter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

var (
	_ CatalogSearcher   = (*circulation.Service)(nil)
	_ LoanDesk          = (*circulation.Service)(nil)
	_ FineDesk          = (*circulation.Service)(nil)
	_ BorrowerDirectory = (*circulation.Service)(nil)
	_ OverdueReporter   = (*circulation.Service)(nil)
)
