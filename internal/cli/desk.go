// Package cli holds the librarian's terminal commands: the interactive
// menu, one-shot circulation commands and the CSV import.
package cli

import (
	"context"
	"fmt"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database"
	dbaudit "github.com/mrlokans/librarydesk/internal/database/audit"
	"github.com/mrlokans/librarydesk/internal/entities"
)

// Desk is the circulation surface the terminal commands drive.
type Desk interface {
	Search(ctx context.Context, query string) ([]entities.CatalogEntry, error)
	Checkout(ctx context.Context, isbn, cardID string) (*entities.Loan, error)
	Checkin(ctx context.Context, loanID uint) (*circulation.CheckinResult, error)
	PayFine(ctx context.Context, loanID uint) (*entities.Fine, error)
	Borrower(ctx context.Context, cardID string) (*entities.Borrower, error)
	BorrowerLoans(ctx context.Context, cardID string, includeHistory bool) ([]entities.LoanView, error)
	BorrowerFines(ctx context.Context, cardID string, onlyUnpaid bool) ([]entities.FineView, error)
}

var _ Desk = (*circulation.Service)(nil)

// deskSession is an open database with the circulation service and audit
// trail wired to it.
type deskSession struct {
	db      *database.Database
	service *circulation.Service
	audit   *audit.Service
}

func openDesk(dbPath string) (*deskSession, error) {
	cfg := config.NewConfig()
	policy, err := circulation.NewPolicy(cfg.Circulation)
	if err != nil {
		return nil, fmt.Errorf("invalid lending policy: %w", err)
	}

	db, err := database.NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	auditService := audit.NewService(dbaudit.NewRepository(db.DB))
	service := circulation.NewService(db.DB, policy, circulation.SystemClock)
	service.SetAuditor(auditService)

	return &deskSession{db: db, service: service, audit: auditService}, nil
}

// Close flushes pending audit writes before closing the database.
func (s *deskSession) Close() error {
	s.audit.Wait()
	return s.db.Close()
}
