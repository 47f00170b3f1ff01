// Package audit records who did what at the circulation desk. Events are
// written in the background so a slow disk never delays a checkout.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/database/audit"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/requestid"
)

const maxErrorLen = 500

// Service implements circulation.Auditor on top of the audit repository.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

var _ circulation.Auditor = (*Service)(nil)

// Log records an event synchronously.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an event in the background. The request context is not
// reused because it is cancelled as soon as the handler returns.
func (s *Service) LogAsync(ctx context.Context, event *entities.AuditEvent) {
	if event.RequestID == "" {
		event.RequestID = requestid.FromContext(ctx)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(context.Background(), event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every pending LogAsync write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) LogCheckout(ctx context.Context, isbn, cardID string, loan *entities.Loan, err error) {
	event := &entities.AuditEvent{
		EventType:  entities.AuditEventCheckout,
		Action:     "loan_checkout",
		EntityType: "loan",
		CardID:     cardID,
		Metadata:   encodeMetadata(map[string]any{"isbn": isbn}),
	}
	if loan != nil {
		event.EntityID = strconv.FormatUint(uint64(loan.ID), 10)
		event.Description = circulation.CheckoutMessage(loan)
	} else {
		event.Description = fmt.Sprintf("Checkout of %s to %s", isbn, cardID)
	}

	s.LogAsync(ctx, withOutcome(event, err))
}

func (s *Service) LogCheckin(ctx context.Context, loanID uint, result *circulation.CheckinResult, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventCheckin,
		Action:      "loan_checkin",
		EntityType:  "loan",
		EntityID:    strconv.FormatUint(uint64(loanID), 10),
		Description: fmt.Sprintf("Check-in of loan %d", loanID),
	}
	if result != nil {
		event.Description = result.Message()
		event.CardID = result.Loan.CardID
		event.Metadata = encodeMetadata(map[string]any{
			"isbn":      result.Loan.ISBN,
			"days_late": result.DaysLate,
			"fine":      result.Fine.StringFixed(2),
		})
	}

	s.LogAsync(ctx, withOutcome(event, err))
}

func (s *Service) LogFinePayment(ctx context.Context, loanID uint, fine *entities.Fine, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventFinePayment,
		Action:      "fine_pay",
		EntityType:  "fine",
		EntityID:    strconv.FormatUint(uint64(loanID), 10),
		Description: fmt.Sprintf("Payment of fine for loan %d", loanID),
	}
	if fine != nil {
		event.Description = circulation.PaymentMessage(fine)
		event.Metadata = encodeMetadata(map[string]any{"amount": fine.Amount.StringFixed(2)})
	}

	s.LogAsync(ctx, withOutcome(event, err))
}

func (s *Service) LogBorrowerRegistered(ctx context.Context, borrower *entities.Borrower, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventBorrower,
		Action:      "borrower_register",
		EntityType:  "borrower",
		Description: "Borrower registration",
	}
	if borrower != nil {
		event.EntityID = borrower.CardID
		event.CardID = borrower.CardID
		if err == nil {
			event.Description = fmt.Sprintf("Registered borrower %s (%s)", borrower.CardID, borrower.Name)
		}
	}

	s.LogAsync(ctx, withOutcome(event, err))
}

// LogImport records a bulk load of catalog or borrower rows.
func (s *Service) LogImport(ctx context.Context, kind, source string, imported, skipped int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventImport,
		Action:      kind + "_import",
		EntityType:  kind,
		Description: fmt.Sprintf("Imported %d %s row(s) from %s, skipped %d", imported, kind, source, skipped),
		Metadata: encodeMetadata(map[string]any{
			"source":   source,
			"imported": imported,
			"skipped":  skipped,
		}),
	}

	s.LogAsync(ctx, withOutcome(event, err))
}

// Events lists recorded events, most recent first.
func (s *Service) Events(ctx context.Context, filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(ctx, filter, limit, offset)
}

// DeleteOldEvents removes events older than the retention period.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteOldEvents(ctx, time.Now().Add(-retention))
}

// withOutcome sets the status from err. Rule violations such as an
// unavailable book are "rejected"; anything else is "failed".
func withOutcome(event *entities.AuditEvent, err error) *entities.AuditEvent {
	switch kind := circulation.KindOf(err); {
	case err == nil:
		event.Status = entities.AuditStatusSuccess
	case kind == circulation.KindUnknown || kind == circulation.KindStorage:
		event.Status = entities.AuditStatusFailed
		msg := err.Error()
		if cause := errors.Unwrap(err); cause != nil {
			msg += ": " + cause.Error()
		}
		event.ErrorMsg = truncate(msg, maxErrorLen)
	default:
		event.Status = entities.AuditStatusRejected
		event.ErrorMsg = truncate(err.Error(), maxErrorLen)
	}
	return event
}

func encodeMetadata(md map[string]any) string {
	b, err := json.Marshal(md)
	if err != nil {
		return ""
	}
	return string(b)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
