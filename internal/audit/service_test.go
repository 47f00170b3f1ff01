package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/circulation"
	auditRepo "github.com/mrlokans/librarydesk/internal/database/audit"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/requestid"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	// A shared cache keeps the in-memory database alive across the pool's
	// connections, which the background writes use.
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entities.AuditEvent{}))

	return NewService(auditRepo.NewRepository(db)), db
}

func lastEvent(t *testing.T, db *gorm.DB, action string) entities.AuditEvent {
	t.Helper()
	var event entities.AuditEvent
	require.NoError(t, db.Where("action = ?", action).Order("id DESC").First(&event).Error)
	return event
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		EventType:   entities.AuditEventImport,
		Action:      "test_import",
		Description: "Test import event",
		Status:      entities.AuditStatusSuccess,
	}
	require.NoError(t, svc.Log(context.Background(), event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "test_import", saved.Action)
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestService_LogCheckout(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := requestid.WithRequestID(context.Background(), "req-123")

	t.Run("successful checkout", func(t *testing.T) {
		loan := &entities.Loan{ID: 7, ISBN: "0195153448", CardID: "ID000001", DueDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)}
		svc.LogCheckout(ctx, "0195153448", "ID000001", loan, nil)
		svc.Wait()

		event := lastEvent(t, db, "loan_checkout")
		assert.Equal(t, entities.AuditEventCheckout, event.EventType)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		assert.Equal(t, "7", event.EntityID)
		assert.Equal(t, "ID000001", event.CardID)
		assert.Equal(t, "req-123", event.RequestID)
		assert.Contains(t, event.Description, "due 2025-01-15")
		assert.JSONEq(t, `{"isbn":"0195153448"}`, event.Metadata)
	})

	t.Run("rejected checkout", func(t *testing.T) {
		svc.LogCheckout(ctx, "0195153448", "ID000002", nil, circulation.ErrBookUnavailable)
		svc.Wait()

		event := lastEvent(t, db, "loan_checkout")
		assert.Equal(t, entities.AuditStatusRejected, event.Status)
		assert.Empty(t, event.EntityID)
		assert.Equal(t, "book_unavailable", event.ErrorMsg)
	})

	t.Run("storage failure", func(t *testing.T) {
		err := &circulation.Error{Kind: circulation.KindStorage, Msg: "Database error while trying to create the loan.", Err: errors.New("disk full")}
		svc.LogCheckout(ctx, "0195153448", "ID000002", nil, err)
		svc.Wait()

		event := lastEvent(t, db, "loan_checkout")
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Contains(t, event.ErrorMsg, "disk full")
	})
}

func TestService_LogCheckin(t *testing.T) {
	svc, db := setupTestService(t)

	result := &circulation.CheckinResult{
		Loan:     &entities.Loan{ID: 3, ISBN: "0002005018", CardID: "ID000004"},
		DaysLate: 4,
		Fine:     decimal.RequireFromString("1.00"),
	}
	svc.LogCheckin(context.Background(), 3, result, nil)
	svc.Wait()

	event := lastEvent(t, db, "loan_checkin")
	assert.Equal(t, entities.AuditStatusSuccess, event.Status)
	assert.Equal(t, "ID000004", event.CardID)
	assert.Contains(t, event.Description, "4 day(s) late")
	assert.JSONEq(t, `{"isbn":"0002005018","days_late":4,"fine":"1.00"}`, event.Metadata)

	svc.LogCheckin(context.Background(), 99, nil, circulation.ErrLoanNotFound)
	svc.Wait()

	event = lastEvent(t, db, "loan_checkin")
	assert.Equal(t, entities.AuditStatusRejected, event.Status)
	assert.Equal(t, "99", event.EntityID)
}

func TestService_LogFinePayment(t *testing.T) {
	svc, db := setupTestService(t)

	fine := &entities.Fine{LoanID: 3, Amount: decimal.RequireFromString("2.5"), Paid: true}
	svc.LogFinePayment(context.Background(), 3, fine, nil)
	svc.Wait()

	event := lastEvent(t, db, "fine_pay")
	assert.Equal(t, entities.AuditEventFinePayment, event.EventType)
	assert.Equal(t, "Fine of $2.50 for loan 3 marked as paid.", event.Description)
	assert.JSONEq(t, `{"amount":"2.50"}`, event.Metadata)
}

func TestService_LogBorrowerRegistered(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogBorrowerRegistered(context.Background(), &entities.Borrower{CardID: "ID000010", Name: "Ada"}, nil)
	svc.Wait()

	event := lastEvent(t, db, "borrower_register")
	assert.Equal(t, "ID000010", event.EntityID)
	assert.Equal(t, "Registered borrower ID000010 (Ada)", event.Description)
}

func TestService_LogImport(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogImport(context.Background(), "book", "books.csv", 10, 2, nil)
	svc.Wait()

	event := lastEvent(t, db, "book_import")
	assert.Equal(t, entities.AuditStatusSuccess, event.Status)
	assert.Equal(t, "Imported 10 book row(s) from books.csv, skipped 2", event.Description)

	svc.LogImport(context.Background(), "borrower", "people.csv", 0, 0, errors.New("open people.csv: no such file"))
	svc.Wait()

	event = lastEvent(t, db, "borrower_import")
	assert.Equal(t, entities.AuditStatusFailed, event.Status)
	assert.Contains(t, event.ErrorMsg, "no such file")
}

func TestService_Events(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Log(ctx, &entities.AuditEvent{
			EventType: entities.AuditEventCheckout,
			Action:    "loan_checkout",
			CardID:    "ID000001",
			Status:    entities.AuditStatusSuccess,
		}))
	}
	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{
		EventType: entities.AuditEventFinePayment,
		Action:    "fine_pay",
		CardID:    "ID000002",
		Status:    entities.AuditStatusSuccess,
	}))

	events, total, err := svc.Events(ctx, auditRepo.Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Len(t, events, 6)

	events, total, err = svc.Events(ctx, auditRepo.Filter{CardID: "ID000001"}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, events, 2)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, db := setupTestService(t)

	require.NoError(t, db.Create(&entities.AuditEvent{
		EventType: entities.AuditEventCheckout,
		Action:    "old",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&entities.AuditEvent{
		EventType: entities.AuditEventCheckin,
		Action:    "new",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now(),
	}).Error)

	deleted, err := svc.DeleteOldEvents(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []entities.AuditEvent
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Action)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10c", 10, "exactly10c"},
		{"this is a very long string", 10, "this is..."},
		{"", 5, ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, truncate(tc.input, tc.maxLen))
	}
}
