package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarydesk/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return db
}

func TestRepository_LogEvent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	event := &entities.AuditEvent{
		EventType:   entities.AuditEventCheckout,
		Action:      "loan_checkout",
		Description: "Checked out 0316769487 to ID000001.",
		EntityType:  "loan",
		EntityID:    "1",
		CardID:      "ID000001",
		Status:      entities.AuditStatusSuccess,
	}

	err := repo.LogEvent(context.Background(), event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
			EventType: entities.AuditEventCheckout,
			Action:    "loan_checkout",
			CardID:    "ID000001",
			Status:    entities.AuditStatusSuccess,
			CreatedAt: time.Now().Add(time.Duration(-i) * time.Hour),
		}))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
			EventType: entities.AuditEventFinePayment,
			Action:    "fine_pay",
			EntityID:  "42",
			CardID:    "ID000002",
			Status:    entities.AuditStatusRejected,
		}))
	}

	t.Run("all events", func(t *testing.T) {
		events, total, err := repo.GetEvents(ctx, Filter{}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(9), total)
		assert.Len(t, events, 9)
	})

	t.Run("by card", func(t *testing.T) {
		events, total, err := repo.GetEvents(ctx, Filter{CardID: "ID000001"}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(6), total)
		assert.Len(t, events, 6)
	})

	t.Run("by type and entity", func(t *testing.T) {
		events, total, err := repo.GetEvents(ctx, Filter{EventType: entities.AuditEventFinePayment, EntityID: "42"}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		for _, e := range events {
			assert.Equal(t, entities.AuditEventFinePayment, e.EventType)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		page1, total, err := repo.GetEvents(ctx, Filter{CardID: "ID000001"}, 4, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(6), total)
		assert.Len(t, page1, 4)

		page2, _, err := repo.GetEvents(ctx, Filter{CardID: "ID000001"}, 4, 4)
		require.NoError(t, err)
		assert.Len(t, page2, 2)
		assert.NotEqual(t, page1[0].ID, page2[0].ID)
	})

	t.Run("order by created_at desc", func(t *testing.T) {
		events, _, err := repo.GetEvents(ctx, Filter{CardID: "ID000001"}, 10, 0)
		require.NoError(t, err)
		for i := 1; i < len(events); i++ {
			assert.False(t, events[i].CreatedAt.After(events[i-1].CreatedAt))
		}
	})
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
		EventType: entities.AuditEventCheckin,
		Action:    "old_checkin",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
		EventType: entities.AuditEventCheckin,
		Action:    "new_checkin",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: now.Add(-1 * time.Hour),
	}))

	deleted, err := repo.DeleteOldEvents(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := repo.GetEvents(ctx, Filter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "new_checkin", events[0].Action)
}
