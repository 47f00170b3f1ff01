package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "library.db")
	db, err := NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}
	return db, cleanup
}

func seedLoanFixtures(t *testing.T, db *Database) {
	t.Helper()
	require.NoError(t, db.DB.Create(&entities.Book{ISBN: "0316769487", Title: "The Catcher in the Rye"}).Error)
	require.NoError(t, db.DB.Create(&entities.Borrower{CardID: "ID000001", SSN: "111-11-1111", Name: "Ada", Address: "1 Main St"}).Error)
	require.NoError(t, db.DB.Create(&entities.Borrower{CardID: "ID000002", SSN: "222-22-2222", Name: "Grace", Address: "2 Main St"}).Error)
}

func TestNewDatabase(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for _, table := range []string{"books", "authors", "book_authors", "borrowers", "book_loans", "fines", "audit_events"} {
		assert.True(t, db.DB.Migrator().HasTable(table), "table %s should exist", table)
	}
	assert.True(t, db.DB.Migrator().HasIndex("book_loans", "idx_book_loans_active_isbn"))
}

func TestNewDatabase_ReopenExisting(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, db.Ping(context.Background()))
}

func TestActiveLoanIndex(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedLoanFixtures(t, db)

	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	first := &entities.Loan{ISBN: "0316769487", CardID: "ID000001", DateOut: day, DueDate: day.AddDate(0, 0, 14)}
	require.NoError(t, db.DB.Omit("Book", "Borrower").Create(first).Error)

	t.Run("second active loan for the same isbn is rejected", func(t *testing.T) {
		second := &entities.Loan{ISBN: "0316769487", CardID: "ID000002", DateOut: day, DueDate: day.AddDate(0, 0, 14)}
		err := db.DB.Omit("Book", "Borrower").Create(second).Error
		require.Error(t, err)
		assert.True(t, IsDuplicateKey(err))
	})

	t.Run("new loan is accepted once the first is returned", func(t *testing.T) {
		returned := day.AddDate(0, 0, 3)
		require.NoError(t, db.DB.Model(first).Update("date_in", returned).Error)

		again := &entities.Loan{ISBN: "0316769487", CardID: "ID000002", DateOut: returned, DueDate: returned.AddDate(0, 0, 14)}
		assert.NoError(t, db.DB.Omit("Book", "Borrower").Create(again).Error)
	})
}

func TestForeignKeys(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedLoanFixtures(t, db)

	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	loan := &entities.Loan{ISBN: "9999999999", CardID: "ID000001", DateOut: day, DueDate: day.AddDate(0, 0, 14)}
	err := db.DB.Omit("Book", "Borrower").Create(loan).Error
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsDuplicateKey(err))
}

func TestIsDuplicateKey_Nil(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsForeignKeyViolation(nil))
}
