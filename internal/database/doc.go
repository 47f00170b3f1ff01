// Package database provides the data access layer for the circulation desk.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, active loan index
//	├── catalog/         # Books, authors and catalog search
//	├── borrowers/       # Borrower directory and active loan counts
//	├── loans/           # BOOK_LOANS rows and the availability check
//	├── fines/           # FINES rows: upsert, payment, borrower listings
//	└── audit/           # Circulation audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./library.db")
//
//	loansRepo := loans.NewRepository(db.DB)
//	available, err := loansRepo.IsAvailable(ctx, "0316769487")
//
// # Transactions
//
// Repositories are bound to a *gorm.DB handle. Inside a transaction use
// WithTx to get a copy bound to the transaction handle:
//
//	err := db.DB.Transaction(func(tx *gorm.DB) error {
//		count, err := borrowersRepo.WithTx(tx).ActiveLoanCount(ctx, cardID)
//		...
//	})
//
// The connection is opened with _txlock=immediate, so every write
// transaction takes the SQLite write lock up front and concurrent checkouts
// are serialized by the store.
package database
