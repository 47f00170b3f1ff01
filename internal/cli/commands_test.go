package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/entities"
)

func TestCommandFlags(t *testing.T) {
	t.Run("search requires a query", func(t *testing.T) {
		assert.Error(t, NewSearchCommand().ParseFlags(nil))

		cmd := NewSearchCommand()
		require.NoError(t, cmd.ParseFlags([]string{"-q", "tolkien"}))
		assert.Equal(t, "tolkien", cmd.Query)
		assert.Equal(t, config.DefaultDatabasePath, cmd.DatabasePath)
	})

	t.Run("checkout requires isbn and card", func(t *testing.T) {
		assert.Error(t, NewCheckoutCommand().ParseFlags([]string{"-isbn", "0000000001"}))

		cmd := NewCheckoutCommand()
		require.NoError(t, cmd.ParseFlags([]string{"-isbn", "0000000001", "-card", "ID000001", "-db", "x.db"}))
		assert.Equal(t, "x.db", cmd.DatabasePath)
	})

	t.Run("checkin and pay-fine require a loan", func(t *testing.T) {
		assert.Error(t, NewCheckinCommand().ParseFlags(nil))
		assert.Error(t, NewPayFineCommand().ParseFlags(nil))

		cmd := NewPayFineCommand()
		require.NoError(t, cmd.ParseFlags([]string{"-loan", "42"}))
		assert.Equal(t, uint(42), cmd.LoanID)
	})

	t.Run("listing commands require a card", func(t *testing.T) {
		assert.Error(t, NewLoansCommand().ParseFlags(nil))
		assert.Error(t, NewFinesCommand().ParseFlags(nil))
		assert.Error(t, NewBorrowerCommand().ParseFlags(nil))

		loans := NewLoansCommand()
		require.NoError(t, loans.ParseFlags([]string{"-card", "ID000001", "-history"}))
		assert.True(t, loans.History)
	})

	t.Run("import needs a file", func(t *testing.T) {
		assert.Error(t, NewImportCommand().ParseFlags(nil))
		assert.NoError(t, NewImportCommand().ParseFlags([]string{"-books", "books.csv"}))
	})
}

func TestOneShotCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("checkout prints confirmation", func(t *testing.T) {
		var out bytes.Buffer
		cmd := &CheckoutCommand{deskCommand: deskCommand{Out: &out}, ISBN: "0000000001", CardID: "ID000001"}

		require.NoError(t, cmd.run(ctx, &stubDesk{}))
		assert.Contains(t, out.String(), "checked out to borrower ID000001")
	})

	t.Run("checkout rejection is returned", func(t *testing.T) {
		desk := &stubDesk{checkoutErr: &circulation.Error{Kind: circulation.KindLoanLimitExceeded, Msg: "limit"}}
		cmd := &CheckoutCommand{deskCommand: deskCommand{Out: &bytes.Buffer{}}, ISBN: "0000000001", CardID: "ID000001"}

		err := cmd.run(ctx, desk)
		assert.ErrorIs(t, err, circulation.ErrLoanLimitExceeded)
	})

	t.Run("fines default to unpaid only", func(t *testing.T) {
		desk := &stubDesk{}
		var out bytes.Buffer
		cmd := &FinesCommand{deskCommand: deskCommand{Out: &out}, CardID: "ID000001"}

		require.NoError(t, cmd.run(ctx, desk))
		assert.True(t, desk.lastUnpaid)
		assert.Contains(t, out.String(), "No fines found.")
	})

	t.Run("borrower shows details", func(t *testing.T) {
		phone := "555-0100"
		desk := &stubDesk{borrower: &entities.Borrower{CardID: "ID000001", SSN: "123-45-6789", Name: "Ada", Address: "1 Main St", Phone: &phone}}
		var out bytes.Buffer
		cmd := &BorrowerCommand{deskCommand: deskCommand{Out: &out}, CardID: "ID000001"}

		require.NoError(t, cmd.run(ctx, desk))
		assert.Contains(t, out.String(), "name:    Ada")
		assert.Contains(t, out.String(), "phone:   555-0100")
	})

	t.Run("unknown borrower is an error", func(t *testing.T) {
		cmd := &BorrowerCommand{deskCommand: deskCommand{Out: &bytes.Buffer{}}, CardID: "ID999999"}

		assert.ErrorIs(t, cmd.run(ctx, &stubDesk{}), circulation.ErrBorrowerNotFound)
	})
}
