package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/config"
)

// deskCommand carries what every one-shot circulation command shares.
type deskCommand struct {
	DatabasePath string
	Out          io.Writer
}

func (dc *deskCommand) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(&dc.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database")
}

func (dc *deskCommand) output() io.Writer {
	if dc.Out == nil {
		return os.Stdout
	}
	return dc.Out
}

func (dc *deskCommand) withDesk(fn func(Desk) error) error {
	desk, err := openDesk(dc.DatabasePath)
	if err != nil {
		return err
	}
	defer desk.Close()
	return fn(desk.service)
}

func usage(fs *flag.FlagSet, synopsis, description string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s\n\n", os.Args[0], synopsis)
		fmt.Fprintf(os.Stderr, "%s\n\n", description)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
}

// SearchCommand searches the catalog by ISBN, title or author.
type SearchCommand struct {
	deskCommand
	Query string
}

func NewSearchCommand() *SearchCommand {
	return &SearchCommand{}
}

func (cmd *SearchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	cmd.registerFlags(fs)
	fs.StringVar(&cmd.Query, "q", "", "Search term: ISBN, title or author fragment (required)")
	fs.Usage = usage(fs, "search -q <term> [options]", "Search the catalog and show availability.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Query == "" {
		return fmt.Errorf("required flag -q not provided")
	}
	return nil
}

func (cmd *SearchCommand) Run(ctx context.Context) error {
	return cmd.withDesk(func(desk Desk) error { return cmd.run(ctx, desk) })
}

func (cmd *SearchCommand) run(ctx context.Context, desk Desk) error {
	results, err := desk.Search(ctx, cmd.Query)
	if err != nil {
		return err
	}
	printSearchResults(cmd.output(), cmd.Query, results)
	return nil
}

// CheckoutCommand lends a book to a borrower.
type CheckoutCommand struct {
	deskCommand
	ISBN   string
	CardID string
}

func NewCheckoutCommand() *CheckoutCommand {
	return &CheckoutCommand{}
}

func (cmd *CheckoutCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	cmd.registerFlags(fs)
	fs.StringVar(&cmd.ISBN, "isbn", "", "ISBN of the book (required)")
	fs.StringVar(&cmd.CardID, "card", "", "Borrower card ID (required)")
	fs.Usage = usage(fs, "checkout -isbn <isbn> -card <card id> [options]", "Check a book out to a borrower.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.ISBN == "" || cmd.CardID == "" {
		return fmt.Errorf("required flags -isbn and -card not provided")
	}
	return nil
}

func (cmd *CheckoutCommand) Run(ctx context.Context) error {
	return cmd.withDesk(func(desk Desk) error { return cmd.run(ctx, desk) })
}

func (cmd *CheckoutCommand) run(ctx context.Context, desk Desk) error {
	loan, err := desk.Checkout(ctx, cmd.ISBN, cmd.CardID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.output(), circulation.CheckoutMessage(loan))
	return nil
}

// CheckinCommand returns a book and applies any late fine.
type CheckinCommand struct {
	deskCommand
	LoanID uint
}

func NewCheckinCommand() *CheckinCommand {
	return &CheckinCommand{}
}

func (cmd *CheckinCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("checkin", flag.ExitOnError)
	cmd.registerFlags(fs)
	fs.UintVar(&cmd.LoanID, "loan", 0, "Loan ID to close (required)")
	fs.Usage = usage(fs, "checkin -loan <loan id> [options]", "Check a book back in. Late returns are fined.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.LoanID == 0 {
		return fmt.Errorf("required flag -loan not provided")
	}
	return nil
}

func (cmd *CheckinCommand) Run(ctx context.Context) error {
	return cmd.withDesk(func(desk Desk) error { return cmd.run(ctx, desk) })
}

func (cmd *CheckinCommand) run(ctx context.Context, desk Desk) error {
	result, err := desk.Checkin(ctx, cmd.LoanID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.output(), result.Message())
	return nil
}

// PayFineCommand settles the fine recorded for a loan.
type PayFineCommand struct {
	deskCommand
	LoanID uint
}

func NewPayFineCommand() *PayFineCommand {
	return &PayFineCommand{}
}

func (cmd *PayFineCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("pay-fine", flag.ExitOnError)
	cmd.registerFlags(fs)
	fs.UintVar(&cmd.LoanID, "loan", 0, "Loan ID whose fine is paid (required)")
	fs.Usage = usage(fs, "pay-fine -loan <loan id> [options]", "Mark the fine for a loan as paid.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.LoanID == 0 {
		return fmt.Errorf("required flag -loan not provided")
	}
	return nil
}

func (cmd *PayFineCommand) Run(ctx context.Context) error {
	return cmd.withDesk(func(desk Desk) error { return cmd.run(ctx, desk) })
}

func (cmd *PayFineCommand) run(ctx context.Context, desk Desk) error {
	fine, err := desk.PayFine(ctx, cmd.LoanID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.output(), circulation.PaymentMessage(fine))
	return nil
}

// LoansCommand lists a borrower's loans.
type LoansCommand struct {
	deskCommand
	CardID  string
	History bool
}

func NewLoansCommand() *LoansCommand {
	return &LoansCommand{}
}

func (cmd *LoansCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("loans", flag.ExitOnError)
	cmd.registerFlags(fs)
	fs.StringVar(&cmd.CardID, "card", "", "Borrower card ID (required)")
	fs.BoolVar(&cmd.History, "history", false, "Include returned loans")
	fs.Usage = usage(fs, "loans -card <card id> [options]", "List a borrower's active loans.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.CardID == "" {
		return fmt.Errorf("required flag -card not provided")
	}
	return nil
}

func (cmd *LoansCommand) Run(ctx context.Context) error {
	return cmd.withDesk(func(desk Desk) error { return cmd.run(ctx, desk) })
}

func (cmd *LoansCommand) run(ctx context.Context, desk Desk) error {
	loans, err := desk.BorrowerLoans(ctx, cmd.CardID, cmd.History)
	if err != nil {
		return err
	}
	printLoans(cmd.output(), cmd.CardID, loans)
	return nil
}

// FinesCommand lists a borrower's fines.
type FinesCommand struct {
	deskCommand
	CardID string
	All    bool
}

func NewFinesCommand() *FinesCommand {
	return &FinesCommand{}
}

func (cmd *FinesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("fines", flag.ExitOnError)
	cmd.registerFlags(fs)
	fs.StringVar(&cmd.CardID, "card", "", "Borrower card ID (required)")
	fs.BoolVar(&cmd.All, "all", false, "Include paid fines")
	fs.Usage = usage(fs, "fines -card <card id> [options]", "List a borrower's unpaid fines.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.CardID == "" {
		return fmt.Errorf("required flag -card not provided")
	}
	return nil
}

func (cmd *FinesCommand) Run(ctx context.Context) error {
	return cmd.withDesk(func(desk Desk) error { return cmd.run(ctx, desk) })
}

func (cmd *FinesCommand) run(ctx context.Context, desk Desk) error {
	fines, err := desk.BorrowerFines(ctx, cmd.CardID, !cmd.All)
	if err != nil {
		return err
	}
	printFines(cmd.output(), cmd.CardID, fines)
	return nil
}

// BorrowerCommand shows a borrower's details.
type BorrowerCommand struct {
	deskCommand
	CardID string
}

func NewBorrowerCommand() *BorrowerCommand {
	return &BorrowerCommand{}
}

func (cmd *BorrowerCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("borrower", flag.ExitOnError)
	cmd.registerFlags(fs)
	fs.StringVar(&cmd.CardID, "card", "", "Borrower card ID (required)")
	fs.Usage = usage(fs, "borrower -card <card id> [options]", "Show a borrower's details.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.CardID == "" {
		return fmt.Errorf("required flag -card not provided")
	}
	return nil
}

func (cmd *BorrowerCommand) Run(ctx context.Context) error {
	return cmd.withDesk(func(desk Desk) error { return cmd.run(ctx, desk) })
}

func (cmd *BorrowerCommand) run(ctx context.Context, desk Desk) error {
	b, err := desk.Borrower(ctx, cmd.CardID)
	if err != nil {
		return err
	}
	printBorrower(cmd.output(), cmd.CardID, b)
	return nil
}
