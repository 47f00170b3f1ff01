package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/config"
)

type menuAction struct {
	key   string
	label string
	run   func(ctx context.Context) error
}

// Menu is the interactive librarian console. A failed action is reported and
// the menu is shown again; only "0" or end of input leaves the loop.
type Menu struct {
	desk    Desk
	in      *bufio.Scanner
	out     io.Writer
	actions []menuAction
}

func NewMenu(desk Desk, in io.Reader, out io.Writer) *Menu {
	m := &Menu{
		desk: desk,
		in:   bufio.NewScanner(in),
		out:  out,
	}
	m.actions = []menuAction{
		{"1", "Search books", m.searchBooks},
		{"2", "Check out a book", m.checkoutBook},
		{"3", "Check in a book", m.checkinBook},
		{"4", "View borrower loans", m.borrowerLoans},
		{"5", "View borrower fines", m.borrowerFines},
		{"6", "Pay a fine", m.payFine},
		{"7", "View borrower info", m.viewBorrower},
	}
	return m
}

func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		printHeader(m.out, " Library Desk - Librarian Menu")
		for _, a := range m.actions {
			fmt.Fprintf(m.out, "[%s] %s\n", a.key, a.label)
		}
		fmt.Fprintln(m.out, "[0] Exit")

		choice, ok := m.prompt("Choose an option: ")
		if !ok || choice == "0" {
			fmt.Fprintln(m.out, "Goodbye.")
			return m.in.Err()
		}

		action := m.find(choice)
		if action == nil {
			fmt.Fprintln(m.out, "Invalid choice. Please try again.")
			continue
		}
		if err := action.run(ctx); err != nil {
			fmt.Fprintf(m.out, "\n[ERROR] %v\n", err)
		}
	}
}

func (m *Menu) find(key string) *menuAction {
	for i := range m.actions {
		if m.actions[i].key == key {
			return &m.actions[i]
		}
	}
	return nil
}

// prompt reads one trimmed line. ok is false at end of input.
func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) promptLoanID(label string) (uint, bool) {
	raw, _ := m.prompt(label)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		fmt.Fprintln(m.out, "Loan ID must be an integer.")
		return 0, false
	}
	return uint(id), true
}

// reportOutcome prints the circulation message. Rejections are expected at a
// desk and are not returned as errors.
func (m *Menu) reportOutcome(err error, success, failure string) error {
	if err == nil {
		fmt.Fprintln(m.out, success)
		return nil
	}
	fmt.Fprintf(m.out, "\n%s\n%s\n", err.Error(), failure)
	if circulation.KindOf(err) == circulation.KindStorage || circulation.KindOf(err) == circulation.KindUnknown {
		return err
	}
	return nil
}

func (m *Menu) searchBooks(ctx context.Context) error {
	query, _ := m.prompt("Enter title/author/ISBN search term: ")
	if query == "" {
		fmt.Fprintln(m.out, "Search term cannot be empty.")
		return nil
	}

	results, err := m.desk.Search(ctx, query)
	if err != nil {
		return err
	}
	printSearchResults(m.out, query, results)
	return nil
}

func (m *Menu) checkoutBook(ctx context.Context) error {
	isbn, _ := m.prompt("Enter ISBN to check out: ")
	cardID, _ := m.prompt("Enter borrower card ID: ")

	loan, err := m.desk.Checkout(ctx, isbn, cardID)
	if err == nil {
		fmt.Fprintf(m.out, "\n%s\n", circulation.CheckoutMessage(loan))
	}
	return m.reportOutcome(err, "Checkout successful.", "Checkout failed.")
}

func (m *Menu) checkinBook(ctx context.Context) error {
	loanID, ok := m.promptLoanID("Enter loan ID to check in: ")
	if !ok {
		return nil
	}

	result, err := m.desk.Checkin(ctx, loanID)
	if err == nil {
		fmt.Fprintf(m.out, "\n%s\n", result.Message())
	}
	return m.reportOutcome(err, "Checkin successful.", "Checkin failed.")
}

func (m *Menu) borrowerLoans(ctx context.Context) error {
	cardID, _ := m.prompt("Enter borrower card ID: ")
	history, _ := m.prompt("Include history? (y/N): ")

	loans, err := m.desk.BorrowerLoans(ctx, cardID, strings.EqualFold(history, "y"))
	if err != nil {
		return err
	}
	printLoans(m.out, cardID, loans)
	return nil
}

func (m *Menu) borrowerFines(ctx context.Context) error {
	cardID, _ := m.prompt("Enter borrower card ID: ")
	unpaid, _ := m.prompt("Only unpaid fines? (Y/n): ")

	fines, err := m.desk.BorrowerFines(ctx, cardID, !strings.EqualFold(unpaid, "n"))
	if err != nil {
		return err
	}
	printFines(m.out, cardID, fines)
	return nil
}

func (m *Menu) payFine(ctx context.Context) error {
	loanID, ok := m.promptLoanID("Enter loan ID for fine payment: ")
	if !ok {
		return nil
	}

	fine, err := m.desk.PayFine(ctx, loanID)
	if err == nil {
		fmt.Fprintf(m.out, "\n%s\n", circulation.PaymentMessage(fine))
	}
	return m.reportOutcome(err, "Payment successful.", "Payment failed.")
}

func (m *Menu) viewBorrower(ctx context.Context) error {
	cardID, _ := m.prompt("Enter borrower card ID: ")

	b, err := m.desk.Borrower(ctx, cardID)
	if err != nil && !circulation.KindOf(err).IsNotFound() && circulation.KindOf(err) != circulation.KindInvalidInput {
		return err
	}
	printBorrower(m.out, cardID, b)
	return nil
}

// MenuCommand runs the interactive menu against the local database.
type MenuCommand struct {
	DatabasePath string
}

func NewMenuCommand() *MenuCommand {
	return &MenuCommand{}
}

func (cmd *MenuCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("menu", flag.ExitOnError)
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s menu [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Start the interactive librarian menu.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *MenuCommand) Run(ctx context.Context) error {
	desk, err := openDesk(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer desk.Close()

	return NewMenu(desk.service, os.Stdin, os.Stdout).Run(ctx)
}
