package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mrlokans/librarydesk/internal/entities"
)

var separator = strings.Repeat("-", 60)

func printHeader(w io.Writer, title string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, title, rule)
}

func printSearchResults(w io.Writer, query string, results []entities.CatalogEntry) {
	printHeader(w, fmt.Sprintf("Search results for '%s'", query))
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching books found.")
		return
	}

	for i, entry := range results {
		authors := strings.Join(entry.Authors, ", ")
		if authors == "" {
			authors = "<Unknown>"
		}
		status := "Checked out"
		if entry.Available {
			status = "Available"
		}
		fmt.Fprintf(w, "%d. %s - %s\n", i+1, entry.ISBN, entry.Title)
		fmt.Fprintf(w, "   Authors: %s\n", authors)
		fmt.Fprintf(w, "   Status:  %s\n", status)
		fmt.Fprintln(w, separator)
	}
}

func printLoans(w io.Writer, cardID string, loans []entities.LoanView) {
	printHeader(w, "Loans for borrower "+cardID)
	if len(loans) == 0 {
		fmt.Fprintln(w, "No loans found (or borrower may not exist).")
		return
	}

	for _, loan := range loans {
		fmt.Fprintf(w, "Loan ID:    %d\n", loan.LoanID)
		fmt.Fprintf(w, "  ISBN:     %s\n", loan.ISBN)
		fmt.Fprintf(w, "  Title:    %s\n", loan.Title)
		fmt.Fprintf(w, "  Date out: %s\n", formatDate(&loan.DateOut))
		fmt.Fprintf(w, "  Due date: %s\n", formatDate(&loan.DueDate))
		fmt.Fprintf(w, "  Date in:  %s\n", formatDate(loan.DateIn))
		fmt.Fprintf(w, "  Active:   %t\n", loan.Active)
		fmt.Fprintln(w, separator)
	}
}

func printFines(w io.Writer, cardID string, fines []entities.FineView) {
	printHeader(w, "Fines for borrower "+cardID)
	if len(fines) == 0 {
		fmt.Fprintln(w, "No fines found.")
		return
	}

	for _, fine := range fines {
		fmt.Fprintf(w, "Loan ID:  %d\n", fine.LoanID)
		fmt.Fprintf(w, "  Amount: $%s\n", fine.Amount.StringFixed(2))
		fmt.Fprintf(w, "  Paid:   %t\n", fine.Paid)
		fmt.Fprintf(w, "  Title:  %s\n", fine.Title)
		fmt.Fprintf(w, "  Out:    %s\n", formatDate(&fine.DateOut))
		fmt.Fprintf(w, "  Due:    %s\n", formatDate(&fine.DueDate))
		fmt.Fprintf(w, "  In:     %s\n", formatDate(fine.DateIn))
		fmt.Fprintln(w, separator)
	}
}

// printBorrower prints the lookup header and the borrower, or a not found
// line when b is nil.
func printBorrower(w io.Writer, cardID string, b *entities.Borrower) {
	printHeader(w, "Borrower lookup: "+cardID)
	if b == nil {
		fmt.Fprintln(w, "No borrower found.")
		return
	}

	phone := "-"
	if b.Phone != nil {
		phone = *b.Phone
	}
	fmt.Fprintf(w, "card_id: %s\n", b.CardID)
	fmt.Fprintf(w, "ssn:     %s\n", b.SSN)
	fmt.Fprintf(w, "name:    %s\n", b.Name)
	fmt.Fprintf(w, "address: %s\n", b.Address)
	fmt.Fprintf(w, "phone:   %s\n", phone)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
