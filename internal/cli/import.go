package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/catalog"
	"github.com/mrlokans/librarydesk/internal/entities"
)

type CatalogWriter interface {
	AddBook(ctx context.Context, isbn, title string, authorNames []string) (*entities.Book, error)
}

type BorrowerRegistrar interface {
	RegisterBorrower(ctx context.Context, b *entities.Borrower) error
}

type ImportAuditor interface {
	LogImport(ctx context.Context, kind, source string, imported, skipped int, err error)
}

type ImportStats struct {
	Imported int
	Skipped  int
}

// Importer loads the catalog and borrower CSV exports. Rows that are
// malformed or already present are skipped; any other failure stops the
// import.
type Importer struct {
	catalog   CatalogWriter
	borrowers BorrowerRegistrar
	auditor   ImportAuditor
	Verbose   bool
}

func NewImporter(catalog CatalogWriter, borrowers BorrowerRegistrar, auditor ImportAuditor) *Importer {
	return &Importer{catalog: catalog, borrowers: borrowers, auditor: auditor}
}

// ImportBooks reads isbn,title,authors rows. Authors are comma separated
// inside one quoted field.
func (im *Importer) ImportBooks(ctx context.Context, r io.Reader, source string) (stats ImportStats, err error) {
	defer func() { im.audit(ctx, "book", source, stats, err) }()

	err = readRows(r, "isbn", func(line int, row []string) error {
		if len(row) < 3 {
			im.skip(&stats, line, "expected 3 columns, got %d", len(row))
			return nil
		}
		isbn := strings.TrimSpace(row[0])
		title := strings.TrimSpace(row[1])
		if isbn == "" || title == "" {
			im.skip(&stats, line, "missing ISBN or title")
			return nil
		}

		_, err := im.catalog.AddBook(ctx, isbn, title, strings.Split(row[2], ","))
		if database.IsDuplicateKey(err) {
			im.skip(&stats, line, "book %s already in catalog", isbn)
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: failed to add book %s: %w", line, isbn, err)
		}
		stats.Imported++
		return nil
	})
	return stats, err
}

// ImportBorrowers reads card_id,ssn,name,address,phone rows. A blank card_id
// gets the next free card number.
func (im *Importer) ImportBorrowers(ctx context.Context, r io.Reader, source string) (stats ImportStats, err error) {
	defer func() { im.audit(ctx, "borrower", source, stats, err) }()

	err = readRows(r, "card_id", func(line int, row []string) error {
		if len(row) < 4 {
			im.skip(&stats, line, "expected 5 columns, got %d", len(row))
			return nil
		}

		b := &entities.Borrower{
			CardID:  strings.TrimSpace(row[0]),
			SSN:     row[1],
			Name:    row[2],
			Address: row[3],
		}
		if len(row) > 4 {
			phone := strings.TrimSpace(row[4])
			b.Phone = &phone
		}

		err := im.borrowers.RegisterBorrower(ctx, b)
		switch circulation.KindOf(err) {
		case circulation.KindUnknown:
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			stats.Imported++
		case circulation.KindInvalidInput, circulation.KindBorrowerExists:
			im.skip(&stats, line, "%v", err)
		default:
			return fmt.Errorf("line %d: %w", line, err)
		}
		return nil
	})
	return stats, err
}

func (im *Importer) skip(stats *ImportStats, line int, format string, args ...any) {
	stats.Skipped++
	if im.Verbose {
		log.Printf("Skipping line %d: %s", line, fmt.Sprintf(format, args...))
	}
}

func (im *Importer) audit(ctx context.Context, kind, source string, stats ImportStats, err error) {
	if im.auditor != nil {
		im.auditor.LogImport(ctx, kind, source, stats.Imported, stats.Skipped, err)
	}
}

// readRows calls fn for each data row, skipping a header whose first column
// is headerKey.
func readRows(r io.Reader, headerKey string, fn func(line int, row []string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV: %w", err)
		}
		if line == 1 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), headerKey) {
			continue
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if err := fn(line, row); err != nil {
			return err
		}
	}
}

// ImportCommand loads books.csv and borrowers.csv into the library database.
type ImportCommand struct {
	DatabasePath  string
	BooksPath     string
	BorrowersPath string
	Verbose       bool
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database")
	fs.StringVar(&cmd.BooksPath, "books", "", "Path to books.csv (isbn,title,authors)")
	fs.StringVar(&cmd.BorrowersPath, "borrowers", "", "Path to borrowers.csv (card_id,ssn,name,address,phone)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Log every skipped row")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [-books <path>] [-borrowers <path>] [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Load the catalog and borrower CSV files. Rows already present are skipped,\n")
		fmt.Fprintf(os.Stderr, "so the import can be re-run safely.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s import -books data/books.csv -borrowers data/borrowers.csv\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.BooksPath == "" && cmd.BorrowersPath == "" {
		return fmt.Errorf("at least one of -books or -borrowers is required")
	}
	return nil
}

func (cmd *ImportCommand) Run(ctx context.Context) error {
	fmt.Println("Library Import")
	fmt.Println("==============")

	desk, err := openDesk(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer desk.Close()

	importer := NewImporter(catalog.NewRepository(desk.db.DB), desk.service, desk.audit)
	importer.Verbose = cmd.Verbose

	// Books first so a later loan import could reference them.
	if cmd.BooksPath != "" {
		stats, err := importFile(cmd.BooksPath, func(r io.Reader, source string) (ImportStats, error) {
			return importer.ImportBooks(ctx, r, source)
		})
		if err != nil {
			return err
		}
		fmt.Printf("Books:     %d imported, %d skipped\n", stats.Imported, stats.Skipped)
	}

	if cmd.BorrowersPath != "" {
		stats, err := importFile(cmd.BorrowersPath, func(r io.Reader, source string) (ImportStats, error) {
			return importer.ImportBorrowers(ctx, r, source)
		})
		if err != nil {
			return err
		}
		fmt.Printf("Borrowers: %d imported, %d skipped\n", stats.Imported, stats.Skipped)
	}

	return nil
}

func importFile(path string, fn func(io.Reader, string) (ImportStats, error)) (ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return fn(f, filepath.Base(path))
}
