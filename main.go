package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/librarydesk/internal/cli"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// subcommand is implemented by every subcommand in internal/cli.
type subcommand interface {
	ParseFlags(args []string) error
	Run(ctx context.Context) error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	var cmd subcommand
	switch command {
	case "menu":
		cmd = cli.NewMenuCommand()
	case "search":
		cmd = cli.NewSearchCommand()
	case "checkout":
		cmd = cli.NewCheckoutCommand()
	case "checkin":
		cmd = cli.NewCheckinCommand()
	case "pay-fine":
		cmd = cli.NewPayFineCommand()
	case "loans":
		cmd = cli.NewLoansCommand()
	case "fines":
		cmd = cli.NewFinesCommand()
	case "borrower":
		cmd = cli.NewBorrowerCommand()
	case "import":
		cmd = cli.NewImportCommand()

	case "version":
		fmt.Printf("librarydesk %s (%s)\n", Version, Commit)
		return

	case "-h", "--help", "help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.Run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve      Start the HTTP server and web desk (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  menu       Interactive librarian menu\n")
	fmt.Fprintf(os.Stderr, "  search     Search the catalog by ISBN, title or author\n")
	fmt.Fprintf(os.Stderr, "  checkout   Check a book out to a borrower\n")
	fmt.Fprintf(os.Stderr, "  checkin    Check a book back in\n")
	fmt.Fprintf(os.Stderr, "  pay-fine   Mark a loan's fine as paid\n")
	fmt.Fprintf(os.Stderr, "  loans      List a borrower's loans\n")
	fmt.Fprintf(os.Stderr, "  fines      List a borrower's fines\n")
	fmt.Fprintf(os.Stderr, "  borrower   Show a borrower's details\n")
	fmt.Fprintf(os.Stderr, "  import     Load books.csv and borrowers.csv\n")
	fmt.Fprintf(os.Stderr, "  version    Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
