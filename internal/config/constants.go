package config

const (
	// DefaultDatabasePath is the default path for the circulation database
	DefaultDatabasePath = "./library.db"

	// Lending policy defaults
	DefaultLoanDays       = 14
	DefaultMaxActiveLoans = 3
	DefaultFineRatePerDay = "0.25"
)
