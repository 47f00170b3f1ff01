package circulation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mrlokans/librarydesk/internal/config"
)

// Policy holds the lending rules applied at checkout and check-in.
type Policy struct {
	LoanDays       int
	MaxActiveLoans int
	FineRatePerDay decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		LoanDays:       config.DefaultLoanDays,
		MaxActiveLoans: config.DefaultMaxActiveLoans,
		FineRatePerDay: decimal.RequireFromString(config.DefaultFineRatePerDay),
	}
}

// NewPolicy builds a policy from configuration and validates it.
func NewPolicy(cfg config.Circulation) (Policy, error) {
	rate, err := decimal.NewFromString(cfg.FineRatePerDay)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid fine rate %q: %w", cfg.FineRatePerDay, err)
	}

	p := Policy{
		LoanDays:       cfg.LoanDays,
		MaxActiveLoans: cfg.MaxActiveLoans,
		FineRatePerDay: rate,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) Validate() error {
	if p.LoanDays <= 0 {
		return fmt.Errorf("loan days must be positive, got %d", p.LoanDays)
	}
	if p.MaxActiveLoans <= 0 {
		return fmt.Errorf("max active loans must be positive, got %d", p.MaxActiveLoans)
	}
	if p.FineRatePerDay.IsNegative() {
		return fmt.Errorf("fine rate must not be negative, got %s", p.FineRatePerDay)
	}
	return nil
}
