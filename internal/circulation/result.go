package circulation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mrlokans/librarydesk/internal/entities"
)

// CheckinResult describes a completed return.
type CheckinResult struct {
	Loan *entities.Loan `json:"loan"`
	// DaysLate is negative or zero for early and on-time returns.
	DaysLate int             `json:"days_late"`
	Fine     decimal.Decimal `json:"fine"`
}

// Late reports whether a fine was recorded for this return.
func (r CheckinResult) Late() bool {
	return r.DaysLate > 0
}

// Message is the confirmation shown to the librarian.
func (r CheckinResult) Message() string {
	if r.Late() {
		return fmt.Sprintf("Book returned. Loan %d is %d day(s) late. Fine applied: $%s.",
			r.Loan.ID, r.DaysLate, r.Fine.StringFixed(2))
	}
	return fmt.Sprintf("Book returned on time for loan %d. No fine applied.", r.Loan.ID)
}

func (r CheckinResult) outcome() string {
	if r.Late() {
		return "late"
	}
	return "on_time"
}
