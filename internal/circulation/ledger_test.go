package circulation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLedger_Assess(t *testing.T) {
	tests := []struct {
		name     string
		rate     string
		daysLate int
		want     string
	}{
		{"early", "0.25", -3, "0.00"},
		{"on due date", "0.25", 0, "0.00"},
		{"one day", "0.25", 1, "0.25"},
		{"four days", "0.25", 4, "1.00"},
		{"long overdue", "0.25", 365, "91.25"},
		{"odd rate rounds to cents", "0.333", 3, "1.00"},
		{"free library", "0", 10, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(nil, decimal.RequireFromString(tt.rate))
			assert.Equal(t, tt.want, l.Assess(tt.daysLate).StringFixed(2))
		})
	}
}
