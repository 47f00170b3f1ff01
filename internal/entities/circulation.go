package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type Borrower struct {
	CardID    string    `gorm:"primaryKey;column:card_id;size:10" json:"card_id"`
	SSN       string    `gorm:"column:ssn;uniqueIndex;size:11;not null" json:"ssn"`
	Name      string    `gorm:"size:256;not null" json:"name"`
	Address   string    `gorm:"size:512;not null" json:"address"`
	Phone     *string   `gorm:"size:20" json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Loan is one checkout of a book. DateIn stays nil while the book is out;
// once set the loan is closed for good.
type Loan struct {
	ID       uint       `gorm:"primaryKey;column:loan_id" json:"loan_id"`
	ISBN     string     `gorm:"column:isbn;size:13;not null;index" json:"isbn"`
	CardID   string     `gorm:"column:card_id;size:10;not null;index" json:"card_id"`
	DateOut  time.Time  `gorm:"not null" json:"date_out"`
	DueDate  time.Time  `gorm:"not null;index" json:"due_date"`
	DateIn   *time.Time `json:"date_in,omitempty"`
	Book     *Book      `gorm:"foreignKey:ISBN;references:ISBN" json:"-"`
	Borrower *Borrower  `gorm:"foreignKey:CardID;references:CardID" json:"-"`
}

// IsActive reports whether the book is still out on this loan.
func (l Loan) IsActive() bool {
	return l.DateIn == nil
}

// Fine is the penalty recorded against a loan returned late. There is at most
// one fine per loan.
type Fine struct {
	LoanID uint            `gorm:"primaryKey;autoIncrement:false;column:loan_id" json:"loan_id"`
	Amount decimal.Decimal `gorm:"column:fine_amt;type:decimal(6,2);not null" json:"fine_amt"`
	Paid   bool            `gorm:"not null" json:"paid"`
	Loan   *Loan           `gorm:"foreignKey:LoanID;references:ID" json:"-"`
}

// LoanView is a loan joined with the title of the borrowed book.
type LoanView struct {
	LoanID  uint       `json:"loan_id"`
	ISBN    string     `json:"isbn"`
	Title   string     `json:"title"`
	CardID  string     `json:"card_id"`
	DateOut time.Time  `json:"date_out"`
	DueDate time.Time  `json:"due_date"`
	DateIn  *time.Time `json:"date_in,omitempty"`
	Active  bool       `json:"is_active"`
}

// FineView is a fine joined with its loan and book.
type FineView struct {
	LoanID  uint            `json:"loan_id"`
	ISBN    string          `json:"isbn"`
	Title   string          `json:"title"`
	Amount  decimal.Decimal `json:"fine_amt"`
	Paid    bool            `json:"paid"`
	DateOut time.Time       `json:"date_out"`
	DueDate time.Time       `json:"due_date"`
	DateIn  *time.Time      `json:"date_in,omitempty"`
}

// OverdueSummary is a point-in-time snapshot of circulation health.
type OverdueSummary struct {
	AsOf            time.Time       `json:"as_of"`
	ActiveLoans     int64           `json:"active_loans"`
	OverdueLoans    int64           `json:"overdue_loans"`
	UnpaidFineCount int64           `json:"unpaid_fine_count"`
	UnpaidFineTotal decimal.Decimal `json:"unpaid_fine_total"`
}

func (Borrower) TableName() string {
	return "borrowers"
}

func (Loan) TableName() string {
	return "book_loans"
}

func (Fine) TableName() string {
	return "fines"
}
