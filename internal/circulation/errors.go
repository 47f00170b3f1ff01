package circulation

import (
	"errors"
	"fmt"
)

// Kind classifies circulation failures so callers can branch on them
// without parsing messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindBorrowerNotFound
	KindBorrowerExists
	KindCatalogEntryNotFound
	KindLoanLimitExceeded
	KindBookUnavailable
	KindLoanNotFound
	KindAlreadyReturned
	KindFineNotFound
	KindAlreadyPaid
	KindStorage
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindInvalidInput:         "invalid_input",
	KindBorrowerNotFound:     "borrower_not_found",
	KindBorrowerExists:       "borrower_exists",
	KindCatalogEntryNotFound: "catalog_entry_not_found",
	KindLoanLimitExceeded:    "loan_limit_exceeded",
	KindBookUnavailable:      "book_unavailable",
	KindLoanNotFound:         "loan_not_found",
	KindAlreadyReturned:      "already_returned",
	KindFineNotFound:         "fine_not_found",
	KindAlreadyPaid:          "already_paid",
	KindStorage:              "storage_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// IsNotFound reports whether the kind names a missing record.
func (k Kind) IsNotFound() bool {
	switch k {
	case KindBorrowerNotFound, KindCatalogEntryNotFound, KindLoanNotFound, KindFineNotFound:
		return true
	}
	return false
}

// IsConflict reports whether the kind is a rule or state violation.
func (k Kind) IsConflict() bool {
	switch k {
	case KindBorrowerExists, KindLoanLimitExceeded, KindBookUnavailable, KindAlreadyReturned, KindAlreadyPaid:
		return true
	}
	return false
}

// Error is returned by every circulation operation. Msg is written for the
// librarian and is safe to show verbatim.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Kind.String() + ": " + e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrAlreadyPaid)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrBorrowerNotFound     = &Error{Kind: KindBorrowerNotFound}
	ErrBorrowerExists       = &Error{Kind: KindBorrowerExists}
	ErrCatalogEntryNotFound = &Error{Kind: KindCatalogEntryNotFound}
	ErrLoanLimitExceeded    = &Error{Kind: KindLoanLimitExceeded}
	ErrBookUnavailable      = &Error{Kind: KindBookUnavailable}
	ErrLoanNotFound         = &Error{Kind: KindLoanNotFound}
	ErrAlreadyReturned      = &Error{Kind: KindAlreadyReturned}
	ErrFineNotFound         = &Error{Kind: KindFineNotFound}
	ErrAlreadyPaid          = &Error{Kind: KindAlreadyPaid}
)

// KindOf returns the kind carried by err, KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// storageError wraps a failure of the underlying store. The message stays
// generic; the cause is reachable through errors.Unwrap.
func storageError(op string, err error) *Error {
	return &Error{Kind: KindStorage, Msg: "Database error while trying to " + op + ".", Err: err}
}

// asCirculationError passes *Error values through and wraps anything else as
// a storage failure.
func asCirculationError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return storageError(op, err)
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(err).String()
}
