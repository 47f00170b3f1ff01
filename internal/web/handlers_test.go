package web

import (
	"context"
	"database/sql"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/entities"
)

type stubDesk struct {
	results  []entities.CatalogEntry
	borrower *entities.Borrower
	loans    []entities.LoanView
	fines    []entities.FineView

	checkoutErr error
	checkinErr  error
	payErr      error

	checkedOut []string
	checkedIn  []uint
	paid       []uint
}

func (d *stubDesk) Search(_ context.Context, query string) ([]entities.CatalogEntry, error) {
	return d.results, nil
}

func (d *stubDesk) Checkout(_ context.Context, isbn, cardID string) (*entities.Loan, error) {
	if d.checkoutErr != nil {
		return nil, d.checkoutErr
	}
	d.checkedOut = append(d.checkedOut, isbn+"/"+cardID)
	return &entities.Loan{
		ID:      7,
		ISBN:    isbn,
		CardID:  cardID,
		DateOut: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (d *stubDesk) Checkin(_ context.Context, loanID uint) (*circulation.CheckinResult, error) {
	if d.checkinErr != nil {
		return nil, d.checkinErr
	}
	d.checkedIn = append(d.checkedIn, loanID)
	return &circulation.CheckinResult{
		Loan:     &entities.Loan{ID: loanID},
		DaysLate: 2,
		Fine:     decimal.RequireFromString("0.50"),
	}, nil
}

func (d *stubDesk) PayFine(_ context.Context, loanID uint) (*entities.Fine, error) {
	if d.payErr != nil {
		return nil, d.payErr
	}
	d.paid = append(d.paid, loanID)
	return &entities.Fine{LoanID: loanID, Amount: decimal.RequireFromString("0.50"), Paid: true}, nil
}

func (d *stubDesk) Borrower(_ context.Context, cardID string) (*entities.Borrower, error) {
	if d.borrower == nil || d.borrower.CardID != cardID {
		return nil, circulation.ErrBorrowerNotFound
	}
	return d.borrower, nil
}

func (d *stubDesk) BorrowerLoans(_ context.Context, cardID string, includeHistory bool) ([]entities.LoanView, error) {
	return d.loans, nil
}

func (d *stubDesk) BorrowerFines(_ context.Context, cardID string, onlyUnpaid bool) ([]entities.FineView, error) {
	return d.fines, nil
}

func newTestSessions(t *testing.T) *SessionManager {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sm, err := NewSessionManager(db, time.Hour, false)
	require.NoError(t, err)
	return sm
}

func setupPages(t *testing.T, desk Desk, csrfSecret []byte) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	controller, err := NewController(desk, newTestSessions(t), csrfSecret, false)
	require.NoError(t, err)

	router := gin.New()
	controller.RegisterRoutes(router)
	return router
}

func get(router http.Handler, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func post(router http.Handler, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// follow posts a form and loads the page it redirects to with the session
// cookie, returning the rendered body.
func follow(t *testing.T, router http.Handler, path string, form url.Values) (string, string) {
	t.Helper()
	w := post(router, path, form, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	location := w.Header().Get("Location")
	page := get(router, location, w.Result().Cookies())
	require.Equal(t, http.StatusOK, page.Code)
	return location, page.Body.String()
}

func TestRootRedirectsToSearch(t *testing.T) {
	router := setupPages(t, &stubDesk{}, nil)

	w := get(router, "/", nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/search", w.Header().Get("Location"))
}

func TestSearchPage(t *testing.T) {
	desk := &stubDesk{results: []entities.CatalogEntry{
		{ISBN: "0000000001", Title: "The Go Programming Language", Authors: []string{"Alan Donovan", "Brian Kernighan"}, Available: true},
		{ISBN: "0000000002", Title: "Go in Action", Authors: []string{"William Kennedy"}, Available: false},
	}}
	router := setupPages(t, desk, nil)

	t.Run("renders results", func(t *testing.T) {
		w := get(router, "/search?q=go", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "The Go Programming Language")
		assert.Contains(t, body, "Alan Donovan, Brian Kernighan")
		assert.Contains(t, body, "Checked out")
		assert.Equal(t, 1, strings.Count(body, `action="/checkout"`))
	})

	t.Run("empty query shows only the form", func(t *testing.T) {
		w := get(router, "/search", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "<table>")
	})

	t.Run("no matches", func(t *testing.T) {
		router := setupPages(t, &stubDesk{}, nil)
		w := get(router, "/search?q=nothing", nil)

		assert.Contains(t, w.Body.String(), "No books match")
	})
}

func TestCheckoutForm(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		desk := &stubDesk{}
		router := setupPages(t, desk, nil)

		location, body := follow(t, router, "/checkout", url.Values{"isbn": {"0000000001"}})

		assert.Equal(t, "/search?q=0000000001", location)
		assert.Contains(t, body, "ISBN and Card ID are required for checkout.")
		assert.Empty(t, desk.checkedOut)
	})

	t.Run("success", func(t *testing.T) {
		desk := &stubDesk{}
		router := setupPages(t, desk, nil)

		_, body := follow(t, router, "/checkout", url.Values{"isbn": {"0000000001"}, "card_id": {"ID000001"}})

		assert.Equal(t, []string{"0000000001/ID000001"}, desk.checkedOut)
		assert.Contains(t, body, "flash-success")
		assert.Contains(t, body, "Loan ID 7, due 2025-03-15.")
	})

	t.Run("rejected", func(t *testing.T) {
		desk := &stubDesk{checkoutErr: &circulation.Error{Kind: circulation.KindLoanLimitExceeded, Msg: "Borrower ID000001 already has 3 active loans."}}
		router := setupPages(t, desk, nil)

		_, body := follow(t, router, "/checkout", url.Values{"isbn": {"0000000001"}, "card_id": {"ID000001"}})

		assert.Contains(t, body, "flash-error")
		assert.Contains(t, body, "already has 3 active loans.")
	})

	t.Run("flash shows once", func(t *testing.T) {
		router := setupPages(t, &stubDesk{}, nil)

		w := post(router, "/checkout", url.Values{"isbn": {"0000000001"}}, nil)
		cookies := w.Result().Cookies()
		first := get(router, "/search?q=0000000001", cookies)
		second := get(router, "/search?q=0000000001", cookies)

		assert.Contains(t, first.Body.String(), "ISBN and Card ID are required")
		assert.NotContains(t, second.Body.String(), "ISBN and Card ID are required")
	})
}

func TestBorrowerPage(t *testing.T) {
	returned := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	desk := &stubDesk{
		borrower: &entities.Borrower{CardID: "ID000001", Name: "Ada Lovelace", Address: "12 Analytical Way"},
		loans: []entities.LoanView{
			{LoanID: 1, ISBN: "0000000001", Title: "Active Book", CardID: "ID000001", DueDate: returned, Active: true},
			{LoanID: 2, ISBN: "0000000002", Title: "Returned Book", CardID: "ID000001", DueDate: returned, DateIn: &returned},
		},
		fines: []entities.FineView{
			{LoanID: 2, Title: "Returned Book", Amount: decimal.RequireFromString("1.25"), DateIn: &returned},
			{LoanID: 3, Title: "Old Book", Amount: decimal.RequireFromString("0.50"), Paid: true, DateIn: &returned},
		},
	}
	router := setupPages(t, desk, nil)

	t.Run("lookup form redirects", func(t *testing.T) {
		w := post(router, "/borrower", url.Values{"card_id": {" ID000001 "}}, nil)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/borrower?card_id=ID000001", w.Header().Get("Location"))
	})

	t.Run("shows loans and fines", func(t *testing.T) {
		w := get(router, "/borrower?card_id=ID000001", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Ada Lovelace")
		assert.Contains(t, body, "Active Book")
		assert.Contains(t, body, "2025-03-20")
		assert.Contains(t, body, "Unpaid total: $1.25")
		assert.Equal(t, 1, strings.Count(body, `action="/checkin"`))
		assert.Equal(t, 1, strings.Count(body, `action="/pay_fine"`))
	})

	t.Run("unknown card", func(t *testing.T) {
		w := get(router, "/borrower?card_id=ID999999", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "No borrower found with card ID ID999999.")
	})
}

func TestCheckinForm(t *testing.T) {
	t.Run("non integer loan id", func(t *testing.T) {
		desk := &stubDesk{}
		router := setupPages(t, desk, nil)

		location, body := follow(t, router, "/checkin", url.Values{"loan_id": {"abc"}, "card_id": {"ID000001"}})

		assert.Equal(t, "/borrower?card_id=ID000001", location)
		assert.Contains(t, body, "Loan ID must be an integer.")
		assert.Empty(t, desk.checkedIn)
	})

	t.Run("late return", func(t *testing.T) {
		desk := &stubDesk{}
		router := setupPages(t, desk, nil)

		_, body := follow(t, router, "/checkin", url.Values{"loan_id": {"4"}, "card_id": {"ID000001"}})

		assert.Equal(t, []uint{4}, desk.checkedIn)
		assert.Contains(t, body, "Loan 4 is 2 day(s) late. Fine applied: $0.50.")
	})

	t.Run("already returned", func(t *testing.T) {
		desk := &stubDesk{checkinErr: &circulation.Error{Kind: circulation.KindAlreadyReturned, Msg: "Loan 4 has already been returned."}}
		router := setupPages(t, desk, nil)

		_, body := follow(t, router, "/checkin", url.Values{"loan_id": {"4"}, "card_id": {"ID000001"}})

		assert.Contains(t, body, "Loan 4 has already been returned.")
	})
}

func TestPayFineForm(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		desk := &stubDesk{}
		router := setupPages(t, desk, nil)

		_, body := follow(t, router, "/pay_fine", url.Values{"loan_id": {"9"}, "card_id": {"ID000001"}})

		assert.Equal(t, []uint{9}, desk.paid)
		assert.Contains(t, body, "Fine of $0.50 for loan 9 marked as paid.")
	})

	t.Run("missing card id goes to the empty borrower page", func(t *testing.T) {
		router := setupPages(t, &stubDesk{}, nil)

		location, body := follow(t, router, "/pay_fine", url.Values{"loan_id": {""}})

		assert.Equal(t, "/borrower", location)
		assert.Contains(t, body, "Loan ID must be an integer.")
	})
}

func TestSecurityHeaders(t *testing.T) {
	router := setupPages(t, &stubDesk{}, nil)

	w := get(router, "/search", nil)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
}

var tokenPattern = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

func TestCSRFProtection(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	t.Run("post without token is rejected", func(t *testing.T) {
		desk := &stubDesk{}
		router := setupPages(t, desk, secret)

		w := post(router, "/checkout", url.Values{"isbn": {"0000000001"}, "card_id": {"ID000001"}}, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "Form Expired")
		assert.Empty(t, desk.checkedOut)
	})

	t.Run("rejected post with referer goes back", func(t *testing.T) {
		router := setupPages(t, &stubDesk{}, secret)

		req := httptest.NewRequest(http.MethodPost, "/checkin", strings.NewReader("loan_id=1"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Referer", "http://example.com/borrower?card_id=ID000001")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "&error=Form+expired")
	})

	t.Run("post with token from the page passes", func(t *testing.T) {
		desk := &stubDesk{results: []entities.CatalogEntry{{ISBN: "0000000001", Title: "Go", Available: true}}}
		router := setupPages(t, desk, secret)

		page := get(router, "/search?q=go", nil)
		require.Equal(t, http.StatusOK, page.Code)
		match := tokenPattern.FindStringSubmatch(page.Body.String())
		require.Len(t, match, 2)

		form := url.Values{
			"isbn":        {"0000000001"},
			"card_id":     {"ID000001"},
			CSRFFieldName: {html.UnescapeString(match[1])},
		}
		w := post(router, "/checkout", form, page.Result().Cookies())

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, []string{"0000000001/ID000001"}, desk.checkedOut)
	})
}
