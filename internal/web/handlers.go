// Package web is the librarian's browser front end: catalog search with
// checkout, and a borrower page for returns and fine payments. Every form
// posts and redirects, carrying the outcome in a session flash.
package web

import (
	"context"
	"embed"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/shopspring/decimal"

	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

// Desk is the part of the circulation service the pages use.
type Desk interface {
	Search(ctx context.Context, query string) ([]entities.CatalogEntry, error)
	Checkout(ctx context.Context, isbn, cardID string) (*entities.Loan, error)
	Checkin(ctx context.Context, loanID uint) (*circulation.CheckinResult, error)
	PayFine(ctx context.Context, loanID uint) (*entities.Fine, error)
	Borrower(ctx context.Context, cardID string) (*entities.Borrower, error)
	BorrowerLoans(ctx context.Context, cardID string, includeHistory bool) ([]entities.LoanView, error)
	BorrowerFines(ctx context.Context, cardID string, onlyUnpaid bool) ([]entities.FineView, error)
}

type Controller struct {
	desk       Desk
	sessions   *SessionManager
	csrfSecret []byte
	secure     bool
	tmpl       *template.Template
}

// NewController parses the embedded templates. An empty csrfSecret turns
// CSRF protection off, which only tests should do.
func NewController(desk Desk, sessions *SessionManager, csrfSecret []byte, secure bool) (*Controller, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"date":  formatDate,
		"money": formatMoney,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Controller{
		desk:       desk,
		sessions:   sessions,
		csrfSecret: csrfSecret,
		secure:     secure,
		tmpl:       tmpl,
	}, nil
}

func (wc *Controller) RegisterRoutes(router gin.IRouter) {
	pages := router.Group("/", SecurityHeadersMiddleware())
	if len(wc.csrfSecret) > 0 {
		pages.Use(CSRFMiddleware(wc.csrfSecret, wc.secure))
	}
	// Session runs after CSRF so the CSRF request replacement keeps the
	// session context.
	pages.Use(wc.sessions.SessionLoadSave())

	pages.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/search")
	})
	pages.GET("/search", wc.SearchPage)
	pages.POST("/checkout", wc.Checkout)
	pages.GET("/borrower", wc.BorrowerPage)
	pages.POST("/borrower", wc.BorrowerLookup)
	pages.POST("/checkin", wc.Checkin)
	pages.POST("/pay_fine", wc.PayFine)
}

// SearchPage handles GET /search?q=
func (wc *Controller) SearchPage(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	data := wc.pageData(c)
	data["Query"] = query

	if query != "" {
		results, err := wc.desk.Search(c.Request.Context(), query)
		if err != nil {
			data["Flashes"] = append(data["Flashes"].([]Flash), Flash{Kind: "error", Message: err.Error()})
		}
		data["Results"] = results
	}

	wc.render(c, http.StatusOK, "search", data)
}

// Checkout handles POST /checkout
func (wc *Controller) Checkout(c *gin.Context) {
	isbn := strings.TrimSpace(c.PostForm("isbn"))
	cardID := strings.TrimSpace(c.PostForm("card_id"))
	back := "/search?" + url.Values{"q": {isbn}}.Encode()

	if isbn == "" || cardID == "" {
		wc.flash(c, "error", "ISBN and Card ID are required for checkout.")
		c.Redirect(http.StatusSeeOther, back)
		return
	}

	loan, err := wc.desk.Checkout(c.Request.Context(), isbn, cardID)
	if err != nil {
		wc.flashError(c, err)
	} else {
		wc.flash(c, "success", circulation.CheckoutMessage(loan))
	}
	c.Redirect(http.StatusSeeOther, back)
}

// BorrowerLookup handles POST /borrower from the card id form.
func (wc *Controller) BorrowerLookup(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, borrowerURL(c.PostForm("card_id")))
}

// BorrowerPage handles GET /borrower?card_id=, listing all loans and all
// fines of the borrower.
func (wc *Controller) BorrowerPage(c *gin.Context) {
	ctx := c.Request.Context()
	cardID := strings.TrimSpace(c.Query("card_id"))
	data := wc.pageData(c)
	data["CardID"] = cardID

	if cardID != "" {
		borrower, err := wc.desk.Borrower(ctx, cardID)
		switch {
		case err == nil:
			data["Borrower"] = borrower
		case circulation.KindOf(err).IsNotFound():
			data["NotFound"] = true
		default:
			wc.render(c, http.StatusInternalServerError, "error", gin.H{"Error": err.Error()})
			return
		}

		loans, err := wc.desk.BorrowerLoans(ctx, cardID, true)
		if err != nil {
			wc.render(c, http.StatusInternalServerError, "error", gin.H{"Error": err.Error()})
			return
		}
		fines, err := wc.desk.BorrowerFines(ctx, cardID, false)
		if err != nil {
			wc.render(c, http.StatusInternalServerError, "error", gin.H{"Error": err.Error()})
			return
		}

		unpaid := decimal.Zero
		for _, f := range fines {
			if !f.Paid {
				unpaid = unpaid.Add(f.Amount)
			}
		}
		data["Loans"] = loans
		data["Fines"] = fines
		data["UnpaidTotal"] = unpaid
	}

	wc.render(c, http.StatusOK, "borrower", data)
}

// Checkin handles POST /checkin
func (wc *Controller) Checkin(c *gin.Context) {
	cardID := c.PostForm("card_id")
	loanID, ok := wc.loanIDFromForm(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, borrowerURL(cardID))
		return
	}

	result, err := wc.desk.Checkin(c.Request.Context(), loanID)
	if err != nil {
		wc.flashError(c, err)
	} else {
		wc.flash(c, "success", result.Message())
	}
	c.Redirect(http.StatusSeeOther, borrowerURL(cardID))
}

// PayFine handles POST /pay_fine
func (wc *Controller) PayFine(c *gin.Context) {
	cardID := c.PostForm("card_id")
	loanID, ok := wc.loanIDFromForm(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, borrowerURL(cardID))
		return
	}

	fine, err := wc.desk.PayFine(c.Request.Context(), loanID)
	if err != nil {
		wc.flashError(c, err)
	} else {
		wc.flash(c, "success", circulation.PaymentMessage(fine))
	}
	c.Redirect(http.StatusSeeOther, borrowerURL(cardID))
}

func (wc *Controller) loanIDFromForm(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.PostForm("loan_id")), 10, 32)
	if err != nil || id == 0 {
		wc.flash(c, "error", "Loan ID must be an integer.")
		return 0, false
	}
	return uint(id), true
}

func (wc *Controller) flash(c *gin.Context, kind, message string) {
	wc.sessions.AddFlash(c.Request.Context(), kind, message)
}

// flashError shows domain errors verbatim. Storage errors carry a generic
// message already; their cause goes to the log only.
func (wc *Controller) flashError(c *gin.Context, err error) {
	if circulation.KindOf(err) == circulation.KindStorage || circulation.KindOf(err) == circulation.KindUnknown {
		log.Printf("Web desk error on %s: %v", c.FullPath(), err)
	}
	wc.flash(c, "error", err.Error())
}

func (wc *Controller) pageData(c *gin.Context) gin.H {
	flashes := wc.sessions.PopFlashes(c.Request.Context())
	if msg := c.Query("error"); msg != "" {
		flashes = append(flashes, Flash{Kind: "error", Message: msg})
	}
	if flashes == nil {
		flashes = []Flash{}
	}
	return gin.H{
		"Flashes":   flashes,
		"CSRFField": CSRFFieldName,
		"CSRFToken": CSRFToken(c),
	}
}

func (wc *Controller) render(c *gin.Context, status int, name string, data any) {
	c.Render(status, render.HTML{Template: wc.tmpl, Name: name, Data: data})
}

func borrowerURL(cardID string) string {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return "/borrower"
	}
	return "/borrower?" + url.Values{"card_id": {cardID}}.Encode()
}

func formatDate(t any) string {
	switch v := t.(type) {
	case time.Time:
		return v.Format("2006-01-02")
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format("2006-01-02")
	}
	return ""
}

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
