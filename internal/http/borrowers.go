package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mrlokans/librarydesk/internal/entities"
)

type BorrowersController struct {
	directory BorrowerDirectory
}

func NewBorrowersController(directory BorrowerDirectory) *BorrowersController {
	return &BorrowersController{directory: directory}
}

type RegisterBorrowerRequest struct {
	Name    string `json:"name"`
	SSN     string `json:"ssn"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Get handles GET /api/borrowers/:card_id
func (bc *BorrowersController) Get(c *gin.Context) {
	borrower, err := bc.directory.Borrower(c.Request.Context(), c.Param("card_id"))
	if err != nil {
		respondCirculationError(c, err, "get borrower")
		return
	}
	c.JSON(http.StatusOK, borrower)
}

// Register handles POST /api/borrowers. The card id is assigned by the
// directory.
func (bc *BorrowersController) Register(c *gin.Context) {
	var req RegisterBorrowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	borrower := &entities.Borrower{
		Name:    req.Name,
		SSN:     req.SSN,
		Address: req.Address,
	}
	if req.Phone != "" {
		borrower.Phone = &req.Phone
	}

	if err := bc.directory.RegisterBorrower(c.Request.Context(), borrower); err != nil {
		respondCirculationError(c, err, "register borrower")
		return
	}
	c.JSON(http.StatusCreated, borrower)
}

// Loans handles GET /api/borrowers/:card_id/loans?history=
func (bc *BorrowersController) Loans(c *gin.Context) {
	history, ok := parseBoolQuery(c, "history", false)
	if !ok {
		return
	}

	loans, err := bc.directory.BorrowerLoans(c.Request.Context(), c.Param("card_id"), history)
	if err != nil {
		respondCirculationError(c, err, "list loans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": loans, "count": len(loans)})
}

// Fines handles GET /api/borrowers/:card_id/fines?unpaid=. Only unpaid
// fines are listed unless unpaid=false.
func (bc *BorrowersController) Fines(c *gin.Context) {
	unpaid, ok := parseBoolQuery(c, "unpaid", true)
	if !ok {
		return
	}

	fines, err := bc.directory.BorrowerFines(c.Request.Context(), c.Param("card_id"), unpaid)
	if err != nil {
		respondCirculationError(c, err, "list fines")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fines":        fines,
		"count":        len(fines),
		"unpaid_total": UnpaidTotal(fines).StringFixed(2),
	})
}

// UnpaidTotal sums the unpaid fines in the list.
func UnpaidTotal(fines []entities.FineView) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fines {
		if !f.Paid {
			total = total.Add(f.Amount)
		}
	}
	return total
}
