package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/circulation"
)

type LoansController struct {
	desk LoanDesk
}

func NewLoansController(desk LoanDesk) *LoansController {
	return &LoansController{desk: desk}
}

type CheckoutRequest struct {
	ISBN   string `json:"isbn" binding:"required"`
	CardID string `json:"card_id" binding:"required"`
}

// Checkout handles POST /api/loans
func (lc *LoansController) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "isbn and card_id are required")
		return
	}

	loan, err := lc.desk.Checkout(c.Request.Context(), req.ISBN, req.CardID)
	if err != nil {
		respondCirculationError(c, err, "checkout")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"loan":    loan,
		"message": circulation.CheckoutMessage(loan),
	})
}

// Checkin handles POST /api/loans/:id/checkin
func (lc *LoansController) Checkin(c *gin.Context) {
	loanID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := lc.desk.Checkin(c.Request.Context(), loanID)
	if err != nil {
		respondCirculationError(c, err, "checkin")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loan":      result.Loan,
		"days_late": result.DaysLate,
		"fine":      result.Fine.StringFixed(2),
		"message":   result.Message(),
	})
}
