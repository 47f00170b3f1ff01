package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/circulation"
)

type FinesController struct {
	desk FineDesk
}

func NewFinesController(desk FineDesk) *FinesController {
	return &FinesController{desk: desk}
}

// Pay handles POST /api/fines/:loan_id/pay
func (fc *FinesController) Pay(c *gin.Context) {
	loanID, ok := parseIDParam(c, "loan_id")
	if !ok {
		return
	}

	fine, err := fc.desk.PayFine(c.Request.Context(), loanID)
	if err != nil {
		respondCirculationError(c, err, "pay fine")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fine":    fine,
		"message": circulation.PaymentMessage(fine),
	})
}
