package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ReportsController struct {
	reporter OverdueReporter
	trigger  ReportTrigger
}

// NewReportsController creates the controller. trigger may be nil when the
// task queue is disabled.
func NewReportsController(reporter OverdueReporter, trigger ReportTrigger) *ReportsController {
	return &ReportsController{reporter: reporter, trigger: trigger}
}

// Overdue handles GET /api/reports/overdue
func (rc *ReportsController) Overdue(c *gin.Context) {
	summary, err := rc.reporter.OverdueSummary(c.Request.Context())
	if err != nil {
		respondCirculationError(c, err, "overdue report")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Refresh handles POST /api/reports/overdue/refresh by queueing a report run.
func (rc *ReportsController) Refresh(c *gin.Context) {
	if rc.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is disabled"})
		return
	}

	taskID, err := rc.trigger.RunOverdueReport(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "queue overdue report")
		return
	}
	c.JSON(http.StatusAccepted, SuccessResponse{
		Message: "Overdue report queued",
		Data:    gin.H{"task_id": taskID},
	})
}
