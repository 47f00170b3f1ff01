package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrlokans/librarydesk/internal/requestid"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// The returned stop function releases the rate limiter.
func NewRouter(cfg RouterConfig) (*gin.Engine, func()) {
	router := gin.New()
	router.Use(requestid.Middleware())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.HealthChecks, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	limited := limiter.Middleware()

	api := router.Group("/api")

	catalog := NewCatalogController(cfg.Catalog)
	api.GET("/books/search", catalog.Search)

	loans := NewLoansController(cfg.Loans)
	api.POST("/loans", limited, loans.Checkout)
	api.POST("/loans/:id/checkin", limited, loans.Checkin)

	fines := NewFinesController(cfg.Fines)
	api.POST("/fines/:loan_id/pay", limited, fines.Pay)

	borrowers := NewBorrowersController(cfg.Borrowers)
	api.POST("/borrowers", limited, borrowers.Register)
	api.GET("/borrowers/:card_id", borrowers.Get)
	api.GET("/borrowers/:card_id/loans", borrowers.Loans)
	api.GET("/borrowers/:card_id/fines", borrowers.Fines)

	reports := NewReportsController(cfg.Reports, cfg.ReportTrigger)
	api.GET("/reports/overdue", reports.Overdue)
	api.POST("/reports/overdue/refresh", limited, reports.Refresh)

	if cfg.AuditReader != nil {
		audit := NewAuditController(cfg.AuditReader)
		api.GET("/audit", audit.GetAuditEvents)
	}

	if cfg.Web != nil {
		cfg.Web.RegisterRoutes(router)
	}

	return router, limiter.Stop
}
