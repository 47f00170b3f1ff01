package http

import "github.com/gin-gonic/gin"

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Circulation desk operations; *circulation.Service satisfies all of them
	Catalog   CatalogSearcher
	Loans     LoanDesk
	Fines     FineDesk
	Borrowers BorrowerDirectory
	Reports   OverdueReporter

	// Optional
	ReportTrigger ReportTrigger
	AuditReader   AuditReader

	// Named dependencies pinged by /health
	HealthChecks map[string]Pinger

	// Per-client limits on mutating API routes; zero disables limiting
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Web front end, mounted at / when set
	Web RouteRegistrar

	// Application info
	Version string
}

// RouteRegistrar adds its own routes to the engine.
type RouteRegistrar interface {
	RegisterRoutes(router gin.IRouter)
}
