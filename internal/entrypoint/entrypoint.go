package entrypoint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database"
	dbaudit "github.com/mrlokans/librarydesk/internal/database/audit"
	http_controllers "github.com/mrlokans/librarydesk/internal/http"
	"github.com/mrlokans/librarydesk/internal/metrics"
	"github.com/mrlokans/librarydesk/internal/scheduler"
	"github.com/mrlokans/librarydesk/internal/tasks"
	"github.com/mrlokans/librarydesk/internal/web"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// SIGKILL cannot be caught, so only SIGINT and SIGTERM are handled.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before the workers behind them go away.
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Library Desk v%s", version)

	policy, err := circulation.NewPolicy(cfg.Circulation)
	if err != nil {
		log.Fatalf("Invalid lending policy: %v", err)
	}
	log.Printf("Lending policy: %d day loans, %d active loans per borrower, $%s per day late",
		policy.LoanDays, policy.MaxActiveLoans, policy.FineRatePerDay.StringFixed(2))

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	sqlDB, err := db.SQLDB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB: %v", err)
	}

	auditService := audit.NewService(dbaudit.NewRepository(db.DB))
	service := circulation.NewService(db.DB, policy, circulation.SystemClock)
	service.SetAuditor(auditService)

	// Prime the gauges so /metrics is meaningful before the first report.
	if summary, err := service.OverdueSummary(context.Background()); err != nil {
		log.Printf("WARNING: Failed to compute initial overdue summary: %v", err)
	} else {
		metrics.SetOverdueSummary(summary)
	}

	healthChecks := map[string]http_controllers.Pinger{
		"database": sqlDB,
		"tasks":    nil,
	}

	var (
		taskClient    *tasks.Client
		taskCtxCancel context.CancelFunc
		reports       *scheduler.ReportScheduler
		reportTrigger http_controllers.ReportTrigger
	)
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewOverdueReportQueue(service),
			tasks.NewCleanupAuditEventsQueue(auditService),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		reports = scheduler.NewReportScheduler(taskClient, scheduler.Config{
			OverdueSchedule:      cfg.Reports.OverdueSchedule,
			AuditCleanupSchedule: cfg.Reports.AuditCleanupSchedule,
			AuditRetentionDays:   cfg.Audit.RetentionDays,
		})
		if err := reports.Start(taskCtx); err != nil {
			log.Fatalf("Failed to start report scheduler: %v", err)
		}

		reportTrigger = reports
		healthChecks["tasks"] = http_controllers.PingerFunc(taskClient.Ping)
	} else {
		log.Printf("Task queue disabled: overdue reports run only on startup")
	}

	routerCfg := http_controllers.RouterConfig{
		Catalog:            service,
		Loans:              service,
		Fines:              service,
		Borrowers:          service,
		Reports:            service,
		ReportTrigger:      reportTrigger,
		AuditReader:        auditService,
		HealthChecks:       healthChecks,
		RateLimitPerSecond: cfg.Web.RateLimitPerSecond,
		RateLimitBurst:     cfg.Web.RateLimitBurst,
		Version:            version,
	}

	if cfg.Web.Enabled {
		sessions, err := web.NewSessionManager(sqlDB, cfg.Web.SessionLifetime, cfg.Web.SecureCookies)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}

		csrfSecret, err := sessionSecret(cfg.Web.SessionSecret)
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}

		pages, err := web.NewController(service, sessions, csrfSecret, cfg.Web.SecureCookies)
		if err != nil {
			log.Fatalf("Failed to load web templates: %v", err)
		}
		routerCfg.Web = pages
	}

	router, stopLimiter := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		stopLimiter()
		if reports != nil {
			reports.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		auditService.Wait()
	}

	Serve(router, cfg, onShutdown)
}

// sessionSecret decodes a configured hex secret, falls back to the raw bytes
// and generates a random one when nothing is configured.
func sessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set WEB_SESSION_SECRET to persist)")
	return secret, nil
}
