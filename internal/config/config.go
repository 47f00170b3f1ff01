package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Circulation
		Audit
		Tasks
		Reports
		Web
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	// Circulation holds the lending policy. The fine rate is kept as a
	// string so it can be parsed straight into a decimal.
	Circulation struct {
		LoanDays       int
		MaxActiveLoans int
		FineRatePerDay string
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 90)
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Reports struct {
		OverdueSchedule      string // Cron format: "0 7 * * *" = daily at 07:00
		AuditCleanupSchedule string // Cron format: "30 3 * * 0" = Sundays at 03:30
	}
	Web struct {
		Enabled         bool
		SessionSecret   string
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Per-client limits on mutating API calls
		RateLimitPerSecond float64
		RateLimitBurst     int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Lending policy defaults
	v.SetDefault("loan_days", DefaultLoanDays)
	v.SetDefault("max_active_loans", DefaultMaxActiveLoans)
	v.SetDefault("fine_rate_per_day", DefaultFineRatePerDay)

	v.SetDefault("audit_retention_days", 90)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("overdue_report_schedule", "0 7 * * *")
	v.SetDefault("audit_cleanup_schedule", "30 3 * * 0")

	// Web front end defaults
	v.SetDefault("web_enabled", true)
	v.SetDefault("web_session_secret", "")    // Auto-generated if empty
	v.SetDefault("web_session_lifetime", "12h")
	v.SetDefault("web_secure_cookies", true) // HTTPS-only cookies
	v.SetDefault("api_rate_limit_per_second", 5.0)
	v.SetDefault("api_rate_limit_burst", 10)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Circulation: Circulation{
			LoanDays:       v.GetInt("LOAN_DAYS"),
			MaxActiveLoans: v.GetInt("MAX_ACTIVE_LOANS"),
			FineRatePerDay: v.GetString("FINE_RATE_PER_DAY"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Reports: Reports{
			OverdueSchedule:      v.GetString("OVERDUE_REPORT_SCHEDULE"),
			AuditCleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Web: Web{
			Enabled:            v.GetBool("WEB_ENABLED"),
			SessionSecret:      v.GetString("WEB_SESSION_SECRET"),
			SessionLifetime:    v.GetDuration("WEB_SESSION_LIFETIME"),
			SecureCookies:      v.GetBool("WEB_SECURE_COOKIES"),
			RateLimitPerSecond: v.GetFloat64("API_RATE_LIMIT_PER_SECOND"),
			RateLimitBurst:     v.GetInt("API_RATE_LIMIT_BURST"),
		},
	}
}
