package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	analyticsapp "condo-cloud/internal/analytics/application"
	analyticsinterfaces "condo-cloud/internal/analytics/interfaces"
	apihttp "condo-cloud/internal/api/http"
	"condo-cloud/internal/audit"
	"condo-cloud/internal/auth"
	billingapp "condo-cloud/internal/billing/application"
	billingrepo "condo-cloud/internal/billing/infrastructure/postgres"
	billinginterfaces "condo-cloud/internal/billing/interfaces"
	"condo-cloud/internal/eventing"
	expensesrepo "condo-cloud/internal/expenses/infrastructure/postgres"
	expensesinterfaces "condo-cloud/internal/expenses/interfaces"
	masterdatarepo "condo-cloud/internal/masterdata/infrastructure/postgres"
	masterdatainterfaces "condo-cloud/internal/masterdata/interfaces"
	"condo-cloud/internal/notify"
	"condo-cloud/internal/observability/metrics"
	reportapp "condo-cloud/internal/reporting/application"
	reportinterfaces "condo-cloud/internal/reporting/interfaces"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	unitChecker := auth.NewUnitChecker(db)
	auditRepo := audit.NewRepository(db)

	unitRepo := masterdatarepo.NewUnitRepository(db)
	chargeRepo := billingrepo.NewChargeRepository(db)
	paymentRepo := billingrepo.NewPaymentRepository(db)
	expenseRepo := expensesrepo.NewExpenseRepository(db)

	bus := eventing.NewInMemoryBus()

	billingCfg, err := billingapp.LoadConfig()
	if err != nil {
		logger.Fatalf("billing config error: %v", err)
	}
	chargeService, err := billingapp.NewChargeService(chargeRepo, paymentRepo, unitRepo, bus, systemClock{}, cfg.BuildingID, billingCfg)
	if err != nil {
		logger.Fatalf("charge service error: %v", err)
	}
	chargeHandler, err := billinginterfaces.NewChargeHandler(chargeService, unitChecker, auditRepo)
	if err != nil {
		logger.Fatalf("charge handler error: %v", err)
	}

	analyticsService, err := analyticsapp.NewService(chargeRepo, systemClock{}, cfg.BuildingID)
	if err != nil {
		logger.Fatalf("analytics service error: %v", err)
	}
	analyticsHandler, err := analyticsinterfaces.NewHandler(analyticsService)
	if err != nil {
		logger.Fatalf("analytics handler error: %v", err)
	}

	reportCfg, err := reportapp.LoadConfig()
	if err != nil {
		logger.Fatalf("reporting config error: %v", err)
	}
	reportService, err := reportapp.NewReportService(paymentRepo, chargeRepo, expenseRepo, unitRepo, cfg.BuildingID, reportCfg)
	if err != nil {
		logger.Fatalf("report service error: %v", err)
	}
	reportHandler, err := reportinterfaces.NewReportHandler(reportService)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}

	expenseHandler, err := expensesinterfaces.NewExpenseHandler(expenseRepo, auditRepo, cfg.BuildingID)
	if err != nil {
		logger.Fatalf("expense handler error: %v", err)
	}
	unitHandler, err := masterdatainterfaces.NewUnitHandler(unitRepo, auditRepo, cfg.BuildingID)
	if err != nil {
		logger.Fatalf("unit handler error: %v", err)
	}

	reminder := buildReminder(cfg, chargeRepo, unitRepo, logger)
	if reminder != nil {
		defer reminder.Close()
	}
	wireEventLog(bus, logger, reminder)

	go runOverdueSweep(chargeService, billingCfg, logger)

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/charges", chargeHandler)
	mux.Handle("/api/v1/charges/", chargeHandler)
	mux.Handle("/api/v1/payments/", chargeHandler)
	paymentsQuery := apihttp.NewPaymentsHandler(db, cfg.BuildingID)
	mux.HandleFunc("/api/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		// Residents submit payments with POST; accountants query the
		// ledger with GET.
		if r.Method == http.MethodPost {
			chargeHandler.ServeHTTP(w, r)
			return
		}
		paymentsQuery.ServeHTTP(w, r)
	})
	mux.Handle("/api/v1/exports/payments.csv", apihttp.NewExportPaymentsCSVHandler(db, cfg.BuildingID))
	mux.Handle("/api/v1/collection", analyticsHandler)
	mux.Handle("/api/v1/debts/aging", analyticsHandler)
	mux.Handle("/api/v1/reports/", reportHandler)
	mux.Handle("/api/v1/expenses", expenseHandler)
	mux.Handle("/api/v1/units", unitHandler)
	mux.Handle("/api/v1/units/", unitHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL          string
	HTTPAddr             string
	BuildingID           string
	JWTSecret            string
	ReminderWebhookURL   string
	ReminderTemplate     string
	ReminderEscalation   time.Duration
	ReminderCooldown     time.Duration
	ReminderDedupeWindow time.Duration
	ReminderTimeout      time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:          getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:             getenvDefault("HTTP_ADDR", ":8080"),
		BuildingID:           getenvDefault("BUILDING_ID", "building-demo"),
		JWTSecret:            getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		ReminderWebhookURL:   getenvDefault("REMINDER_WEBHOOK_URL", ""),
		ReminderTemplate:     getenvDefault("REMINDER_TEMPLATE", ""),
		ReminderEscalation:   getenvDuration("REMINDER_ESCALATION_AFTER", 0),
		ReminderCooldown:     getenvDuration("REMINDER_COOLDOWN", 0),
		ReminderDedupeWindow: getenvDuration("REMINDER_DEDUP_WINDOW", 0),
		ReminderTimeout:      getenvDuration("REMINDER_TIMEOUT", 5*time.Second),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func buildReminder(cfg config, chargeRepo *billingrepo.ChargeRepository, unitRepo *masterdatarepo.UnitRepository, logger *log.Logger) *notify.Reminder {
	channels := []notify.Channel{notify.NewLoggingChannel(logger)}
	if cfg.ReminderWebhookURL != "" {
		webhook, err := notify.NewWebhookChannel(cfg.ReminderWebhookURL)
		if err != nil {
			logger.Fatalf("reminder webhook error: %v", err)
		}
		channels = append(channels, webhook)
	}
	tpl, err := notify.NewTemplate(cfg.ReminderTemplate)
	if err != nil {
		logger.Fatalf("reminder template error: %v", err)
	}
	reminder, err := notify.NewReminder(
		chargeRepo,
		unitRepo,
		notify.NewMultiChannel(channels...),
		tpl,
		notify.WithEscalation(cfg.ReminderEscalation),
		notify.WithCooldown(cfg.ReminderCooldown),
		notify.WithDedupeWindow(cfg.ReminderDedupeWindow),
		notify.WithRequestTimeout(cfg.ReminderTimeout),
	)
	if err != nil {
		logger.Fatalf("reminder error: %v", err)
	}
	return reminder
}

// wireEventLog subscribes domain event logging and debt reminders.
func wireEventLog(bus *eventing.InMemoryBus, logger *log.Logger, reminder *notify.Reminder) {
	bus.Subscribe(eventing.EventTypeOf[billingapp.ChargeIssued](), func(ctx context.Context, event any) error {
		evt, ok := event.(billingapp.ChargeIssued)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.Printf("charge issued: charge=%s units=%d total=%d due=%s", evt.ChargeID, evt.UnitCount, evt.TotalAmount, evt.DueDate.Format("2006-01-02"))
		return nil
	})
	bus.Subscribe(eventing.EventTypeOf[billingapp.PaymentVerified](), func(ctx context.Context, event any) error {
		evt, ok := event.(billingapp.PaymentVerified)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.Printf("payment verified: payment=%s charge=%s unit=%s amount=%d status=%s", evt.PaymentID, evt.ChargeID, evt.UnitID, evt.Amount, evt.NewStatus)
		if reminder != nil && evt.NewStatus == "paid" {
			reminder.CancelEscalation(evt.ChargeID, evt.UnitID)
		}
		return nil
	})
	bus.Subscribe(eventing.EventTypeOf[billingapp.ChargeCancelled](), func(ctx context.Context, event any) error {
		evt, ok := event.(billingapp.ChargeCancelled)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.Printf("charge cancelled: charge=%s reason=%q", evt.ChargeID, evt.Reason)
		return nil
	})
	bus.Subscribe(eventing.EventTypeOf[billingapp.AllocationOverdue](), func(ctx context.Context, event any) error {
		evt, ok := event.(billingapp.AllocationOverdue)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.Printf("allocation overdue: charge=%s unit=%s outstanding=%d", evt.ChargeID, evt.UnitID, evt.Outstanding)
		if reminder != nil {
			reminder.Notify(ctx, notify.DebtEvent{
				Type:        "overdue",
				ChargeID:    evt.ChargeID,
				UnitID:      evt.UnitID,
				Amount:      evt.Amount,
				Outstanding: evt.Outstanding,
				DueDate:     evt.DueDate,
			})
		}
		return nil
	})
}

// runOverdueSweep periodically expires allocations past due date plus grace.
func runOverdueSweep(service *billingapp.ChargeService, cfg billingapp.Config, logger *log.Logger) {
	interval, err := time.ParseDuration(cfg.OverdueInterval)
	if err != nil || interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for tick := range ticker.C {
		result := metrics.ResultSuccess
		transitioned, err := service.ExpireOverdue(context.Background(), tick.UTC())
		if err != nil {
			result = metrics.ResultError
			logger.Printf("overdue sweep error: %v", err)
		} else if transitioned > 0 {
			logger.Printf("overdue sweep: %d allocations transitioned", transitioned)
		}
		metrics.ObserveOverdueSweep(result, transitioned)
	}
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
