package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/config"
	appHTTP "github.com/cmlabs-hris/hrms-payroll-go/internal/handler/http"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/events"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/verifier"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hrms-payroll-go/internal/service/attendance"
	claimService "github.com/cmlabs-hris/hrms-payroll-go/internal/service/claim"
	companyService "github.com/cmlabs-hris/hrms-payroll-go/internal/service/company"
	eaformService "github.com/cmlabs-hris/hrms-payroll-go/internal/service/eaform"
	employeeService "github.com/cmlabs-hris/hrms-payroll-go/internal/service/employee"
	leaveService "github.com/cmlabs-hris/hrms-payroll-go/internal/service/leave"
	payrollService "github.com/cmlabs-hris/hrms-payroll-go/internal/service/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/service/statutory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	registry, err := statutory.LoadRegistry(cfg.Payroll.RateTableDir)
	if err != nil {
		slog.Error("Failed to load statutory rate tables", "error", err, "override_dir", cfg.Payroll.RateTableDir)
		os.Exit(1)
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer producer.Close()
		publisher = producer
	} else {
		slog.Warn("KAFKA_BROKERS not set, domain events are discarded")
	}

	hub := sse.NewHub()
	tx := postgresql.NewTransactor(db)

	companyRepo := postgresql.NewCompanyRepository(db)
	groupingRepo := postgresql.NewGroupingRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	scheduleRepo := postgresql.NewScheduleRepository(db)
	recordRepo := postgresql.NewClockRecordRepository(db)
	leaveTypeRepo := postgresql.NewLeaveTypeRepository(db)
	balanceRepo := postgresql.NewBalanceRepository(db)
	requestRepo := postgresql.NewRequestRepository(db)
	holidayRepo := postgresql.NewHolidayRepository(db)
	claimRepo := postgresql.NewClaimRepository(db)
	runRepo := postgresql.NewRunRepository(db)
	itemRepo := postgresql.NewItemRepository(db)
	inputRepo := postgresql.NewInputRepository(db)
	auditRepo := postgresql.NewAuditRepository(db)
	formRepo := postgresql.NewFormRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	receiptClient := verifier.NewClient(verifier.Options{
		BaseURL:    cfg.Verifier.BaseURL,
		APIKey:     cfg.Verifier.APIKey,
		Timeout:    cfg.Verifier.Timeout,
		MaxRetries: cfg.Verifier.MaxRetries,
	})

	settingsSvc := companyService.NewSettingsService(companyRepo)
	leaveSvc := leaveService.NewLeaveService(tx, leaveTypeRepo, balanceRepo, requestRepo, holidayRepo, employeeRepo, publisher)
	attendanceSvc := attendanceService.NewAttendanceService(tx, recordRepo, scheduleRepo, employeeRepo, companyRepo)
	verifierSvc := claimService.NewVerifierService(claimRepo, employeeRepo, companyRepo, receiptClient)
	lifecycleSvc := employeeService.NewLifecycleService(tx, employeeRepo, scheduleRepo, requestRepo)

	gatherer := payrollService.NewGatherer(
		groupingRepo,
		scheduleRepo,
		recordRepo,
		holidayRepo,
		leaveSvc,
		claimRepo,
		inputRepo,
		itemRepo,
		payrollService.RegistryTables(registry),
	)
	runSvc := payrollService.NewRunService(
		tx,
		runRepo,
		itemRepo,
		auditRepo,
		claimRepo,
		employeeRepo,
		companyRepo,
		gatherer,
		publisher,
		hub,
		cfg.Payroll.Workers,
	)
	inputSvc := payrollService.NewInputService(inputRepo, employeeRepo, runRepo)
	automation := payrollService.NewAutomation(runSvc, companyRepo, runRepo)
	eaFormSvc := eaformService.NewEAFormService(tx, formRepo, employeeRepo, companyRepo, runRepo, itemRepo, publisher)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			AppEnv:         cfg.App.Env,
			Version:        cfg.App.Version,
			AllowedOrigins: cfg.App.AllowedOrigins,
		},
		JWTService,
		appHTTP.Handlers{
			Payroll:    appHTTP.NewPayrollHandler(runSvc, inputSvc, JWTService, hub),
			EAForm:     appHTTP.NewEAFormHandler(eaFormSvc),
			Leave:      appHTTP.NewLeaveHandler(leaveSvc),
			Attendance: appHTTP.NewAttendanceHandler(attendanceSvc),
			Claim:      appHTTP.NewClaimHandler(verifierSvc),
			Company:    appHTTP.NewCompanyHandler(settingsSvc),
		},
	)

	scheduler := cron.NewScheduler()
	if cfg.Scheduler.Enabled {
		scheduler.AddJob("employee-lifecycle", cfg.Scheduler.LifecycleEvery, func(ctx context.Context) error {
			n, err := lifecycleSvc.DeactivateResigned(ctx, time.Now())
			if n > 0 {
				slog.Info("Deactivated resigned employees", "count", n)
			}
			return err
		})
		scheduler.AddJob("payroll-auto-generate", cfg.Scheduler.AutomationEvery, automation.AutoGenerate)
		scheduler.AddJob("payroll-auto-lock", cfg.Scheduler.AutomationEvery, automation.AutoLock)
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

// connectDB retries until the database accepts connections, so the service
// can start alongside it.
func connectDB(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = time.Minute

	var db *database.DB
	err := backoff.RetryNotify(func() error {
		var err error
		db, err = database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
			MaxConns: cfg.Database.MaxConns,
		})
		return err
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		slog.Warn("Database not ready, retrying", "error", err, "wait", wait)
	})
	return db, err
}
