// Package app wires repositories, services and background workers from
// configuration. Both the API server and the admin CLI build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/school-attendance-go/internal/config"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/student"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/tenant"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/alert"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/cron"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/email"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/sendgrid"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/school-attendance-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/school-attendance-go/internal/service/attendance"
	notificationService "github.com/cmlabs-hris/school-attendance-go/internal/service/notification"
	scheduleService "github.com/cmlabs-hris/school-attendance-go/internal/service/schedule"
	studentService "github.com/cmlabs-hris/school-attendance-go/internal/service/student"
)

type App struct {
	Config        *config.Config
	DB            *database.DB
	JWT           jwt.Service
	Hub           *sse.Hub
	Reporter      alert.Reporter
	Tenants       tenant.TenantRepository
	Attendance    attendance.AttendanceService
	Students      student.StudentService
	Notifications notification.NotificationService
	Jobs          *cron.AttendanceJobs
}

// New connects to the database and builds every service. Callers must Close
// the result.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a, err := build(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *config.Config, db *database.DB) (*App, error) {
	tenantRepo := postgresql.NewTenantRepository(db)
	studentRepo := postgresql.NewStudentRepository(db)
	scheduleRepo := postgresql.NewScheduleRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	outboxRepo := postgresql.NewOutboxRepository(db)
	templateRepo := postgresql.NewTemplateRepository(db)
	transactor := postgresql.NewTransactor(db)

	renderer, err := notificationService.NewRenderer(templateRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to load message templates: %w", err)
	}

	sender, err := NewSender(cfg)
	if err != nil {
		return nil, err
	}

	hub := sse.NewHub()
	notifSvc := notificationService.NewNotificationService(
		outboxRepo,
		studentRepo,
		tenantRepo,
		renderer,
		sender,
		notificationService.Config{
			WorkerCount: cfg.Dispatch.WorkerCount,
			QueueSize:   cfg.Dispatch.QueueSize,
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			RelayBatch:  cfg.Dispatch.RelayBatch,
			Lease:       cfg.Dispatch.Lease,
			SendTimeout: cfg.Dispatch.SendTimeout,
			Location:    cfg.Location(),
		},
	)

	attendanceSvc := attendanceService.NewAttendanceService(
		transactor,
		attendanceRepo,
		studentRepo,
		tenantRepo,
		scheduleService.NewScheduleResolver(scheduleRepo),
		outboxRepo,
		notifSvc,
		hub,
		attendanceService.Config{
			Location:     cfg.Location(),
			AbsenceAfter: cfg.Absence.After,
			QRSigningKey: cfg.QR.SigningKey,
		},
	)

	return &App{
		Config:        cfg,
		DB:            db,
		JWT:           jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration),
		Hub:           hub,
		Reporter:      alert.New(cfg.Rollbar.Token, cfg.App.Env, cfg.App.Version),
		Tenants:       tenantRepo,
		Attendance:    attendanceSvc,
		Students:      studentService.NewStudentService(transactor, studentRepo),
		Notifications: notifSvc,
		Jobs:          cron.NewAttendanceJobs(tenantRepo, attendanceSvc, notifSvc),
	}, nil
}

// NewSender returns the delivery adapter selected by DELIVERY_DRIVER.
func NewSender(cfg *config.Config) (notification.Sender, error) {
	switch cfg.Delivery.Driver {
	case "log":
		return email.NewLogSender(), nil
	case "smtp":
		return email.NewSMTPSender(cfg.SMTP), nil
	case "sendgrid":
		return sendgrid.NewSender(cfg.SendGrid), nil
	default:
		return nil, fmt.Errorf("unsupported delivery driver %q", cfg.Delivery.Driver)
	}
}

// Close stops the dispatch workers, flushes the reporter and releases the
// database pool.
func (a *App) Close() {
	if a.Notifications != nil {
		a.Notifications.Stop()
	}
	if a.Reporter != nil {
		a.Reporter.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	slog.Info("Application resources released")
}
