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

	"github.com/cmlabs-hris/school-attendance-go/internal/app"
	"github.com/cmlabs-hris/school-attendance-go/internal/config"
	appHTTP "github.com/cmlabs-hris/school-attendance-go/internal/handler/http"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/cron"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.Level(),
	})).With(
		slog.String("app", "school-attendance"),
		slog.String("env", cfg.App.Env),
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.DB.Migrate(ctx); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}

	response.SetReporter(application.Reporter)

	scheduler := cron.NewScheduler()
	if err := application.Jobs.RegisterJobs(scheduler, cfg.Absence.SweepCron, cfg.Dispatch.RelayCron); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	attendanceHandler := appHTTP.NewAttendanceHandler(application.Attendance)
	studentHandler := appHTTP.NewStudentHandler(application.Students)
	notificationHandler := appHTTP.NewNotificationHandler(application.Notifications, application.JWT, application.Hub)

	router := appHTTP.NewRouter(
		cfg.App,
		application.JWT,
		attendanceHandler,
		studentHandler,
		notificationHandler,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SSE streams never go idle on their own.
	server.RegisterOnShutdown(application.Hub.Close)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return nil
}
