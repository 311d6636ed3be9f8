package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fast-pay/fastpay/internal/audit"
	"github.com/fast-pay/fastpay/internal/config"
	"github.com/fast-pay/fastpay/internal/notification"
	"github.com/fast-pay/fastpay/internal/routes"
)

// Server wraps the Fiber application and the background workers it owns.
type Server struct {
	app        *fiber.App
	cfg        config.Config
	dispatcher *notification.Dispatcher
	scheduler  *audit.Scheduler
	logger     *slog.Logger
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, notifier notification.Notifier, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler,
	})

	dispatcher := notification.NewDispatcher(notifier, logger, cfg.NotificationWorkers, cfg.NotificationQueueSize)
	rt, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger, Dispatcher: dispatcher})
	if err != nil {
		_ = dispatcher.Close(context.Background())
		return nil, err
	}

	scheduler := audit.NewScheduler(rt.Auditor, logger)
	if cfg.AuditSchedule != "" {
		if err := scheduler.Start(cfg.AuditSchedule); err != nil {
			_ = dispatcher.Close(context.Background())
			return nil, err
		}
	}

	return &Server{app: app, cfg: cfg, dispatcher: dispatcher, scheduler: scheduler, logger: logger}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests, then drains queued notifications and waits for a running
// audit.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if derr := s.dispatcher.Close(ctx); derr != nil {
		s.logger.Warn("notification queue not drained", slog.Any("error", derr))
		err = errors.Join(err, derr)
	}
	select {
	case <-s.scheduler.Stop().Done():
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		message = "internal server error"
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}
