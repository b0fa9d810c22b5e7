package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"mythmanga/internal/config"
	"mythmanga/internal/logger"

	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Options are the optional parts of the server.
type Options struct {
	// Metrics is served at GET /metrics when set.
	Metrics http.Handler
	// Checks are run by GET /health, keyed by dependency name.
	Checks map[string]HealthCheck
}

// Server holds the Fiber application and configuration.
type Server struct {
	// App is the main Fiber application instance.
	App *fiber.App
	cfg *config.AppConfig
}

// New creates a Server with request ids, access logs, panic recovery, the
// health endpoint and, optionally, metrics.
func New(cfg *config.AppConfig, opts Options) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "mythmanga",
		ErrorHandler:          errorHandler,
	})

	app.Use(requestid.New())
	app.Use(fiberzap.New(fiberzap.Config{
		Logger: logger.Get(),
	}))
	app.Use(recover.New())

	app.Get("/health", healthHandler(opts.Checks))
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics))
	}

	return &Server{
		App: app,
		cfg: cfg,
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.ServerPort)
	logger.Get().Info("Starting server", zap.String("address", addr))
	return s.App.Listen(addr)
}

func healthHandler(checks map[string]HealthCheck) fiber.Handler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		results := make(fiber.Map, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logger.Get().Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
				results[name] = err.Error()
				status = fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != fiber.StatusOK {
			state = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status": state,
			"time":   time.Now().UTC().Format(time.RFC3339),
			"checks": results,
		})
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		logger.Get().Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{
		"message": statusMessage(code, err),
	})
}

func statusMessage(code int, err error) string {
	if code >= fiber.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}
