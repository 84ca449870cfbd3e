// Package server exposes the user directory to the admin dashboard over HTTP
// and a WebSocket stream.
package server

import (
	"context"
	"net"
	"time"

	"github.com/Prototype-1/UserDirectory/internal/model"
	"github.com/Prototype-1/UserDirectory/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Directory is the part of the directory service the HTTP layer uses.
type Directory interface {
	Snapshot() service.Snapshot
	Filter(f service.UserFilter) service.Snapshot
	Overview() service.Overview
	Reload() error
	Verify(ctx context.Context, id string, userType model.UserType) error
	Suspend(ctx context.Context, id string, userType model.UserType) error
	Delete(ctx context.Context, id string, userType model.UserType) error
	Watch() (<-chan struct{}, func())
}

type Server struct {
	app       *fiber.App
	directory Directory
	logger    *zap.Logger
}

func New(directory Directory, logger *zap.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "user-directory",
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
			WriteTimeout:          10 * time.Second,
		}),
		directory: directory,
		logger:    logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.accessLog)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	admin := s.app.Group("/api/admin")
	admin.Get("/overview", s.GetOverview)
	admin.Get("/users", s.ListUsers)
	admin.Post("/users/reload", s.ReloadUsers)
	admin.Post("/users/:type/:id/verify", s.VerifyUser)
	admin.Post("/users/:type/:id/suspend", s.SuspendUser)
	admin.Delete("/users/:type/:id", s.DeleteUser)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/admin/users", websocket.New(s.StreamUsers))
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Serve runs the app on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	rid, _ := c.Locals("requestid").(string)
	s.logger.Info("request",
		zap.String("request_id", rid),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}
