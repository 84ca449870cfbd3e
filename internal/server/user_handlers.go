package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/Prototype-1/UserDirectory/internal/model"
	"github.com/Prototype-1/UserDirectory/internal/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func respondWithError(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// GetOverview returns the dashboard headline counts.
func (s *Server) GetOverview(c *fiber.Ctx) error {
	return c.JSON(s.directory.Overview())
}

// ListUsers returns the directory, optionally narrowed by type, status and a
// free-text query.
func (s *Server) ListUsers(c *fiber.Ctx) error {
	var filter service.UserFilter

	if raw := c.Query("type"); raw != "" {
		ut, err := model.ParseUserType(raw)
		if err != nil {
			return respondWithError(c, fiber.StatusBadRequest, err)
		}
		filter.Type = ut
	}
	if raw := c.Query("status"); raw != "" {
		status := model.Status(raw)
		if !status.Valid() {
			return respondWithError(c, fiber.StatusBadRequest, fmt.Errorf("unknown status %q", raw))
		}
		filter.Status = status
	}
	filter.Query = c.Query("q")

	return c.JSON(s.directory.Filter(filter))
}

// ReloadUsers clears the error and re-fetches both collections.
func (s *Server) ReloadUsers(c *fiber.Ctx) error {
	if err := s.directory.Reload(); err != nil {
		return s.mutationError(c, err)
	}
	return c.JSON(s.directory.Snapshot())
}

func (s *Server) VerifyUser(c *fiber.Ctx) error {
	return s.mutate(c, s.directory.Verify)
}

func (s *Server) SuspendUser(c *fiber.Ctx) error {
	return s.mutate(c, s.directory.Suspend)
}

func (s *Server) DeleteUser(c *fiber.Ctx) error {
	return s.mutate(c, s.directory.Delete)
}

type mutation func(ctx context.Context, id string, userType model.UserType) error

func (s *Server) mutate(c *fiber.Ctx, op mutation) error {
	userType, err := model.ParseUserType(c.Params("type"))
	if err != nil {
		return respondWithError(c, fiber.StatusBadRequest, err)
	}
	id := c.Params("id")

	if err := op(c.UserContext(), id, userType); err != nil {
		return s.mutationError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) mutationError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrClosed) {
		return respondWithError(c, fiber.StatusServiceUnavailable, err)
	}
	s.logger.Warn("Directory operation failed",
		zap.Error(err),
		zap.String("path", c.Path()),
	)
	return respondWithError(c, fiber.StatusBadGateway, err)
}
