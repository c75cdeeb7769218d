package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/thamyind/litstore/internal/pkg/env"
	"github.com/thamyind/litstore/internal/pkg/fulfillment"
)

// AdminController serves the operator stats dashboard. Authentication is a
// single shared key checked against a bcrypt hash from the environment; there
// is exactly one operator.
type AdminController struct {
	repo fulfillment.Repository
}

func NewAdminController(repo fulfillment.Repository) *AdminController {
	return &AdminController{repo: repo}
}

// HandleGetStats returns recent plays, known users and all purchases.
func (ac *AdminController) HandleGetStats(c *fiber.Ctx) error {
	hash := env.GetEnv("ADMIN_KEY_HASH", "")
	if hash == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin access not configured"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(c.Get("X-Admin-Key"))); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	stats, err := ac.repo.AdminStats()
	if err != nil {
		fiberlog.Errorf("[Admin] loading stats failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load stats"})
	}
	return c.JSON(stats)
}
