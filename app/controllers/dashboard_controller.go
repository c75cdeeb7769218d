package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/thamyind/litstore/app/models"
	"github.com/thamyind/litstore/internal/pkg/fulfillment"
)

// DashboardController serves the authenticated fan dashboard: purchased
// products, merch orders and play tracking.
type DashboardController struct {
	repo fulfillment.Repository
}

func NewDashboardController(repo fulfillment.Repository) *DashboardController {
	return &DashboardController{repo: repo}
}

// HandleListPurchases returns the products the caller holds access grants for.
func (dc *DashboardController) HandleListPurchases(c *fiber.Ctx) error {
	userID := c.Get("x-user-id")
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	products, err := dc.repo.ListPurchases(userID)
	if err != nil {
		fiberlog.Errorf("[Dashboard] listing purchases for %s failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load purchases"})
	}
	return c.JSON(fiber.Map{"purchases": products})
}

// HandleListOrders returns the caller's merch orders with their items.
func (dc *DashboardController) HandleListOrders(c *fiber.Ctx) error {
	userID := c.Get("x-user-id")
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	orders, err := dc.repo.ListOrders(userID)
	if err != nil {
		fiberlog.Errorf("[Dashboard] listing orders for %s failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load orders"})
	}
	return c.JSON(fiber.Map{"orders": orders})
}

type trackPlayRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	TrackName string `json:"trackName"`
}

// HandleTrackPlay records one play of a track. Anonymous plays are allowed;
// the user id is optional.
func (dc *DashboardController) HandleTrackPlay(c *fiber.Ctx) error {
	var req trackPlayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.TrackName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "trackName is required"})
	}

	play := &models.TrackPlay{
		ProductID: req.ProductID,
		TrackName: req.TrackName,
	}
	if req.UserID != "" {
		play.UserID = &req.UserID
	}
	if err := dc.repo.CreateTrackPlay(play); err != nil {
		fiberlog.Errorf("[Dashboard] recording play of %q failed: %v", req.TrackName, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record play"})
	}
	return c.JSON(fiber.Map{"recorded": true})
}
