package controllers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/thamyind/litstore/internal/pkg/cache"
	"github.com/thamyind/litstore/internal/pkg/checkout"
	"github.com/thamyind/litstore/internal/pkg/delivery"
	"github.com/thamyind/litstore/internal/pkg/env"
)

// verifiedSessionTTL caches successful session lookups so success-page
// refreshes do not hammer the Stripe API.
const verifiedSessionTTL = 30 * time.Minute

// DeliveryController serves signed content URLs and post-checkout session
// verification.
type DeliveryController struct {
	service *delivery.Service
	stripe  *checkout.StripeClient
}

func NewDeliveryController(service *delivery.Service, stripe *checkout.StripeClient) *DeliveryController {
	return &DeliveryController{service: service, stripe: stripe}
}

type downloadRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
}

// HandleGetDownloadURL issues a short-lived download link after re-checking
// the caller's grant.
func (dc *DeliveryController) HandleGetDownloadURL(c *fiber.Ctx) error {
	var req downloadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.UserID == "" || req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId and productId are required"})
	}

	signedURL, err := dc.service.GetDownloadURL(c.UserContext(), req.UserID, req.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, delivery.ErrAccessDenied):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
		case errors.Is(err, delivery.ErrNotAvailable):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		default:
			fiberlog.Errorf("[Delivery] download link for user %s failed: %v", req.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate download link"})
		}
	}
	return c.JSON(fiber.Map{"downloadUrl": signedURL})
}

// HandleGetStreamURLs returns the signed streaming playlist for the EP.
func (dc *DeliveryController) HandleGetStreamURLs(c *fiber.Ctx) error {
	userID := c.Get("x-user-id")
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	tracks, err := dc.service.GetStreamURLs(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, delivery.ErrAccessDenied) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
		}
		fiberlog.Errorf("[Delivery] stream playlist for user %s failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate stream links"})
	}
	return c.JSON(fiber.Map{"tracks": tracks})
}

type verifiedSession struct {
	Customer      string             `json:"customer"`
	CustomerEmail string             `json:"customer_email"`
	Downloads     []verifiedDownload `json:"downloads"`
}

type verifiedDownload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// HandleVerifySession backs the checkout success page: it confirms the
// session is paid and returns the static download links the page renders.
// The session id acts as a capability here; it is only ever handed to the
// purchaser by the payment provider's redirect.
func (dc *DeliveryController) HandleVerifySession(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_id is required"})
	}

	cacheKey := "verified_session:" + sessionID
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		var result verifiedSession
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return c.JSON(result)
		}
	}

	session, err := dc.stripe.GetSession(c.UserContext(), sessionID)
	if err != nil || session.PaymentStatus != "paid" {
		if err != nil {
			fiberlog.Warnf("[Delivery] session lookup %s failed: %v", sessionID, err)
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Session not paid or not found"})
	}

	result := verifiedSession{
		Customer:      session.CustomerDetails.Name,
		CustomerEmail: session.CustomerEmail,
		Downloads:     downloadsForSession(session),
	}
	if result.CustomerEmail == "" {
		result.CustomerEmail = session.CustomerDetails.Email
	}

	if payload, err := json.Marshal(result); err == nil {
		if err := cache.Set(cacheKey, string(payload), verifiedSessionTTL); err != nil {
			fiberlog.Warnf("[Delivery] failed to cache verified session %s: %v", sessionID, err)
		}
	}
	return c.JSON(result)
}

// downloadsForSession maps purchased line items to the static delivery links
// configured for the release.
func downloadsForSession(session *checkout.Session) []verifiedDownload {
	downloads := []verifiedDownload{}
	if session.LineItems == nil {
		return downloads
	}
	for _, item := range session.LineItems.Data {
		desc := strings.ToUpper(item.Description)
		switch {
		case strings.Contains(desc, "THE SOURCE"):
			if u := env.GetEnv("SOURCE_PRESALE_URL", ""); u != "" {
				downloads = append(downloads, verifiedDownload{Name: "THE SOURCE (Presale EP)", URL: u, Type: "upsell"})
			}
		case strings.Contains(desc, "LIT"):
			if u := env.GetEnv("LIT_DOWNLOAD_URL", ""); u != "" {
				downloads = append(downloads, verifiedDownload{Name: "LIT (Digital EP)", URL: u, Type: "standard"})
			}
		}
	}
	return downloads
}
