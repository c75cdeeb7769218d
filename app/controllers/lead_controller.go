package controllers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/thamyind/litstore/internal/pkg/crm"
	"github.com/thamyind/litstore/internal/pkg/env"
	"github.com/thamyind/litstore/internal/pkg/hcaptcha"
)

// LeadController captures release-page email signups into the CRM.
type LeadController struct {
	validate *validator.Validate
}

func NewLeadController() *LeadController {
	return &LeadController{validate: validator.New()}
}

type leadRequest struct {
	Email        string `json:"email"`
	CaptchaToken string `json:"captchaToken"`
}

// HandleCaptureLead tags an email address as a release-page lead. Unlike the
// purchase-side tag sync, CRM failure here is surfaced: the signup form is
// the only thing this endpoint does, so a silent drop would lose the lead.
func (lc *LeadController) HandleCaptureLead(c *fiber.Ctx) error {
	var req leadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := lc.validate.Var(email, "required,email"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "a valid email is required"})
	}

	// Captcha is enforced only when a secret is configured, so local setups
	// work without an hCaptcha account.
	if env.GetEnv("HCAPTCHA_SECRET", "") != "" {
		if ok, err := hcaptcha.Verify(req.CaptchaToken); !ok {
			fiberlog.Warnf("[Lead] captcha rejected for %s: %v", email, err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "captcha verification failed"})
		}
	}

	client, err := crm.NewClientFromEnv()
	if err != nil {
		fiberlog.Errorf("[Lead] cannot capture lead: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "GHL not configured"})
	}
	if err := client.UpsertContact(c.UserContext(), email, []string{"LIT-Lead"}, "LIT Release Page"); err != nil {
		fiberlog.Errorf("[Lead] upsert failed for %s: %v", email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save lead"})
	}
	return c.JSON(fiber.Map{"success": true})
}
