package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func newLeadTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/api/leads", NewLeadController().HandleCaptureLead)
	return app
}

func TestHandleCaptureLeadRejectsBadEmail(t *testing.T) {
	app := newLeadTestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{"email": "nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleCaptureLeadWithoutCRMConfig(t *testing.T) {
	app := newLeadTestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/leads",
		strings.NewReader(`{"email": "fan@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestHandleCaptureLead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts/upsert", r.URL.Path)
		w.Write([]byte(`{"contact": {"id": "contact_1"}}`))
	}))
	defer srv.Close()

	t.Setenv("GHL_API_KEY", "ghl_key")
	t.Setenv("GHL_LOCATION_ID", "loc_1")
	t.Setenv("GHL_API_BASE", srv.URL)

	app := newLeadTestApp()
	req := httptest.NewRequest(http.MethodPost, "/api/leads",
		strings.NewReader(`{"email": "Fan@Example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 5000)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
