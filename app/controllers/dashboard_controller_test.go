package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/thamyind/litstore/app/models"
	"github.com/thamyind/litstore/internal/pkg/fulfillment"
)

// stubRepo is a canned fulfillment.Repository shared by the controller tests.
type stubRepo struct {
	purchases []models.Product
	orders    []models.PhysicalOrder
	plays     []models.TrackPlay
	grants    map[string]bool
	stats     *fulfillment.AdminStats
}

func (s *stubRepo) FindProductsByStripeIDs(ids []string) ([]models.Product, error) { return nil, nil }
func (s *stubRepo) GrantAccess(userID string, productIDs []string) error           { return nil }
func (s *stubRepo) CreateOrder(userID string, draft *fulfillment.PhysicalOrderDraft) (*models.PhysicalOrder, bool, error) {
	return nil, false, nil
}
func (s *stubRepo) UpsertProfile(id, email, fullName string) error { return nil }
func (s *stubRepo) HasAccess(ctx context.Context, userID, productID string) (bool, error) {
	return s.grants[userID+"/"+productID], nil
}
func (s *stubRepo) ListPurchases(userID string) ([]models.Product, error)    { return s.purchases, nil }
func (s *stubRepo) ListOrders(userID string) ([]models.PhysicalOrder, error) { return s.orders, nil }
func (s *stubRepo) CreateTrackPlay(play *models.TrackPlay) error {
	s.plays = append(s.plays, *play)
	return nil
}
func (s *stubRepo) AdminStats() (*fulfillment.AdminStats, error) { return s.stats, nil }
func (s *stubRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	return true, event, nil
}
func (s *stubRepo) MarkWebhookProcessed(id uint, processingError string) error { return nil }

func newDashboardTestApp(repo *stubRepo) *fiber.App {
	dc := NewDashboardController(repo)
	app := fiber.New()
	app.Get("/api/me/purchases", dc.HandleListPurchases)
	app.Get("/api/me/orders", dc.HandleListOrders)
	app.Post("/api/plays", dc.HandleTrackPlay)
	return app
}

func TestHandleListPurchasesRequiresUser(t *testing.T) {
	app := newDashboardTestApp(&stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/me/purchases", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHandleListPurchases(t *testing.T) {
	repo := &stubRepo{purchases: []models.Product{{ID: "lit-internal", Name: "LIT EP"}}}
	app := newDashboardTestApp(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/me/purchases", nil)
	req.Header.Set("x-user-id", "user_1")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Purchases []models.Product `json:"purchases"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Purchases, 1)
	assert.Equal(t, "LIT EP", body.Purchases[0].Name)
}

func TestHandleListOrders(t *testing.T) {
	repo := &stubRepo{orders: []models.PhysicalOrder{{ID: "order_1", OrderStatus: models.OrderStatusShipped}}}
	app := newDashboardTestApp(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/me/orders", nil)
	req.Header.Set("x-user-id", "user_1")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHandleTrackPlay(t *testing.T) {
	repo := &stubRepo{}
	app := newDashboardTestApp(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/plays",
		strings.NewReader(`{"userId": "user_1", "productId": "lit-internal", "trackName": "4. Tired.mp3"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Len(t, repo.plays, 1)
	assert.Equal(t, "4. Tired.mp3", repo.plays[0].TrackName)
	if assert.NotNil(t, repo.plays[0].UserID) {
		assert.Equal(t, "user_1", *repo.plays[0].UserID)
	}
}

func TestHandleTrackPlayAnonymous(t *testing.T) {
	repo := &stubRepo{}
	app := newDashboardTestApp(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/plays",
		strings.NewReader(`{"trackName": "6. Faith.mp3"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Nil(t, repo.plays[0].UserID)
}

func TestHandleTrackPlayRequiresTrackName(t *testing.T) {
	app := newDashboardTestApp(&stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/plays", strings.NewReader(`{"userId": "user_1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
