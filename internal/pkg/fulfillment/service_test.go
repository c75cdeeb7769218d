package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/thamyind/litstore/app/models"
	"github.com/thamyind/litstore/internal/pkg/checkout"
	"github.com/thamyind/litstore/internal/pkg/identity"
)

// fakeRepo is an in-memory Repository with scriptable failures.
type fakeRepo struct {
	products map[string]models.Product // keyed by stripe product id

	grants       map[string][]string // user id -> product ids
	orders       map[string]*models.PhysicalOrder
	profiles     map[string]string
	events       map[string]*models.WebhookEvent
	marked       []string
	grantErr     error
	nextEventID  uint
	existingDone bool // pre-store the event as successfully processed
	existingErr  string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products: map[string]models.Product{},
		grants:   map[string][]string{},
		orders:   map[string]*models.PhysicalOrder{},
		profiles: map[string]string{},
		events:   map[string]*models.WebhookEvent{},
	}
}

func (f *fakeRepo) FindProductsByStripeIDs(ids []string) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) GrantAccess(userID string, productIDs []string) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	f.grants[userID] = append(f.grants[userID], productIDs...)
	return nil
}

func (f *fakeRepo) CreateOrder(userID string, draft *PhysicalOrderDraft) (*models.PhysicalOrder, bool, error) {
	if existing, ok := f.orders[draft.StripePaymentID]; ok {
		return existing, false, nil
	}
	order := &models.PhysicalOrder{
		ID:              "order_" + draft.StripePaymentID,
		UserID:          userID,
		StripePaymentID: draft.StripePaymentID,
		TotalAmount:     draft.TotalAmount,
		ShipName:        draft.ShipName,
		ShipLine1:       draft.ShipLine1,
		ShipCity:        draft.ShipCity,
		ShipCountry:     draft.ShipCountry,
	}
	for _, item := range draft.Items {
		order.OrderItems = append(order.OrderItems, models.OrderItem{
			ProductRef:  item.ProductRef,
			ProductName: item.ProductName,
			Variant:     item.Variant,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	f.orders[draft.StripePaymentID] = order
	return order, true, nil
}

func (f *fakeRepo) UpsertProfile(id, email, fullName string) error {
	f.profiles[id] = email
	return nil
}

func (f *fakeRepo) HasAccess(ctx context.Context, userID, productID string) (bool, error) {
	for _, id := range f.grants[userID] {
		if id == productID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListPurchases(userID string) ([]models.Product, error) { return nil, nil }

func (f *fakeRepo) ListOrders(userID string) ([]models.PhysicalOrder, error) { return nil, nil }

func (f *fakeRepo) CreateTrackPlay(play *models.TrackPlay) error { return nil }

func (f *fakeRepo) AdminStats() (*AdminStats, error) { return &AdminStats{}, nil }

func (f *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if stored, ok := f.events[event.ProviderEventID]; ok {
		return false, stored, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	if f.existingDone || f.existingErr != "" {
		now := time.Now()
		event.ProcessedAt = &now
		event.ProcessingError = f.existingErr
		f.events[event.ProviderEventID] = event
		return false, event, nil
	}
	f.events[event.ProviderEventID] = event
	return true, event, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	f.marked = append(f.marked, processingError)
	return nil
}

type fakeIdentity struct {
	user *identity.User
	err  error
}

func (f *fakeIdentity) ResolveOrCreate(ctx context.Context, email, displayName string) (*identity.User, error) {
	return f.user, f.err
}

type fakeLister struct {
	items []checkout.LineItem
	err   error
	calls int
}

func (f *fakeLister) ListLineItems(ctx context.Context, sessionID string) ([]checkout.LineItem, error) {
	f.calls++
	return f.items, f.err
}

func testUser() *identity.User {
	return &identity.User{ID: "user_1", FirstName: "A", LastName: "Fan"}
}

func completedEvent(t *testing.T, session map[string]any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_1",
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}
}

func digitalSession() map[string]any {
	return map[string]any{
		"id":             "cs_1",
		"payment_status": "paid",
		"customer_details": map[string]any{
			"email": "fan@example.com",
			"name":  "A Fan",
		},
		"line_items": map[string]any{
			"data": []map[string]any{
				{"id": "li_1", "description": "LIT EP", "quantity": 1, "price": map[string]any{"product": "prod_lit"}},
			},
		},
	}
}

func TestProcessEventIgnoresOtherTypes(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeLister{}, &fakeIdentity{user: testUser()})

	event := &stripe.Event{ID: "evt_x", Type: "invoice.paid", Data: &stripe.EventData{Raw: []byte(`{}`)}}
	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.events) != 0 {
		t.Fatalf("ignored event types must not be recorded")
	}
}

func TestProcessEventGrantsDigitalAccess(t *testing.T) {
	repo := newFakeRepo()
	repo.products["prod_lit"] = models.Product{ID: "lit-internal", Name: "LIT EP", StripeProductID: "prod_lit"}
	svc := NewService(repo, &fakeLister{}, &fakeIdentity{user: testUser()})

	if err := svc.ProcessEvent(context.Background(), completedEvent(t, digitalSession())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := repo.grants["user_1"]; len(got) != 1 || got[0] != "lit-internal" {
		t.Fatalf("unexpected grants: %v", got)
	}
	if repo.profiles["user_1"] != "fan@example.com" {
		t.Fatalf("profile not upserted: %v", repo.profiles)
	}
	if len(repo.marked) != 1 || repo.marked[0] != "" {
		t.Fatalf("event not marked processed cleanly: %v", repo.marked)
	}
}

func TestProcessEventGrantsUpsellBundle(t *testing.T) {
	repo := newFakeRepo()
	repo.products["prod_lit"] = models.Product{ID: "lit-internal", Name: "LIT EP", StripeProductID: "prod_lit"}
	repo.products["prod_source"] = models.Product{ID: "source-internal", Name: "The Source", StripeProductID: "prod_source"}
	svc := NewService(repo, &fakeLister{}, &fakeIdentity{user: testUser()})

	session := digitalSession()
	session["line_items"] = map[string]any{
		"data": []map[string]any{
			{"id": "li_1", "description": "LIT EP", "quantity": 1, "price": map[string]any{"product": "prod_lit"}},
			{"id": "li_2", "description": "The Source", "quantity": 1, "price": map[string]any{"product": "prod_source"}},
		},
	}

	if err := svc.ProcessEvent(context.Background(), completedEvent(t, session)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.grants["user_1"]; len(got) != 2 {
		t.Fatalf("expected grants for both products, got %v", got)
	}
}

func TestProcessEventSkipsTrueDuplicate(t *testing.T) {
	repo := newFakeRepo()
	repo.products["prod_lit"] = models.Product{ID: "lit-internal", StripeProductID: "prod_lit"}
	repo.existingDone = true
	svc := NewService(repo, &fakeLister{}, &fakeIdentity{user: testUser()})

	if err := svc.ProcessEvent(context.Background(), completedEvent(t, digitalSession())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.grants) != 0 {
		t.Fatalf("duplicate delivery must not re-run fulfillment")
	}
}

func TestProcessEventRetriesAfterFailedRun(t *testing.T) {
	repo := newFakeRepo()
	repo.products["prod_lit"] = models.Product{ID: "lit-internal", StripeProductID: "prod_lit"}
	repo.existingErr = "grant access: db down"
	svc := NewService(repo, &fakeLister{}, &fakeIdentity{user: testUser()})

	if err := svc.ProcessEvent(context.Background(), completedEvent(t, digitalSession())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.grants["user_1"]; len(got) != 1 {
		t.Fatalf("redelivery after failed run must fulfill, grants: %v", repo.grants)
	}
}

func TestProcessEventSkipsUnpaidSession(t *testing.T) {
	repo := newFakeRepo()
	session := digitalSession()
	session["payment_status"] = "unpaid"
	svc := NewService(repo, &fakeLister{}, &fakeIdentity{user: testUser()})

	if err := svc.ProcessEvent(context.Background(), completedEvent(t, session)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.grants) != 0 {
		t.Fatalf("unpaid session must not grant access")
	}
}

func TestProcessEventIdentityFailureIsRetryable(t *testing.T) {
	repo := newFakeRepo()
	repo.products["prod_lit"] = models.Product{ID: "lit-internal", StripeProductID: "prod_lit"}
	svc := NewService(repo, &fakeLister{}, &fakeIdentity{err: errors.New("clerk down")})

	err := svc.ProcessEvent(context.Background(), completedEvent(t, digitalSession()))
	if err == nil {
		t.Fatalf("expected error so the provider redelivers")
	}
	if len(repo.marked) != 1 || repo.marked[0] == "" {
		t.Fatalf("failure must be recorded on the event row: %v", repo.marked)
	}
}

func TestProcessEventGrantFailureFailsWebhook(t *testing.T) {
	repo := newFakeRepo()
	repo.products["prod_lit"] = models.Product{ID: "lit-internal", StripeProductID: "prod_lit"}
	repo.grantErr = errors.New("db down")
	svc := NewService(repo, &fakeLister{}, &fakeIdentity{user: testUser()})

	if err := svc.ProcessEvent(context.Background(), completedEvent(t, digitalSession())); err == nil {
		t.Fatalf("grant failure must fail the webhook")
	}
}

func TestProcessEventPhysicalCreatesOrder(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeLister{}, &fakeIdentity{user: testUser()})

	session := map[string]any{
		"id":             "cs_2",
		"payment_status": "paid",
		"payment_intent": "pi_123",
		"amount_total":   3099,
		"metadata":       map[string]string{"order_type": "physical"},
		"customer_details": map[string]any{
			"email": "fan@example.com",
			"name":  "A Fan",
		},
		"shipping_details": map[string]any{
			"name": "A Fan",
			"address": map[string]any{
				"line1":       "1 Main St",
				"city":        "Nashville",
				"state":       "TN",
				"postal_code": "37201",
				"country":     "US",
			},
		},
		"line_items": map[string]any{
			"data": []map[string]any{
				{
					"id":          "li_1",
					"description": "LIT Tee",
					"quantity":    2,
					"price": map[string]any{
						"unit_amount": 1250,
						"metadata":    map[string]string{"product_id": "shirt-1", "variant": "L"},
					},
				},
			},
		},
	}

	if err := svc.ProcessEvent(context.Background(), completedEvent(t, session)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := repo.orders["pi_123"]
	if order == nil {
		t.Fatalf("order not created, orders: %v", repo.orders)
	}
	if order.TotalAmount != 3099 || order.ShipCity != "Nashville" || order.ShipCountry != "US" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if len(order.OrderItems) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.OrderItems))
	}
	item := order.OrderItems[0]
	if item.ProductRef != "shirt-1" || item.Variant != "L" || item.Quantity != 2 || item.UnitPrice != 1250 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if len(repo.grants) != 0 {
		t.Fatalf("physical orders must not create access grants")
	}
}

func TestProcessEventPhysicalDuplicateIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	repo.orders["pi_123"] = &models.PhysicalOrder{ID: "order_existing", StripePaymentID: "pi_123"}
	svc := NewService(repo, &fakeLister{}, &fakeIdentity{user: testUser()})

	session := map[string]any{
		"id":               "cs_2",
		"payment_status":   "paid",
		"payment_intent":   "pi_123",
		"metadata":         map[string]string{"order_type": "physical"},
		"customer_details": map[string]any{"email": "fan@example.com"},
		"line_items": map[string]any{
			"data": []map[string]any{{"id": "li_1", "description": "LIT Tee", "quantity": 1}},
		},
	}

	if err := svc.ProcessEvent(context.Background(), completedEvent(t, session)); err != nil {
		t.Fatalf("duplicate order delivery must succeed, got %v", err)
	}
	if repo.orders["pi_123"].ID != "order_existing" {
		t.Fatalf("existing order must be kept")
	}
}
