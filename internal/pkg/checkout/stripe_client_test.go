package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetSessionExpandsLineItems(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{
			"id": "cs_test_9",
			"payment_status": "paid",
			"customer_details": {"email": "fan@example.com", "name": "A Fan"},
			"line_items": {"data": [{"id": "li_1", "description": "LIT EP", "quantity": 1}]}
		}`))
	}))
	defer srv.Close()

	client := NewStripeClient(http.DefaultClient, "sk_test", srv.URL)
	session, err := client.GetSession(context.Background(), "cs_test_9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, "expand") {
		t.Fatalf("expected expand query param, got %q", gotQuery)
	}
	if session.PaymentStatus != "paid" || session.CustomerDetails.Email != "fan@example.com" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.LineItems == nil || len(session.LineItems.Data) != 1 {
		t.Fatalf("expected one expanded line item")
	}
}

func TestGetSessionRequiresID(t *testing.T) {
	client := NewStripeClient(http.DefaultClient, "sk_test", "http://stripe.invalid")
	if _, err := client.GetSession(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank session id")
	}
}

func TestAPIErrorMessagePassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "No such product: prod_nope"}}`))
	}))
	defer srv.Close()

	client := NewStripeClient(http.DefaultClient, "sk_test", srv.URL)
	_, err := client.GetSession(context.Background(), "cs_missing")
	if err == nil || !strings.Contains(err.Error(), "No such product") {
		t.Fatalf("expected stripe message to surface, got %v", err)
	}
}

func TestListLineItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/line_items") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"data": [
			{"id": "li_1", "description": "LIT EP", "quantity": 1, "price": {"product": "prod_lit", "unit_amount": 1500}},
			{"id": "li_2", "description": "The Source", "quantity": 1, "price": {"product": "prod_source", "unit_amount": 900}}
		]}`))
	}))
	defer srv.Close()

	client := NewStripeClient(http.DefaultClient, "sk_test", srv.URL)
	items, err := client.ListLineItems(context.Background(), "cs_test_9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Price.Product != "prod_lit" || items[1].Price.UnitAmount != 900 {
		t.Fatalf("unexpected items: %+v", items)
	}
}
