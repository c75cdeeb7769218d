package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// stripeAPIBase is the default Stripe API base URL. Overridable in tests.
const stripeAPIBase = "https://api.stripe.com"

// StripeClient talks to the Stripe REST API with form-encoded requests. It is
// explicitly constructed and injected so tests can point it at a fake server
// instead of mutating process-wide SDK state.
type StripeClient struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
}

// NewStripeClient creates a Stripe API client. An empty baseURL selects the
// production endpoint.
func NewStripeClient(httpClient *http.Client, secretKey, baseURL string) *StripeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = stripeAPIBase
	}
	return &StripeClient{
		httpClient: httpClient,
		secretKey:  secretKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Session is the subset of a Stripe Checkout Session this service reads.
type Session struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	Mode            string            `json:"mode"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntent   string            `json:"payment_intent"`
	AmountTotal     int64             `json:"amount_total"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerDetails CustomerDetails   `json:"customer_details"`
	Metadata        map[string]string `json:"metadata"`
	ShippingDetails *ShippingDetails  `json:"shipping_details"`
	LineItems       *LineItemList     `json:"line_items"`
}

type CustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type ShippingDetails struct {
	Name    string          `json:"name"`
	Address ShippingAddress `json:"address"`
}

type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type LineItemList struct {
	Data []LineItem `json:"data"`
}

// LineItem is one purchased line of a checkout session. Price.Product is the
// external checkout product id used for catalog resolution.
type LineItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	AmountTotal int64  `json:"amount_total"`
	Price       struct {
		ID         string            `json:"id"`
		Product    string            `json:"product"`
		UnitAmount int64             `json:"unit_amount"`
		Metadata   map[string]string `json:"metadata"`
	} `json:"price"`
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateSession creates a hosted checkout session from pre-built form params.
func (s *StripeClient) CreateSession(ctx context.Context, params url.Values) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/checkout/sessions", strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.doSession(req)
}

// GetSession retrieves a checkout session with its line items expanded.
func (s *StripeClient) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrValidation)
	}
	endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s?%s",
		s.baseURL, url.PathEscape(sessionID), url.Values{"expand[]": {"line_items"}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return s.doSession(req)
}

// ListLineItems fetches the full line-item list of a checkout session.
func (s *StripeClient) ListLineItems(ctx context.Context, sessionID string) ([]LineItem, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrValidation)
	}
	endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s/line_items?limit=100",
		s.baseURL, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.apiError(resp)
	}

	var list LineItemList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode stripe line items: %w", err)
	}
	return list.Data, nil
}

func (s *StripeClient) doSession(req *http.Request) (*Session, error) {
	req.Header.Set("Authorization", "Bearer "+s.secretKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.apiError(resp)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode stripe session: %w", err)
	}
	return &session, nil
}

// apiError surfaces Stripe's own error message. Checkout failures happen
// pre-payment, so passing the message through to the caller is acceptable.
func (s *StripeClient) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var stripeErr stripeErrorResponse
	if err := json.Unmarshal(body, &stripeErr); err == nil && stripeErr.Error.Message != "" {
		return fmt.Errorf("stripe: %s", stripeErr.Error.Message)
	}
	return fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
}
