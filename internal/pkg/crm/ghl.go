package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/thamyind/litstore/internal/pkg/env"
)

// ghlAPIBase is the LeadConnector (GoHighLevel v2) API base URL.
const ghlAPIBase = "https://services.leadconnectorhq.com"

// ghlAPIVersion is the dated Version header the v2 API requires.
const ghlAPIVersion = "2021-07-28"

// ErrNotConfigured means the GHL API key or location id is absent.
var ErrNotConfigured = errors.New("crm not configured")

// Client tags contacts in GoHighLevel. Everything here is best-effort: the
// webhook handler logs failures and still returns success, because a non-2xx
// webhook response makes Stripe re-deliver the whole event.
type Client struct {
	httpClient *http.Client
	apiKey     string
	locationID string
	baseURL    string
}

// NewClient creates a GHL client. An empty baseURL selects the production
// endpoint.
func NewClient(httpClient *http.Client, apiKey, locationID, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = ghlAPIBase
	}
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		locationID: locationID,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// NewClientFromEnv wires a client from GHL_API_KEY and GHL_LOCATION_ID.
func NewClientFromEnv() (*Client, error) {
	apiKey := env.GetEnv("GHL_API_KEY", "")
	locationID := env.GetEnv("GHL_LOCATION_ID", "")
	if apiKey == "" || locationID == "" {
		return nil, fmt.Errorf("%w: GHL_API_KEY or GHL_LOCATION_ID not set", ErrNotConfigured)
	}
	return NewClient(http.DefaultClient, apiKey, locationID, env.GetEnv("GHL_API_BASE", "")), nil
}

// UpsertContact creates or updates a contact with the given tags.
func (c *Client) UpsertContact(ctx context.Context, email string, tags []string, source string) error {
	payload := map[string]any{
		"email":      email,
		"locationId": c.locationID,
		"tags":       tags,
		"source":     source,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contacts/upsert", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Version", ghlAPIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ghl upsert failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return fmt.Errorf("ghl upsert: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// SyncTags tags a purchaser, swallowing every failure. Fire-and-forget by
// contract: this must never block or fail fulfillment.
func SyncTags(ctx context.Context, email string, tags []string, source string) {
	client, err := NewClientFromEnv()
	if err != nil {
		fiberlog.Warnf("[CRM] skipping tag sync for %s: %v", email, err)
		return
	}
	if err := client.UpsertContact(ctx, email, tags, source); err != nil {
		fiberlog.Errorf("[CRM] tag sync failed for %s: %v", email, err)
		return
	}
	fiberlog.Infof("[CRM] tags updated for %s: %s", email, strings.Join(tags, ", "))
}
