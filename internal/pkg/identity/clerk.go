package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/thamyind/litstore/internal/pkg/env"
)

// clerkAPIBase is the default Clerk Backend API base URL. Overridable in tests.
const clerkAPIBase = "https://api.clerk.com"

// ErrNotConfigured means the Clerk secret key is absent.
var ErrNotConfigured = errors.New("identity provider not configured")

// User is the subset of a Clerk user record this service reads.
type User struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// Email returns the user's primary email address.
func (u *User) Email() string {
	if len(u.EmailAddresses) == 0 {
		return ""
	}
	return u.EmailAddresses[0].EmailAddress
}

// FullName joins first and last name for denormalized display.
func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// ClerkClient talks to the Clerk Backend API. Injected http.Client and
// overridable base URL keep it testable without process-wide state.
type ClerkClient struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
}

// NewClerkClient creates a Clerk Backend API client. An empty baseURL selects
// the production endpoint.
func NewClerkClient(httpClient *http.Client, secretKey, baseURL string) *ClerkClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = clerkAPIBase
	}
	return &ClerkClient{
		httpClient: httpClient,
		secretKey:  secretKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// NewClerkClientFromEnv wires a client from CLERK_SECRET_KEY.
func NewClerkClientFromEnv() (*ClerkClient, error) {
	secret := env.GetEnv("CLERK_SECRET_KEY", "")
	if secret == "" {
		return nil, fmt.Errorf("%w: CLERK_SECRET_KEY not set", ErrNotConfigured)
	}
	return NewClerkClient(http.DefaultClient, secret, env.GetEnv("CLERK_API_BASE", "")), nil
}

// FindUserByEmail looks up a user by exact email match. Returns (nil, nil)
// when no user carries the address.
func (c *ClerkClient) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	query := url.Values{"email_address": {email}}
	endpoint := c.baseURL + "/v1/users?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clerk user lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError("user lookup", resp)
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode clerk user list: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// CreateUser creates a Clerk user for the given email. Creation can fail with
// a conflict when a concurrent request created the same address first; the
// resolver handles that by re-running the lookup.
func (c *ClerkClient) CreateUser(ctx context.Context, email, firstName, lastName string) (*User, error) {
	payload := map[string]any{
		"email_address": []string{email},
	}
	if firstName != "" {
		payload["first_name"] = firstName
	}
	if lastName != "" {
		payload["last_name"] = lastName
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/users", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clerk user create failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError("user create", resp)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode clerk user: %w", err)
	}
	return &user, nil
}

func (c *ClerkClient) apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	var clerkErr struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &clerkErr); err == nil && len(clerkErr.Errors) > 0 {
		return fmt.Errorf("clerk %s: %s (status %d)", op, clerkErr.Errors[0].Message, resp.StatusCode)
	}
	return fmt.Errorf("clerk %s: unexpected status %d", op, resp.StatusCode)
}
