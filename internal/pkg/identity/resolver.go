package identity

import (
	"context"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Provider is the identity backend the resolver runs against. Satisfied by
// ClerkClient; tests substitute a fake.
type Provider interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, email, firstName, lastName string) (*User, error)
}

// Resolver finds or lazily creates durable user identities by email.
type Resolver struct {
	provider Provider
}

func NewResolver(provider Provider) *Resolver {
	return &Resolver{provider: provider}
}

// ResolveOrCreate returns the identity for an email, creating it on first
// purchase. Webhook deliveries are retried and may run concurrently, so
// creation can lose a race against another delivery for the same email; on
// creation failure the lookup is re-run before giving up. Calling this any
// number of times for one email must never yield two accounts.
func (r *Resolver) ResolveOrCreate(ctx context.Context, email, displayName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	user, err := r.provider.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("identity lookup: %w", err)
	}
	if user != nil {
		return user, nil
	}

	firstName, lastName := splitDisplayName(displayName)
	user, createErr := r.provider.CreateUser(ctx, email, firstName, lastName)
	if createErr == nil {
		return user, nil
	}

	// A concurrent delivery may have created the account between our lookup
	// and create. Re-check before surfacing the failure.
	fiberlog.Warnf("[Identity] create failed for %s, re-running lookup: %v", email, createErr)
	user, err = r.provider.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("identity lookup after create failure: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("identity create: %w", createErr)
	}
	return user, nil
}

// splitDisplayName splits a display name into first and last on the first
// space. Best-effort; either part may be empty.
func splitDisplayName(displayName string) (string, string) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}
