// Package tenants stores per-tenant settings, chiefly the credential used to
// call the scoring oracle.
package tenants

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("tenant not found")
	ErrMissingCredential = errors.New("no scoring credential configured")
)

// Tenant is one care provider.
type Tenant struct {
	ID                int64
	Name              string
	ScoringProvider   string
	ScoringAPIKey     string
	ScoringModel      string
	NotificationEmail string
}

// Credential selects and authenticates the scoring oracle.
type Credential struct {
	Provider string
	APIKey   string
	Model    string
}

// Store looks tenants up by ID.
type Store interface {
	Get(ctx context.Context, id int64) (Tenant, error)
}

// Resolver resolves a tenant's scoring credential, falling back to the
// service-wide default when the tenant has none of its own.
type Resolver struct {
	Store   Store
	Default Credential
}

// ScoringCredential returns the credential to use for tenantID. It returns an
// error wrapping ErrMissingCredential when neither the tenant nor the default
// carries a usable key.
func (r *Resolver) ScoringCredential(ctx context.Context, tenantID int64) (Credential, error) {
	if r.Store != nil {
		t, err := r.Store.Get(ctx, tenantID)
		switch {
		case err == nil:
			if strings.TrimSpace(t.ScoringAPIKey) != "" {
				cred := Credential{Provider: t.ScoringProvider, APIKey: t.ScoringAPIKey, Model: t.ScoringModel}
				if cred.Provider == "" {
					cred.Provider = r.Default.Provider
				}
				if cred.Model == "" && cred.Provider == r.Default.Provider {
					cred.Model = r.Default.Model
				}
				return cred, nil
			}
		case errors.Is(err, ErrNotFound):
		default:
			return Credential{}, fmt.Errorf("load tenant %d: %w", tenantID, err)
		}
	}
	if r.Default.Provider == "placeholder" || strings.TrimSpace(r.Default.APIKey) != "" {
		return r.Default, nil
	}
	return Credential{}, fmt.Errorf("%w for tenant %d", ErrMissingCredential, tenantID)
}

// NotificationEmail returns the tenant-level address for audit notifications,
// or "" when none is set.
func (r *Resolver) NotificationEmail(ctx context.Context, tenantID int64) string {
	if r.Store == nil {
		return ""
	}
	t, err := r.Store.Get(ctx, tenantID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(t.NotificationEmail)
}
