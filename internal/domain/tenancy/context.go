// Package tenancy holds the tenant aggregate and the tenant binding that
// scopes one unit of work to a single tenant.
//
// The binding is an explicit context value passed down the call chain, never
// a process-wide or connection-bound mutable. A request resolves its tenant
// once, binds it with WithTenant, and every repository call below reads it
// with TenantFromContext.
package tenancy

import (
	"context"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
)

type contextKey struct{}

var tenantKey contextKey

// WithTenant binds the active tenant id to the context for one unit of work.
// Rebinding a different tenant without an intervening WithoutTenant is a
// caller error and is rejected.
func WithTenant(ctx context.Context, tenantID uuid.UUID) (context.Context, error) {
	if tenantID == uuid.Nil {
		return ctx, shared.NewValidationError("tenant id cannot be nil")
	}
	if bound, ok := TenantFromContext(ctx); ok && bound != tenantID {
		return ctx, shared.NewConsistencyError(
			"a different tenant is already bound to this context", bound.String())
	}
	return context.WithValue(ctx, tenantKey, tenantID), nil
}

// WithoutTenant detaches any bound tenant from the context. Idempotent: it is
// safe to call on a context that has no tenant bound. The unbound state is
// the explicit admin/global capability, never the default request state.
func WithoutTenant(ctx context.Context) context.Context {
	return context.WithValue(ctx, tenantKey, uuid.Nil)
}

// TenantFromContext returns the bound tenant id, or false when the context is
// unbound.
func TenantFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// MustTenantFromContext returns the bound tenant id or an error when unbound.
// Use it in write paths where operating without a tenant is never valid.
func MustTenantFromContext(ctx context.Context) (uuid.UUID, error) {
	id, ok := TenantFromContext(ctx)
	if !ok {
		return uuid.Nil, shared.NewValidationError("no tenant bound to context")
	}
	return id, nil
}
