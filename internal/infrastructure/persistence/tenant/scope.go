// Package tenant provides multi-tenant database scoping for GORM.
//
// Every query issued through a scoped handle carries WHERE tenant_id = ?,
// with the tenant read from the context binding established by the tenant
// middleware. Repositories never see rows of another tenant, and a context
// without a binding fails loudly instead of querying everything.
//
// Usage:
//
//	db := tenant.NewTenantDB(gormDB)
//	scoped := db.WithContext(ctx) // applies the bound tenant's filter
//	scoped.Find(&accounts)        // WHERE tenant_id = '...' is auto-added
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"gorm.io/gorm"
)

// ErrTenantRequired is returned when no tenant is bound to the context but
// the handle requires one
var ErrTenantRequired = errors.New("no tenant bound to context")

// Scope applies tenant filtering to GORM queries
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// TenantDB wraps a GORM DB with automatic tenant scoping
type TenantDB struct {
	db           *gorm.DB
	tenantColumn string
	required     bool
}

// Config holds configuration for TenantDB
type Config struct {
	// TenantColumn is the name of the tenant ID column (default: "tenant_id")
	TenantColumn string
	// Required determines whether a bound tenant is mandatory (default: true)
	Required bool
}

// DefaultConfig returns default TenantDB configuration
func DefaultConfig() Config {
	return Config{
		TenantColumn: "tenant_id",
		Required:     true,
	}
}

// NewTenantDB creates a new TenantDB with default configuration
func NewTenantDB(db *gorm.DB) *TenantDB {
	return NewTenantDBWithConfig(db, DefaultConfig())
}

// NewTenantDBWithConfig creates a new TenantDB with custom configuration
func NewTenantDBWithConfig(db *gorm.DB, cfg Config) *TenantDB {
	if cfg.TenantColumn == "" {
		cfg.TenantColumn = "tenant_id"
	}
	return &TenantDB{
		db:           db,
		tenantColumn: cfg.TenantColumn,
		required:     cfg.Required,
	}
}

// WithContext returns a GORM DB scoped to the tenant bound to the context.
//
// When no tenant is bound and the handle requires one, the returned DB
// errors on any operation instead of silently querying across tenants. A
// non-required handle without a binding queries unfiltered; that is the
// explicit admin path, reached only through Admin().
func (t *TenantDB) WithContext(ctx context.Context) *gorm.DB {
	tenantID, ok := tenancy.TenantFromContext(ctx)
	if !ok {
		db := t.db.WithContext(ctx)
		if t.required {
			_ = db.AddError(ErrTenantRequired)
		}
		return db
	}
	return t.db.WithContext(ctx).Scopes(Scope(tenantID))
}

// WithTenant returns a GORM DB scoped to a specific tenant id, bypassing the
// context binding. Used by provisioning, which iterates tenants itself.
func (t *TenantDB) WithTenant(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	if tenantID == uuid.Nil {
		db := t.db.WithContext(ctx)
		_ = db.AddError(ErrTenantRequired)
		return db
	}
	return t.db.WithContext(ctx).Scopes(Scope(tenantID))
}

// Transaction executes fn inside a database transaction. The transaction
// handle keeps the caller's context, so tenant scoping inside fn behaves the
// same as outside.
func (t *TenantDB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if t.required {
		if _, ok := tenancy.TenantFromContext(ctx); !ok {
			return ErrTenantRequired
		}
	}
	return t.db.WithContext(ctx).Transaction(fn)
}

// Admin returns a handle that does not require a tenant binding. The caller
// takes responsibility for every query being intentionally cross-tenant.
func (t *TenantDB) Admin() *TenantDB {
	return &TenantDB{
		db:           t.db,
		tenantColumn: t.tenantColumn,
		required:     false,
	}
}

// DB returns the underlying GORM DB without tenant scoping. Migrations and
// schema provisioning only.
func (t *TenantDB) DB() *gorm.DB {
	return t.db
}
