package persistence

import (
	"context"

	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"github.com/livrocaixa/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

type txContextKey struct{}

// GormTxManager implements ledger.TxManager on a GORM database. Do stashes
// the transaction handle in the context; every repository in this package
// picks it up through scopedSession, so all repository calls inside fn join
// the same database transaction.
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a new GormTxManager
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

// Do executes fn inside one database transaction. Nested calls join the
// transaction already carried by the context instead of opening a new one.
func (m *GormTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// txFromContext returns the transaction handle carried by the context, or nil
func txFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// scopedSession returns the session a repository call should run on: the
// context's transaction when one is active, the root handle otherwise, always
// filtered to the bound tenant. An unbound context yields a session that
// fails on use rather than one that queries across tenants.
func scopedSession(ctx context.Context, db *gorm.DB) *gorm.DB {
	session := db
	if tx := txFromContext(ctx); tx != nil {
		session = tx
	}
	session = session.WithContext(ctx)

	tenantID, ok := tenancy.TenantFromContext(ctx)
	if !ok {
		failed := session.Session(&gorm.Session{})
		_ = failed.AddError(tenant.ErrTenantRequired)
		return failed
	}
	return session.Scopes(tenant.Scope(tenantID))
}

// rawSession is scopedSession without the tenant filter. Only the tenant
// registry repository uses it; everything else goes through scopedSession.
func rawSession(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

var _ ledger.TxManager = (*GormTxManager)(nil)
