// Package integration provides integration tests for multi-tenant isolation.
// This file tests the critical multi-tenant requirements:
// - Tenant data isolation (tenant A cannot access tenant B's data)
// - Unbound contexts fail instead of querying across tenants
// - Reporting views are provisioned per tenant
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"github.com/livrocaixa/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TenantIsolationTestSetup provides test infrastructure with two isolated tenants
type TenantIsolationTestSetup struct {
	DB          *TestDB
	TenantRepo  *persistence.GormTenantRepository
	AccountRepo *persistence.GormAccountRepository
	TxRepo      *persistence.GormTransactionRepository
	TenantA     *tenancy.Tenant
	TenantB     *tenancy.Tenant
	CtxA        context.Context
	CtxB        context.Context
}

// NewTenantIsolationTestSetup creates test infrastructure with two tenants
// and a context bound to each.
func NewTenantIsolationTestSetup(t *testing.T) *TenantIsolationTestSetup {
	t.Helper()

	testDB := NewTestDB(t)

	tenantRepo := persistence.NewGormTenantRepository(testDB.DB)
	accountRepo := persistence.NewGormAccountRepository(testDB.DB)
	txRepo := persistence.NewGormTransactionRepository(testDB.DB)

	ctx := context.Background()

	tenantA, err := tenancy.NewTenant("tenant_a", "Test Tenant A")
	require.NoError(t, err)
	require.NoError(t, tenantRepo.Save(ctx, tenantA))

	tenantB, err := tenancy.NewTenant("tenant_b", "Test Tenant B")
	require.NoError(t, err)
	require.NoError(t, tenantRepo.Save(ctx, tenantB))

	ctxA, err := tenancy.WithTenant(ctx, tenantA.ID)
	require.NoError(t, err)
	ctxB, err := tenancy.WithTenant(ctx, tenantB.ID)
	require.NoError(t, err)

	return &TenantIsolationTestSetup{
		DB:          testDB,
		TenantRepo:  tenantRepo,
		AccountRepo: accountRepo,
		TxRepo:      txRepo,
		TenantA:     tenantA,
		TenantB:     tenantB,
		CtxA:        ctxA,
		CtxB:        ctxB,
	}
}

func (s *TenantIsolationTestSetup) createAccount(t *testing.T, ctx context.Context, tenantID uuid.UUID, name string) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(tenantID, name, ledger.AccountKindBank)
	require.NoError(t, err)
	require.NoError(t, s.AccountRepo.Create(ctx, account))
	return account
}

func TestTenantIsolation_DataIsolation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewTenantIsolationTestSetup(t)

	t.Run("account_created_in_tenant_A_not_visible_to_tenant_B", func(t *testing.T) {
		account := setup.createAccount(t, setup.CtxA, setup.TenantA.ID, "Checking A")

		// Visible inside tenant A
		found, err := setup.AccountRepo.FindByID(setup.CtxA, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.ID, found.ID)

		// Invisible inside tenant B
		_, err = setup.AccountRepo.FindByID(setup.CtxB, account.ID)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})

	t.Run("list_only_returns_own_tenant_accounts", func(t *testing.T) {
		setup.createAccount(t, setup.CtxA, setup.TenantA.ID, "Savings A")
		setup.createAccount(t, setup.CtxB, setup.TenantB.ID, "Savings B")

		accountsB, err := setup.AccountRepo.FindAll(setup.CtxB, shared.DefaultFilter())
		require.NoError(t, err)
		for _, a := range accountsB {
			assert.Equal(t, setup.TenantB.ID, a.TenantID,
				"tenant B listing leaked an account of another tenant")
		}
	})

	t.Run("transactions_scoped_to_their_tenant", func(t *testing.T) {
		accountA := setup.createAccount(t, setup.CtxA, setup.TenantA.ID, "Wallet A")

		categoryA, err := ledger.NewCategory(setup.TenantA.ID, "Salary", ledger.CategoryKindIncome)
		require.NoError(t, err)
		categoryRepo := persistence.NewGormCategoryRepository(setup.DB.DB)
		require.NoError(t, categoryRepo.Create(setup.CtxA, categoryA))

		tx, err := ledger.NewTransaction(
			setup.TenantA.ID, accountA.ID, categoryA.ID,
			"March salary", decimal.NewFromInt(5000),
			ledger.TransactionKindIncome, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NoError(t, setup.TxRepo.Create(setup.CtxA, tx))

		// Tenant B sees nothing for the same account id
		rows, err := setup.TxRepo.FindByAccount(setup.CtxB, accountA.ID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Empty(t, rows)

		// Sums are scoped too
		sum, err := setup.TxRepo.SumByKind(setup.CtxB, accountA.ID, ledger.TransactionKindIncome, nil, nil)
		require.NoError(t, err)
		assert.True(t, sum.IsZero())
	})
}

func TestTenantIsolation_UnboundContextFails(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewTenantIsolationTestSetup(t)
	ctx := context.Background()

	// Reads on an unbound context fail instead of scanning all tenants
	_, err := setup.AccountRepo.FindAll(ctx, shared.DefaultFilter())
	require.Error(t, err)

	account, err := ledger.NewAccount(setup.TenantA.ID, "Orphan", ledger.AccountKindWallet)
	require.NoError(t, err)
	assert.Error(t, setup.AccountRepo.Create(ctx, account))
}

func TestTenantIsolation_ReportingViews(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewTenantIsolationTestSetup(t)
	ctx := context.Background()

	provisioner := persistence.NewSchemaProvisioner(setup.DB.DB)
	require.NoError(t, provisioner.Provision(ctx, setup.TenantA))

	// Provisioning is idempotent
	require.NoError(t, provisioner.Provision(ctx, setup.TenantA))

	var views []string
	err := setup.DB.DB.Raw(`
		SELECT viewname FROM pg_views
		WHERE schemaname = 'public' AND viewname LIKE 'rpt_tenant_a_%'
	`).Scan(&views).Error
	require.NoError(t, err)
	assert.Contains(t, views, "rpt_tenant_a_account_balances")
	assert.Contains(t, views, "rpt_tenant_a_monthly_activity")
	assert.Contains(t, views, "rpt_tenant_a_closings")
	assert.Contains(t, views, "rpt_tenant_a_open_installments")

	// The balance view only exposes tenant A's accounts
	setup.createAccount(t, setup.CtxA, setup.TenantA.ID, "Visible A")
	setup.createAccount(t, setup.CtxB, setup.TenantB.ID, "Hidden B")

	var names []string
	err = setup.DB.DB.Raw(`SELECT name FROM rpt_tenant_a_account_balances`).Scan(&names).Error
	require.NoError(t, err)
	assert.Contains(t, names, "Visible A")
	assert.NotContains(t, names, "Hidden B")
}

func TestTenantIsolation_ProvisionAll(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewTenantIsolationTestSetup(t)
	ctx := context.Background()

	tenants, err := setup.TenantRepo.FindAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 2)

	provisioner := persistence.NewSchemaProvisioner(setup.DB.DB)
	require.NoError(t, provisioner.ProvisionAll(ctx, tenants))

	var count int64
	err = setup.DB.DB.Raw(`
		SELECT COUNT(*) FROM pg_views
		WHERE schemaname = 'public' AND viewname LIKE 'rpt_%'
	`).Scan(&count).Error
	require.NoError(t, err)
	assert.EqualValues(t, 8, count)
}
