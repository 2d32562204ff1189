package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/shared/valueobject"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func tenantContext(t *testing.T, tenantID uuid.UUID) context.Context {
	t.Helper()
	ctx, err := tenancy.WithTenant(context.Background(), tenantID)
	require.NoError(t, err)
	return ctx
}

func testAccount(t *testing.T, tenantID uuid.UUID) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(tenantID, "Conta Corrente", ledger.AccountKindBank)
	require.NoError(t, err)
	return account
}

func TestBalanceService_Recompute_NoCheckpoint(t *testing.T) {
	tenantID := uuid.New()
	account := testAccount(t, tenantID)
	ctx := tenantContext(t, tenantID)

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	closings := new(MockClosingRepository)
	service := NewBalanceService(accounts, transactions, closings, stubTxManager{})

	accounts.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
	closings.On("FindLatestClosed", mock.Anything, account.ID).Return(nil, nil)
	// No checkpoint: the whole transaction log is summed.
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindIncome,
		(*time.Time)(nil), (*time.Time)(nil)).Return(decimal.RequireFromString("500.00"), nil)
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindExpense,
		(*time.Time)(nil), (*time.Time)(nil)).Return(decimal.RequireFromString("120.50"), nil)
	accounts.On("UpdateBalance", mock.Anything, account.ID,
		mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.RequireFromString("379.50"))
		})).Return(nil)

	resp, err := service.Recompute(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, resp.Balance.Equal(decimal.RequireFromString("379.50")))
	accounts.AssertExpectations(t)
	transactions.AssertExpectations(t)
}

func TestBalanceService_Recompute_FromCheckpoint(t *testing.T) {
	tenantID := uuid.New()
	account := testAccount(t, tenantID)
	ctx := tenantContext(t, tenantID)

	period, err := valueobject.NewPeriod(2024, 2)
	require.NoError(t, err)
	closing, err := ledger.NewMonthlyClosing(tenantID, account.ID, period,
		decimal.RequireFromString("1000.00"),
		decimal.RequireFromString("300.00"),
		decimal.RequireFromString("100.00"),
		period.End(), false)
	require.NoError(t, err)

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	closings := new(MockClosingRepository)
	service := NewBalanceService(accounts, transactions, closings, stubTxManager{})

	// Only transactions after the checkpoint are summed: March 1st onward.
	wantFrom := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	accounts.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
	closings.On("FindLatestClosed", mock.Anything, account.ID).Return(closing, nil)
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindIncome,
		mock.MatchedBy(func(from *time.Time) bool { return from != nil && from.Equal(wantFrom) }),
		(*time.Time)(nil)).Return(decimal.RequireFromString("50.00"), nil)
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindExpense,
		mock.MatchedBy(func(from *time.Time) bool { return from != nil && from.Equal(wantFrom) }),
		(*time.Time)(nil)).Return(decimal.RequireFromString("30.00"), nil)

	// checkpoint 1200.00 + 50.00 - 30.00
	want := decimal.RequireFromString("1220.00")
	accounts.On("UpdateBalance", mock.Anything, account.ID,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })).Return(nil)

	resp, err := service.Recompute(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, resp.Balance.Equal(want))
	transactions.AssertExpectations(t)
}

func TestBalanceService_Recompute_TenantMismatch(t *testing.T) {
	account := testAccount(t, uuid.New())
	ctx := tenantContext(t, uuid.New()) // bound to a different tenant

	accounts := new(MockAccountRepository)
	service := NewBalanceService(accounts, new(MockTransactionRepository), new(MockClosingRepository), stubTxManager{})
	accounts.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)

	_, err := service.Recompute(ctx, account.ID)
	assert.True(t, shared.IsCode(err, shared.CodeConsistencyError))
	accounts.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestBalanceService_ApplyDelta(t *testing.T) {
	tenantID := uuid.New()
	account := testAccount(t, tenantID)
	account.Balance = decimal.RequireFromString("100.00")
	ctx := tenantContext(t, tenantID)

	accounts := new(MockAccountRepository)
	service := NewBalanceService(accounts, new(MockTransactionRepository), new(MockClosingRepository), stubTxManager{})

	accounts.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
	accounts.On("UpdateBalance", mock.Anything, account.ID,
		mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.RequireFromString("59.50"))
		})).Return(nil)

	require.NoError(t, service.ApplyDelta(ctx, account.ID, decimal.RequireFromString("-40.50")))
	accounts.AssertExpectations(t)
}

func TestBalanceService_ApplyDelta_ZeroIsNoop(t *testing.T) {
	accounts := new(MockAccountRepository)
	service := NewBalanceService(accounts, new(MockTransactionRepository), new(MockClosingRepository), stubTxManager{})

	require.NoError(t, service.ApplyDelta(context.Background(), uuid.New(), decimal.Zero))
	accounts.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
}

func TestBalanceService_Audit(t *testing.T) {
	tenantID := uuid.New()
	account := testAccount(t, tenantID)
	account.Balance = decimal.RequireFromString("100.00")
	ctx := tenantContext(t, tenantID)

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	closings := new(MockClosingRepository)
	service := NewBalanceService(accounts, transactions, closings, stubTxManager{})

	accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	closings.On("FindLatestClosed", mock.Anything, account.ID).Return(nil, nil)
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindIncome,
		(*time.Time)(nil), (*time.Time)(nil)).Return(decimal.RequireFromString("150.00"), nil)
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindExpense,
		(*time.Time)(nil), (*time.Time)(nil)).Return(decimal.RequireFromString("60.00"), nil)

	audit, err := service.Audit(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, audit.Consistent)
	assert.True(t, audit.Cached.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, audit.Computed.Equal(decimal.RequireFromString("90.00")))
}
