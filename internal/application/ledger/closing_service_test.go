package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newClosingFixture(t *testing.T) (*ClosingService, *MockAccountRepository, *MockTransactionRepository, *MockClosingRepository) {
	t.Helper()
	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	closings := new(MockClosingRepository)
	service := NewClosingService(closings, transactions, accounts, stubTxManager{}, ledger.DefaultClosingPolicy())
	return service, accounts, transactions, closings
}

func TestClosingService_Seal_PreviousMonth(t *testing.T) {
	tenantID := uuid.New()
	account := testAccount(t, tenantID)
	ctx := tenantContext(t, tenantID)

	service, accounts, transactions, closings := newClosingFixture(t)
	// Five days into April: March is sealable under the default policy.
	service.now = func() time.Time { return time.Date(2024, 4, 5, 9, 0, 0, 0, time.UTC) }

	accounts.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
	closings.On("Exists", mock.Anything, account.ID, 2024, 3).Return(false, nil)
	closings.On("FindLatestClosed", mock.Anything, account.ID).Return(nil, nil)

	// The month's totals are aggregated over [Mar 1, Apr 1).
	marchStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	aprilStart := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	inWindow := func(want time.Time) interface{} {
		return mock.MatchedBy(func(tp *time.Time) bool { return tp != nil && tp.Equal(want) })
	}
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindIncome,
		inWindow(marchStart), inWindow(aprilStart)).Return(decimal.RequireFromString("4200.00"), nil)
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindExpense,
		inWindow(marchStart), inWindow(aprilStart)).Return(decimal.RequireFromString("3150.00"), nil)

	closings.On("Create", mock.Anything, mock.MatchedBy(func(c *ledger.MonthlyClosing) bool {
		return c.Year == 2024 && c.Month == 3 && !c.Partial &&
			c.ClosingBalance.Equal(decimal.RequireFromString("1050.00"))
	})).Return(nil)

	// Post-checkpoint sums re-anchor the cached balance.
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindIncome,
		inWindow(aprilStart), (*time.Time)(nil)).Return(decimal.RequireFromString("100.00"), nil)
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindExpense,
		inWindow(aprilStart), (*time.Time)(nil)).Return(decimal.RequireFromString("20.00"), nil)
	accounts.On("UpdateBalance", mock.Anything, account.ID,
		mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.RequireFromString("1130.00"))
		})).Return(nil)

	resp, err := service.Seal(ctx, SealRequest{AccountID: account.ID, Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, 2024, resp.Year)
	assert.Equal(t, 3, resp.Month)
	assert.False(t, resp.Partial)
	assert.True(t, resp.ClosingBalance.Equal(decimal.RequireFromString("1050.00")))
	closings.AssertExpectations(t)
	accounts.AssertExpectations(t)
}

func TestClosingService_Seal_Duplicate(t *testing.T) {
	tenantID := uuid.New()
	account := testAccount(t, tenantID)
	ctx := tenantContext(t, tenantID)

	service, accounts, _, closings := newClosingFixture(t)
	service.now = func() time.Time { return time.Date(2024, 4, 5, 9, 0, 0, 0, time.UTC) }

	accounts.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
	closings.On("Exists", mock.Anything, account.ID, 2024, 3).Return(true, nil)

	_, err := service.Seal(ctx, SealRequest{AccountID: account.ID, Year: 2024, Month: 3})
	assert.True(t, shared.IsCode(err, shared.CodeDuplicateClosing))
	closings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestClosingService_Seal_PolicyRejectsCurrentMonth(t *testing.T) {
	ctx := tenantContext(t, uuid.New())
	service, _, _, closings := newClosingFixture(t)
	service.now = func() time.Time { return time.Date(2024, 4, 5, 9, 0, 0, 0, time.UTC) }

	_, err := service.Seal(ctx, SealRequest{AccountID: uuid.New(), Year: 2024, Month: 4})
	assert.True(t, shared.IsCode(err, shared.CodePolicyViolation))
	closings.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClosingService_Seal_CurrentMonthIsPartial(t *testing.T) {
	tenantID := uuid.New()
	account := testAccount(t, tenantID)
	ctx := tenantContext(t, tenantID)

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	closings := new(MockClosingRepository)
	policy := ledger.ClosingPolicy{GraceDays: 10, AllowCurrentMonth: true}
	service := NewClosingService(closings, transactions, accounts, stubTxManager{}, policy)
	service.now = func() time.Time { return time.Date(2024, 4, 18, 14, 30, 0, 0, time.UTC) }

	accounts.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
	closings.On("Exists", mock.Anything, account.ID, 2024, 4).Return(false, nil)
	closings.On("FindLatestClosed", mock.Anything, account.ID).Return(nil, nil)
	transactions.On("SumByKind", mock.Anything, account.ID, mock.Anything, mock.Anything, mock.Anything).
		Return(decimal.Zero, nil)
	closings.On("Create", mock.Anything, mock.MatchedBy(func(c *ledger.MonthlyClosing) bool {
		// Sealing the running month ends the period today, not at month end.
		return c.Partial && c.PeriodEnd.Equal(time.Date(2024, 4, 18, 0, 0, 0, 0, time.UTC))
	})).Return(nil)
	accounts.On("UpdateBalance", mock.Anything, account.ID, mock.Anything).Return(nil)

	resp, err := service.Seal(ctx, SealRequest{AccountID: account.ID, Year: 2024, Month: 4})
	require.NoError(t, err)
	assert.True(t, resp.Partial)
	closings.AssertExpectations(t)
}

func TestClosingService_Seal_RejectsPeriodBeforeLatestCheckpoint(t *testing.T) {
	tenantID := uuid.New()
	account := testAccount(t, tenantID)
	ctx := tenantContext(t, tenantID)

	accounts := new(MockAccountRepository)
	transactions := new(MockTransactionRepository)
	closings := new(MockClosingRepository)
	policy := ledger.ClosingPolicy{AllowPastMonths: true}
	service := NewClosingService(closings, transactions, accounts, stubTxManager{}, policy)
	service.now = func() time.Time { return time.Date(2024, 4, 5, 9, 0, 0, 0, time.UTC) }

	period, err := valueobject.NewPeriod(2024, 2)
	require.NoError(t, err)
	latest, err := ledger.NewMonthlyClosing(tenantID, account.ID, period,
		decimal.Zero, decimal.Zero, decimal.Zero, period.End(), false)
	require.NoError(t, err)

	accounts.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
	closings.On("Exists", mock.Anything, account.ID, 2024, 1).Return(false, nil)
	closings.On("FindLatestClosed", mock.Anything, account.ID).Return(latest, nil)

	// January precedes the already sealed February checkpoint.
	_, err = service.Seal(ctx, SealRequest{AccountID: account.ID, Year: 2024, Month: 1})
	assert.True(t, shared.IsCode(err, shared.CodePolicyViolation))
	closings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestClosingService_IsSealed(t *testing.T) {
	ctx := tenantContext(t, uuid.New())
	service, _, _, closings := newClosingFixture(t)
	accountID := uuid.New()

	closings.On("Exists", mock.Anything, accountID, 2024, 3).Return(true, nil)

	sealed, err := service.IsSealed(ctx, accountID, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, sealed)
}

func TestClosingService_Seal_CoversTailAfterPartialClosing(t *testing.T) {
	tenantID := uuid.New()
	account := testAccount(t, tenantID)
	ctx := tenantContext(t, tenantID)

	service, accounts, transactions, closings := newClosingFixture(t)
	service.now = func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }

	// January was sealed early on the 15th. Entries dated Jan 16..31 are in
	// no sealed window, so the February seal must sum from Jan 16 onward or
	// their value would vanish from every later balance.
	janPeriod, err := valueobject.NewPeriod(2024, 1)
	require.NoError(t, err)
	previous, err := ledger.NewMonthlyClosing(
		tenantID, account.ID, janPeriod,
		decimal.Zero, decimal.RequireFromString("500.00"), decimal.Zero,
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true)
	require.NoError(t, err)

	accounts.On("FindByIDForUpdate", mock.Anything, account.ID).Return(account, nil)
	closings.On("Exists", mock.Anything, account.ID, 2024, 2).Return(false, nil)
	closings.On("FindLatestClosed", mock.Anything, account.ID).Return(previous, nil)

	tailStart := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	marchStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	inWindow := func(want time.Time) interface{} {
		return mock.MatchedBy(func(tp *time.Time) bool { return tp != nil && tp.Equal(want) })
	}
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindIncome,
		inWindow(tailStart), inWindow(marchStart)).Return(decimal.RequireFromString("300.00"), nil)
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindExpense,
		inWindow(tailStart), inWindow(marchStart)).Return(decimal.RequireFromString("100.00"), nil)

	closings.On("Create", mock.Anything, mock.MatchedBy(func(c *ledger.MonthlyClosing) bool {
		return c.Year == 2024 && c.Month == 2 &&
			c.OpeningBalance.Equal(decimal.RequireFromString("500.00")) &&
			c.ClosingBalance.Equal(decimal.RequireFromString("700.00"))
	})).Return(nil)

	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindIncome,
		inWindow(marchStart), (*time.Time)(nil)).Return(decimal.Zero, nil)
	transactions.On("SumByKind", mock.Anything, account.ID, ledger.TransactionKindExpense,
		inWindow(marchStart), (*time.Time)(nil)).Return(decimal.Zero, nil)
	accounts.On("UpdateBalance", mock.Anything, account.ID,
		mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.RequireFromString("700.00"))
		})).Return(nil)

	resp, err := service.Seal(ctx, SealRequest{AccountID: account.ID, Year: 2024, Month: 2})
	require.NoError(t, err)
	assert.True(t, resp.ClosingBalance.Equal(decimal.RequireFromString("700.00")))
	closings.AssertExpectations(t)
	transactions.AssertExpectations(t)
}
