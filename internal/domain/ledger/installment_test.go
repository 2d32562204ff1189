package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlan(t *testing.T, total string, count int, firstDue time.Time, anchor int, recurrence RecurrenceType, customDays int) *InstallmentPlan {
	t.Helper()
	plan, err := NewInstallmentPlan(
		uuid.New(), uuid.New(), uuid.New(),
		"Notebook em parcelas",
		decimal.RequireFromString(total),
		count, firstDue, anchor, recurrence, customDays,
	)
	require.NoError(t, err)
	return plan
}

func TestNewInstallmentPlan_Validation(t *testing.T) {
	tenantID := uuid.New()
	firstDue := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		accountID   uuid.UUID
		categoryID  uuid.UUID
		description string
		total       decimal.Decimal
		count       int
		firstDue    time.Time
		anchor      int
		recurrence  RecurrenceType
		customDays  int
		wantErr     bool
	}{
		{
			name:       "valid monthly plan",
			accountID:  uuid.New(), categoryID: uuid.New(),
			description: "Notebook",
			total:       decimal.RequireFromString("100.00"),
			count:       3, firstDue: firstDue, anchor: 15,
			recurrence: RecurrenceMonthly,
		},
		{
			name:       "valid custom recurrence",
			accountID:  uuid.New(), categoryID: uuid.New(),
			description: "Assinatura",
			total:       decimal.RequireFromString("90.00"),
			count:       3, firstDue: firstDue, anchor: 1,
			recurrence: RecurrenceCustom, customDays: 10,
		},
		{
			name:       "nil account",
			accountID:  uuid.Nil, categoryID: uuid.New(),
			description: "Notebook",
			total:       decimal.NewFromInt(100),
			count:       3, firstDue: firstDue, anchor: 15,
			recurrence: RecurrenceMonthly,
			wantErr:    true,
		},
		{
			name:       "zero count",
			accountID:  uuid.New(), categoryID: uuid.New(),
			description: "Notebook",
			total:       decimal.NewFromInt(100),
			count:       0, firstDue: firstDue, anchor: 15,
			recurrence: RecurrenceMonthly,
			wantErr:    true,
		},
		{
			name:       "anchor out of range",
			accountID:  uuid.New(), categoryID: uuid.New(),
			description: "Notebook",
			total:       decimal.NewFromInt(100),
			count:       3, firstDue: firstDue, anchor: 32,
			recurrence: RecurrenceMonthly,
			wantErr:    true,
		},
		{
			name:       "custom recurrence without days",
			accountID:  uuid.New(), categoryID: uuid.New(),
			description: "Notebook",
			total:       decimal.NewFromInt(100),
			count:       3, firstDue: firstDue, anchor: 15,
			recurrence: RecurrenceCustom,
			wantErr:    true,
		},
		{
			name:       "custom days above one year",
			accountID:  uuid.New(), categoryID: uuid.New(),
			description: "Notebook",
			total:       decimal.NewFromInt(100),
			count:       3, firstDue: firstDue, anchor: 15,
			recurrence: RecurrenceCustom, customDays: 366,
			wantErr:    true,
		},
		{
			name:       "custom days on monthly recurrence",
			accountID:  uuid.New(), categoryID: uuid.New(),
			description: "Notebook",
			total:       decimal.NewFromInt(100),
			count:       3, firstDue: firstDue, anchor: 15,
			recurrence: RecurrenceMonthly, customDays: 10,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInstallmentPlan(tenantID, tt.accountID, tt.categoryID,
				tt.description, tt.total, tt.count, tt.firstDue, tt.anchor,
				tt.recurrence, tt.customDays)
			if tt.wantErr {
				assert.True(t, shared.IsCode(err, shared.CodeValidationError))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestInstallmentPlan_Schedule_Monthly(t *testing.T) {
	firstDue := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	plan := newTestPlan(t, "100.00", 3, firstDue, 15, RecurrenceMonthly, 0)

	installments, err := plan.Schedule()
	require.NoError(t, err)
	require.Len(t, installments, 3)

	wantDates := []time.Time{
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	sum := decimal.Zero
	for i, inst := range installments {
		assert.Equal(t, i+1, inst.Sequence)
		assert.True(t, inst.DueDate.Equal(wantDates[i]), "installment %d due date", i+1)
		assert.Equal(t, plan.ID, inst.PlanID)
		assert.Equal(t, plan.TenantID, inst.TenantID)
		assert.False(t, inst.Paid)
		sum = sum.Add(inst.Amount)
	}

	// 100.00 / 3: two installments of 33.33, the last absorbs the cent.
	assert.True(t, installments[0].Amount.Equal(decimal.RequireFromString("33.33")))
	assert.True(t, installments[1].Amount.Equal(decimal.RequireFromString("33.33")))
	assert.True(t, installments[2].Amount.Equal(decimal.RequireFromString("33.34")))
	assert.True(t, sum.Equal(plan.TotalAmount), "schedule must sum exactly to the total")
}

func TestInstallmentPlan_Schedule_AnchorClamped(t *testing.T) {
	// Anchor 31 is clamped to 28 so February never overflows.
	firstDue := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	plan := newTestPlan(t, "300.00", 3, firstDue, 31, RecurrenceMonthly, 0)

	installments, err := plan.Schedule()
	require.NoError(t, err)
	require.Len(t, installments, 3)

	assert.True(t, installments[0].DueDate.Equal(time.Date(2024, 1, 28, 0, 0, 0, 0, time.UTC)))
	assert.True(t, installments[1].DueDate.Equal(time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.True(t, installments[2].DueDate.Equal(time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC)))
}

func TestInstallmentPlan_Schedule_Biweekly(t *testing.T) {
	firstDue := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	plan := newTestPlan(t, "60.00", 3, firstDue, 1, RecurrenceBiweekly, 0)

	installments, err := plan.Schedule()
	require.NoError(t, err)
	require.Len(t, installments, 3)

	assert.True(t, installments[0].DueDate.Equal(firstDue))
	assert.True(t, installments[1].DueDate.Equal(firstDue.AddDate(0, 0, 15)))
	assert.True(t, installments[2].DueDate.Equal(firstDue.AddDate(0, 0, 30)))
}

func TestInstallmentPlan_Schedule_CustomDays(t *testing.T) {
	firstDue := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	plan := newTestPlan(t, "90.00", 3, firstDue, 1, RecurrenceCustom, 10)

	installments, err := plan.Schedule()
	require.NoError(t, err)
	require.Len(t, installments, 3)

	assert.True(t, installments[1].DueDate.Equal(firstDue.AddDate(0, 0, 10)))
	assert.True(t, installments[2].DueDate.Equal(firstDue.AddDate(0, 0, 20)))
}

func TestInstallmentPlan_Schedule_SingleInstallment(t *testing.T) {
	firstDue := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	plan := newTestPlan(t, "49.90", 1, firstDue, 15, RecurrenceMonthly, 0)

	installments, err := plan.Schedule()
	require.NoError(t, err)
	require.Len(t, installments, 1)
	assert.True(t, installments[0].Amount.Equal(decimal.RequireFromString("49.90")))
}

func TestInstallmentPlan_MarkGenerated(t *testing.T) {
	firstDue := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	plan := newTestPlan(t, "100.00", 3, firstDue, 15, RecurrenceMonthly, 0)

	require.NoError(t, plan.MarkGenerated())
	assert.True(t, plan.Generated)

	// Generation is one-shot.
	err := plan.MarkGenerated()
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))

	_, err = plan.Schedule()
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
}

func TestPlannedInstallment_SettleAndUnsettle(t *testing.T) {
	inst, err := NewPlannedInstallment(uuid.New(), uuid.New(), 1,
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString("33.33"))
	require.NoError(t, err)

	paidDate := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	txID := uuid.New()

	require.NoError(t, inst.Settle(paidDate, txID))
	assert.True(t, inst.Paid)
	require.NotNil(t, inst.TransactionID)
	assert.Equal(t, txID, *inst.TransactionID)

	// Settling twice is rejected.
	err = inst.Settle(paidDate, uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))

	require.NoError(t, inst.Unsettle())
	assert.False(t, inst.Paid)
	assert.Nil(t, inst.PaidAt)
	assert.Nil(t, inst.TransactionID)

	err = inst.Unsettle()
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
}

func TestPlannedInstallment_PartialPaymentSplit(t *testing.T) {
	original, err := NewPlannedInstallment(uuid.New(), uuid.New(), 2,
		time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString("33.33"))
	require.NoError(t, err)

	paid := decimal.RequireFromString("20.00")
	remainder := original.Amount.Sub(paid)

	require.NoError(t, original.ReduceTo(paid))
	assert.True(t, original.Amount.Equal(paid))

	rem, err := NewRemainderInstallment(original, 4, remainder)
	require.NoError(t, err)
	assert.Equal(t, 4, rem.Sequence)
	assert.True(t, rem.DueDate.Equal(original.DueDate))
	assert.False(t, rem.Paid)

	// Conservation: reduced amount plus remainder equals the original amount.
	assert.True(t, original.Amount.Add(rem.Amount).Equal(decimal.RequireFromString("33.33")))
}

func TestPlannedInstallment_ReduceTo_Validation(t *testing.T) {
	inst, err := NewPlannedInstallment(uuid.New(), uuid.New(), 1,
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString("33.33"))
	require.NoError(t, err)

	// Equal to the current amount is not a partial payment.
	err = inst.ReduceTo(decimal.RequireFromString("33.33"))
	assert.True(t, shared.IsCode(err, shared.CodeValidationError))

	err = inst.ReduceTo(decimal.Zero)
	assert.True(t, shared.IsCode(err, shared.CodeValidationError))

	require.NoError(t, inst.Settle(time.Now(), uuid.New()))
	err = inst.ReduceTo(decimal.RequireFromString("10.00"))
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
}

func TestNewRemainderInstallment_SequenceGuard(t *testing.T) {
	original, err := NewPlannedInstallment(uuid.New(), uuid.New(), 3,
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString("33.34"))
	require.NoError(t, err)

	_, err = NewRemainderInstallment(original, 3, decimal.NewFromInt(10))
	assert.True(t, shared.IsCode(err, shared.CodeValidationError))

	_, err = NewRemainderInstallment(original, 2, decimal.NewFromInt(10))
	assert.True(t, shared.IsCode(err, shared.CodeValidationError))
}
