package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MonthlyClosing seals one calendar month of an account into an immutable
// checkpoint. A period is either OPEN (no sealed row exists) or CLOSED (a
// sealed row exists); the transition is one-way and there is no unclose.
// Once created with Closed=true the row is never mutated: the type carries
// no mutators on purpose.
//
// A closing sealed before the period's last day carries Partial=true. A
// partial closing is as final as a full one: it anchors the next period's
// opening balance and a later attempt to seal the same period fails as a
// duplicate.
type MonthlyClosing struct {
	shared.TenantAggregateRoot
	AccountID      uuid.UUID       `json:"account_id"`
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Closed         bool            `json:"closed"`
	Partial        bool            `json:"partial"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	ClosedAt       time.Time       `json:"closed_at"`
}

// NewMonthlyClosing seals a period from its aggregated totals. The closing
// balance is derived here, never passed in: opening + income - expense.
func NewMonthlyClosing(
	tenantID, accountID uuid.UUID,
	period valueobject.Period,
	openingBalance, totalIncome, totalExpense decimal.Decimal,
	periodEnd time.Time,
	partial bool,
) (*MonthlyClosing, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewValidationError("closing account id cannot be nil")
	}
	if totalIncome.IsNegative() || totalExpense.IsNegative() {
		return nil, shared.NewValidationError("closing totals cannot be negative")
	}
	if periodEnd.Before(period.Start()) || periodEnd.After(period.End()) {
		return nil, shared.NewValidationError("closing period end must fall inside the period")
	}

	return &MonthlyClosing{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountID:           accountID,
		Year:                period.Year(),
		Month:               period.Month(),
		OpeningBalance:      openingBalance,
		TotalIncome:         totalIncome,
		TotalExpense:        totalExpense,
		ClosingBalance:      openingBalance.Add(totalIncome).Sub(totalExpense),
		Closed:              true,
		Partial:             partial,
		PeriodStart:         period.Start(),
		PeriodEnd:           periodEnd,
		ClosedAt:            time.Now(),
	}, nil
}

// Period returns the closing's calendar month
func (c *MonthlyClosing) Period() valueobject.Period {
	p, _ := valueobject.NewPeriod(c.Year, c.Month)
	return p
}
