package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RecurrenceType represents the spacing between installments
type RecurrenceType string

const (
	RecurrenceMonthly  RecurrenceType = "MONTHLY"
	RecurrenceBiweekly RecurrenceType = "BIWEEKLY"
	RecurrenceWeekly   RecurrenceType = "WEEKLY"
	RecurrenceCustom   RecurrenceType = "CUSTOM_DAYS"
)

// IsValid checks if the recurrence is a valid RecurrenceType
func (r RecurrenceType) IsValid() bool {
	switch r {
	case RecurrenceMonthly, RecurrenceBiweekly, RecurrenceWeekly, RecurrenceCustom:
		return true
	}
	return false
}

// maxCustomDays bounds custom recurrence intervals to one year
const maxCustomDays = 365

// InstallmentPlan declares the intent to split one total amount into a
// number of scheduled obligations. Generation is one-shot: once the
// Generated flag is set, further generate calls are no-ops.
type InstallmentPlan struct {
	shared.TenantAggregateRoot
	AccountID      uuid.UUID       `json:"account_id"`
	CategoryID     uuid.UUID       `json:"category_id"`
	Description    string          `json:"description"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Count          int             `json:"count"`
	FirstDueDate   time.Time       `json:"first_due_date"`
	DueDayAnchor   int             `json:"due_day_anchor"`
	Recurrence     RecurrenceType  `json:"recurrence"`
	CustomDays     int             `json:"custom_days,omitempty"`
	Generated      bool            `json:"generated"`
}

// NewInstallmentPlan creates a new ungenerated installment plan
func NewInstallmentPlan(
	tenantID, accountID, categoryID uuid.UUID,
	description string,
	totalAmount decimal.Decimal,
	count int,
	firstDueDate time.Time,
	dueDayAnchor int,
	recurrence RecurrenceType,
	customDays int,
) (*InstallmentPlan, error) {
	description = strings.TrimSpace(description)
	if accountID == uuid.Nil {
		return nil, shared.NewValidationError("plan account id cannot be nil")
	}
	if categoryID == uuid.Nil {
		return nil, shared.NewValidationError("plan category id cannot be nil")
	}
	if description == "" {
		return nil, shared.NewValidationError("plan description cannot be empty")
	}
	if len(description) > 200 {
		return nil, shared.NewValidationError("plan description cannot exceed 200 characters")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewValidationError("plan total amount must be positive")
	}
	if count < 1 {
		return nil, shared.NewValidationError("plan installment count must be at least 1")
	}
	if firstDueDate.IsZero() {
		return nil, shared.NewValidationError("plan first due date is required")
	}
	if dueDayAnchor < 1 || dueDayAnchor > 31 {
		return nil, shared.NewValidationError("plan due day anchor must be between 1 and 31")
	}
	if !recurrence.IsValid() {
		return nil, shared.NewValidationError("plan recurrence type is not valid")
	}
	if recurrence == RecurrenceCustom {
		if customDays < 1 || customDays > maxCustomDays {
			return nil, shared.NewValidationError(
				fmt.Sprintf("custom recurrence days must be between 1 and %d", maxCustomDays))
		}
	} else if customDays != 0 {
		return nil, shared.NewValidationError("custom days only apply to custom recurrence")
	}

	return &InstallmentPlan{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountID:           accountID,
		CategoryID:          categoryID,
		Description:         description,
		TotalAmount:         totalAmount,
		Count:               count,
		FirstDueDate:        firstDueDate,
		DueDayAnchor:        dueDayAnchor,
		Recurrence:          recurrence,
		CustomDays:          customDays,
	}, nil
}

// MarkGenerated sets the one-shot generated flag
func (p *InstallmentPlan) MarkGenerated() error {
	if p.Generated {
		return shared.ErrInvalidState.WithEntity(p.ID.String())
	}
	p.Generated = true
	p.UpdatedAt = time.Now()
	return nil
}

// Schedule expands the plan into its dated obligations.
//
// Amounts: the total is allocated deterministically: the first count-1
// installments carry total/count truncated to cents, the final one absorbs
// the remainder, so the schedule sums exactly to the total.
//
// Dates: the first installment falls on FirstDueDate. When the due-day
// anchor is above 1 the day is clamped to min(anchor, 28) on every
// iteration, which avoids short-month overflow at the cost of true
// month-end semantics. Steps follow the recurrence type.
func (p *InstallmentPlan) Schedule() ([]PlannedInstallment, error) {
	if p.Generated {
		return nil, shared.ErrInvalidState.WithEntity(p.ID.String())
	}

	total := valueobject.NewMoneyBRL(p.TotalAmount)
	amounts, err := total.Allocate(p.Count)
	if err != nil {
		return nil, shared.NewValidationError(err.Error())
	}

	installments := make([]PlannedInstallment, 0, p.Count)
	dueDate := p.FirstDueDate
	for seq := 1; seq <= p.Count; seq++ {
		if p.DueDayAnchor > 1 {
			dueDate = clampDay(dueDate, p.DueDayAnchor)
		}

		inst, err := NewPlannedInstallment(p.TenantID, p.ID, seq, dueDate, amounts[seq-1].Amount())
		if err != nil {
			return nil, err
		}
		installments = append(installments, *inst)

		if seq < p.Count {
			dueDate = p.nextDueDate(dueDate)
		}
	}
	return installments, nil
}

// nextDueDate advances a due date by one recurrence step
func (p *InstallmentPlan) nextDueDate(from time.Time) time.Time {
	switch p.Recurrence {
	case RecurrenceMonthly:
		return from.AddDate(0, 1, 0)
	case RecurrenceBiweekly:
		return from.AddDate(0, 0, 15)
	case RecurrenceWeekly:
		return from.AddDate(0, 0, 7)
	case RecurrenceCustom:
		return from.AddDate(0, 0, p.CustomDays)
	}
	return from
}

// clampDay pins the date's day to min(anchor, 28)
func clampDay(t time.Time, anchor int) time.Time {
	day := anchor
	if day > 28 {
		day = 28
	}
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, t.Location())
}

// PlannedInstallment is one dated obligation of a plan. No transaction
// exists for it until the payment is confirmed; settling creates exactly
// one linked settlement transaction.
type PlannedInstallment struct {
	shared.TenantAggregateRoot
	PlanID        uuid.UUID       `json:"plan_id"`
	Sequence      int             `json:"sequence"`
	DueDate       time.Time       `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
	Paid          bool            `json:"paid"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
}

// NewPlannedInstallment creates a new unpaid installment
func NewPlannedInstallment(tenantID, planID uuid.UUID, sequence int, dueDate time.Time, amount decimal.Decimal) (*PlannedInstallment, error) {
	if planID == uuid.Nil {
		return nil, shared.NewValidationError("installment plan id cannot be nil")
	}
	if sequence < 1 {
		return nil, shared.NewValidationError("installment sequence must be at least 1")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("installment amount must be positive")
	}

	return &PlannedInstallment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PlanID:              planID,
		Sequence:            sequence,
		DueDate:             dueDate,
		Amount:              amount,
	}, nil
}

// Settle marks the installment paid and links its settlement transaction
func (i *PlannedInstallment) Settle(paidDate time.Time, transactionID uuid.UUID) error {
	if i.Paid {
		return shared.ErrInvalidState.WithEntity(i.ID.String())
	}
	if transactionID == uuid.Nil {
		return shared.NewValidationError("settlement transaction id cannot be nil")
	}
	i.Paid = true
	i.PaidAt = &paidDate
	i.TransactionID = &transactionID
	i.UpdatedAt = time.Now()
	return nil
}

// Unsettle resets the installment to unpaid and drops the transaction link
func (i *PlannedInstallment) Unsettle() error {
	if !i.Paid {
		return shared.ErrInvalidState.WithEntity(i.ID.String())
	}
	i.Paid = false
	i.PaidAt = nil
	i.TransactionID = nil
	i.UpdatedAt = time.Now()
	return nil
}

// ReduceTo shrinks an unpaid installment's amount to the partially paid
// value. The caller appends a remainder installment so the plan still sums
// to its total.
func (i *PlannedInstallment) ReduceTo(amount decimal.Decimal) error {
	if i.Paid {
		return shared.ErrInvalidState.WithEntity(i.ID.String())
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("installment amount must be positive")
	}
	if amount.GreaterThanOrEqual(i.Amount) {
		return shared.NewValidationError("reduced amount must be less than the installment amount")
	}
	i.Amount = amount
	i.UpdatedAt = time.Now()
	return nil
}

// NewRemainderInstallment creates the unpaid remainder left by a partial
// payment: next free sequence, same due date, amount = original - paid.
func NewRemainderInstallment(original *PlannedInstallment, nextSequence int, amount decimal.Decimal) (*PlannedInstallment, error) {
	if nextSequence <= original.Sequence {
		return nil, shared.NewValidationError("remainder sequence must follow the original installment")
	}
	return NewPlannedInstallment(original.TenantID, original.PlanID, nextSequence, original.DueDate, amount)
}
