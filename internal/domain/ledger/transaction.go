package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the direction of a transaction
type TransactionKind string

const (
	TransactionKindIncome  TransactionKind = "INCOME"
	TransactionKindExpense TransactionKind = "EXPENSE"
)

// IsValid checks if the kind is a valid TransactionKind
func (k TransactionKind) IsValid() bool {
	return k == TransactionKindIncome || k == TransactionKindExpense
}

// String returns the string representation of TransactionKind
func (k TransactionKind) String() string {
	return string(k)
}

// Transaction is a single income or expense entry in an account's ledger.
// Amount is stored positive; the kind gives it its sign. The paid flag is
// installment bookkeeping only: it never gates whether the amount counts
// toward the account balance.
type Transaction struct {
	shared.TenantAggregateRoot
	AccountID     uuid.UUID       `json:"account_id"`
	CategoryID    uuid.UUID       `json:"category_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          TransactionKind `json:"kind"`
	Date          time.Time       `json:"date"`
	InstallmentID *uuid.UUID      `json:"installment_id,omitempty"`
	Paid          bool            `json:"paid"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	Archived      bool            `json:"archived"`
}

// NewTransaction creates a new transaction entry
func NewTransaction(
	tenantID, accountID, categoryID uuid.UUID,
	description string,
	amount decimal.Decimal,
	kind TransactionKind,
	date time.Time,
) (*Transaction, error) {
	description = strings.TrimSpace(description)
	if accountID == uuid.Nil {
		return nil, shared.NewValidationError("transaction account id cannot be nil")
	}
	if categoryID == uuid.Nil {
		return nil, shared.NewValidationError("transaction category id cannot be nil")
	}
	if description == "" {
		return nil, shared.NewValidationError("transaction description cannot be empty")
	}
	if len(description) > 200 {
		return nil, shared.NewValidationError("transaction description cannot exceed 200 characters")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("transaction amount must be positive")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("transaction kind is not valid")
	}
	if date.IsZero() {
		return nil, shared.NewValidationError("transaction date is required")
	}

	return &Transaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountID:           accountID,
		CategoryID:          categoryID,
		Description:         description,
		Amount:              amount,
		Kind:                kind,
		Date:                date,
	}, nil
}

// NewSettlementTransaction creates the expense transaction that records an
// installment payment. Exactly one settlement transaction exists per settled
// installment.
func NewSettlementTransaction(
	tenantID, accountID, categoryID, installmentID uuid.UUID,
	description string,
	amount decimal.Decimal,
	paidDate time.Time,
) (*Transaction, error) {
	tx, err := NewTransaction(tenantID, accountID, categoryID, description, amount, TransactionKindExpense, paidDate)
	if err != nil {
		return nil, err
	}
	if installmentID == uuid.Nil {
		return nil, shared.NewValidationError("settlement installment id cannot be nil")
	}
	tx.InstallmentID = &installmentID
	tx.Paid = true
	tx.PaidAt = &paidDate
	return tx, nil
}

// SignedAmount returns the amount with its sign by kind: income positive,
// expense negative.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Kind == TransactionKindExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Update changes the transaction's mutable fields
func (t *Transaction) Update(description string, amount decimal.Decimal, kind TransactionKind, date time.Time, categoryID uuid.UUID) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return shared.NewValidationError("transaction description cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("transaction amount must be positive")
	}
	if !kind.IsValid() {
		return shared.NewValidationError("transaction kind is not valid")
	}
	if date.IsZero() {
		return shared.NewValidationError("transaction date is required")
	}
	if categoryID == uuid.Nil {
		return shared.NewValidationError("transaction category id cannot be nil")
	}

	t.Description = description
	t.Amount = amount
	t.Kind = kind
	t.Date = date
	t.CategoryID = categoryID
	t.UpdatedAt = time.Now()
	return nil
}

// MarkPaid records a payment date on the transaction
func (t *Transaction) MarkPaid(paidAt time.Time) {
	t.Paid = true
	t.PaidAt = &paidAt
	t.UpdatedAt = time.Now()
}

// MarkUnpaid clears the payment record
func (t *Transaction) MarkUnpaid() {
	t.Paid = false
	t.PaidAt = nil
	t.UpdatedAt = time.Now()
}

// Archive detaches the transaction from the live ledger while preserving the
// row. Used by account deletion with the ARCHIVE mode.
func (t *Transaction) Archive() {
	t.Archived = true
	t.UpdatedAt = time.Now()
}

// IsSettlement reports whether the transaction settles an installment
func (t *Transaction) IsSettlement() bool {
	return t.InstallmentID != nil
}
