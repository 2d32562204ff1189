// Package ledger implements the bookkeeping core: accounts and their
// transactions, monthly closings that checkpoint balances, and installment
// plans that expand into dated obligations.
package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AccountKind represents the kind of an account
type AccountKind string

const (
	AccountKindBank    AccountKind = "BANK"
	AccountKindWallet  AccountKind = "WALLET"
	AccountKindSavings AccountKind = "SAVINGS"
)

// IsValid checks if the kind is a valid AccountKind
func (k AccountKind) IsValid() bool {
	switch k {
	case AccountKindBank, AccountKindWallet, AccountKindSavings:
		return true
	}
	return false
}

// String returns the string representation of AccountKind
func (k AccountKind) String() string {
	return string(k)
}

// Account is an aggregate root holding a cached balance. The cached value is
// derived, not authoritative: only the balance and closing services may write
// it, and the transaction log plus the latest closing can always reproduce it.
type Account struct {
	shared.TenantAggregateRoot
	Name    string          `json:"name"`
	Kind    AccountKind     `json:"kind"`
	Balance decimal.Decimal `json:"balance"`
}

// NewAccount creates a new account with a zero cached balance
func NewAccount(tenantID uuid.UUID, name string, kind AccountKind) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("account name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("account name cannot exceed 100 characters")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("account kind is not valid")
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Kind:                kind,
		Balance:             decimal.Zero,
	}, nil
}

// Rename changes the account name
func (a *Account) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("account name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewValidationError("account name cannot exceed 100 characters")
	}
	a.Name = name
	a.UpdatedAt = time.Now()
	return nil
}

// IsBankAccount reports whether the account is a bank account
func (a *Account) IsBankAccount() bool {
	return a.Kind == AccountKindBank
}

// AccountDeletionMode controls what happens to an account's transaction
// history on deletion. Irreversible loss of financial history must be an
// explicit, reviewable choice, never an implicit cascade.
type AccountDeletionMode string

const (
	// DeletionRefuseIfHistory rejects deletion while transactions exist.
	DeletionRefuseIfHistory AccountDeletionMode = "REFUSE_IF_HISTORY"
	// DeletionArchive detaches the history into the archive before deleting.
	DeletionArchive AccountDeletionMode = "ARCHIVE"
	// DeletionPurge deletes the account together with its history.
	DeletionPurge AccountDeletionMode = "PURGE"
)

// IsValid checks if the mode is a valid AccountDeletionMode
func (m AccountDeletionMode) IsValid() bool {
	switch m {
	case DeletionRefuseIfHistory, DeletionArchive, DeletionPurge:
		return true
	}
	return false
}
