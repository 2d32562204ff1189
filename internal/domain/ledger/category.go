package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
)

// CategoryKind restricts which transaction kinds a category accepts
type CategoryKind string

const (
	CategoryKindIncome  CategoryKind = "INCOME"
	CategoryKindExpense CategoryKind = "EXPENSE"
	CategoryKindBoth    CategoryKind = "BOTH"
)

// IsValid checks if the kind is a valid CategoryKind
func (k CategoryKind) IsValid() bool {
	switch k {
	case CategoryKindIncome, CategoryKindExpense, CategoryKindBoth:
		return true
	}
	return false
}

// Accepts reports whether the category accepts the given transaction kind
func (k CategoryKind) Accepts(tk TransactionKind) bool {
	switch k {
	case CategoryKindBoth:
		return true
	case CategoryKindIncome:
		return tk == TransactionKindIncome
	case CategoryKindExpense:
		return tk == TransactionKindExpense
	}
	return false
}

// Category classifies transactions within a tenant
type Category struct {
	shared.TenantAggregateRoot
	Name string       `json:"name"`
	Kind CategoryKind `json:"kind"`
}

// NewCategory creates a new category
func NewCategory(tenantID uuid.UUID, name string, kind CategoryKind) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("category name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("category name cannot exceed 100 characters")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("category kind is not valid")
	}

	return &Category{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Kind:                kind,
	}, nil
}

// Rename changes the category name
func (c *Category) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("category name cannot be empty")
	}
	c.Name = name
	c.UpdatedAt = time.Now()
	return nil
}
