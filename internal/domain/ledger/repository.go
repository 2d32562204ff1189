package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TxManager runs a function inside one storage transaction. Everything the
// function does through the repositories joins that transaction, giving the
// per-account serialization the closing and balance paths require.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountRepository defines persistence operations for accounts. All reads
// are tenant-scoped through the bound context; there is no raw-primary-key
// path around the filter.
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// FindByIDForUpdate row-locks the account for the duration of the
	// surrounding transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Account, error)
	Create(ctx context.Context, account *Account) error
	Save(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	// UpdateBalance writes the cached balance column directly, without
	// touching any other field and without re-triggering recompute.
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

// CategoryRepository defines persistence operations for categories
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Category, error)
	Create(ctx context.Context, category *Category) error
	Save(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionRepository defines persistence operations for transactions,
// including the windowed aggregation the balance and closing engines share.
type TransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]Transaction, error)
	// FindSettlement returns the settlement transaction linked to an
	// installment, or nil when none exists.
	FindSettlement(ctx context.Context, installmentID uuid.UUID) (*Transaction, error)
	Create(ctx context.Context, tx *Transaction) error
	Save(ctx context.Context, tx *Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	// SumByKind sums non-archived transaction amounts of one kind for an
	// account over the half-open window [from, to); nil bounds leave that
	// side open. The paid flag never filters the sum.
	SumByKind(ctx context.Context, accountID uuid.UUID, kind TransactionKind, from, to *time.Time) (decimal.Decimal, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	ArchiveByAccount(ctx context.Context, accountID uuid.UUID) error
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

// ClosingRepository defines persistence operations for monthly closings.
// The store enforces uniqueness of (account, year, month) atomically; Create
// surfaces a violation as DUPLICATE_CLOSING, which makes check-then-write
// races harmless.
type ClosingRepository interface {
	Create(ctx context.Context, closing *MonthlyClosing) error
	// FindLatestClosed returns the newest sealed closing for the account by
	// (year, month), or nil when the account has never been sealed.
	FindLatestClosed(ctx context.Context, accountID uuid.UUID) (*MonthlyClosing, error)
	FindByPeriod(ctx context.Context, accountID uuid.UUID, year, month int) (*MonthlyClosing, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]MonthlyClosing, error)
	Exists(ctx context.Context, accountID uuid.UUID, year, month int) (bool, error)
}

// InstallmentRepository defines persistence operations for installment plans
// and their planned installments.
type InstallmentRepository interface {
	FindPlanByID(ctx context.Context, id uuid.UUID) (*InstallmentPlan, error)
	FindAllPlans(ctx context.Context, filter shared.Filter) ([]InstallmentPlan, error)
	CreatePlan(ctx context.Context, plan *InstallmentPlan) error
	SavePlan(ctx context.Context, plan *InstallmentPlan) error
	DeletePlan(ctx context.Context, id uuid.UUID) error

	FindInstallmentByID(ctx context.Context, id uuid.UUID) (*PlannedInstallment, error)
	FindByPlan(ctx context.Context, planID uuid.UUID) ([]PlannedInstallment, error)
	// CreateInstallments persists a batch in chunks so a failure partway
	// through leaves a well-defined committed prefix.
	CreateInstallments(ctx context.Context, installments []PlannedInstallment) error
	SaveInstallment(ctx context.Context, installment *PlannedInstallment) error
	DeleteByPlan(ctx context.Context, planID uuid.UUID) error
	CountByPlan(ctx context.Context, planID uuid.UUID) (int64, error)
	// MaxSequence returns the highest sequence number in the plan, 0 when
	// the plan has no installments.
	MaxSequence(ctx context.Context, planID uuid.UUID) (int, error)
	// SumByPlan totals installment amounts filtered by paid state.
	SumByPlan(ctx context.Context, planID uuid.UUID, paid bool) (decimal.Decimal, error)
}
