// Package ledger implements the application services of the bookkeeping
// core: balance computation, monthly closing, transaction entry and
// installment scheduling.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"github.com/livrocaixa/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// BalanceService maintains the cached account balance. The authoritative
// value is always derivable: opening balance of the latest sealed closing
// plus the signed sum of transactions after that checkpoint. The cached
// column on the account is an optimization kept in sync by this service.
type BalanceService struct {
	accounts     ledger.AccountRepository
	transactions ledger.TransactionRepository
	closings     ledger.ClosingRepository
	tx           ledger.TxManager
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(
	accounts ledger.AccountRepository,
	transactions ledger.TransactionRepository,
	closings ledger.ClosingRepository,
	tx ledger.TxManager,
) *BalanceService {
	return &BalanceService{
		accounts:     accounts,
		transactions: transactions,
		closings:     closings,
		tx:           tx,
	}
}

// BalanceResponse reports an account's cached balance after an operation
type BalanceResponse struct {
	AccountID uuid.UUID       `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalanceAudit compares the cached balance against a full recomputation
type BalanceAudit struct {
	AccountID  uuid.UUID       `json:"account_id"`
	Cached     decimal.Decimal `json:"cached"`
	Computed   decimal.Decimal `json:"computed"`
	Consistent bool            `json:"consistent"`
	CheckedAt  time.Time       `json:"checked_at"`
}

// Recompute rebuilds the cached balance from the latest closing checkpoint
// and the transaction log, and writes it back. This is the repair path; the
// hot path applies incremental deltas instead.
func (s *BalanceService) Recompute(ctx context.Context, accountID uuid.UUID) (*BalanceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "balance", "recompute")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrAccountID, accountID.String())

	var resp *BalanceResponse
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		account, err := s.accounts.FindByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if err := ensureTenant(ctx, account.TenantID, account.ID); err != nil {
			return err
		}

		balance, err := s.computeBalance(ctx, accountID)
		if err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, accountID, balance); err != nil {
			return err
		}
		resp = &BalanceResponse{AccountID: accountID, Balance: balance}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, "balance", resp.Balance.String())
	return resp, nil
}

// ApplyDelta shifts the cached balance by a signed amount under the account
// row lock. Callers pass the signed effect of the change they just persisted
// in the same transaction.
func (s *BalanceService) ApplyDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	return s.tx.Do(ctx, func(ctx context.Context) error {
		account, err := s.accounts.FindByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if err := ensureTenant(ctx, account.TenantID, account.ID); err != nil {
			return err
		}
		return s.accounts.UpdateBalance(ctx, accountID, account.Balance.Add(delta))
	})
}

// Audit reports whether the cached balance matches a full recomputation
// without repairing anything.
func (s *BalanceService) Audit(ctx context.Context, accountID uuid.UUID) (*BalanceAudit, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	computed, err := s.computeBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &BalanceAudit{
		AccountID:  accountID,
		Cached:     account.Balance,
		Computed:   computed,
		Consistent: account.Balance.Equal(computed),
		CheckedAt:  time.Now(),
	}, nil
}

// computeBalance derives the balance from the latest sealed checkpoint plus
// the signed transaction sum after it. The paid flag never filters the sum.
func (s *BalanceService) computeBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	opening := decimal.Zero
	var from *time.Time

	latest, err := s.closings.FindLatestClosed(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if latest != nil {
		opening = latest.ClosingBalance
		start := dayAfter(latest.PeriodEnd)
		from = &start
	}

	income, err := s.transactions.SumByKind(ctx, accountID, ledger.TransactionKindIncome, from, nil)
	if err != nil {
		return decimal.Zero, err
	}
	expense, err := s.transactions.SumByKind(ctx, accountID, ledger.TransactionKindExpense, from, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return opening.Add(income).Sub(expense), nil
}

// dayAfter returns midnight of the day following t
func dayAfter(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

// ensureTenant rejects entities whose tenant does not match the bound
// context. The scoped repositories make this unreachable in practice; a hit
// means the scoping layer is broken and the operation must not proceed.
func ensureTenant(ctx context.Context, entityTenant, entityID uuid.UUID) error {
	if bound, ok := tenancy.TenantFromContext(ctx); ok && bound != entityTenant {
		return shared.NewConsistencyError(
			"entity belongs to a different tenant than the bound context", entityID.String())
	}
	return nil
}
