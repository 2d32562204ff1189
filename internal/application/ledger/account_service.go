package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"github.com/shopspring/decimal"
)

// AccountService manages accounts: creation with an optional opening
// balance, renaming, and explicit deletion modes for the transaction
// history.
type AccountService struct {
	accounts     ledger.AccountRepository
	transactions ledger.TransactionRepository
	categories   ledger.CategoryRepository
	balance      *BalanceService
	tx           ledger.TxManager
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accounts ledger.AccountRepository,
	transactions ledger.TransactionRepository,
	categories ledger.CategoryRepository,
	balance *BalanceService,
	tx ledger.TxManager,
) *AccountService {
	return &AccountService{
		accounts:     accounts,
		transactions: transactions,
		categories:   categories,
		balance:      balance,
		tx:           tx,
	}
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateAccountRequest represents a request to create an account. A non-zero
// opening balance is recorded as a regular income transaction, so the ledger
// stays the single source of truth for the balance.
type CreateAccountRequest struct {
	Name              string           `json:"name" binding:"required,max=100"`
	Kind              string           `json:"kind" binding:"required,oneof=BANK WALLET SAVINGS"`
	OpeningBalance    *decimal.Decimal `json:"opening_balance,omitempty"`
	OpeningCategoryID *uuid.UUID       `json:"opening_category_id,omitempty"`
}

// UpdateAccountRequest represents a request to rename an account
type UpdateAccountRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// DeleteAccountRequest selects what happens to the account's history
type DeleteAccountRequest struct {
	Mode string `json:"mode" binding:"required,oneof=REFUSE_IF_HISTORY ARCHIVE PURGE"`
}

// CreateAccount creates a new account. When an opening balance is given it
// is booked as the account's first income transaction.
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*AccountResponse, error) {
	tenantID, err := tenancy.MustTenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	account, err := ledger.NewAccount(tenantID, req.Name, ledger.AccountKind(req.Kind))
	if err != nil {
		return nil, err
	}

	opening := decimal.Zero
	if req.OpeningBalance != nil {
		opening = *req.OpeningBalance
	}
	if opening.IsNegative() {
		return nil, shared.NewValidationError("opening balance cannot be negative")
	}
	if opening.IsPositive() && req.OpeningCategoryID == nil {
		return nil, shared.NewValidationError("opening balance requires a category")
	}

	err = s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}
		if !opening.IsPositive() {
			return nil
		}

		category, err := s.categories.FindByID(ctx, *req.OpeningCategoryID)
		if err != nil {
			return err
		}
		if !category.Kind.Accepts(ledger.TransactionKindIncome) {
			return shared.NewValidationError("opening balance category must accept income")
		}
		transaction, err := ledger.NewTransaction(
			tenantID, account.ID, category.ID,
			"Opening balance", opening, ledger.TransactionKindIncome, time.Now())
		if err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, transaction); err != nil {
			return err
		}
		account.Balance = opening
		return s.accounts.UpdateBalance(ctx, account.ID, opening)
	})
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

// GetAccount returns a single account
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

// ListAccounts returns the tenant's accounts, filtered and paginated
func (s *AccountService) ListAccounts(ctx context.Context, filter shared.Filter) ([]AccountResponse, error) {
	accounts, err := s.accounts.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, *toAccountResponse(&accounts[i]))
	}
	return responses, nil
}

// UpdateAccount renames an account
func (s *AccountService) UpdateAccount(ctx context.Context, id uuid.UUID, req UpdateAccountRequest) (*AccountResponse, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := account.Rename(req.Name); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

// DeleteAccount removes an account under an explicitly chosen history mode:
//
//	REFUSE_IF_HISTORY  fail while any transaction exists
//	ARCHIVE            detach the history into the archive, then delete
//	PURGE              delete the history together with the account
//
// There is no default: the caller always states what happens to the history.
func (s *AccountService) DeleteAccount(ctx context.Context, id uuid.UUID, req DeleteAccountRequest) error {
	mode := ledger.AccountDeletionMode(req.Mode)
	if !mode.IsValid() {
		return shared.NewValidationError("account deletion mode is not valid")
	}

	return s.tx.Do(ctx, func(ctx context.Context) error {
		account, err := s.accounts.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureTenant(ctx, account.TenantID, account.ID); err != nil {
			return err
		}

		count, err := s.transactions.CountByAccount(ctx, id)
		if err != nil {
			return err
		}

		switch mode {
		case ledger.DeletionRefuseIfHistory:
			if count > 0 {
				return shared.NewPolicyViolationError(
					"account has transaction history; choose ARCHIVE or PURGE to delete it")
			}
		case ledger.DeletionArchive:
			if err := s.transactions.ArchiveByAccount(ctx, id); err != nil {
				return err
			}
		case ledger.DeletionPurge:
			if err := s.transactions.DeleteByAccount(ctx, id); err != nil {
				return err
			}
		}
		return s.accounts.Delete(ctx, id)
	})
}

// RecomputeBalance rebuilds the account's cached balance from the ledger
func (s *AccountService) RecomputeBalance(ctx context.Context, id uuid.UUID) (*BalanceResponse, error) {
	return s.balance.Recompute(ctx, id)
}

// AuditBalance checks the cached balance against a full recomputation
func (s *AccountService) AuditBalance(ctx context.Context, id uuid.UUID) (*BalanceAudit, error) {
	return s.balance.Audit(ctx, id)
}

func toAccountResponse(a *ledger.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Kind:      a.Kind.String(),
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
