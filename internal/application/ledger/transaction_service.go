package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"github.com/shopspring/decimal"
)

// TransactionService records income and expense entries. Every successful
// write applies its signed effect to the cached account balance in the same
// storage transaction, and no write may touch a month that has already been
// sealed.
type TransactionService struct {
	transactions ledger.TransactionRepository
	accounts     ledger.AccountRepository
	categories   ledger.CategoryRepository
	closings     ledger.ClosingRepository
	balance      *BalanceService
	tx           ledger.TxManager
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	transactions ledger.TransactionRepository,
	accounts ledger.AccountRepository,
	categories ledger.CategoryRepository,
	closings ledger.ClosingRepository,
	balance *BalanceService,
	tx ledger.TxManager,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		accounts:     accounts,
		categories:   categories,
		closings:     closings,
		balance:      balance,
		tx:           tx,
	}
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     uuid.UUID       `json:"account_id"`
	CategoryID    uuid.UUID       `json:"category_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          string          `json:"kind"`
	Date          time.Time       `json:"date"`
	InstallmentID *uuid.UUID      `json:"installment_id,omitempty"`
	Paid          bool            `json:"paid"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateTransactionRequest represents a request to record a transaction
type CreateTransactionRequest struct {
	AccountID   uuid.UUID       `json:"account_id" binding:"required"`
	CategoryID  uuid.UUID       `json:"category_id" binding:"required"`
	Description string          `json:"description" binding:"required,max=200"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Kind        string          `json:"kind" binding:"required,oneof=INCOME EXPENSE"`
	Date        time.Time       `json:"date" binding:"required"`
}

// UpdateTransactionRequest represents a request to change a transaction
type UpdateTransactionRequest struct {
	CategoryID  uuid.UUID       `json:"category_id" binding:"required"`
	Description string          `json:"description" binding:"required,max=200"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Kind        string          `json:"kind" binding:"required,oneof=INCOME EXPENSE"`
	Date        time.Time       `json:"date" binding:"required"`
}

// Create records a new transaction and applies it to the account balance
func (s *TransactionService) Create(ctx context.Context, req CreateTransactionRequest) (*TransactionResponse, error) {
	tenantID, err := tenancy.MustTenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	kind := ledger.TransactionKind(req.Kind)

	var resp *TransactionResponse
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		if _, err := s.accounts.FindByID(ctx, req.AccountID); err != nil {
			return err
		}
		category, err := s.categories.FindByID(ctx, req.CategoryID)
		if err != nil {
			return err
		}
		if !category.Kind.Accepts(kind) {
			return shared.NewValidationError(fmt.Sprintf(
				"category %q does not accept %s transactions", category.Name, kind))
		}
		if err := s.ensureOpenPeriod(ctx, req.AccountID, req.Date); err != nil {
			return err
		}

		transaction, err := ledger.NewTransaction(
			tenantID, req.AccountID, req.CategoryID,
			req.Description, req.Amount, kind, req.Date)
		if err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, transaction); err != nil {
			return err
		}
		if err := s.balance.ApplyDelta(ctx, req.AccountID, transaction.SignedAmount()); err != nil {
			return err
		}

		resp = toTransactionResponse(transaction)
		return nil
	})
	return resp, err
}

// Update changes a transaction and applies the balance difference. Moving a
// transaction between accounts is not supported; delete and recreate instead.
func (s *TransactionService) Update(ctx context.Context, id uuid.UUID, req UpdateTransactionRequest) (*TransactionResponse, error) {
	kind := ledger.TransactionKind(req.Kind)

	var resp *TransactionResponse
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		transaction, err := s.transactions.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if transaction.IsSettlement() {
			return shared.NewPolicyViolationError(
				"settlement transactions are managed through their installment")
		}

		category, err := s.categories.FindByID(ctx, req.CategoryID)
		if err != nil {
			return err
		}
		if !category.Kind.Accepts(kind) {
			return shared.NewValidationError(fmt.Sprintf(
				"category %q does not accept %s transactions", category.Name, kind))
		}

		// Both the month the entry leaves and the month it lands in must be
		// open.
		if err := s.ensureOpenPeriod(ctx, transaction.AccountID, transaction.Date); err != nil {
			return err
		}
		if err := s.ensureOpenPeriod(ctx, transaction.AccountID, req.Date); err != nil {
			return err
		}

		oldSigned := transaction.SignedAmount()
		if err := transaction.Update(req.Description, req.Amount, kind, req.Date, req.CategoryID); err != nil {
			return err
		}
		if err := s.transactions.Save(ctx, transaction); err != nil {
			return err
		}
		if err := s.balance.ApplyDelta(ctx, transaction.AccountID, transaction.SignedAmount().Sub(oldSigned)); err != nil {
			return err
		}

		resp = toTransactionResponse(transaction)
		return nil
	})
	return resp, err
}

// Delete removes a transaction and reverses its balance effect
func (s *TransactionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.Do(ctx, func(ctx context.Context) error {
		transaction, err := s.transactions.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if transaction.IsSettlement() {
			return shared.NewPolicyViolationError(
				"settlement transactions are removed by unsettling their installment")
		}
		if err := s.ensureOpenPeriod(ctx, transaction.AccountID, transaction.Date); err != nil {
			return err
		}
		if err := s.transactions.Delete(ctx, id); err != nil {
			return err
		}
		return s.balance.ApplyDelta(ctx, transaction.AccountID, transaction.SignedAmount().Neg())
	})
}

// GetByID returns a single transaction
func (s *TransactionService) GetByID(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	transaction, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTransactionResponse(transaction), nil
}

// ListByAccount returns an account's transactions, filtered and paginated
func (s *TransactionService) ListByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]TransactionResponse, error) {
	transactions, err := s.transactions.FindByAccount(ctx, accountID, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		responses = append(responses, *toTransactionResponse(&transactions[i]))
	}
	return responses, nil
}

// ensureOpenPeriod rejects writes dated inside an already sealed month
func (s *TransactionService) ensureOpenPeriod(ctx context.Context, accountID uuid.UUID, date time.Time) error {
	sealed, err := s.closings.Exists(ctx, accountID, date.Year(), int(date.Month()))
	if err != nil {
		return err
	}
	if sealed {
		return shared.NewPolicyViolationError(fmt.Sprintf(
			"period %04d-%02d is sealed; its entries can no longer change", date.Year(), int(date.Month())))
	}
	return nil
}

func toTransactionResponse(t *ledger.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:            t.ID,
		AccountID:     t.AccountID,
		CategoryID:    t.CategoryID,
		Description:   t.Description,
		Amount:        t.Amount,
		Kind:          t.Kind.String(),
		Date:          t.Date,
		InstallmentID: t.InstallmentID,
		Paid:          t.Paid,
		PaidAt:        t.PaidAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
