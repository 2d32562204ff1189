package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/shared/valueobject"
	"github.com/livrocaixa/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// ClosingService seals calendar months of an account into immutable
// checkpoints. Sealing aggregates the month's totals, derives the closing
// balance from the previous checkpoint, and persists the closing under the
// store's (account, year, month) uniqueness guarantee.
type ClosingService struct {
	closings     ledger.ClosingRepository
	transactions ledger.TransactionRepository
	accounts     ledger.AccountRepository
	tx           ledger.TxManager
	policy       ledger.ClosingPolicy
	now          func() time.Time
}

// NewClosingService creates a new ClosingService
func NewClosingService(
	closings ledger.ClosingRepository,
	transactions ledger.TransactionRepository,
	accounts ledger.AccountRepository,
	tx ledger.TxManager,
	policy ledger.ClosingPolicy,
) *ClosingService {
	return &ClosingService{
		closings:     closings,
		transactions: transactions,
		accounts:     accounts,
		tx:           tx,
		policy:       policy,
		now:          time.Now,
	}
}

// SealRequest asks for one account's calendar month to be sealed
type SealRequest struct {
	AccountID uuid.UUID `json:"account_id" binding:"required"`
	Year      int       `json:"year" binding:"required"`
	Month     int       `json:"month" binding:"required,min=1,max=12"`
}

// ClosingResponse represents a monthly closing in API responses
type ClosingResponse struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Partial        bool            `json:"partial"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	ClosedAt       time.Time       `json:"closed_at"`
}

// Seal closes one calendar month of an account.
//
// The period must pass the closing policy. Sealing the running month (when
// the policy allows it) produces a partial closing whose period ends today;
// a partial closing is final and the period cannot be sealed again. The
// account row is locked for the duration so concurrent transaction writes
// serialize against the seal.
func (s *ClosingService) Seal(ctx context.Context, req SealRequest) (*ClosingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "seal")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, req.AccountID.String(),
		telemetry.SpanAttrYear, req.Year,
		telemetry.SpanAttrMonth, req.Month,
	)

	period, err := valueobject.NewPeriod(req.Year, req.Month)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewValidationError(err.Error())
	}

	now := s.now()
	if err := s.policy.CanSeal(now, period); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var resp *ClosingResponse
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		account, err := s.accounts.FindByIDForUpdate(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if err := ensureTenant(ctx, account.TenantID, account.ID); err != nil {
			return err
		}

		// Early rejection for the common case. The unique index behind
		// ClosingRepository.Create is the authoritative guard under races.
		exists, err := s.closings.Exists(ctx, req.AccountID, req.Year, req.Month)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDuplicateClosingError(
				fmt.Sprintf("period %s is already sealed for this account", period),
				req.AccountID.String())
		}

		partial := period.Contains(now)
		periodEnd := period.End()
		if partial {
			periodEnd = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		}

		opening := decimal.Zero
		start := period.Start()
		previous, err := s.closings.FindLatestClosed(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if previous != nil {
			if !period.After(previous.Period()) {
				return shared.NewPolicyViolationError(fmt.Sprintf(
					"period %s precedes the latest sealed period %s", period, previous.Period()))
			}
			opening = previous.ClosingBalance
			// A partial seal leaves a tail between its period end and the
			// month boundary. Entries dated in that tail belong to no sealed
			// window yet, so this closing picks them up.
			if carry := dayAfter(previous.PeriodEnd); carry.Before(start) {
				start = carry
			}
		}
		end := dayAfter(periodEnd)
		income, err := s.transactions.SumByKind(ctx, req.AccountID, ledger.TransactionKindIncome, &start, &end)
		if err != nil {
			return err
		}
		expense, err := s.transactions.SumByKind(ctx, req.AccountID, ledger.TransactionKindExpense, &start, &end)
		if err != nil {
			return err
		}

		closing, err := ledger.NewMonthlyClosing(
			account.TenantID, req.AccountID, period,
			opening, income, expense, periodEnd, partial)
		if err != nil {
			return err
		}
		if err := s.closings.Create(ctx, closing); err != nil {
			return err
		}

		// Re-anchor the cached balance on the new checkpoint.
		after := dayAfter(closing.PeriodEnd)
		laterIncome, err := s.transactions.SumByKind(ctx, req.AccountID, ledger.TransactionKindIncome, &after, nil)
		if err != nil {
			return err
		}
		laterExpense, err := s.transactions.SumByKind(ctx, req.AccountID, ledger.TransactionKindExpense, &after, nil)
		if err != nil {
			return err
		}
		balance := closing.ClosingBalance.Add(laterIncome).Sub(laterExpense)
		if err := s.accounts.UpdateBalance(ctx, req.AccountID, balance); err != nil {
			return err
		}

		resp = toClosingResponse(closing)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "period_sealed",
		"closing_balance", resp.ClosingBalance.String(),
		"partial", resp.Partial,
	)
	return resp, nil
}

// GetClosing returns one sealed period of an account
func (s *ClosingService) GetClosing(ctx context.Context, accountID uuid.UUID, year, month int) (*ClosingResponse, error) {
	closing, err := s.closings.FindByPeriod(ctx, accountID, year, month)
	if err != nil {
		return nil, err
	}
	return toClosingResponse(closing), nil
}

// ListClosings returns all sealed periods of an account, newest first
func (s *ClosingService) ListClosings(ctx context.Context, accountID uuid.UUID) ([]ClosingResponse, error) {
	closings, err := s.closings.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	responses := make([]ClosingResponse, 0, len(closings))
	for i := range closings {
		responses = append(responses, *toClosingResponse(&closings[i]))
	}
	return responses, nil
}

// IsSealed reports whether a date falls inside an already sealed period of
// the account. Mutations touching sealed periods are rejected upstream.
func (s *ClosingService) IsSealed(ctx context.Context, accountID uuid.UUID, date time.Time) (bool, error) {
	return s.closings.Exists(ctx, accountID, date.Year(), int(date.Month()))
}

func toClosingResponse(c *ledger.MonthlyClosing) *ClosingResponse {
	return &ClosingResponse{
		ID:             c.ID,
		AccountID:      c.AccountID,
		Year:           c.Year,
		Month:          c.Month,
		OpeningBalance: c.OpeningBalance,
		TotalIncome:    c.TotalIncome,
		TotalExpense:   c.TotalExpense,
		ClosingBalance: c.ClosingBalance,
		Partial:        c.Partial,
		PeriodStart:    c.PeriodStart,
		PeriodEnd:      c.PeriodEnd,
		ClosedAt:       c.ClosedAt,
	}
}
