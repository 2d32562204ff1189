package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"github.com/livrocaixa/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// InstallmentService manages installment plans and their scheduled
// obligations: plan creation, one-shot expansion into installments, and the
// settle/unsettle lifecycle that ties installments to ledger transactions.
type InstallmentService struct {
	installments ledger.InstallmentRepository
	transactions ledger.TransactionRepository
	accounts     ledger.AccountRepository
	categories   ledger.CategoryRepository
	closings     ledger.ClosingRepository
	balance      *BalanceService
	tx           ledger.TxManager
}

// NewInstallmentService creates a new InstallmentService
func NewInstallmentService(
	installments ledger.InstallmentRepository,
	transactions ledger.TransactionRepository,
	accounts ledger.AccountRepository,
	categories ledger.CategoryRepository,
	closings ledger.ClosingRepository,
	balance *BalanceService,
	tx ledger.TxManager,
) *InstallmentService {
	return &InstallmentService{
		installments: installments,
		transactions: transactions,
		accounts:     accounts,
		categories:   categories,
		closings:     closings,
		balance:      balance,
		tx:           tx,
	}
}

// CreatePlanRequest represents a request to create an installment plan
type CreatePlanRequest struct {
	AccountID    uuid.UUID       `json:"account_id" binding:"required"`
	CategoryID   uuid.UUID       `json:"category_id" binding:"required"`
	Description  string          `json:"description" binding:"required,max=200"`
	TotalAmount  decimal.Decimal `json:"total_amount" binding:"required"`
	Count        int             `json:"count" binding:"required,min=1"`
	FirstDueDate time.Time       `json:"first_due_date" binding:"required"`
	DueDayAnchor int             `json:"due_day_anchor" binding:"required,min=1,max=31"`
	Recurrence   string          `json:"recurrence" binding:"required,oneof=MONTHLY BIWEEKLY WEEKLY CUSTOM_DAYS"`
	CustomDays   int             `json:"custom_days"`
}

// SettleRequest confirms payment of an installment. A nil Amount settles the
// full installment; an Amount below the installment's value records a partial
// payment and splits the difference into a new unpaid installment.
type SettleRequest struct {
	PaidDate time.Time        `json:"paid_date" binding:"required"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
}

// PlanResponse represents an installment plan in API responses
type PlanResponse struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	CategoryID   uuid.UUID       `json:"category_id"`
	Description  string          `json:"description"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Count        int             `json:"count"`
	FirstDueDate time.Time       `json:"first_due_date"`
	DueDayAnchor int             `json:"due_day_anchor"`
	Recurrence   string          `json:"recurrence"`
	CustomDays   int             `json:"custom_days,omitempty"`
	Generated    bool            `json:"generated"`
	CreatedAt    time.Time       `json:"created_at"`
}

// InstallmentResponse represents a planned installment in API responses
type InstallmentResponse struct {
	ID            uuid.UUID       `json:"id"`
	PlanID        uuid.UUID       `json:"plan_id"`
	Sequence      int             `json:"sequence"`
	DueDate       time.Time       `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
	Paid          bool            `json:"paid"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
}

// PlanProgress summarizes how much of a plan has been settled
type PlanProgress struct {
	PlanID       uuid.UUID       `json:"plan_id"`
	Total        decimal.Decimal `json:"total"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	OpenAmount   decimal.Decimal `json:"open_amount"`
	PaidCount    int             `json:"paid_count"`
	TotalCount   int             `json:"total_count"`
	FullySettled bool            `json:"fully_settled"`
}

// CreatePlan records a new ungenerated installment plan
func (s *InstallmentService) CreatePlan(ctx context.Context, req CreatePlanRequest) (*PlanResponse, error) {
	tenantID, err := tenancy.MustTenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.FindByID(ctx, req.AccountID); err != nil {
		return nil, err
	}
	category, err := s.categories.FindByID(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if !category.Kind.Accepts(ledger.TransactionKindExpense) {
		return nil, shared.NewValidationError(fmt.Sprintf(
			"category %q does not accept expense transactions", category.Name))
	}

	plan, err := ledger.NewInstallmentPlan(
		tenantID, req.AccountID, req.CategoryID,
		req.Description, req.TotalAmount, req.Count,
		req.FirstDueDate, req.DueDayAnchor,
		ledger.RecurrenceType(req.Recurrence), req.CustomDays)
	if err != nil {
		return nil, err
	}
	if err := s.installments.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return toPlanResponse(plan), nil
}

// Generate expands a plan into its installments. The call is idempotent: a
// plan that was already generated returns its existing installments without
// creating anything.
func (s *InstallmentService) Generate(ctx context.Context, planID uuid.UUID) ([]InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "generate")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrPlanID, planID.String())

	var result []ledger.PlannedInstallment
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		plan, err := s.installments.FindPlanByID(ctx, planID)
		if err != nil {
			return err
		}
		if plan.Generated {
			result, err = s.installments.FindByPlan(ctx, planID)
			return err
		}

		installments, err := plan.Schedule()
		if err != nil {
			return err
		}
		if err := plan.MarkGenerated(); err != nil {
			return err
		}
		if err := s.installments.SavePlan(ctx, plan); err != nil {
			return err
		}
		if err := s.installments.CreateInstallments(ctx, installments); err != nil {
			return err
		}
		result = installments
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "installments_generated",
		telemetry.SpanAttrPlanID, planID.String(),
		"count", len(result),
	)
	return toInstallmentResponses(result), nil
}

// Settle confirms payment of an installment, creating the linked settlement
// transaction and applying the expense to the account balance.
//
// A partial payment (amount below the installment's value) shrinks the
// installment to the paid amount, settles it, and appends a new unpaid
// installment carrying the difference, so the plan still sums to its total.
func (s *InstallmentService) Settle(ctx context.Context, installmentID uuid.UUID, req SettleRequest) (*InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "settle")
	defer span.End()

	telemetry.SetAttribute(span, "installment_id", installmentID.String())

	var settled *ledger.PlannedInstallment
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		installment, err := s.installments.FindInstallmentByID(ctx, installmentID)
		if err != nil {
			return err
		}
		if installment.Paid {
			return shared.ErrInvalidState.WithEntity(installment.ID.String())
		}
		plan, err := s.installments.FindPlanByID(ctx, installment.PlanID)
		if err != nil {
			return err
		}
		if err := s.ensureOpenPeriod(ctx, plan.AccountID, req.PaidDate); err != nil {
			return err
		}

		paidAmount := installment.Amount
		if req.Amount != nil {
			if req.Amount.GreaterThan(installment.Amount) {
				return shared.NewValidationError(
					"payment amount cannot exceed the installment amount")
			}
			paidAmount = *req.Amount
		}

		if paidAmount.LessThan(installment.Amount) {
			remainder := installment.Amount.Sub(paidAmount)
			if err := installment.ReduceTo(paidAmount); err != nil {
				return err
			}
			nextSeq, err := s.installments.MaxSequence(ctx, plan.ID)
			if err != nil {
				return err
			}
			rest, err := ledger.NewRemainderInstallment(installment, nextSeq+1, remainder)
			if err != nil {
				return err
			}
			if err := s.installments.CreateInstallments(ctx, []ledger.PlannedInstallment{*rest}); err != nil {
				return err
			}
		}

		description := fmt.Sprintf("%s (%d/%d)", plan.Description, installment.Sequence, plan.Count)
		settlement, err := ledger.NewSettlementTransaction(
			plan.TenantID, plan.AccountID, plan.CategoryID, installment.ID,
			description, paidAmount, req.PaidDate)
		if err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, settlement); err != nil {
			return err
		}
		if err := installment.Settle(req.PaidDate, settlement.ID); err != nil {
			return err
		}
		if err := s.installments.SaveInstallment(ctx, installment); err != nil {
			return err
		}
		if err := s.balance.ApplyDelta(ctx, plan.AccountID, settlement.SignedAmount()); err != nil {
			return err
		}

		settled = installment
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "installment_settled",
		telemetry.SpanAttrAmount, settled.Amount.String(),
		telemetry.SpanAttrSequence, settled.Sequence,
	)
	return toInstallmentResponse(settled), nil
}

// Unsettle reverts a settled installment: the settlement transaction is
// removed, its balance effect reversed, and the installment returns to
// unpaid. Rejected when the settlement's month has been sealed.
func (s *InstallmentService) Unsettle(ctx context.Context, installmentID uuid.UUID) (*InstallmentResponse, error) {
	var reverted *ledger.PlannedInstallment
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		installment, err := s.installments.FindInstallmentByID(ctx, installmentID)
		if err != nil {
			return err
		}
		if !installment.Paid || installment.TransactionID == nil {
			return shared.ErrInvalidState.WithEntity(installment.ID.String())
		}

		settlement, err := s.transactions.FindByID(ctx, *installment.TransactionID)
		if err != nil {
			return err
		}
		if err := s.ensureOpenPeriod(ctx, settlement.AccountID, settlement.Date); err != nil {
			return err
		}

		if err := s.transactions.Delete(ctx, settlement.ID); err != nil {
			return err
		}
		if err := installment.Unsettle(); err != nil {
			return err
		}
		if err := s.installments.SaveInstallment(ctx, installment); err != nil {
			return err
		}
		if err := s.balance.ApplyDelta(ctx, settlement.AccountID, settlement.SignedAmount().Neg()); err != nil {
			return err
		}

		reverted = installment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toInstallmentResponse(reverted), nil
}

// GetPlan returns one installment plan
func (s *InstallmentService) GetPlan(ctx context.Context, planID uuid.UUID) (*PlanResponse, error) {
	plan, err := s.installments.FindPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	return toPlanResponse(plan), nil
}

// ListPlans returns installment plans, filtered and paginated
func (s *InstallmentService) ListPlans(ctx context.Context, filter shared.Filter) ([]PlanResponse, error) {
	plans, err := s.installments.FindAllPlans(ctx, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		responses = append(responses, *toPlanResponse(&plans[i]))
	}
	return responses, nil
}

// ListInstallments returns a plan's installments in sequence order
func (s *InstallmentService) ListInstallments(ctx context.Context, planID uuid.UUID) ([]InstallmentResponse, error) {
	installments, err := s.installments.FindByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return toInstallmentResponses(installments), nil
}

// DeletePlan removes a plan and its unpaid installments. A plan with settled
// installments cannot be deleted, since its settlement transactions are part
// of the ledger; unsettle them first.
func (s *InstallmentService) DeletePlan(ctx context.Context, planID uuid.UUID) error {
	return s.tx.Do(ctx, func(ctx context.Context) error {
		if _, err := s.installments.FindPlanByID(ctx, planID); err != nil {
			return err
		}
		paidSum, err := s.installments.SumByPlan(ctx, planID, true)
		if err != nil {
			return err
		}
		if !paidSum.IsZero() {
			return shared.NewPolicyViolationError(
				"plan has settled installments; unsettle them before deleting")
		}
		if err := s.installments.DeleteByPlan(ctx, planID); err != nil {
			return err
		}
		return s.installments.DeletePlan(ctx, planID)
	})
}

// Progress summarizes a plan's settlement state
func (s *InstallmentService) Progress(ctx context.Context, planID uuid.UUID) (*PlanProgress, error) {
	plan, err := s.installments.FindPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	installments, err := s.installments.FindByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	paid := decimal.Zero
	open := decimal.Zero
	paidCount := 0
	for i := range installments {
		if installments[i].Paid {
			paid = paid.Add(installments[i].Amount)
			paidCount++
		} else {
			open = open.Add(installments[i].Amount)
		}
	}
	return &PlanProgress{
		PlanID:       plan.ID,
		Total:        plan.TotalAmount,
		PaidAmount:   paid,
		OpenAmount:   open,
		PaidCount:    paidCount,
		TotalCount:   len(installments),
		FullySettled: len(installments) > 0 && paidCount == len(installments),
	}, nil
}

// ensureOpenPeriod rejects settlement changes dated inside a sealed month
func (s *InstallmentService) ensureOpenPeriod(ctx context.Context, accountID uuid.UUID, date time.Time) error {
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

func toPlanResponse(p *ledger.InstallmentPlan) *PlanResponse {
	return &PlanResponse{
		ID:           p.ID,
		AccountID:    p.AccountID,
		CategoryID:   p.CategoryID,
		Description:  p.Description,
		TotalAmount:  p.TotalAmount,
		Count:        p.Count,
		FirstDueDate: p.FirstDueDate,
		DueDayAnchor: p.DueDayAnchor,
		Recurrence:   string(p.Recurrence),
		CustomDays:   p.CustomDays,
		Generated:    p.Generated,
		CreatedAt:    p.CreatedAt,
	}
}

func toInstallmentResponse(i *ledger.PlannedInstallment) *InstallmentResponse {
	return &InstallmentResponse{
		ID:            i.ID,
		PlanID:        i.PlanID,
		Sequence:      i.Sequence,
		DueDate:       i.DueDate,
		Amount:        i.Amount,
		Paid:          i.Paid,
		PaidAt:        i.PaidAt,
		TransactionID: i.TransactionID,
	}
}

func toInstallmentResponses(installments []ledger.PlannedInstallment) []InstallmentResponse {
	responses := make([]InstallmentResponse, 0, len(installments))
	for i := range installments {
		responses = append(responses, *toInstallmentResponse(&installments[i]))
	}
	return responses
}
