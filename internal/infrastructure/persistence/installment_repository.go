package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// installmentBatchSize chunks bulk installment inserts
const installmentBatchSize = 100

// GormInstallmentRepository implements ledger.InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindPlanByID finds an installment plan by its ID within the bound tenant
func (r *GormInstallmentRepository) FindPlanByID(ctx context.Context, id uuid.UUID) (*ledger.InstallmentPlan, error) {
	var model models.InstallmentPlanModel
	if err := scopedSession(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("installment plan not found", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllPlans finds all plans of the bound tenant matching the filter
func (r *GormInstallmentRepository) FindAllPlans(ctx context.Context, filter shared.Filter) ([]ledger.InstallmentPlan, error) {
	var rows []models.InstallmentPlanModel
	query := scopedSession(ctx, r.db).
		Model(&models.InstallmentPlanModel{}).
		Order("created_at DESC")
	if filter.Search != "" {
		query = query.Where("description ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	plans := make([]ledger.InstallmentPlan, 0, len(rows))
	for i := range rows {
		plans = append(plans, *rows[i].ToDomain())
	}
	return plans, nil
}

// CreatePlan persists a new installment plan
func (r *GormInstallmentRepository) CreatePlan(ctx context.Context, plan *ledger.InstallmentPlan) error {
	model := models.InstallmentPlanModelFromDomain(plan)
	return scopedSession(ctx, r.db).Create(model).Error
}

// SavePlan updates an existing installment plan
func (r *GormInstallmentRepository) SavePlan(ctx context.Context, plan *ledger.InstallmentPlan) error {
	model := models.InstallmentPlanModelFromDomain(plan)
	result := scopedSession(ctx, r.db).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("installment plan not found", plan.ID.String())
	}
	return nil
}

// DeletePlan deletes an installment plan
func (r *GormInstallmentRepository) DeletePlan(ctx context.Context, id uuid.UUID) error {
	result := scopedSession(ctx, r.db).Delete(&models.InstallmentPlanModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("installment plan not found", id.String())
	}
	return nil
}

// FindInstallmentByID finds a planned installment by its ID
func (r *GormInstallmentRepository) FindInstallmentByID(ctx context.Context, id uuid.UUID) (*ledger.PlannedInstallment, error) {
	var model models.PlannedInstallmentModel
	if err := scopedSession(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("installment not found", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlan lists a plan's installments in sequence order
func (r *GormInstallmentRepository) FindByPlan(ctx context.Context, planID uuid.UUID) ([]ledger.PlannedInstallment, error) {
	var rows []models.PlannedInstallmentModel
	if err := scopedSession(ctx, r.db).
		Where("plan_id = ?", planID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	installments := make([]ledger.PlannedInstallment, 0, len(rows))
	for i := range rows {
		installments = append(installments, *rows[i].ToDomain())
	}
	return installments, nil
}

// CreateInstallments persists a batch of installments in chunks
func (r *GormInstallmentRepository) CreateInstallments(ctx context.Context, installments []ledger.PlannedInstallment) error {
	if len(installments) == 0 {
		return nil
	}
	rows := make([]models.PlannedInstallmentModel, 0, len(installments))
	for i := range installments {
		rows = append(rows, *models.PlannedInstallmentModelFromDomain(&installments[i]))
	}
	return scopedSession(ctx, r.db).CreateInBatches(rows, installmentBatchSize).Error
}

// SaveInstallment updates an existing installment
func (r *GormInstallmentRepository) SaveInstallment(ctx context.Context, installment *ledger.PlannedInstallment) error {
	model := models.PlannedInstallmentModelFromDomain(installment)
	result := scopedSession(ctx, r.db).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("installment not found", installment.ID.String())
	}
	return nil
}

// DeleteByPlan removes all of a plan's installments
func (r *GormInstallmentRepository) DeleteByPlan(ctx context.Context, planID uuid.UUID) error {
	return scopedSession(ctx, r.db).
		Delete(&models.PlannedInstallmentModel{}, "plan_id = ?", planID).Error
}

// CountByPlan counts a plan's installments
func (r *GormInstallmentRepository) CountByPlan(ctx context.Context, planID uuid.UUID) (int64, error) {
	var count int64
	if err := scopedSession(ctx, r.db).
		Model(&models.PlannedInstallmentModel{}).
		Where("plan_id = ?", planID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MaxSequence returns the highest sequence in the plan, 0 when the plan has
// no installments. Partial-payment splits append after it.
func (r *GormInstallmentRepository) MaxSequence(ctx context.Context, planID uuid.UUID) (int, error) {
	var maxSeq int
	if err := scopedSession(ctx, r.db).
		Model(&models.PlannedInstallmentModel{}).
		Where("plan_id = ?", planID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&maxSeq).Error; err != nil {
		return 0, err
	}
	return maxSeq, nil
}

// SumByPlan totals installment amounts filtered by paid state
func (r *GormInstallmentRepository) SumByPlan(ctx context.Context, planID uuid.UUID, paid bool) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := scopedSession(ctx, r.db).
		Model(&models.PlannedInstallmentModel{}).
		Where("plan_id = ? AND paid = ?", planID, paid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

var _ ledger.InstallmentRepository = (*GormInstallmentRepository)(nil)
