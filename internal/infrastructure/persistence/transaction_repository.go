package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds a transaction by its ID within the bound tenant
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := scopedSession(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("transaction not found", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccount lists an account's non-archived transactions, newest first
func (r *GormTransactionRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]ledger.Transaction, error) {
	var rows []models.TransactionModel
	query := scopedSession(ctx, r.db).
		Model(&models.TransactionModel{}).
		Where("account_id = ? AND archived = false", accountID).
		Order("date DESC, created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	transactions := make([]ledger.Transaction, 0, len(rows))
	for i := range rows {
		transactions = append(transactions, *rows[i].ToDomain())
	}
	return transactions, nil
}

// FindSettlement returns the settlement transaction linked to an installment,
// or nil when the installment has never been settled.
func (r *GormTransactionRepository) FindSettlement(ctx context.Context, installmentID uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := scopedSession(ctx, r.db).
		First(&model, "installment_id = ?", installmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create persists a new transaction
func (r *GormTransactionRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(tx)
	return scopedSession(ctx, r.db).Create(model).Error
}

// Save updates an existing transaction
func (r *GormTransactionRepository) Save(ctx context.Context, tx *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(tx)
	result := scopedSession(ctx, r.db).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("transaction not found", tx.ID.String())
	}
	return nil
}

// Delete deletes a transaction
func (r *GormTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := scopedSession(ctx, r.db).Delete(&models.TransactionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("transaction not found", id.String())
	}
	return nil
}

// SumByKind sums non-archived transaction amounts of one kind over the
// half-open window [from, to). Nil bounds leave that side open. The paid flag
// is deliberately absent from the predicate: unpaid entries count toward the
// balance the same as paid ones.
func (r *GormTransactionRepository) SumByKind(ctx context.Context, accountID uuid.UUID, kind ledger.TransactionKind, from, to *time.Time) (decimal.Decimal, error) {
	query := scopedSession(ctx, r.db).
		Model(&models.TransactionModel{}).
		Where("account_id = ? AND kind = ? AND archived = false", accountID, kind)
	if from != nil {
		query = query.Where("date >= ?", *from)
	}
	if to != nil {
		query = query.Where("date < ?", *to)
	}

	var sum decimal.Decimal
	if err := query.
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// CountByAccount counts all of an account's transactions, archived included.
// Account deletion uses it to decide whether history exists at all.
func (r *GormTransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	if err := scopedSession(ctx, r.db).
		Model(&models.TransactionModel{}).
		Where("account_id = ?", accountID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ArchiveByAccount detaches all of an account's transactions from the live
// ledger in one statement
func (r *GormTransactionRepository) ArchiveByAccount(ctx context.Context, accountID uuid.UUID) error {
	return scopedSession(ctx, r.db).
		Model(&models.TransactionModel{}).
		Where("account_id = ?", accountID).
		Updates(map[string]interface{}{
			"archived":   true,
			"updated_at": time.Now(),
		}).Error
}

// DeleteByAccount removes all of an account's transactions
func (r *GormTransactionRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return scopedSession(ctx, r.db).
		Delete(&models.TransactionModel{}, "account_id = ?", accountID).Error
}

var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
