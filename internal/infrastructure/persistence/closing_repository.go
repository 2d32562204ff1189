package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormClosingRepository implements ledger.ClosingRepository using GORM
type GormClosingRepository struct {
	db *gorm.DB
}

// NewGormClosingRepository creates a new GormClosingRepository
func NewGormClosingRepository(db *gorm.DB) *GormClosingRepository {
	return &GormClosingRepository{db: db}
}

// Create persists a sealed closing. The unique index over (account_id, year,
// month) turns a concurrent second seal into a duplicate-key error, surfaced
// here as DUPLICATE_CLOSING. There is no update path: closings are immutable.
func (r *GormClosingRepository) Create(ctx context.Context, closing *ledger.MonthlyClosing) error {
	model := models.MonthlyClosingModelFromDomain(closing)
	if err := scopedSession(ctx, r.db).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDuplicateClosingError(
				fmt.Sprintf("period %04d-%02d is already closed for this account", closing.Year, closing.Month),
				closing.AccountID.String())
		}
		return err
	}
	return nil
}

// FindLatestClosed returns the newest sealed closing for the account ordered
// by (year, month), or nil when the account has never been sealed.
func (r *GormClosingRepository) FindLatestClosed(ctx context.Context, accountID uuid.UUID) (*ledger.MonthlyClosing, error) {
	var model models.MonthlyClosingModel
	if err := scopedSession(ctx, r.db).
		Where("account_id = ? AND closed = true", accountID).
		Order("year DESC, month DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPeriod finds the closing of one account's calendar month
func (r *GormClosingRepository) FindByPeriod(ctx context.Context, accountID uuid.UUID, year, month int) (*ledger.MonthlyClosing, error) {
	var model models.MonthlyClosingModel
	if err := scopedSession(ctx, r.db).
		Where("account_id = ? AND year = ? AND month = ?", accountID, year, month).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(
				fmt.Sprintf("no closing for period %04d-%02d", year, month), accountID.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccount lists an account's closings, newest period first
func (r *GormClosingRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]ledger.MonthlyClosing, error) {
	var rows []models.MonthlyClosingModel
	if err := scopedSession(ctx, r.db).
		Where("account_id = ?", accountID).
		Order("year DESC, month DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	closings := make([]ledger.MonthlyClosing, 0, len(rows))
	for i := range rows {
		closings = append(closings, *rows[i].ToDomain())
	}
	return closings, nil
}

// Exists reports whether a closing exists for the account's period
func (r *GormClosingRepository) Exists(ctx context.Context, accountID uuid.UUID, year, month int) (bool, error) {
	var count int64
	if err := scopedSession(ctx, r.db).
		Model(&models.MonthlyClosingModel{}).
		Where("account_id = ? AND year = ? AND month = ?", accountID, year, month).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ ledger.ClosingRepository = (*GormClosingRepository)(nil)
