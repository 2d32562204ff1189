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
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its ID within the bound tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := scopedSession(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("account not found", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds an account and row-locks it for the duration of the
// surrounding transaction. Serializes balance writes per account.
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := scopedSession(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("account not found", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all accounts of the bound tenant matching the filter
func (r *GormAccountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Account, error) {
	var rows []models.AccountModel
	query := applyFilter(scopedSession(ctx, r.db).Model(&models.AccountModel{}), filter, "name")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	accounts := make([]ledger.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, *rows[i].ToDomain())
	}
	return accounts, nil
}

// Create persists a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	return scopedSession(ctx, r.db).Create(model).Error
}

// Save updates an existing account
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	result := scopedSession(ctx, r.db).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("account not found", account.ID.String())
	}
	return nil
}

// Delete deletes an account
func (r *GormAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := scopedSession(ctx, r.db).Delete(&models.AccountModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("account not found", id.String())
	}
	return nil
}

// UpdateBalance writes the cached balance column directly. No other field is
// touched, so a concurrent rename cannot be clobbered by a balance write.
func (r *GormAccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	result := scopedSession(ctx, r.db).
		Model(&models.AccountModel{}).
		Where("id = ?", id).
		Update("balance", balance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("account not found", id.String())
	}
	return nil
}

// applyFilter applies pagination and ordering shared by the list queries in
// this package. orderColumns whitelists the sortable columns.
func applyFilter(query *gorm.DB, filter shared.Filter, orderColumns ...string) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if col := ValidateSortField(filter.OrderBy, orderColumns...); col != "" {
		query = query.Order(col + " " + ValidateSortOrder(filter.OrderDir))
	}
	return query
}

var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
