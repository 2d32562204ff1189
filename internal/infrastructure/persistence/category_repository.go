package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCategoryRepository implements ledger.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByID finds a category by its ID within the bound tenant
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Category, error) {
	var model models.CategoryModel
	if err := scopedSession(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("category not found", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all categories of the bound tenant matching the filter
func (r *GormCategoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Category, error) {
	var rows []models.CategoryModel
	query := applyFilter(scopedSession(ctx, r.db).Model(&models.CategoryModel{}), filter, "name")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	categories := make([]ledger.Category, 0, len(rows))
	for i := range rows {
		categories = append(categories, *rows[i].ToDomain())
	}
	return categories, nil
}

// Create persists a new category. The (tenant, name) uniqueness lives in the
// store; a violation surfaces as ALREADY_EXISTS.
func (r *GormCategoryRepository) Create(ctx context.Context, category *ledger.Category) error {
	model := models.CategoryModelFromDomain(category)
	if err := scopedSession(ctx, r.db).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists.WithEntity(category.Name)
		}
		return err
	}
	return nil
}

// Save updates an existing category
func (r *GormCategoryRepository) Save(ctx context.Context, category *ledger.Category) error {
	model := models.CategoryModelFromDomain(category)
	result := scopedSession(ctx, r.db).Save(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists.WithEntity(category.Name)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("category not found", category.ID.String())
	}
	return nil
}

// Delete deletes a category
func (r *GormCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := scopedSession(ctx, r.db).Delete(&models.CategoryModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("category not found", id.String())
	}
	return nil
}

var _ ledger.CategoryRepository = (*GormCategoryRepository)(nil)
