package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
)

// CategoryService manages the tenant's transaction categories
type CategoryService struct {
	categories ledger.CategoryRepository
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categories ledger.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Kind string    `json:"kind"`
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Kind string `json:"kind" binding:"required,oneof=INCOME EXPENSE BOTH"`
}

// UpdateCategoryRequest represents a request to rename a category
type UpdateCategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// CreateCategory creates a new category
func (s *CategoryService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	tenantID, err := tenancy.MustTenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	category, err := ledger.NewCategory(tenantID, req.Name, ledger.CategoryKind(req.Kind))
	if err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return toCategoryResponse(category), nil
}

// GetCategory returns a single category
func (s *CategoryService) GetCategory(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCategoryResponse(category), nil
}

// ListCategories returns the tenant's categories, filtered and paginated
func (s *CategoryService) ListCategories(ctx context.Context, filter shared.Filter) ([]CategoryResponse, error) {
	categories, err := s.categories.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		responses = append(responses, *toCategoryResponse(&categories[i]))
	}
	return responses, nil
}

// UpdateCategory renames a category
func (s *CategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := category.Rename(req.Name); err != nil {
		return nil, err
	}
	if err := s.categories.Save(ctx, category); err != nil {
		return nil, err
	}
	return toCategoryResponse(category), nil
}

// DeleteCategory removes a category
func (s *CategoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.Delete(ctx, id)
}

func toCategoryResponse(c *ledger.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:   c.ID,
		Name: c.Name,
		Kind: string(c.Kind),
	}
}
