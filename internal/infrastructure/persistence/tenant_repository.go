package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"github.com/livrocaixa/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTenantRepository implements tenancy.TenantRepository using GORM. The
// tenants table carries no tenant_id column, so every operation here runs on
// the raw session: this is the registry the scoping resolves against, and the
// only repository allowed around the tenant filter.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	var model models.TenancyTenantModel
	if err := rawSession(ctx, r.db).
		Preload("Members").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("tenant not found", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a tenant by its code
func (r *GormTenantRepository) FindByCode(ctx context.Context, code string) (*tenancy.Tenant, error) {
	var model models.TenancyTenantModel
	if err := rawSession(ctx, r.db).
		Preload("Members").
		First(&model, "code = ?", strings.TrimSpace(code)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("tenant not found", code)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllActive lists all active tenants. Provisioning iterates this.
func (r *GormTenantRepository) FindAllActive(ctx context.Context) ([]tenancy.Tenant, error) {
	var rows []models.TenancyTenantModel
	if err := rawSession(ctx, r.db).
		Preload("Members").
		Where("active = true").
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	tenants := make([]tenancy.Tenant, 0, len(rows))
	for i := range rows {
		tenants = append(tenants, *rows[i].ToDomain())
	}
	return tenants, nil
}

// Save creates or updates a tenant together with its member list. Members are
// replaced wholesale so removals on the aggregate reach the store.
func (r *GormTenantRepository) Save(ctx context.Context, tenant *tenancy.Tenant) error {
	model := models.TenancyTenantModelFromDomain(tenant)
	return rawSession(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Save(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.ErrAlreadyExists.WithEntity(tenant.Code)
			}
			return err
		}
		if err := tx.Delete(&models.TenantMemberModel{}, "tenant_id = ?", tenant.ID).Error; err != nil {
			return err
		}
		if len(model.Members) == 0 {
			return nil
		}
		return tx.Create(&model.Members).Error
	})
}

// ExistsByCode reports whether a tenant with the given code exists
func (r *GormTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := rawSession(ctx, r.db).
		Model(&models.TenancyTenantModel{}).
		Where("code = ?", strings.TrimSpace(code)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ tenancy.TenantRepository = (*GormTenantRepository)(nil)
