package tenancy

import (
	"context"

	"github.com/google/uuid"
)

// TenantRepository defines persistence operations for tenants. The tenant
// table itself is not tenant-filtered; these operations are the admin/global
// capability and run unscoped.
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindByCode(ctx context.Context, code string) (*Tenant, error)
	FindAllActive(ctx context.Context) ([]Tenant, error)
	Save(ctx context.Context, tenant *Tenant) error
	ExistsByCode(ctx context.Context, code string) (bool, error)
}
