// Package tenancy implements tenant administration: registration,
// lifecycle, membership, and reporting-schema provisioning.
package tenancy

import (
	"context"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
)

// Provisioner creates the per-tenant reporting objects after a tenant is
// registered. Provisioning is idempotent and re-runnable.
type Provisioner interface {
	Provision(ctx context.Context, tenant *tenancy.Tenant) error
}

// TenantService manages tenants. Its operations run unscoped: tenant
// administration is the one capability that legitimately crosses tenants.
type TenantService struct {
	tenants     tenancy.TenantRepository
	provisioner Provisioner
}

// NewTenantService creates a new TenantService
func NewTenantService(tenants tenancy.TenantRepository, provisioner Provisioner) *TenantService {
	return &TenantService{tenants: tenants, provisioner: provisioner}
}

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// CreateTenantRequest represents a request to register a tenant
type CreateTenantRequest struct {
	Code string `json:"code" binding:"required,max=20"`
	Name string `json:"name" binding:"required,max=100"`
}

// CreateTenant registers a new tenant and provisions its reporting schema.
// The tenant id is a generated surrogate, never derived from the code.
func (s *TenantService) CreateTenant(ctx context.Context, req CreateTenantRequest) (*TenantResponse, error) {
	exists, err := s.tenants.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrAlreadyExists.WithEntity(req.Code)
	}

	tenant, err := tenancy.NewTenant(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.Save(ctx, tenant); err != nil {
		return nil, err
	}
	if err := s.provisioner.Provision(ctx, tenant); err != nil {
		return nil, err
	}
	return toTenantResponse(tenant), nil
}

// GetTenant returns a single tenant
func (s *TenantService) GetTenant(ctx context.Context, id uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTenantResponse(tenant), nil
}

// GetTenantByCode returns a tenant by its unique code
func (s *TenantService) GetTenantByCode(ctx context.Context, code string) (*TenantResponse, error) {
	tenant, err := s.tenants.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return toTenantResponse(tenant), nil
}

// ListActiveTenants returns all active tenants
func (s *TenantService) ListActiveTenants(ctx context.Context) ([]TenantResponse, error) {
	tenants, err := s.tenants.FindAllActive(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]TenantResponse, 0, len(tenants))
	for i := range tenants {
		responses = append(responses, *toTenantResponse(&tenants[i]))
	}
	return responses, nil
}

// DeactivateTenant suspends a tenant without touching its data
func (s *TenantService) DeactivateTenant(ctx context.Context, id uuid.UUID) error {
	tenant, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := tenant.Deactivate(); err != nil {
		return err
	}
	return s.tenants.Save(ctx, tenant)
}

// ActivateTenant reactivates a suspended tenant
func (s *TenantService) ActivateTenant(ctx context.Context, id uuid.UUID) error {
	tenant, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := tenant.Activate(); err != nil {
		return err
	}
	return s.tenants.Save(ctx, tenant)
}

// AddMember grants a user access to the tenant
func (s *TenantService) AddMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := tenant.AddMember(userID); err != nil {
		return err
	}
	return s.tenants.Save(ctx, tenant)
}

// RemoveMember revokes a user's access to the tenant
func (s *TenantService) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := tenant.RemoveMember(userID); err != nil {
		return err
	}
	return s.tenants.Save(ctx, tenant)
}

// AuthorizeMember verifies that the user is a member of the active tenant
// identified by code. Token issuance uses it as the membership gate.
func (s *TenantService) AuthorizeMember(ctx context.Context, code string, userID uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.tenants.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !tenant.Active {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			"tenant is deactivated").WithEntity(tenant.Code)
	}
	if !tenant.HasMember(userID) {
		return nil, shared.NewPolicyViolationError(
			"user is not a member of this tenant").WithEntity(userID.String())
	}
	return toTenantResponse(tenant), nil
}

// Reprovision re-runs reporting-schema provisioning for one tenant
func (s *TenantService) Reprovision(ctx context.Context, id uuid.UUID) error {
	tenant, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.provisioner.Provision(ctx, tenant)
}

func toTenantResponse(t *tenancy.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:     t.ID,
		Code:   t.Code,
		Name:   t.Name,
		Active: t.Active,
	}
}
