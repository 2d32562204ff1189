package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tenancyapp "github.com/livrocaixa/backend/internal/application/tenancy"
)

// TenantHandler handles tenant administration API endpoints. These run
// unscoped; tenant administration is the one surface that crosses tenants.
type TenantHandler struct {
	BaseHandler
	tenantService *tenancyapp.TenantService
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(tenantService *tenancyapp.TenantService) *TenantHandler {
	return &TenantHandler{
		tenantService: tenantService,
	}
}

// MemberRequest identifies the user in membership operations
type MemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// Create godoc
// @Summary      Register a tenant
// @Description  Registers a tenant and provisions its reporting views. The tenant id is a generated surrogate; the code is only a human-facing handle.
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        request body tenancyapp.CreateTenantRequest true "Tenant registration request"
// @Success      201 {object} dto.Response{data=tenancyapp.TenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /tenants [post]
func (h *TenantHandler) Create(c *gin.Context) {
	var req tenancyapp.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tenant, err := h.tenantService.CreateTenant(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, tenant)
}

// GetByID godoc
// @Summary      Get tenant by ID
// @Tags         tenants
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} dto.Response{data=tenancyapp.TenantResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /tenants/{id} [get]
func (h *TenantHandler) GetByID(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID format")
		return
	}

	tenant, err := h.tenantService.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tenant)
}

// List godoc
// @Summary      List active tenants
// @Tags         tenants
// @Produce      json
// @Success      200 {object} dto.Response{data=[]tenancyapp.TenantResponse}
// @Router       /tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.tenantService.ListActiveTenants(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tenants)
}

// Activate godoc
// @Summary      Reactivate a suspended tenant
// @Tags         tenants
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /tenants/{id}/activate [post]
func (h *TenantHandler) Activate(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID format")
		return
	}

	if err := h.tenantService.ActivateTenant(c.Request.Context(), tenantID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Deactivate godoc
// @Summary      Suspend a tenant
// @Description  Suspends a tenant without touching its data. Token issuance and tenant binding are refused while suspended.
// @Tags         tenants
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /tenants/{id}/deactivate [post]
func (h *TenantHandler) Deactivate(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID format")
		return
	}

	if err := h.tenantService.DeactivateTenant(c.Request.Context(), tenantID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// AddMember godoc
// @Summary      Grant a user access to a tenant
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Param        request body MemberRequest true "Member request"
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /tenants/{id}/members [post]
func (h *TenantHandler) AddMember(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID format")
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.tenantService.AddMember(c.Request.Context(), tenantID, req.UserID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// RemoveMember godoc
// @Summary      Revoke a user's access to a tenant
// @Tags         tenants
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Param        user_id path string true "User ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /tenants/{id}/members/{user_id} [delete]
func (h *TenantHandler) RemoveMember(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID format")
		return
	}
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID format")
		return
	}

	if err := h.tenantService.RemoveMember(c.Request.Context(), tenantID, userID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Reprovision godoc
// @Summary      Re-run reporting-schema provisioning
// @Description  Recreates the tenant's reporting views. Safe to repeat; the views are created with CREATE OR REPLACE.
// @Tags         tenants
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /tenants/{id}/reprovision [post]
func (h *TenantHandler) Reprovision(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID format")
		return
	}

	if err := h.tenantService.Reprovision(c.Request.Context(), tenantID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
