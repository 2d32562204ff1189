package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tenancyapp "github.com/livrocaixa/backend/internal/application/tenancy"
	"github.com/livrocaixa/backend/internal/infrastructure/auth"
)

// AuthHandler issues and revokes the tokens the API runs on
type AuthHandler struct {
	BaseHandler
	jwtService     *auth.JWTService
	tenantService  *tenancyapp.TenantService
	tokenBlacklist auth.TokenBlacklist
}

// NewAuthHandler creates a new AuthHandler. The blacklist is optional; without
// it logout is a no-op on the server side.
func NewAuthHandler(
	jwtService *auth.JWTService,
	tenantService *tenancyapp.TenantService,
	tokenBlacklist auth.TokenBlacklist,
) *AuthHandler {
	return &AuthHandler{
		jwtService:     jwtService,
		tenantService:  tenantService,
		tokenBlacklist: tokenBlacklist,
	}
}

// LoginRequest identifies the member asking for a token
type LoginRequest struct {
	TenantCode string    `json:"tenant_code" binding:"required,max=20"`
	UserID     uuid.UUID `json:"user_id" binding:"required"`
	Username   string    `json:"username" binding:"max=100"`
}

// LoginResponse carries the issued token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	TenantID  uuid.UUID `json:"tenant_id"`
}

// Login godoc
// @Summary      Issue a token for a tenant member
// @Description  Verifies that the user is a member of the active tenant and issues a token bound to that tenant. Every request made with the token is scoped to it.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login request"
// @Success      200 {object} dto.Response{data=LoginResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tenant, err := h.tenantService.AuthorizeMember(c.Request.Context(), req.TenantCode, req.UserID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(auth.GenerateTokenInput{
		TenantID: tenant.ID,
		UserID:   req.UserID,
		Username: req.Username,
	})
	if err != nil {
		h.InternalError(c, "Failed to issue token")
		return
	}

	h.Success(c, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		TenantID:  tenant.ID,
	})
}

// Logout godoc
// @Summary      Revoke the current token
// @Description  Blacklists the presented token until its natural expiry. Requires a blacklist backend; without one the call succeeds but revokes nothing.
// @Tags         auth
// @Produce      json
// @Success      204 "No Content"
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := getClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if h.tokenBlacklist != nil && claims.ID != "" {
		ttl := claims.GetRemainingTTL()
		if ttl > 0 {
			if err := h.tokenBlacklist.AddToBlacklist(c.Request.Context(), claims.ID, ttl); err != nil {
				h.InternalError(c, "Failed to revoke token")
				return
			}
		}
	}

	h.NoContent(c)
}

// getClaims pulls validated claims set by the JWT middleware
func getClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get("jwt_claims"); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
