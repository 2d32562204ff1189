package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"github.com/livrocaixa/backend/internal/infrastructure/logger"
	"github.com/livrocaixa/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Tenant context keys
const (
	TenantIDKey     = "tenant_id"
	TenantCodeKey   = "tenant_code"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantInfo holds the resolved tenant information
type TenantInfo struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
}

// TenantValidator checks that a tenant exists and is active
type TenantValidator interface {
	ValidateTenant(tenantID uuid.UUID) (*TenantInfo, error)
}

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// HeaderEnabled enables X-Tenant-ID header extraction (development only;
	// production deployments run with JWT extraction exclusively)
	HeaderEnabled bool
	// JWTEnabled enables JWT claim extraction (requires JWT middleware to run first)
	JWTEnabled bool
	// SkipPaths are paths that don't require tenant context (e.g. health check)
	SkipPaths []string
	// Required determines if tenant context is mandatory
	Required bool
	// Validator is an optional check that the tenant exists and is active
	Validator TenantValidator
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		HeaderEnabled: false,
		JWTEnabled:    true,
		SkipPaths: []string{
			"/health", "/healthz", "/ready",
			"/api/v1/health", "/api/v1/auth/login", "/api/v1/tenants",
		},
		Required:  true,
		Validator: nil,
		Logger:    nil,
	}
}

// TenantMiddleware resolves the tenant and binds it to the request context.
// Extraction order: JWT claims, then the X-Tenant-ID header when enabled.
// Every repository call below the handler reads the binding from the context;
// a request that reaches a scoped repository without it fails loudly there.
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

// TenantMiddlewareWithConfig returns tenant middleware with custom configuration
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		var raw string
		var extractionMethod string

		if cfg.JWTEnabled {
			if tid := GetJWTTenantID(c); tid != "" {
				raw = tid
				extractionMethod = "jwt"
			}
		}
		if raw == "" && cfg.HeaderEnabled {
			if tid := c.GetHeader(TenantHeaderKey); tid != "" {
				raw = tid
				extractionMethod = "header"
			}
		}

		if raw == "" {
			if cfg.Required {
				respondTenantError(c, http.StatusUnauthorized, "Tenant identification required")
				return
			}
			c.Next()
			return
		}

		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			respondTenantError(c, http.StatusUnauthorized, "Invalid tenant ID format")
			return
		}

		var info *TenantInfo
		if cfg.Validator != nil {
			info, err = cfg.Validator.ValidateTenant(tenantID)
			if err != nil {
				log := cfg.Logger
				if log == nil {
					log = logger.FromContext(c.Request.Context())
				}
				log.Warn("Tenant validation failed",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err),
				)
				respondTenantError(c, http.StatusForbidden, "Invalid or inactive tenant")
				return
			}
		}

		c.Set(TenantIDKey, tenantID)
		if info != nil {
			c.Set(TenantCodeKey, info.Code)
		}

		// Bind the tenant for the unit of work. Rebinding a different tenant
		// on the same context is rejected by the binding itself.
		ctx, err := tenancy.WithTenant(c.Request.Context(), tenantID)
		if err != nil {
			respondTenantError(c, http.StatusConflict, "Conflicting tenant binding")
			return
		}
		c.Request = c.Request.WithContext(ctx)

		if cfg.Logger != nil {
			cfg.Logger.Debug("Tenant bound",
				zap.String("tenant_id", tenantID.String()),
				zap.String("method", extractionMethod),
			)
		}

		c.Next()
	}
}

// respondTenantError aborts with a tenant resolution failure
func respondTenantError(c *gin.Context, status int, message string) {
	code := dto.ErrCodeUnauthorized
	if status == http.StatusForbidden {
		code = dto.ErrCodeForbidden
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message))
}

// GetTenantID retrieves the bound tenant id from gin.Context
func GetTenantID(c *gin.Context) uuid.UUID {
	if tenantID, exists := c.Get(TenantIDKey); exists {
		if tid, ok := tenantID.(uuid.UUID); ok {
			return tid
		}
	}
	return uuid.Nil
}

// GetTenantCode retrieves the tenant code from gin.Context
func GetTenantCode(c *gin.Context) string {
	if tenantCode, exists := c.Get(TenantCodeKey); exists {
		if code, ok := tenantCode.(string); ok {
			return code
		}
	}
	return ""
}

// MustGetTenantID retrieves the bound tenant id or panics if not found.
// Use this only in handlers behind the tenant middleware.
func MustGetTenantID(c *gin.Context) uuid.UUID {
	tenantID := GetTenantID(c)
	if tenantID == uuid.Nil {
		panic("tenant_id not found in context")
	}
	return tenantID
}

// OptionalTenantMiddleware creates middleware that doesn't require tenant
func OptionalTenantMiddleware() gin.HandlerFunc {
	cfg := DefaultTenantConfig()
	cfg.Required = false
	return TenantMiddlewareWithConfig(cfg)
}
