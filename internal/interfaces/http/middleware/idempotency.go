package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/infrastructure/logger"
	"github.com/livrocaixa/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// IdempotencyHeaderKey is the request header carrying the client's operation key
const IdempotencyHeaderKey = "Idempotency-Key"

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	// Store remembers processed keys across retries
	Store shared.IdempotencyStore
	// TTL bounds how long a key blocks replays
	TTL time.Duration
	// Required rejects mutating requests that carry no key
	Required bool
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig(store shared.IdempotencyStore) IdempotencyConfig {
	return IdempotencyConfig{
		Store:    store,
		TTL:      24 * time.Hour,
		Required: false,
	}
}

// Idempotency absorbs client retries of mutating requests. The first request
// carrying a key marks it in the store; a repeat inside the TTL is rejected
// with a conflict before any handler runs. Reads pass through untouched.
func Idempotency(store shared.IdempotencyStore) gin.HandlerFunc {
	return IdempotencyWithConfig(DefaultIdempotencyConfig(store))
}

// IdempotencyWithConfig returns idempotency middleware with custom configuration
func IdempotencyWithConfig(cfg IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyHeaderKey)
		if key == "" {
			if cfg.Required {
				c.AbortWithStatusJSON(http.StatusBadRequest,
					dto.NewErrorResponse(dto.ErrCodeBadRequest, "Idempotency-Key header is required"))
				return
			}
			c.Next()
			return
		}

		// Keys are scoped per tenant so tenants cannot collide or probe
		// each other's keys.
		scoped := key
		if tenantID := GetTenantID(c); tenantID != uuid.Nil {
			scoped = tenantID.String() + ":" + key
		}

		fresh, err := cfg.Store.MarkProcessed(c.Request.Context(), scoped, cfg.TTL)
		if err != nil {
			// Fail open: a store outage must not block writes
			log := cfg.Logger
			if log == nil {
				log = logger.FromContext(c.Request.Context())
			}
			log.Error("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !fresh {
			c.AbortWithStatusJSON(http.StatusConflict,
				dto.NewErrorResponse(dto.ErrCodeDuplicateRequest, "Request with this idempotency key was already processed"))
			return
		}

		c.Next()
	}
}
