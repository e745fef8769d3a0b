// Package middleware holds gin middleware and the request-scoped context
// values it sets.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	TenantIDKey  contextKey = "tenant_id"

	HeaderRequestID = "X-Request-ID"

	// ginTenantKey is the gin.Context key handlers read the tenant from.
	ginTenantKey = "tenant_id"
)

// RequestIDFromContext returns the request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// TenantIDFromContext returns the authenticated tenant, or "".
func TenantIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(TenantIDKey).(string)
	return id
}

// TenantID returns the tenant resolved by Auth for this request.
func TenantID(c *gin.Context) string {
	return c.GetString(ginTenantKey)
}

// RequestID propagates or assigns an X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), RequestIDKey, id))
		c.Next()
	}
}

// SessionValidator resolves a bearer token to an opaque tenant identifier.
// An unknown or expired session returns "" and no error.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (string, error)
}

// Auth rejects requests without a valid session and stores the tenant on
// both the gin context and the request context.
func Auth(validator SessionValidator) gin.HandlerFunc {
	logger := logging.NewLoggerV2("auth-middleware")

	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tenantID, err := validator.ValidateSession(c.Request.Context(), token)
		if err != nil {
			logger.Error("Session validation failed", logging.Fields{
				"request_id": RequestIDFromContext(c.Request.Context()),
				"error":      err.Error(),
			})
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
			return
		}
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		c.Set(ginTenantKey, tenantID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), TenantIDKey, tenantID))
		c.Next()
	}
}
