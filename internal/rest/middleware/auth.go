package middleware

import (
	"context"

	"github.com/campusledger/campusledger/internal/types"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware resolves the acting tenant and user from request headers,
// falling back to the single-school defaults. Billing runs behind the school
// management system's own gateway, which authenticates the caller.
func TenantMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	tenantID := c.GetHeader(types.HeaderTenantID)
	if tenantID == "" {
		tenantID = types.DefaultTenantID
	}
	userID := c.GetHeader(types.HeaderUserID)
	if userID == "" {
		userID = types.DefaultUserID
	}

	ctx = context.WithValue(ctx, types.CtxTenantID, tenantID)
	ctx = context.WithValue(ctx, types.CtxUserID, userID)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
