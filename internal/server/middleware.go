package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/inmoflow/inmoflow/pkg/tenantctx"
)

const tenantHeader = "X-Tenant-Id"

// TenantMiddleware resolves the tenant scope for core operations.
// Authentication and authorization happen upstream; by the time a request
// reaches this service the tenant header is trusted.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(tenantHeader))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Error: errorPayload{Type: "unauthorized", Message: "missing tenant scope"},
			})
			return
		}

		tenantID, err := snowflake.ParseString(raw)
		if err != nil || tenantID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Error: errorPayload{Type: "unauthorized", Message: "invalid tenant scope"},
			})
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
