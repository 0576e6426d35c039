package tenant

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const headerWorkspaceID = "X-Workspace-Id"

// RequireWorkspace injects the tenant identity from the gateway-set
// header into the request context. Authentication itself happens
// upstream (external collaborator); this process only trusts and
// propagates the resolved workspace id.
func RequireWorkspace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws := strings.TrimSpace(c.GetHeader(headerWorkspaceID))
		if ws == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing workspace id"})
			return
		}

		c.Request = c.Request.WithContext(WithWorkspace(c.Request.Context(), ws))

		// Also store on gin context for handler convenience.
		c.Set("workspace_id", ws)

		c.Next()
	}
}
