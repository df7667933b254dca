package auth

import (
	"net/http"
	"strings"
	"time"

	"callintel/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireBearer verifies the access token and injects the identity into the request
// context. RBAC checks belong to internal/rbac.
func RequireBearer(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		id, err := v.Verify(strings.TrimPrefix(raw, bearerPrefix), time.Now())
		if err != nil {
			logger.FromGin(c).Debug("token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), id)
		l := logger.From(ctx).With("user_id", id.UserID, "organization_id", id.OrganizationID)
		c.Request = c.Request.WithContext(logger.With(ctx, l))
		c.Set("logger", l)

		c.Next()
	}
}
