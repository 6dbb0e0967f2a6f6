package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/internal/authz"
	"github.com/pageza/foodgram/backend/internal/logger"
)

// Policy checks the caller's role against the casbin policy for object.
// Anonymous callers get 401 and authenticated callers 403 when denied.
func Policy(enforcer *authz.Enforcer, object string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, authenticated := UserID(c)
		role := authz.RoleFor(authenticated, IsStaff(c))
		action := authz.ActionFor(c.Request.Method)

		allowed, err := enforcer.Allowed(role, object, action)
		if err != nil {
			logger.L().Error("policy check failed",
				zap.String("role", role),
				zap.String("object", object),
				zap.String("action", action),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if allowed {
			c.Next()
			return
		}

		if !authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you do not have permission to perform this action"})
	}
}
