package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
	"github.com/cimas-project/cimas-api/pkg/response"
)

// RequireRoles enforces role-based access. Claims carry the effective role,
// so superusers pass admin checks without special-casing here. The pseudo
// role SelfParam admits callers whose id path parameter matches their own.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	allowSelf := false
	for _, r := range roles {
		if r == SelfParam {
			allowSelf = true
			continue
		}
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf {
			if targetID, err := strconv.ParseInt(c.Param("id"), 10, 64); err == nil && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// SelfParam marks a route as accessible to the user identified by its id
// parameter, in addition to any listed roles.
const SelfParam models.UserRole = "SELF"
