package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/acadops/course-allocation-api/internal/models"
	appErrors "github.com/acadops/course-allocation-api/pkg/errors"
	"github.com/acadops/course-allocation-api/pkg/response"
)

// RBAC enforces role-based access control for routes. The allocation core
// assumes identity is already established; this only gates who may invoke
// which operation.
func RBAC(allowed ...models.UserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
