package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helpdesk/internal/constants"
)

// RequireRoles 角色校验中间件，需在UserAuth之后使用
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		actor := CurrentActor(c)
		if actor.UserID == 0 {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": 401, "msg": constants.ErrUnauthorized})
			return
		}
		if _, ok := allowed[actor.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": 403, "msg": constants.ErrInsufficientPermission})
			return
		}
		c.Next()
	}
}
