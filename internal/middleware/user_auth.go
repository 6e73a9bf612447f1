package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"helpdesk/internal/constants"
	"helpdesk/internal/model"
	"helpdesk/pkg/token"
)

// 上下文键
const (
	ContextUserID = "user_id"
	ContextActor  = "actor"
	ContextClaims = "claims"
)

// Authenticator 解析Bearer令牌，*service.UserService实现了该接口
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (model.Actor, *token.Claims, error)
}

// UserAuth 用户认证中间件
func UserAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		bearer := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || bearer == "" {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": 401, "msg": constants.ErrUnauthorized})
			return
		}

		actor, claims, err := auth.Authenticate(c.Request.Context(), bearer)
		if err != nil {
			if biz, ok := constants.AsBizError(err); ok {
				c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": biz.Code, "msg": biz.Msg})
				return
			}
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
			return
		}

		c.Set(ContextUserID, actor.UserID)
		c.Set(ContextActor, actor)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// CurrentActor 获取当前操作者，未认证时返回零值
func CurrentActor(c *gin.Context) model.Actor {
	if v, ok := c.Get(ContextActor); ok {
		if actor, ok := v.(model.Actor); ok {
			return actor
		}
	}
	return model.Actor{}
}

// CurrentClaims 获取当前令牌声明
func CurrentClaims(c *gin.Context) *token.Claims {
	if v, ok := c.Get(ContextClaims); ok {
		if claims, ok := v.(*token.Claims); ok {
			return claims
		}
	}
	return nil
}
