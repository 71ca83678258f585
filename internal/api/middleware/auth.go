package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/curatehub/curatehub/pkg/response"
)

const identityKey = "auth.subject"

// Auth Bearer JWT 校验，保护 feed 配置写操作和审核入口
// secret 为空时放行（本地/测试模式）
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid token")
			return
		}
		if sub, err := claims.GetSubject(); err == nil {
			c.Set(identityKey, sub)
		}
		c.Next()
	}
}

// Subject 取当前请求的认证主体，未认证返回空串
func Subject(c *gin.Context) string {
	v, _ := c.Get(identityKey)
	s, _ := v.(string)
	return s
}
