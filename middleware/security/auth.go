package security

import (
	"net/http"
	"strconv"
	"strings"

	"SaChat/tools/errs"
	sec "SaChat/tools/security"

	"github.com/gin-gonic/gin"
)

// —— context key ——
// 后续模块统一用这个 key 读取登录用户
const CtxUserIDKey = "authUserID" // int64

type Options struct {
	Secret []byte
}

// Middleware 解析 Authorization: Bearer <jwt>，把 sub 写进 context。
func Middleware(opts Options) gin.HandlerFunc {
	jwtOpts := sec.DefaultOptions(opts.Secret)
	return func(c *gin.Context) {
		token := ""
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
			return
		}

		sub, err := sec.Verify(jwtOpts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenExpired)
			return
		}
		userID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenExpired)
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// UserID 读取登录用户 id；拿不到返回 0。
func UserID(c *gin.Context) int64 {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(int64)
	return id
}
