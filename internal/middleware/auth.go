package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/reelmark/internal/model"
	"github.com/user/reelmark/internal/utils"
)

// TokenCookie 登录 token 的 Cookie 名
const TokenCookie = "token"

// RefreshedTokenHeader 滑动续期后新 token 通过此响应头返回
const RefreshedTokenHeader = "X-Refreshed-Token"

const accountKey = "account"

// TokenVerifier 校验和续期 token
type TokenVerifier interface {
	Verify(token string) (*model.Account, error)
	Refresh(token string) (string, error)
}

// RequireAuth 必须登录中间件
func RequireAuth(v TokenVerifier, cookieMaxAge int) gin.HandlerFunc {
	return func(c *gin.Context) {
		// OptionalAuth 已经校验过的不再重复
		if GetAccount(c) == nil && !authenticate(c, v, cookieMaxAge) {
			utils.Unauthorized(c, "")
			return
		}
		c.Next()
	}
}

// OptionalAuth 可选登录中间件（不强制要求登录）
func OptionalAuth(v TokenVerifier, cookieMaxAge int) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, v, cookieMaxAge)
		c.Next()
	}
}

// authenticate 校验 token，成功后把用户写入 gin 上下文和 request context
func authenticate(c *gin.Context, v TokenVerifier, cookieMaxAge int) bool {
	token, fromCookie := TokenFromRequest(c)
	if token == "" {
		return false
	}
	account, err := v.Verify(token)
	if err != nil {
		return false
	}

	c.Set(accountKey, account)
	c.Request = c.Request.WithContext(model.WithAccount(c.Request.Context(), account))

	// 滑动续期
	if fresh, err := v.Refresh(token); err == nil && fresh != "" {
		c.Header(RefreshedTokenHeader, fresh)
		if fromCookie {
			c.SetCookie(TokenCookie, fresh, cookieMaxAge, "/", "", false, true)
		}
	}
	return true
}

// TokenFromRequest 优先从 Cookie 获取，其次是 Authorization: Bearer
func TokenFromRequest(c *gin.Context) (token string, fromCookie bool) {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie, true
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), false
	}
	return "", false
}

// GetAccount 从上下文获取当前用户（未登录返回 nil）
func GetAccount(c *gin.Context) *model.Account {
	if v, ok := c.Get(accountKey); ok {
		a, _ := v.(*model.Account)
		return a
	}
	return nil
}
