package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/reelmark/internal/middleware"
	"github.com/user/reelmark/internal/service"
	"github.com/user/reelmark/internal/utils"
)

// RegisterReq 注册请求，邮箱格式和密码长度由 AccountService 校验
type RegisterReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// LoginReq 登录请求
type LoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register 注册并直接登录
func (h *Handler) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "邮箱格式错误或密码少于 8 位")
		return
	}
	if _, err := h.Accounts.Register(c.Request.Context(), req.Email, req.Password, req.Name); err != nil {
		message := "邮箱格式错误或密码少于 8 位"
		if errors.Is(err, service.ErrConflict) {
			message = "该邮箱已被注册"
		}
		h.fail(c, err, message)
		return
	}
	h.login(c, req.Email, req.Password, http.StatusCreated)
}

// Login 登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "无效的请求数据")
		return
	}
	h.login(c, req.Email, req.Password, http.StatusOK)
}

func (h *Handler) login(c *gin.Context, email, password string, status int) {
	token, account, err := h.Accounts.Login(c.Request.Context(), email, password)
	if err != nil {
		h.fail(c, err, "邮箱或密码错误")
		return
	}
	c.SetCookie(middleware.TokenCookie, token, h.CookieMaxAge(), "/", "", false, true)
	utils.SuccessWithStatus(c, status, "success", gin.H{
		"token":   token,
		"account": account,
	})
}

// Logout 登出，token 在过期前作废
func (h *Handler) Logout(c *gin.Context) {
	if token, _ := middleware.TokenFromRequest(c); token != "" {
		// 无效 token 视为已登出
		_ = h.Accounts.Logout(token)
	}
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	utils.Success(c, nil)
}

// Me 当前用户
func (h *Handler) Me(c *gin.Context) {
	account, err := h.Accounts.CurrentUser(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	utils.Success(c, account)
}

// CookieMaxAge token Cookie 有效期（秒）
func (h *Handler) CookieMaxAge() int {
	return int(h.Config.JWTExpiry().Seconds())
}
