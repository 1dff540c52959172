package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/reelmark/internal/handler"
	"github.com/user/reelmark/internal/middleware"
	"go.uber.org/zap"
)

// New 创建 gin 引擎并挂载中间件和路由
func New(h *handler.Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(h.Accounts, h.CookieMaxAge()))
	{
		api.GET("/movies", h.ListMovies)
		api.GET("/movies/:id", h.MovieDetails)
		api.GET("/movies/category/:category", h.MoviesByCategory)
		api.GET("/genres", h.Genres)
		api.GET("/genres/:id/shelves", h.GenreShelves)

		api.POST("/search-events", h.RecordSearchEvent)
		api.GET("/trending", h.TrendingMovies)

		// 未登录时返回 saved=false
		api.GET("/saved/:movieId", h.IsSaved)
	}

	// ==================== 认证 ====================
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", middleware.RequireAuth(h.Accounts, h.CookieMaxAge()), h.Me)
	}

	// ==================== 收藏（需要登录）====================
	saved := api.Group("/saved")
	saved.Use(middleware.RequireAuth(h.Accounts, h.CookieMaxAge()))
	{
		saved.GET("", h.ListSaved)
		saved.GET("/details", h.ListSavedDetails)
		saved.POST("/:movieId", h.SaveMovie)
		saved.DELETE("/:movieId", h.UnsaveMovie)
	}
}
