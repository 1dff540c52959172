package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/user/reelmark/internal/config"
	"github.com/user/reelmark/internal/service"
	"github.com/user/reelmark/internal/utils"
	"go.uber.org/zap"
)

// Handler HTTP 处理器
type Handler struct {
	Catalog   service.Catalog
	Trending  *service.TrendingService
	Bookmarks *service.BookmarkService
	Accounts  *service.AccountService
	Config    *config.Config
	Logger    *zap.Logger

	mu      sync.Mutex
	closed  bool           // Wait 之后不再启动后台任务
	pending sync.WaitGroup // 后台记录搜索的 goroutine
}

// NewHandler 创建处理器
func NewHandler(
	cfg *config.Config,
	catalog service.Catalog,
	trending *service.TrendingService,
	bookmarks *service.BookmarkService,
	accounts *service.AccountService,
	logger *zap.Logger,
) *Handler {
	registerValidators()
	return &Handler{
		Catalog:   catalog,
		Trending:  trending,
		Bookmarks: bookmarks,
		Accounts:  accounts,
		Config:    cfg,
		Logger:    utils.OrNop(logger),
	}
}

// Wait 停止接收新的后台任务并等待已有任务结束，用于优雅关闭
func (h *Handler) Wait() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.pending.Wait()
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail 按错误类别映射 HTTP 状态码
func (h *Handler) fail(c *gin.Context, err error, message string) {
	_ = c.Error(err)
	switch service.KindOf(err) {
	case service.ErrInvalid:
		utils.BadRequest(c, message)
	case service.ErrUnauthenticated:
		utils.Unauthorized(c, "")
	case service.ErrNotFound:
		utils.NotFound(c, "")
	case service.ErrConflict:
		utils.Error(c, http.StatusConflict, message)
	case service.ErrCatalog:
		utils.BadGateway(c, "")
	default:
		h.Logger.Error("[Handler] 请求失败", zap.String("path", c.FullPath()), zap.Error(err))
		utils.InternalServerError(c, "")
	}
}
