package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/reelmark/internal/model"
	"github.com/user/reelmark/internal/utils"
	"go.uber.org/zap"
)

// 后台记录搜索的超时
const recordTimeout = 5 * time.Second

// ListMovies 有 query 时搜索，并把第一条结果计入热门；否则返回最新片单
func (h *Handler) ListMovies(c *gin.Context) {
	query := c.Query("query")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	if strings.TrimSpace(query) == "" {
		movies, err := h.Catalog.Latest(c.Request.Context())
		if err != nil {
			h.fail(c, err, "获取影片失败")
			return
		}
		utils.Success(c, movies)
		return
	}

	movies, err := h.Catalog.Search(c.Request.Context(), query, page)
	if err != nil {
		h.fail(c, err, "搜索失败")
		return
	}
	if len(movies) > 0 {
		h.recordAsync(query, movies[0])
	}
	utils.Success(c, movies)
}

// recordAsync 后台记录搜索，不影响响应
func (h *Handler) recordAsync(term string, movie model.Movie) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		h.Logger.Info("[Trending] 服务关闭中，跳过记录", zap.String("search_term", term))
		return
	}
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		// 失败已在 service 内记录日志
		_ = h.Trending.Record(ctx, term, &movie)
	}()
}

// MovieDetails 影片详情
func (h *Handler) MovieDetails(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	details, err := h.Catalog.Details(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "获取影片详情失败")
		return
	}
	utils.Success(c, details)
}

// MoviesByCategory 首页分类片单
func (h *Handler) MoviesByCategory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	movies, err := h.Catalog.ByCategory(c.Request.Context(), c.Param("category"), page)
	if err != nil {
		h.fail(c, err, "获取分类失败")
		return
	}
	utils.Success(c, movies)
}

// Genres 类型列表
func (h *Handler) Genres(c *gin.Context) {
	genres, err := h.Catalog.Genres(c.Request.Context())
	if err != nil {
		h.fail(c, err, "获取类型失败")
		return
	}
	utils.Success(c, genres)
}

// GenreShelves 某类型的热门/高分/最新片单
func (h *Handler) GenreShelves(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	shelves, err := h.Catalog.GenreShelves(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "获取片单失败")
		return
	}
	utils.Success(c, shelves)
}

// SearchEventReq 记录搜索请求
type SearchEventReq struct {
	SearchTerm string `json:"search_term" binding:"required,notblank"`
	Movie      struct {
		ID         int    `json:"id" binding:"required,gt=0"`
		Title      string `json:"title" binding:"required"`
		PosterPath string `json:"poster_path"`
	} `json:"movie"`
}

// RecordSearchEvent 记录一次搜索命中。存储失败不影响响应，只返回 recorded=false
func (h *Handler) RecordSearchEvent(c *gin.Context) {
	var req SearchEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "无效的请求数据")
		return
	}
	movie := &model.Movie{ID: req.Movie.ID, Title: req.Movie.Title, PosterPath: req.Movie.PosterPath}
	err := h.Trending.Record(c.Request.Context(), req.SearchTerm, movie)
	utils.SuccessWithStatus(c, http.StatusAccepted, "accepted", gin.H{"recorded": err == nil})
}

// TrendingMovies 热门榜，读取失败返回空列表
func (h *Handler) TrendingMovies(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.Trending.Rank(c.Request.Context(), limit)
	if err != nil {
		h.Logger.Warn("[Trending] 返回空榜单", zap.Error(err))
	}
	if entries == nil {
		entries = []model.TrendingEntry{}
	}
	utils.Success(c, entries)
}

// pathID 解析正整数路径参数，失败时已写入 400
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.BadRequest(c, "无效的ID")
		return 0, false
	}
	return id, true
}
