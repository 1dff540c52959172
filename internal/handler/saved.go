package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/reelmark/internal/model"
	"github.com/user/reelmark/internal/utils"
)

// ListSaved 收藏的影片 ID，最近收藏的在前
func (h *Handler) ListSaved(c *gin.Context) {
	ids, err := h.Bookmarks.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "获取收藏失败")
		return
	}
	utils.Success(c, ids)
}

// ListSavedDetails 收藏列表（带详情）
func (h *Handler) ListSavedDetails(c *gin.Context) {
	items, err := h.Bookmarks.ListWithDetails(c.Request.Context())
	if err != nil {
		h.fail(c, err, "获取收藏失败")
		return
	}
	if items == nil {
		items = []model.EnrichedBookmark{}
	}
	utils.Success(c, items)
}

// IsSaved 是否已收藏
func (h *Handler) IsSaved(c *gin.Context) {
	id, ok := pathID(c, "movieId")
	if !ok {
		return
	}
	utils.Success(c, gin.H{"movie_id": id, "saved": h.Bookmarks.IsSaved(c.Request.Context(), id)})
}

// SaveMovie 收藏
func (h *Handler) SaveMovie(c *gin.Context) {
	id, ok := pathID(c, "movieId")
	if !ok {
		return
	}
	bm, err := h.Bookmarks.Save(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "收藏失败")
		return
	}
	utils.Success(c, bm)
}

// UnsaveMovie 取消收藏
func (h *Handler) UnsaveMovie(c *gin.Context) {
	id, ok := pathID(c, "movieId")
	if !ok {
		return
	}
	removed, err := h.Bookmarks.Unsave(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "取消收藏失败")
		return
	}
	utils.Success(c, gin.H{"movie_id": id, "removed": removed})
}
