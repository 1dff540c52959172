package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/user/reelmark/internal/model"
	"github.com/user/reelmark/internal/repository"
	"github.com/user/reelmark/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultDetailConcurrency = 8

// BookmarkService 用户收藏。所有查询都限定在当前登录用户的 user_id 下。
//
// Save 是"先查再建"，同一用户在多个设备上同时操作同一部影片时
// 可能产生重复行或丢失行，不保证线性一致。
type BookmarkService struct {
	store       repository.DocumentStore
	catalog     MovieDetailer
	accounts    AccountResolver
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// NewBookmarkService concurrency 是 ListWithDetails 同时请求详情的上限，<= 0 使用默认值
func NewBookmarkService(store repository.DocumentStore, catalog MovieDetailer, accounts AccountResolver, concurrency int, logger *zap.Logger) *BookmarkService {
	if concurrency <= 0 {
		concurrency = defaultDetailConcurrency
	}
	return &BookmarkService{
		store:       store,
		catalog:     catalog,
		accounts:    accounts,
		concurrency: concurrency,
		logger:      utils.OrNop(logger),
		now:         time.Now,
	}
}

// Save 收藏影片。已收藏时直接返回已有记录，不会重复写入。
func (s *BookmarkService) Save(ctx context.Context, movieID int) (bm *model.Bookmark, err error) {
	const op = "bookmark.save"
	defer func() { bookmarkOpsTotal.WithLabelValues("save", outcome(err)).Inc() }()

	if movieID <= 0 {
		return nil, Wrap(ErrInvalid, op, nil)
	}
	user, err := s.accounts.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.find(ctx, user.ID, movieID, 1)
	if err != nil {
		return nil, s.failed(op, user.ID, movieID, err)
	}
	if len(existing) > 0 {
		return bookmarkFromDocument(existing[0]), nil
	}

	doc, err := s.store.Create(ctx, repository.CollectionBookmarks, uuid.NewString(), map[string]any{
		"user_id":  user.ID,
		"movie_id": movieID,
		"saved_at": repository.FormatTime(s.now()),
	})
	if err != nil {
		return nil, s.failed(op, user.ID, movieID, err)
	}
	return bookmarkFromDocument(doc), nil
}

// Unsave 取消收藏。未收藏返回 false，不算错误。
func (s *BookmarkService) Unsave(ctx context.Context, movieID int) (removed bool, err error) {
	const op = "bookmark.unsave"
	defer func() { bookmarkOpsTotal.WithLabelValues("unsave", outcome(err)).Inc() }()

	if movieID <= 0 {
		return false, Wrap(ErrInvalid, op, nil)
	}
	user, err := s.accounts.CurrentUser(ctx)
	if err != nil {
		return false, err
	}

	existing, err := s.find(ctx, user.ID, movieID, 1)
	if err != nil {
		return false, s.failed(op, user.ID, movieID, err)
	}
	if len(existing) == 0 {
		return false, nil
	}
	if err := s.store.Delete(ctx, repository.CollectionBookmarks, existing[0].ID); err != nil {
		// 另一端已经删掉了
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return false, nil
		}
		return false, s.failed(op, user.ID, movieID, err)
	}
	return true, nil
}

// IsSaved 是否已收藏。未登录或查询失败一律返回 false。
func (s *BookmarkService) IsSaved(ctx context.Context, movieID int) bool {
	user, err := s.accounts.CurrentUser(ctx)
	if err != nil {
		return false
	}
	existing, err := s.find(ctx, user.ID, movieID, 1)
	if err != nil {
		s.logger.Warn("[Bookmark] 查询收藏状态失败", zap.String("user_id", user.ID), zap.Int("movie_id", movieID), zap.Error(err))
		return false
	}
	return len(existing) > 0
}

// List 当前用户收藏的影片 ID，最近收藏的在前
func (s *BookmarkService) List(ctx context.Context) (ids []int, err error) {
	defer func() { bookmarkOpsTotal.WithLabelValues("list", outcome(err)).Inc() }()

	bookmarks, err := s.bookmarks(ctx, "bookmark.list")
	if err != nil {
		return nil, err
	}
	ids = make([]int, len(bookmarks))
	for i, b := range bookmarks {
		ids[i] = b.MovieID
	}
	return ids, nil
}

// ListWithDetails 收藏列表并发拉取 TMDB 详情，保持收藏时间倒序。
// 任一详情请求失败整个调用失败；没有海报的影片直接略过。
func (s *BookmarkService) ListWithDetails(ctx context.Context) (out []model.EnrichedBookmark, err error) {
	const op = "bookmark.list_details"
	defer func() { bookmarkOpsTotal.WithLabelValues("list_details", outcome(err)).Inc() }()

	bookmarks, err := s.bookmarks(ctx, op)
	if err != nil {
		return nil, err
	}
	bookmarks = dedupeBookmarks(bookmarks)

	details := make([]*model.MovieDetails, len(bookmarks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, b := range bookmarks {
		i, b := i, b
		g.Go(func() error {
			d, err := s.catalog.Details(gctx, b.MovieID)
			if err != nil {
				return err
			}
			details[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("[Bookmark] 获取收藏详情失败", zap.Int("count", len(bookmarks)), zap.Error(err))
		if KindOf(err) != nil {
			return nil, err
		}
		return nil, Wrap(ErrCatalog, op, err)
	}

	out = make([]model.EnrichedBookmark, 0, len(bookmarks))
	for i, b := range bookmarks {
		d := details[i]
		if d == nil || !d.HasPoster() {
			continue
		}
		out = append(out, model.EnrichedBookmark{MovieDetails: *d, SavedAt: b.SavedAt})
	}
	return out, nil
}

func (s *BookmarkService) bookmarks(ctx context.Context, op string) ([]*model.Bookmark, error) {
	user, err := s.accounts.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.ListWhere(ctx, repository.CollectionBookmarks, repository.Query{
		Where:   []repository.Predicate{repository.Equal("user_id", user.ID)},
		OrderBy: "saved_at",
		Desc:    true,
	})
	if err != nil {
		return nil, s.failed(op, user.ID, 0, err)
	}
	out := make([]*model.Bookmark, len(docs))
	for i, d := range docs {
		out[i] = bookmarkFromDocument(d)
	}
	return out, nil
}

func (s *BookmarkService) find(ctx context.Context, userID string, movieID, limit int) ([]*repository.Document, error) {
	return s.store.ListWhere(ctx, repository.CollectionBookmarks, repository.Query{
		Where: []repository.Predicate{
			repository.Equal("user_id", userID),
			repository.Equal("movie_id", movieID),
		},
		Limit: limit,
	})
}

func (s *BookmarkService) failed(op, userID string, movieID int, err error) error {
	s.logger.Error("[Bookmark] 存储操作失败",
		zap.String("op", op), zap.String("user_id", userID), zap.Int("movie_id", movieID), zap.Error(err))
	return Wrap(ErrTransient, op, err)
}

// dedupeBookmarks 同一部影片只保留第一条（即最近的一条），输入需已按时间倒序
func dedupeBookmarks(in []*model.Bookmark) []*model.Bookmark {
	seen := make(map[int]struct{}, len(in))
	out := in[:0:0]
	for _, b := range in {
		if _, ok := seen[b.MovieID]; ok {
			continue
		}
		seen[b.MovieID] = struct{}{}
		out = append(out, b)
	}
	return out
}

func bookmarkFromDocument(d *repository.Document) *model.Bookmark {
	savedAt := d.Time("saved_at")
	if savedAt.IsZero() {
		savedAt = d.CreatedAt
	}
	return &model.Bookmark{
		ID:      d.ID,
		UserID:  d.String("user_id"),
		MovieID: d.Int("movie_id"),
		SavedAt: savedAt,
	}
}
