package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/user/reelmark/internal/model"
	"github.com/user/reelmark/internal/repository"
	"github.com/user/reelmark/internal/utils"
	"go.uber.org/zap"
)

const (
	defaultTrendingLimit      = 5
	defaultTrendingWorkingSet = 20
)

// TrendingService 搜索计数与热门榜
//
// 计数的"查找再写入"没有加锁，也没有事务：多个实例同时记录同一对
// (search_term, movie_id) 时可能少计或多出一行，热门榜只是近似值。
type TrendingService struct {
	store        repository.DocumentStore
	imageBaseURL string
	workingSet   int
	limit        int
	logger       *zap.Logger
}

// TrendingOptions 热门榜参数，零值使用默认值
type TrendingOptions struct {
	ImageBaseURL string
	WorkingSet   int
	Limit        int
}

func NewTrendingService(store repository.DocumentStore, opts TrendingOptions, logger *zap.Logger) *TrendingService {
	if opts.WorkingSet <= 0 {
		opts.WorkingSet = defaultTrendingWorkingSet
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultTrendingLimit
	}
	return &TrendingService{
		store:        store,
		imageBaseURL: opts.ImageBaseURL,
		workingSet:   opts.WorkingSet,
		limit:        opts.Limit,
		logger:       utils.OrNop(logger),
	}
}

// Record 记录一次搜索命中。search_term 按原样作为精确匹配键，不做 trim/小写。
// 失败只记日志并返回带类别的错误，调用方可以直接忽略。
func (s *TrendingService) Record(ctx context.Context, searchTerm string, movie *model.Movie) error {
	const op = "trending.record"
	if strings.TrimSpace(searchTerm) == "" || movie == nil || movie.ID <= 0 {
		searchEventsTotal.WithLabelValues("invalid").Inc()
		s.logger.Warn("[Trending] 参数无效，跳过记录", zap.String("search_term", searchTerm), zap.Bool("has_movie", movie != nil))
		return Wrap(ErrInvalid, op, nil)
	}

	existing, err := s.store.ListWhere(ctx, repository.CollectionSearchEvents, repository.Query{
		Where: []repository.Predicate{
			repository.Equal("search_term", searchTerm),
			repository.Equal("movie_id", movie.ID),
		},
		Limit: 1,
	})
	if err != nil {
		return s.recordFailed(op, searchTerm, movie.ID, err)
	}

	if len(existing) > 0 {
		doc := existing[0]
		if _, err := s.store.Update(ctx, repository.CollectionSearchEvents, doc.ID, map[string]any{
			"count": doc.Int("count") + 1,
		}); err != nil {
			return s.recordFailed(op, searchTerm, movie.ID, err)
		}
		searchEventsTotal.WithLabelValues("incremented").Inc()
		return nil
	}

	if _, err := s.store.Create(ctx, repository.CollectionSearchEvents, uuid.NewString(), map[string]any{
		"search_term": searchTerm,
		"movie_id":    movie.ID,
		"title":       movie.Title,
		"poster_url":  s.imageBaseURL + movie.PosterPath,
		"count":       1,
	}); err != nil {
		return s.recordFailed(op, searchTerm, movie.ID, err)
	}
	searchEventsTotal.WithLabelValues("created").Inc()
	return nil
}

func (s *TrendingService) recordFailed(op, searchTerm string, movieID int, err error) error {
	searchEventsTotal.WithLabelValues("failed").Inc()
	s.logger.Error("[Trending] 记录搜索失败",
		zap.String("search_term", searchTerm), zap.Int("movie_id", movieID), zap.Error(err))
	return Wrap(ErrTransient, op, err)
}

// Rank 热门榜：取计数最高的 workingSet 行，按标题去重后按计数倒序截取 limit 条。
// limit <= 0 使用默认值。读取失败返回 nil 和 ErrTransient，调用方按"暂无数据"处理。
func (s *TrendingService) Rank(ctx context.Context, limit int) ([]model.TrendingEntry, error) {
	if limit <= 0 {
		limit = s.limit
	}
	docs, err := s.store.ListWhere(ctx, repository.CollectionSearchEvents, repository.Query{
		OrderBy: "count",
		Desc:    true,
		Limit:   s.workingSet,
	})
	if err != nil {
		trendingFailuresTotal.Inc()
		s.logger.Error("[Trending] 获取热门榜失败", zap.Error(err))
		return nil, Wrap(ErrTransient, "trending.rank", err)
	}

	events := make([]model.SearchEvent, len(docs))
	for i, d := range docs {
		events[i] = eventFromDocument(d)
	}
	return RankEvents(events, limit), nil
}

// RankEvents 按标题去重（保留计数最高的一条，计数相同保留先出现的），
// 再按计数倒序稳定排序并截取前 limit 条
func RankEvents(events []model.SearchEvent, limit int) []model.TrendingEntry {
	index := make(map[string]int, len(events))
	entries := make([]model.TrendingEntry, 0, len(events))
	for _, e := range events {
		entry := model.TrendingEntry{MovieID: e.MovieID, Title: e.Title, PosterURL: e.PosterURL, Count: e.Count}
		i, seen := index[e.Title]
		if !seen {
			index[e.Title] = len(entries)
			entries = append(entries, entry)
			continue
		}
		if e.Count > entries[i].Count {
			entries[i] = entry
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func eventFromDocument(d *repository.Document) model.SearchEvent {
	return model.SearchEvent{
		ID:         d.ID,
		SearchTerm: d.String("search_term"),
		MovieID:    d.Int("movie_id"),
		Title:      d.String("title"),
		PosterURL:  d.String("poster_url"),
		Count:      d.Int("count"),
	}
}
