package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/reelmark/internal/config"
	"github.com/user/reelmark/internal/model"
	"github.com/user/reelmark/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// 最新片单的起始上映日期
const latestSince = "2020-01-01"

// TMDB 排序方式
const (
	SortPopularity  = "popularity.desc"
	SortVoteAverage = "vote_average.desc"
	SortReleaseDate = "release_date.desc"
)

// 分类名到 TMDB 类型 ID
var categoryGenres = map[string]int{
	"action":  28,
	"comedy":  35,
	"horror":  27,
	"romance": 10749,
	"sci_fi":  878,
}

// Catalog 影片元数据目录
type Catalog interface {
	MovieDetailer
	Search(ctx context.Context, query string, page int) ([]model.Movie, error)
	Latest(ctx context.Context) ([]model.Movie, error)
	Discover(ctx context.Context, f DiscoverFilter) ([]model.Movie, error)
	Genres(ctx context.Context) ([]model.Genre, error)
	ByCategory(ctx context.Context, category string, page int) ([]model.Movie, error)
	GenreShelves(ctx context.Context, genreID int) (*model.GenreShelves, error)
}

// MovieDetailer 按 ID 获取影片详情
type MovieDetailer interface {
	Details(ctx context.Context, id int) (*model.MovieDetails, error)
}

// DiscoverFilter /discover/movie 查询条件
type DiscoverFilter struct {
	GenreIDs     []int
	SortBy       string
	ReleasedFrom string // YYYY-MM-DD
	ReleasedTo   string // YYYY-MM-DD
	Page         int
}

// dateBounded 带上映日期范围的查询需要额外过滤未上映影片
func (f DiscoverFilter) dateBounded() bool {
	return f.ReleasedFrom != "" || f.ReleasedTo != ""
}

type tmdbListResponse struct {
	Page         int           `json:"page"`
	Results      []model.Movie `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

type tmdbGenresResponse struct {
	Genres []model.Genre `json:"genres"`
}

type TMDBService struct {
	client  *utils.HTTPClient
	baseURL string
	details *utils.LRUCache[*model.MovieDetails]
	genres  *cache.Cache
	group   singleflight.Group
	logger  *zap.Logger
	now     func() time.Time
}

var _ Catalog = (*TMDBService)(nil)

func NewTMDBService(cfg *config.Config, logger *zap.Logger) *TMDBService {
	return &TMDBService{
		client: utils.NewHTTPClient(cfg.TMDBTimeout(), map[string]string{
			"Authorization": "Bearer " + cfg.TMDB.Token,
		}),
		baseURL: strings.TrimRight(cfg.TMDB.BaseURL, "/"),
		details: utils.NewLRUCache[*model.MovieDetails](1000, 10*time.Minute),
		genres:  utils.NewTTLCache(24 * time.Hour),
		logger:  utils.OrNop(logger),
		now:     time.Now,
	}
}

// Search 关键词搜索，只保留有海报且已上映的影片
func (s *TMDBService) Search(ctx context.Context, query string, page int) ([]model.Movie, error) {
	params := url.Values{}
	params.Set("query", query)
	setPage(params, page)

	movies, err := s.list(ctx, "search", "/search/movie", params)
	if err != nil {
		return nil, err
	}
	return s.filterReleased(movies), nil
}

// Latest 无关键词时的首页片单：2020 年以来已上映影片，按上映日期倒序
func (s *TMDBService) Latest(ctx context.Context) ([]model.Movie, error) {
	return s.Discover(ctx, DiscoverFilter{
		SortBy:       SortReleaseDate,
		ReleasedFrom: latestSince,
		ReleasedTo:   s.now().Format(time.DateOnly),
	})
}

// Discover 按条件发现影片
func (s *TMDBService) Discover(ctx context.Context, f DiscoverFilter) ([]model.Movie, error) {
	params := url.Values{}
	if len(f.GenreIDs) > 0 {
		ids := make([]string, len(f.GenreIDs))
		for i, id := range f.GenreIDs {
			ids[i] = strconv.Itoa(id)
		}
		params.Set("with_genres", strings.Join(ids, ","))
	}
	if f.SortBy != "" {
		params.Set("sort_by", f.SortBy)
	}
	if f.ReleasedFrom != "" {
		params.Set("primary_release_date.gte", f.ReleasedFrom)
	}
	if f.ReleasedTo != "" {
		params.Set("primary_release_date.lte", f.ReleasedTo)
	}
	setPage(params, f.Page)

	movies, err := s.list(ctx, "discover", "/discover/movie", params)
	if err != nil {
		return nil, err
	}
	if f.dateBounded() {
		movies = s.filterReleased(movies)
	}
	return movies, nil
}

// ByCategory 按首页分类获取片单
func (s *TMDBService) ByCategory(ctx context.Context, category string, page int) ([]model.Movie, error) {
	switch category {
	case "top_rated", "now_playing", "upcoming":
		params := url.Values{}
		setPage(params, page)
		return s.list(ctx, category, "/movie/"+category, params)
	}

	filter := DiscoverFilter{SortBy: SortPopularity, Page: page}
	if id, ok := categoryGenres[category]; ok {
		filter.GenreIDs = []int{id}
	} else if raw, ok := strings.CutPrefix(category, "genre_"); ok {
		if id, err := strconv.Atoi(raw); err == nil && id > 0 {
			filter.GenreIDs = []int{id}
		}
	}
	return s.Discover(ctx, filter)
}

// GenreShelves 并发获取某类型的热门/高分/最新三组片单，任一失败整体失败
func (s *TMDBService) GenreShelves(ctx context.Context, genreID int) (*model.GenreShelves, error) {
	if genreID <= 0 {
		return nil, Wrap(ErrInvalid, "tmdb.genre_shelves", fmt.Errorf("genre id %d", genreID))
	}
	shelves := &model.GenreShelves{GenreID: genreID}
	genres := []int{genreID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		shelves.Popular, err = s.Discover(gctx, DiscoverFilter{GenreIDs: genres, SortBy: SortPopularity, Page: 1})
		return err
	})
	g.Go(func() (err error) {
		shelves.TopRated, err = s.Discover(gctx, DiscoverFilter{GenreIDs: genres, SortBy: SortVoteAverage, Page: 1})
		return err
	})
	g.Go(func() (err error) {
		shelves.Latest, err = s.Discover(gctx, DiscoverFilter{
			GenreIDs:     genres,
			SortBy:       SortReleaseDate,
			ReleasedFrom: latestSince,
			ReleasedTo:   s.now().Format(time.DateOnly),
			Page:         1,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return shelves, nil
}

// Details 影片详情，带 LRU 缓存，并发的同一 ID 请求合并为一次
func (s *TMDBService) Details(ctx context.Context, id int) (*model.MovieDetails, error) {
	if id <= 0 {
		return nil, Wrap(ErrInvalid, "tmdb.details", fmt.Errorf("movie id %d", id))
	}
	key := strconv.Itoa(id)
	if m, ok := s.details.Get(key); ok {
		return m, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// 共享请求不随发起方取消，超时由 HTTP 客户端控制
		var m model.MovieDetails
		if err := s.get(context.WithoutCancel(ctx), "details", "/movie/"+key, nil, &m); err != nil {
			return nil, err
		}
		s.details.Set(key, &m)
		return &m, nil
	})
	select {
	case <-ctx.Done():
		return nil, Wrap(ErrCatalog, "tmdb.details", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.MovieDetails), nil
	}
}

// Genres 类型列表，缓存 24 小时
func (s *TMDBService) Genres(ctx context.Context) ([]model.Genre, error) {
	if cached, ok := s.genres.Get("genres"); ok {
		return cached.([]model.Genre), nil
	}
	var resp tmdbGenresResponse
	if err := s.get(ctx, "genres", "/genre/movie/list", nil, &resp); err != nil {
		return nil, err
	}
	s.genres.SetDefault("genres", resp.Genres)
	return resp.Genres, nil
}

// list 请求列表接口并去掉没有海报的影片
func (s *TMDBService) list(ctx context.Context, endpoint, path string, params url.Values) ([]model.Movie, error) {
	var resp tmdbListResponse
	if err := s.get(ctx, endpoint, path, params, &resp); err != nil {
		return nil, err
	}
	movies := make([]model.Movie, 0, len(resp.Results))
	for _, m := range resp.Results {
		if m.HasPoster() {
			movies = append(movies, m)
		}
	}
	return movies, nil
}

func (s *TMDBService) get(ctx context.Context, endpoint, path string, params url.Values, target any) error {
	u := s.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	err := s.client.GetJSON(ctx, u, target)
	catalogRequestsTotal.WithLabelValues(endpoint, outcome(err)).Inc()
	if err == nil {
		return nil
	}

	op := "tmdb." + endpoint
	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return Wrap(ErrNotFound, op, err)
	}
	s.logger.Warn("[TMDB] 请求失败", zap.String("endpoint", endpoint), zap.String("path", path), zap.Error(err))
	return Wrap(ErrCatalog, op, err)
}

// filterReleased 只保留有上映日期且不晚于今天的影片
func (s *TMDBService) filterReleased(movies []model.Movie) []model.Movie {
	today := s.now()
	out := movies[:0]
	for _, m := range movies {
		if m.ReleasedBy(today) {
			out = append(out, m)
		}
	}
	return out
}

func setPage(params url.Values, page int) {
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
}
