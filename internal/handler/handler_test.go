package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/reelmark/internal/config"
	"github.com/user/reelmark/internal/handler"
	"github.com/user/reelmark/internal/model"
	"github.com/user/reelmark/internal/repository"
	"github.com/user/reelmark/internal/router"
	"github.com/user/reelmark/internal/service"
)

// fakeCatalog 内存影片目录
type fakeCatalog struct {
	movies map[int]model.MovieDetails
}

func (f *fakeCatalog) Details(_ context.Context, id int) (*model.MovieDetails, error) {
	d, ok := f.movies[id]
	if !ok {
		return nil, service.Wrap(service.ErrNotFound, "tmdb.details", nil)
	}
	return &d, nil
}

func (f *fakeCatalog) Search(_ context.Context, query string, _ int) ([]model.Movie, error) {
	var out []model.Movie
	for _, id := range []int{1, 2} {
		d := f.movies[id]
		if query == d.Title {
			out = append(out, model.Movie{ID: d.ID, Title: d.Title, PosterPath: d.PosterPath})
		}
	}
	return out, nil
}

func (f *fakeCatalog) Latest(context.Context) ([]model.Movie, error) {
	return []model.Movie{{ID: 2, Title: "Dune", PosterPath: "/d.jpg"}}, nil
}

func (f *fakeCatalog) Discover(context.Context, service.DiscoverFilter) ([]model.Movie, error) {
	return nil, nil
}

func (f *fakeCatalog) Genres(context.Context) ([]model.Genre, error) {
	return []model.Genre{{ID: 28, Name: "Action"}}, nil
}

func (f *fakeCatalog) ByCategory(context.Context, string, int) ([]model.Movie, error) {
	return nil, service.Wrap(service.ErrCatalog, "tmdb.category", nil)
}

func (f *fakeCatalog) GenreShelves(_ context.Context, genreID int) (*model.GenreShelves, error) {
	return &model.GenreShelves{GenreID: genreID}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	h      *handler.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{AppSecret: "test-secret", JWTExpiryHours: 1}
	cfg.TMDB.ImageBaseURL = "https://img.test"
	catalog := &fakeCatalog{movies: map[int]model.MovieDetails{
		1:  {ID: 1, Title: "Batman", PosterPath: "/b.jpg", Runtime: 126},
		2:  {ID: 2, Title: "Dune", PosterPath: "/d.jpg", Runtime: 155},
		42: {ID: 42, Title: "Answer", PosterPath: "/a.jpg", Runtime: 42},
	}}
	repos := repository.NewMemoryRepositories()
	logger := zap.NewNop()

	accounts := service.NewAccountService(repos.Users, cfg.AppSecret, cfg.JWTExpiry(), logger)
	trending := service.NewTrendingService(repos.Documents, service.TrendingOptions{ImageBaseURL: cfg.TMDB.ImageBaseURL}, logger)
	bookmarks := service.NewBookmarkService(repos.Documents, catalog, accounts, 4, logger)
	h := handler.NewHandler(cfg, catalog, trending, bookmarks, accounts, logger)

	return &testServer{t: t, engine: router.New(h, logger), h: h}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "" && w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *testServer) register(email string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": "correct-horse"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMovies(t *testing.T) {
	s := newTestServer(t)

	t.Run("latest without query", func(t *testing.T) {
		w, env := s.do(http.MethodGet, "/api/movies", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var movies []model.Movie
		require.NoError(t, json.Unmarshal(env.Data, &movies))
		require.Len(t, movies, 1)
		assert.Equal(t, "Dune", movies[0].Title)
	})

	t.Run("search records the first hit", func(t *testing.T) {
		w, _ := s.do(http.MethodGet, "/api/movies?query=Batman", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		s.h.Wait()

		w, env := s.do(http.MethodGet, "/api/trending", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var entries []model.TrendingEntry
		require.NoError(t, json.Unmarshal(env.Data, &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, model.TrendingEntry{MovieID: 1, Title: "Batman", PosterURL: "https://img.test/b.jpg", Count: 1}, entries[0])
	})

	t.Run("details", func(t *testing.T) {
		w, env := s.do(http.MethodGet, "/api/movies/2", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var d model.MovieDetails
		require.NoError(t, json.Unmarshal(env.Data, &d))
		assert.Equal(t, 155, d.Runtime)
	})

	t.Run("error mapping", func(t *testing.T) {
		w, _ := s.do(http.MethodGet, "/api/movies/999", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w, _ = s.do(http.MethodGet, "/api/movies/abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w, _ = s.do(http.MethodGet, "/api/movies/category/action", "", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("genres and shelves", func(t *testing.T) {
		w, _ := s.do(http.MethodGet, "/api/genres", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		w, env := s.do(http.MethodGet, "/api/genres/28/shelves", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var shelves model.GenreShelves
		require.NoError(t, json.Unmarshal(env.Data, &shelves))
		assert.Equal(t, 28, shelves.GenreID)
	})
}

func TestSearchAfterWait(t *testing.T) {
	s := newTestServer(t)
	s.h.Wait()

	w, _ := s.do(http.MethodGet, "/api/movies?query=Batman", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.h.Wait()

	w, env := s.do(http.MethodGet, "/api/trending", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestSearchEvents(t *testing.T) {
	s := newTestServer(t)
	event := func(term string) gin.H {
		return gin.H{"search_term": term, "movie": gin.H{"id": 2, "title": "Dune", "poster_path": "/d.jpg"}}
	}

	w, _ := s.do(http.MethodPost, "/api/search-events", "", event("   "))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(http.MethodPost, "/api/search-events", "", gin.H{"search_term": "dune", "movie": gin.H{"title": "Dune"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for i := 0; i < 3; i++ {
		w, env := s.do(http.MethodPost, "/api/search-events", "", event("dune"))
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.JSONEq(t, `{"recorded":true}`, string(env.Data))
	}

	w, env := s.do(http.MethodGet, "/api/trending?limit=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []model.TrendingEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Count)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register("ada@example.com")

	w, env := s.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var account model.Account
	require.NoError(t, json.Unmarshal(env.Data, &account))
	assert.Equal(t, "ada@example.com", account.Email)
	assert.Equal(t, "ada", account.Name)

	w, env = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "ada@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "该邮箱已被注册", env.Message)

	w, env = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "not-an-email", "password": "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "邮箱格式错误或密码少于 8 位", env.Message)

	w, _ = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "bob@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "邮箱格式错误或密码少于 8 位", env.Message)

	w, _ = s.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSaved(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/api/saved", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = s.do(http.MethodPost, "/api/saved/42", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, env := s.do(http.MethodGet, "/api/saved/42", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"movie_id":42,"saved":false}`, string(env.Data))

	ada := s.register("ada@example.com")
	bob := s.register("bob@example.com")

	for _, id := range []string{"1", "2", "42"} {
		w, _ := s.do(http.MethodPost, "/api/saved/"+id, ada, nil)
		require.Equal(t, http.StatusOK, w.Code)
		time.Sleep(time.Millisecond)
	}

	w, env = s.do(http.MethodGet, "/api/saved/42", ada, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"movie_id":42,"saved":true}`, string(env.Data))

	w, env = s.do(http.MethodGet, "/api/saved/42", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"movie_id":42,"saved":false}`, string(env.Data))

	w, env = s.do(http.MethodGet, "/api/saved", ada, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[42,2,1]`, string(env.Data))

	w, env = s.do(http.MethodGet, "/api/saved/details", ada, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []model.EnrichedBookmark
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 3)
	assert.Equal(t, 42, items[0].ID)
	assert.Equal(t, 126, items[2].Runtime)

	w, env = s.do(http.MethodDelete, "/api/saved/42", ada, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"movie_id":42,"removed":true}`, string(env.Data))
	w, env = s.do(http.MethodDelete, "/api/saved/42", ada, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"movie_id":42,"removed":false}`, string(env.Data))

	w, _ = s.do(http.MethodPost, "/api/saved/abc", ada, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
