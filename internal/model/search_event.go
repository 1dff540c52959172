package model

// SearchEvent 搜索计数记录，每个 (search_term, movie_id) 只有一行
type SearchEvent struct {
	ID         string `json:"id"`
	SearchTerm string `json:"search_term"`
	MovieID    int    `json:"movie_id"`
	Title      string `json:"title"`
	PosterURL  string `json:"poster_url"`
	Count      int    `json:"count"`
}

// TrendingEntry 热门影片（由 SearchEvent 聚合得出，不落库）
type TrendingEntry struct {
	MovieID   int    `json:"movie_id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
	Count     int    `json:"count"`
}
