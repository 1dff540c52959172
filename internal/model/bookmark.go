package model

import "time"

// Bookmark 用户收藏
type Bookmark struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	MovieID int       `json:"movie_id"`
	SavedAt time.Time `json:"saved_at"`
}

// EnrichedBookmark 收藏 + TMDB 实时详情
type EnrichedBookmark struct {
	MovieDetails
	SavedAt time.Time `json:"saved_at"`
}
