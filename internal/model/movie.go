package model

import "time"

// Movie 影片摘要（TMDB 列表接口返回）
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	OriginalLanguage string  `json:"original_language"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"` // YYYY-MM-DD，可能为空
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	GenreIDs         []int   `json:"genre_ids"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`
}

// HasPoster 是否有海报
func (m *Movie) HasPoster() bool {
	return m.PosterPath != ""
}

// ReleasedBy 判断影片在 t 当天或之前已上映；没有上映日期视为未上映
func (m *Movie) ReleasedBy(t time.Time) bool {
	if m.ReleaseDate == "" {
		return false
	}
	d, err := time.Parse(time.DateOnly, m.ReleaseDate)
	if err != nil {
		return false
	}
	y, mo, day := t.Date()
	return !d.After(time.Date(y, mo, day, 0, 0, 0, 0, time.UTC))
}

// Genre 影片类型
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Company 出品公司
type Company struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path"`
	OriginCountry string `json:"origin_country"`
}

// Language 语言
type Language struct {
	ISO6391     string `json:"iso_639_1"`
	Name        string `json:"name"`
	EnglishName string `json:"english_name"`
}

// MovieDetails 影片详情（TMDB /movie/{id}）
type MovieDetails struct {
	ID                  int        `json:"id"`
	IMDbID              string     `json:"imdb_id"`
	Title               string     `json:"title"`
	OriginalTitle       string     `json:"original_title"`
	OriginalLanguage    string     `json:"original_language"`
	Tagline             string     `json:"tagline"`
	Overview            string     `json:"overview"`
	PosterPath          string     `json:"poster_path"`
	BackdropPath        string     `json:"backdrop_path"`
	ReleaseDate         string     `json:"release_date"`
	Runtime             int        `json:"runtime"`
	Status              string     `json:"status"`
	Budget              int64      `json:"budget"`
	Revenue             int64      `json:"revenue"`
	Homepage            string     `json:"homepage"`
	VoteAverage         float64    `json:"vote_average"`
	VoteCount           int        `json:"vote_count"`
	Popularity          float64    `json:"popularity"`
	Adult               bool       `json:"adult"`
	Genres              []Genre    `json:"genres"`
	ProductionCompanies []Company  `json:"production_companies"`
	SpokenLanguages     []Language `json:"spoken_languages"`
}

// HasPoster 是否有海报
func (m *MovieDetails) HasPoster() bool {
	return m.PosterPath != ""
}

// GenreShelves 某个类型下的三组片单
type GenreShelves struct {
	GenreID  int     `json:"genre_id"`
	Popular  []Movie `json:"popular"`
	TopRated []Movie `json:"top_rated"`
	Latest   []Movie `json:"latest"`
}
