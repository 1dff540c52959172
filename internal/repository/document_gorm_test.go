package repository

import (
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB 不连接数据库，只用于生成 SQL
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, err := sql.Open("postgres", "postgres://x:y@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestBuildListQuery(t *testing.T) {
	db := dryRunDB(t)

	t.Run("should filter by collection and json equality", func(t *testing.T) {
		sqlText := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			q, err := buildListQuery(tx, CollectionBookmarks, Query{
				Where: []Predicate{Equal("user_id", "u1"), Equal("movie_id", 42)},
			})
			require.NoError(t, err)
			return q.Find(&[]documentRecord{})
		})

		assert.Contains(t, sqlText, `"documents"`)
		assert.Contains(t, sqlText, "collection = 'saved_movies'")
		assert.Contains(t, sqlText, "json_extract_path_text")
		assert.Contains(t, sqlText, "'user_id'")
		assert.Contains(t, sqlText, "'42'")
		assert.Contains(t, sqlText, "ORDER BY created_at ASC")
	})

	t.Run("should order by json field and limit", func(t *testing.T) {
		sqlText := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			q, err := buildListQuery(tx, CollectionSearchEvents, Query{OrderBy: "count", Desc: true, Limit: 20})
			require.NoError(t, err)
			return q.Find(&[]documentRecord{})
		})

		assert.Contains(t, sqlText, "ORDER BY fields -> 'count' DESC, created_at DESC")
		assert.Contains(t, sqlText, "LIMIT 20")
	})

	t.Run("should reject unsafe field names", func(t *testing.T) {
		_, err := buildListQuery(db, CollectionSearchEvents, Query{OrderBy: "count'; drop table documents; --"})
		assert.Error(t, err)

		_, err = buildListQuery(db, CollectionSearchEvents, Query{Where: []Predicate{Equal("a b", 1)}})
		assert.Error(t, err)
	})
}
