package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultSecret 未配置 APP_SECRET 时使用的占位密钥
const DefaultSecret = "your-secret-key-change-in-production"

// Config 应用配置
type Config struct {
	Env            string `envconfig:"APP_ENV" default:"development"`
	AppSecret      string `envconfig:"APP_SECRET" default:"your-secret-key-change-in-production"`
	Port           string `envconfig:"PORT" default:"5005"`
	JWTExpiryHours int    `envconfig:"JWT_EXPIRY_HOURS" default:"72"`
	StoreDriver    string `envconfig:"STORE_DRIVER" default:"postgres"` // postgres | memory

	DB struct {
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:"postgres"`
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     string `envconfig:"DB_PORT" default:"5432"`
		Name     string `envconfig:"DB_NAME" default:"reelmark"`
		SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	}

	TMDB struct {
		BaseURL        string `envconfig:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
		Token          string `envconfig:"TMDB_TOKEN"`
		ImageBaseURL   string `envconfig:"TMDB_IMAGE_BASE_URL" default:"https://image.tmdb.org/t/p/w500"`
		TimeoutSeconds int    `envconfig:"TMDB_TIMEOUT_SECONDS" default:"10"`
	}

	Trending struct {
		WorkingSet int `envconfig:"TRENDING_WORKING_SET" default:"20"`
		Limit      int `envconfig:"TRENDING_LIMIT" default:"5"`
	}

	// 收藏详情并发拉取上限
	DetailConcurrency int `envconfig:"DETAIL_CONCURRENCY" default:"8"`
}

// Load 加载配置
func Load() (*Config, error) {
	// 没有 .env 文件时直接使用系统环境变量
	_ = godotenv.Load()

	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config error: %w", err)
	}
	if cfg.StoreDriver != "postgres" && cfg.StoreDriver != "memory" {
		return nil, fmt.Errorf("load config error: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

// DatabaseURL 拼接 postgres 连接串
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// JWTExpiry token 有效期
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

// TMDBTimeout TMDB 请求超时
func (c *Config) TMDBTimeout() time.Duration {
	return time.Duration(c.TMDB.TimeoutSeconds) * time.Second
}

// InsecureSecret 生产环境仍在使用默认密钥
func (c *Config) InsecureSecret() bool {
	return c.Env == "production" && c.AppSecret == DefaultSecret
}
