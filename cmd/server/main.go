package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-gonic/gin"
	"github.com/user/reelmark/internal/config"
	"github.com/user/reelmark/internal/handler"
	"github.com/user/reelmark/internal/repository"
	"github.com/user/reelmark/internal/router"
	"github.com/user/reelmark/internal/service"
	"github.com/user/reelmark/internal/utils"
	"go.uber.org/zap"
)

func main() {
	// 加载配置（内部会读取 .env）
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer logger.Sync()

	if cfg.InsecureSecret() {
		logger.Warn("生产环境仍在使用默认 APP_SECRET，请尽快修改")
	}
	if cfg.TMDB.Token == "" {
		logger.Warn("未配置 TMDB_TOKEN，影片接口将无法访问")
	}

	// 初始化仓库
	var repos *repository.Repositories
	switch cfg.StoreDriver {
	case "memory":
		logger.Info("使用内存存储，重启后数据丢失")
		repos = repository.NewMemoryRepositories()
	default:
		db, err := repository.InitDB(cfg.DatabaseURL())
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		sqlDB, _ := db.DB()
		defer sqlDB.Close()

		if err := repository.Migrate(db); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		repos = repository.NewRepositories(db)
	}

	// 初始化服务
	catalog := service.NewTMDBService(cfg, logger)
	accounts := service.NewAccountService(repos.Users, cfg.AppSecret, cfg.JWTExpiry(), logger)
	trending := service.NewTrendingService(repos.Documents, service.TrendingOptions{
		ImageBaseURL: cfg.TMDB.ImageBaseURL,
		WorkingSet:   cfg.Trending.WorkingSet,
		Limit:        cfg.Trending.Limit,
	}, logger)
	bookmarks := service.NewBookmarkService(repos.Documents, catalog, accounts, cfg.DetailConcurrency, logger)

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(cfg, catalog, trending, bookmarks, accounts, logger)
	r := router.New(h, logger)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		logger.Info("服务器启动", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("正在关闭服务器...")

	// 5 秒超时上下文用于关闭过程
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器强制关闭", zap.Error(err))
	}
	// 等待后台的搜索记录写完
	h.Wait()

	logger.Info("服务器已退出")
}
