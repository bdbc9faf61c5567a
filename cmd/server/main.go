package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/inklog/internal/config"
	"github.com/inklog/internal/db"
	"github.com/inklog/internal/handler"
	"github.com/inklog/internal/router"
	"github.com/inklog/internal/service"
	"github.com/joho/godotenv"
	"github.com/oschwald/geoip2-golang"
)

func main() {
	// 本地开发时从 .env 读取配置，文件不存在则忽略
	_ = godotenv.Load()
	cfg := config.Load()

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// GeoIP 库缺失只禁用地理位置推导，不阻止启动
	var analytics *service.AnalyticsService
	if reader, err := geoip2.Open(cfg.GeoIPPath); err != nil {
		log.Printf("geoip database unavailable, geolocation disabled: %v", err)
		analytics = service.NewAnalyticsService(db.DB, nil)
	} else {
		defer reader.Close()
		analytics = service.NewAnalyticsService(db.DB, reader)
	}
	analytics.StartSweeper(context.Background(), service.DefaultSweepInterval)

	github := service.NewGitHubProvider(cfg.GithubClientID, cfg.GithubClientSecret, cfg.GithubCallbackURL)
	api := handler.NewAPI(db.DB, github, analytics, cfg.UploadDir, cfg.UploadURLPath)

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret, cfg.UploadDir, cfg.UploadURLPath)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
