package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/inklog/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由。
func SetupRouter(api *handler.API, sessionSecret, uploadDir, uploadURLPath string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("inklog_session", store))

	// 每个请求记录一条访问
	r.Use(handler.AnalyticsCollector(api.Analytics()))

	// 静态文件服务
	if uploadDir != "" && uploadURLPath != "" {
		r.Static(uploadURLPath, uploadDir)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// 公开页面
	r.GET("/", api.ListArticles)
	r.GET("/api/articles", api.ListArticles)
	r.GET("/a/:id", api.GetArticle)
	r.GET("/legal", api.LegalPage)

	// 评论
	r.POST("/comment", api.CreateComment)
	r.PATCH("/comment", api.EditComment)
	r.DELETE("/comment/:id", api.DeleteComment)
	r.GET("/comment/:id", api.GetComment)

	// 登录与头像代理
	r.GET("/auth", api.Auth)
	r.GET("/oauth", api.OAuthCallback)
	r.GET("/logout", api.Logout)
	r.GET("/avatar/:login", api.Avatar)

	// 邮件订阅
	r.POST("/newsletter/subscribe", api.Subscribe)
	r.GET("/newsletter/unsubscribe/:token", api.Unsubscribe)

	// 需要管理员会话的后台路由
	admin := r.Group("/admin/api")
	admin.Use(api.AuthRequired())
	{
		admin.GET("/articles", api.ListArticles)
		admin.POST("/articles", api.CreateArticle)
		admin.PUT("/articles/:id", api.UpdateArticle)
		admin.POST("/upload", api.UploadImage)
	}

	return r
}
