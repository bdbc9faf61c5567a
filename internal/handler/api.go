package handler

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/inklog/internal/db"
	"github.com/inklog/internal/service"
	"gorm.io/gorm"
)

const sessionUserKey = "user_id"

// API bundles shared dependencies for HTTP handlers.
type API struct {
	users      *service.UserService
	articles   *service.ArticleService
	comments   *service.CommentService
	analytics  *service.AnalyticsService
	newsletter *service.NewsletterService
	github     *service.GitHubProvider
	uploadDir  string
	uploadURL  string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, github *service.GitHubProvider, analytics *service.AnalyticsService, uploadDir, uploadURL string) *API {
	return &API{
		users:      service.NewUserService(gdb),
		articles:   service.NewArticleService(gdb),
		comments:   service.NewCommentService(gdb),
		analytics:  analytics,
		newsletter: service.NewNewsletterService(gdb),
		github:     github,
		uploadDir:  uploadDir,
		uploadURL:  uploadURL,
	}
}

// Comments 返回评论服务，供路由层与测试使用。
func (a *API) Comments() *service.CommentService {
	return a.comments
}

// Analytics 返回访问统计服务，供路由层挂载采集中间件。
func (a *API) Analytics() *service.AnalyticsService {
	return a.analytics
}

// currentUser 解析会话中的登录用户，未登录或账号失效时返回 nil。
func (a *API) currentUser(c *gin.Context) *db.User {
	session := sessions.Default(c)
	raw := session.Get(sessionUserKey)
	if raw == nil {
		return nil
	}
	id, ok := raw.(uint)
	if !ok {
		return nil
	}
	user, err := a.users.ByID(id)
	if err != nil {
		return nil
	}
	if user.Banned {
		return nil
	}
	return user
}

// AuthRequired 要求已登录的管理员会话，否则返回 403。
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := a.currentUser(c)
		if user == nil || !user.Admin {
			respondError(c, 403, "forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}
