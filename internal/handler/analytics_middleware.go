package handler

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inklog/internal/service"
)

// AnalyticsCollector 返回为每个请求记录一条访问的中间件。
// 写入在独立 goroutine 中完成，失败只记录日志，
// 绝不阻塞也绝不影响所属请求的响应。
func AnalyticsCollector(analytics *service.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		visit := service.Visit{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Referrer:  c.Request.Referer(),
			Method:    c.Request.Method,
			URI:       c.Request.RequestURI,
			At:        time.Now(),
		}

		go func() {
			if err := analytics.Record(visit); err != nil {
				log.Printf("analytics: cannot record visit: %v", err)
			}
		}()

		c.Next()
	}
}
