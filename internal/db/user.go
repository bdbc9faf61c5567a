package db

import (
	"time"

	"gorm.io/gorm"
)

// User 定义了用户模型。账号在首次 GitHub OAuth 回调时创建。
type User struct {
	gorm.Model
	GithubID      int64  `gorm:"uniqueIndex;not null"`
	GithubLogin   string `gorm:"not null"`
	GithubHTMLURL string
	// AccessToken 是 GitHub 的访问令牌，绝不能渲染给客户端。
	AccessToken string `json:"-"`
	Admin       bool   `gorm:"default:false"`
	Banned      bool   `gorm:"default:false"`
	// LastPostAt 记录最近一次发言时间，用于发言冷却。
	LastPostAt time.Time
}
