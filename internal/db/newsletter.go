package db

import "time"

// NewsletterSubscriber 记录邮件订阅者，只增不删。
// 退订时将 Email 置空并记录退订时间，行本身保留。
type NewsletterSubscriber struct {
	ID           uint    `gorm:"primaryKey"`
	Email        *string `gorm:"index"`
	SubscribedAt time.Time
	// UnsubscribeToken 是退订的唯一凭证，无需登录即可使用。
	UnsubscribeToken string `gorm:"size:64;uniqueIndex"`
	UnsubscribedAt   *time.Time
}

// TableName 指定自定义表名。
func (NewsletterSubscriber) TableName() string {
	return "newsletter_subscribers"
}
