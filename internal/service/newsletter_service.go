package service

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inklog/internal/db"
	"gorm.io/gorm"
)

var ErrInvalidEmail = errors.New("invalid email address")

// NewsletterService 维护邮件订阅者名单。
type NewsletterService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewNewsletterService 创建 NewsletterService 实例。
func NewNewsletterService(gdb *gorm.DB) *NewsletterService {
	return &NewsletterService{db: gdb, now: time.Now}
}

// WithClock 允许在测试中替换时钟。
func (s *NewsletterService) WithClock(now func() time.Time) *NewsletterService {
	if now != nil {
		s.now = now
	}
	return s
}

// Subscribe 登记一个新的订阅邮箱并生成退订令牌。
// 已在订阅中的邮箱直接返回现有记录。
func (s *NewsletterService) Subscribe(email string) (*db.NewsletterSubscriber, error) {
	trimmed := strings.TrimSpace(email)
	if _, err := mail.ParseAddress(trimmed); err != nil || trimmed == "" {
		return nil, ErrInvalidEmail
	}

	var existing db.NewsletterSubscriber
	err := s.db.Where("email = ?", trimmed).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	subscriber := db.NewsletterSubscriber{
		Email:            &trimmed,
		SubscribedAt:     s.now(),
		UnsubscribeToken: uuid.New().String(),
	}
	if err := s.db.Create(&subscriber).Error; err != nil {
		return nil, err
	}
	return &subscriber, nil
}

// Unsubscribe 根据令牌退订：邮箱置空、记录退订时间，行保留。
// 返回令牌是否命中一个仍在订阅中的记录。调用方对未命中与已退订
// 必须返回相同的响应，避免泄露订阅者是否存在。
func (s *NewsletterService) Unsubscribe(token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}

	result := s.db.Model(&db.NewsletterSubscriber{}).
		Where("unsubscribe_token = ? AND email IS NOT NULL", token).
		Updates(map[string]interface{}{
			"email":           nil,
			"unsubscribed_at": s.now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
