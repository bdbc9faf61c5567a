package db

import (
	"time"

	"gorm.io/gorm"
)

// Comment 定义了评论模型。ParentID 为 nil 表示顶层评论；
// 父评论必须属于同一篇文章（由 service 层显式校验）。
type Comment struct {
	gorm.Model
	ArticleID uint  `gorm:"index"`
	ParentID  *uint `gorm:"index"`
	AuthorID  uint  `gorm:"index"`
	// RevisionID 指向当前生效的内容版本。
	RevisionID uint
	// RemovedAt 非 nil 表示评论已被软删除。行本身保留，回复保持挂接。
	RemovedAt *time.Time
}

// Removed 返回评论是否已被软删除。
func (c *Comment) Removed() bool {
	return c.RemovedAt != nil
}

// CommentRevision 记录评论内容的编辑历史，只增不改。
// CreatedAt 即为该次编辑的时间。
type CommentRevision struct {
	gorm.Model
	CommentID uint   `gorm:"index"`
	Content   string `gorm:"type:text"`
}

// TableName 指定自定义表名。
func (CommentRevision) TableName() string {
	return "comment_revisions"
}
