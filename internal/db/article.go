package db

import (
	"time"

	"gorm.io/gorm"
)

// Article 定义了文章模型。正文等内容保存在 ArticleRevision 中，
// RevisionID 指向当前生效的版本。
type Article struct {
	gorm.Model
	// PostDate 为 nil 表示草稿。一经设置不再清空、不再提前。
	PostDate   *time.Time
	RevisionID uint
	Revision   ArticleRevision
}

// ArticleRevision 记录文章内容的历史版本快照，只增不改。
type ArticleRevision struct {
	gorm.Model
	ArticleID   uint `gorm:"index"`
	Title       string
	Description string
	CoverURL    string
	Content     string `gorm:"type:text"`
	// Tags 为逗号分隔的标签列表，保持录入顺序。
	Tags           string
	Public         bool `gorm:"default:false"`
	Sponsor        bool `gorm:"default:false"`
	CommentsLocked bool `gorm:"default:false"`
}

// TableName 指定自定义表名。
func (ArticleRevision) TableName() string {
	return "article_revisions"
}
