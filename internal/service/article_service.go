package service

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/inklog/internal/db"
	"gorm.io/gorm"
)

// ArticleService wraps article related database operations.
type ArticleService struct {
	db  *gorm.DB
	now func() time.Time
}

// ArticleInput represents fields accepted when creating or updating an article.
type ArticleInput struct {
	Title          string
	Description    string
	CoverURL       string
	Content        string
	Tags           string
	Public         bool
	Sponsor        bool
	CommentsLocked bool
}

// ArticleListResult aggregates paginated list data and counters.
type ArticleListResult struct {
	Articles   []db.Article
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// NewArticleService creates an ArticleService instance.
func NewArticleService(gdb *gorm.DB) *ArticleService {
	return &ArticleService{db: gdb, now: time.Now}
}

// WithClock 允许在测试中替换时钟。
func (s *ArticleService) WithClock(now func() time.Time) *ArticleService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create persists an article together with its first content revision.
// 公开发布的文章在创建时即写入发布时间。
func (s *ArticleService) Create(input ArticleInput) (*db.Article, error) {
	article := db.Article{}
	if input.Public {
		now := s.now()
		article.PostDate = &now
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&article).Error; err != nil {
			return err
		}
		revision := revisionFromInput(article.ID, input)
		if err := tx.Create(&revision).Error; err != nil {
			return err
		}
		return tx.Model(&article).Update("revision_id", revision.ID).Error
	})
	if err != nil {
		return nil, err
	}

	return &article, nil
}

// Edit appends a new content revision and makes it current.
// 发布时间遵循"首发优先"：一经设置不再清空、不再移动，
// 重新发布保留最初的发布时间。
func (s *ArticleService) Edit(id uint, input ArticleInput) (*db.Article, error) {
	var article db.Article
	if err := s.db.First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		revision := revisionFromInput(article.ID, input)
		if err := tx.Create(&revision).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"revision_id": revision.ID}
		if input.Public && article.PostDate == nil {
			now := s.now()
			updates["post_date"] = now
			article.PostDate = &now
		}
		return tx.Model(&article).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Get(article.ID, true)
}

// Get fetches an article with its current revision preloaded.
// 非管理员访问草稿或非公开文章时统一返回不存在。
func (s *ArticleService) Get(id uint, admin bool) (*db.Article, error) {
	var article db.Article
	if err := s.db.Preload("Revision").First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	if !admin && (!article.Revision.Public || article.PostDate == nil) {
		return nil, ErrArticleNotFound
	}
	return &article, nil
}

// List returns published articles ordered by post date descending.
// admin 为 true 时包含草稿与非公开文章，按创建时间排序。
func (s *ArticleService) List(page, perPage int, admin bool) (ArticleListResult, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	result := ArticleListResult{Page: page, PerPage: perPage}

	query := s.db.Model(&db.Article{})
	if !admin {
		query = query.
			Joins("JOIN article_revisions ON article_revisions.id = articles.revision_id").
			Where("article_revisions.public = ? AND articles.post_date IS NOT NULL", true)
	}

	if err := query.Count(&result.Total).Error; err != nil {
		return result, err
	}
	result.TotalPages = int((result.Total + int64(perPage) - 1) / int64(perPage))

	order := "articles.created_at desc"
	if !admin {
		order = "articles.post_date desc"
	}

	var articles []db.Article
	if err := query.
		Preload("Revision").
		Order(order).
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&articles).Error; err != nil {
		return result, err
	}
	result.Articles = articles
	return result, nil
}

// RevisionHistory 按时间升序返回文章的全部内容版本。
func (s *ArticleService) RevisionHistory(articleID uint) ([]db.ArticleRevision, error) {
	var revisions []db.ArticleRevision
	err := s.db.
		Where("article_id = ?", articleID).
		Order("id asc").
		Find(&revisions).Error
	return revisions, err
}

func revisionFromInput(articleID uint, input ArticleInput) db.ArticleRevision {
	return db.ArticleRevision{
		ArticleID:      articleID,
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		CoverURL:       strings.TrimSpace(input.CoverURL),
		Content:        input.Content,
		Tags:           input.Tags,
		Public:         input.Public,
		Sponsor:        input.Sponsor,
		CommentsLocked: input.CommentsLocked,
	}
}

// SplitTags 将逗号分隔的标签串拆为有序列表，去掉空白项。
func SplitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Slug 返回文章标题的 URL 形式：小写、空白转连字符、去掉非 ASCII 字符。
func Slug(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('-')
		case r < 128:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
