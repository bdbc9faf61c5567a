package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inklog/internal/db"
	"gorm.io/gorm"
)

// MaxCommentBytes 是评论正文的最大长度（UTF-8 字节数）。
const MaxCommentBytes = 5000

// CooldownInterval 是同一用户两次发言之间的最小间隔。
const CooldownInterval = 10 * time.Second

var (
	ErrEmptyBody       = errors.New("comment body is empty")
	ErrBodyTooLong     = errors.New("comment body exceeds maximum length")
	ErrArticleNotFound = errors.New("article not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrCommentsLocked  = errors.New("comments are locked on this article")
	ErrNotLoggedIn     = errors.New("login required")
	ErrNotAllowed      = errors.New("operation not allowed")
)

// CooldownError 表示用户仍处于发言冷却期。
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("wait %d seconds before retrying", e.RemainingSeconds())
}

// RemainingSeconds 返回剩余冷却秒数，向上取整，至少为 1。
func (e *CooldownError) RemainingSeconds() int {
	secs := int((e.Remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// CommentService 承载评论的组织、校验与增删改逻辑。
type CommentService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCommentService 创建 CommentService 实例。
func NewCommentService(gdb *gorm.DB) *CommentService {
	return &CommentService{db: gdb, now: time.Now}
}

// WithClock 允许在测试中替换时钟。
func (s *CommentService) WithClock(now func() time.Time) *CommentService {
	if now != nil {
		s.now = now
	}
	return s
}

// CommentThread 是一个顶层评论及其直接回复组成的两级线程。
type CommentThread struct {
	Root    db.Comment
	Replies []db.Comment
}

// Group 将同一篇文章的平铺评论列表组织为两级线程森林。
// 顶层评论按发布时间升序排列，每个线程内的回复同样按时间升序。
// 回复的父评论若不在顶层评论之中（父评论本身是回复、或不存在），
// 该回复被直接丢弃，不提升为顶层、不作为孤儿展示。
func Group(comments []db.Comment) []CommentThread {
	buckets := make(map[uint]*CommentThread)
	var replies []db.Comment

	// 先分拣出顶层评论
	for _, c := range comments {
		if c.ParentID == nil {
			buckets[c.ID] = &CommentThread{Root: c}
		} else {
			replies = append(replies, c)
		}
	}

	// 再把回复挂到各自的顶层评论下
	for _, r := range replies {
		if bucket, ok := buckets[*r.ParentID]; ok {
			bucket.Replies = append(bucket.Replies, r)
		}
	}

	threads := make([]CommentThread, 0, len(buckets))
	for _, bucket := range buckets {
		sort.Slice(bucket.Replies, func(i, j int) bool {
			return bucket.Replies[i].CreatedAt.Before(bucket.Replies[j].CreatedAt)
		})
		threads = append(threads, *bucket)
	}
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].Root.CreatedAt.Before(threads[j].Root.CreatedAt)
	})

	return threads
}

// Capabilities 描述某个用户对某条评论可执行的操作。
// 渲染与业务逻辑都以此为准，不得各自重推导权限。
type Capabilities struct {
	CanEdit      bool
	CanDelete    bool
	CanReply     bool
	CanPermalink bool
}

// ComputeCapabilities 计算 viewer 对评论 c 的操作能力。
// isRoot 表示 c 在当前渲染中是否为顶层评论（只有顶层评论可以被回复）。
func ComputeCapabilities(c *db.Comment, viewer *db.User, isRoot bool) Capabilities {
	var caps Capabilities
	if c == nil {
		return caps
	}

	removed := c.Removed()
	caps.CanPermalink = !removed
	if viewer != nil {
		owns := viewer.ID == c.AuthorID || viewer.Admin
		caps.CanEdit = owns && !removed
		caps.CanDelete = owns && !removed
		caps.CanReply = isRoot
	}
	return caps
}

// CommentInput 描述创建评论所需的字段。
type CommentInput struct {
	ArticleID uint
	ParentID  *uint
	Author    *db.User
	Body      string
}

// Create 校验并写入一条新评论及其初始内容版本。
func (s *CommentService) Create(input CommentInput) (*db.Comment, error) {
	if err := validateBody(input.Body); err != nil {
		return nil, err
	}
	if input.Author == nil {
		return nil, ErrNotLoggedIn
	}

	var article db.Article
	if err := s.db.Preload("Revision").First(&article, input.ArticleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}

	if !input.Author.Admin {
		// 草稿与非公开文章对普通用户视同不存在
		if !article.Revision.Public || article.PostDate == nil {
			return nil, ErrArticleNotFound
		}
		if article.Revision.CommentsLocked {
			return nil, ErrCommentsLocked
		}
	}

	if input.ParentID != nil {
		var parent db.Comment
		if err := s.db.First(&parent, *input.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCommentNotFound
			}
			return nil, err
		}
		// 父评论必须属于同一篇文章
		if parent.ArticleID != article.ID {
			return nil, ErrCommentNotFound
		}
	}

	comment := db.Comment{
		ArticleID: article.ID,
		ParentID:  input.ParentID,
		AuthorID:  input.Author.ID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.applyCooldown(tx, input.Author); err != nil {
			return err
		}

		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		// 初始版本与评论共用同一时间戳，编辑标记只在真实编辑之后出现
		revision := db.CommentRevision{
			Model:     gorm.Model{CreatedAt: comment.CreatedAt},
			CommentID: comment.ID,
			Content:   input.Body,
		}
		if err := tx.Create(&revision).Error; err != nil {
			return err
		}
		return tx.Model(&comment).Update("revision_id", revision.ID).Error
	})
	if err != nil {
		return nil, err
	}

	return &comment, nil
}

// Edit 为评论追加一个新的内容版本并将其设为当前版本。
// 仅作者本人或管理员可编辑；管理员绕过锁定与冷却限制。
func (s *CommentService) Edit(commentID uint, editor *db.User, body string) error {
	if err := validateBody(body); err != nil {
		return err
	}
	if editor == nil {
		return ErrNotLoggedIn
	}

	var comment db.Comment
	if err := s.db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	if !editor.Admin && comment.AuthorID != editor.ID {
		return ErrNotAllowed
	}

	if !editor.Admin {
		var article db.Article
		if err := s.db.Preload("Revision").First(&article, comment.ArticleID).Error; err != nil {
			return err
		}
		if !article.Revision.Public {
			return ErrArticleNotFound
		}
		if article.Revision.CommentsLocked {
			return ErrCommentsLocked
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.applyCooldown(tx, editor); err != nil {
			return err
		}

		revision := db.CommentRevision{
			CommentID: comment.ID,
			Content:   body,
		}
		if err := tx.Create(&revision).Error; err != nil {
			return err
		}
		return tx.Model(&comment).Update("revision_id", revision.ID).Error
	})
}

// Delete 软删除评论：仅写入删除时间，行与回复挂接保持不变。
// 管理员可删除任意评论，普通用户只能删除自己的。
// 对已删除评论再次删除不是错误，首次删除的时间戳保持不变。
func (s *CommentService) Delete(commentID uint, user *db.User) error {
	if user == nil {
		return ErrNotLoggedIn
	}

	var comment db.Comment
	if err := s.db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	if !user.Admin && comment.AuthorID != user.ID {
		return ErrNotAllowed
	}

	if comment.Removed() {
		return nil
	}

	now := s.now()
	return s.db.Model(&db.Comment{}).
		Where("id = ? AND removed_at IS NULL", comment.ID).
		Update("removed_at", now).Error
}

// Get 返回指定评论。已删除的评论对非管理员视同不存在。
func (s *CommentService) Get(commentID uint, viewer *db.User) (*db.Comment, error) {
	var comment db.Comment
	if err := s.db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	admin := viewer != nil && viewer.Admin
	if comment.Removed() && !admin {
		return nil, ErrCommentNotFound
	}
	return &comment, nil
}

// ThreadForArticle 拉取文章的全部评论并组织为线程森林。
func (s *CommentService) ThreadForArticle(articleID uint) ([]CommentThread, error) {
	var comments []db.Comment
	if err := s.db.Where("article_id = ?", articleID).Find(&comments).Error; err != nil {
		return nil, err
	}
	return Group(comments), nil
}

// ThreadForComment 返回以指定评论为根的线程片段：
// 顶层评论带上全部回复，回复只返回其自身。
func (s *CommentService) ThreadForComment(comment *db.Comment) (CommentThread, error) {
	thread := CommentThread{Root: *comment}
	if comment.ParentID != nil {
		return thread, nil
	}

	var replies []db.Comment
	if err := s.db.
		Where("parent_id = ?", comment.ID).
		Order("created_at asc").
		Find(&replies).Error; err != nil {
		return thread, err
	}
	thread.Replies = replies
	return thread, nil
}

// LatestRevision 返回评论当前生效的内容版本。
func (s *CommentService) LatestRevision(comment *db.Comment) (*db.CommentRevision, error) {
	var revision db.CommentRevision
	if err := s.db.First(&revision, comment.RevisionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &revision, nil
}

// RevisionHistory 按时间升序返回评论的全部历史版本。
func (s *CommentService) RevisionHistory(commentID uint) ([]db.CommentRevision, error) {
	var revisions []db.CommentRevision
	err := s.db.
		Where("comment_id = ?", commentID).
		Order("id asc").
		Find(&revisions).Error
	return revisions, err
}

// applyCooldown 以条件更新的方式占用冷却窗口。
// 两个并发请求最多只有一个能更新成功，从根上避免了双发竞态。
// 管理员不受冷却限制。
func (s *CommentService) applyCooldown(tx *gorm.DB, user *db.User) error {
	if user.Admin {
		return nil
	}

	now := s.now()
	cutoff := now.Add(-CooldownInterval)
	result := tx.Model(&db.User{}).
		Where("id = ? AND last_post_at <= ?", user.ID, cutoff).
		Update("last_post_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var fresh db.User
		if err := tx.First(&fresh, user.ID).Error; err != nil {
			return err
		}
		remaining := fresh.LastPostAt.Add(CooldownInterval).Sub(now)
		return &CooldownError{Remaining: remaining}
	}
	user.LastPostAt = now
	return nil
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if len(body) > MaxCommentBytes {
		return ErrBodyTooLong
	}
	return nil
}
