package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inklog/internal/db"
	"github.com/inklog/internal/service"
	"github.com/inklog/internal/view"
)

type articlePayload struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	CoverURL       string `json:"cover_url"`
	Content        string `json:"content"`
	Tags           string `json:"tags"`
	Public         bool   `json:"public"`
	Sponsor        bool   `json:"sponsor"`
	CommentsLocked bool   `json:"comments_locked"`
}

func (p articlePayload) toInput() service.ArticleInput {
	return service.ArticleInput{
		Title:          p.Title,
		Description:    p.Description,
		CoverURL:       p.CoverURL,
		Content:        p.Content,
		Tags:           p.Tags,
		Public:         p.Public,
		Sponsor:        p.Sponsor,
		CommentsLocked: p.CommentsLocked,
	}
}

type articleView struct {
	ID             uint       `json:"id"`
	Title          string     `json:"title"`
	Slug           string     `json:"slug"`
	Description    string     `json:"description"`
	CoverURL       string     `json:"cover_url"`
	Tags           []string   `json:"tags"`
	PostDate       *time.Time `json:"post_date"`
	Public         bool       `json:"public"`
	Sponsor        bool       `json:"sponsor"`
	CommentsLocked bool       `json:"comments_locked"`
}

func toArticleView(a *db.Article) articleView {
	return articleView{
		ID:             a.ID,
		Title:          a.Revision.Title,
		Slug:           service.Slug(a.Revision.Title),
		Description:    a.Revision.Description,
		CoverURL:       a.Revision.CoverURL,
		Tags:           service.SplitTags(a.Revision.Tags),
		PostDate:       a.PostDate,
		Public:         a.Revision.Public,
		Sponsor:        a.Revision.Sponsor,
		CommentsLocked: a.Revision.CommentsLocked,
	}
}

// ListArticles 返回已发布文章的分页列表。管理员可见草稿。
func (a *API) ListArticles(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	user := a.currentUser(c)
	admin := user != nil && user.Admin

	result, err := a.articles.List(page, 10, admin)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]articleView, 0, len(result.Articles))
	for i := range result.Articles {
		views = append(views, toArticleView(&result.Articles[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"articles":    views,
		"total":       result.Total,
		"page":        result.Page,
		"total_pages": result.TotalPages,
	})
}

// GetArticle 返回单篇文章及其评论线程。
// 正文 Markdown 渲染时允许内嵌 HTML（文章作者即站点管理员）。
func (a *API) GetArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusNotFound, "article not found")
		return
	}

	user := a.currentUser(c)
	admin := user != nil && user.Admin

	article, err := a.articles.Get(id, admin)
	if err != nil {
		if errors.Is(err, service.ErrArticleNotFound) {
			respondError(c, http.StatusNotFound, "article not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	threads, err := a.comments.ThreadForArticle(article.ID)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	fragments := make([]gin.H, 0, len(threads))
	for i := range threads {
		node := a.buildCommentNode(&threads[i].Root, threads[i].Replies, true, user)
		html, renderErr := view.RenderComment(node)
		if renderErr != nil {
			_ = c.Error(renderErr)
			respondError(c, http.StatusInternalServerError, "internal error")
			return
		}
		fragments = append(fragments, gin.H{
			"id":   node.ID,
			"caps": node.Caps,
			"html": html,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"article":  toArticleView(article),
		"content":  service.RenderMarkdown(article.Revision.Content, true),
		"comments": fragments,
	})
}

// CreateArticle 创建文章（管理员）。
func (a *API) CreateArticle(c *gin.Context) {
	var payload articlePayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	article, err := a.articles.Create(payload.toInput())
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": article.ID})
}

// UpdateArticle 为文章追加新的内容版本（管理员）。
func (a *API) UpdateArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload articlePayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	article, err := a.articles.Edit(id, payload.toInput())
	if err != nil {
		if errors.Is(err, service.ErrArticleNotFound) {
			respondError(c, http.StatusNotFound, "article not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"article": toArticleView(article)})
}
