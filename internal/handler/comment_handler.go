package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inklog/internal/db"
	"github.com/inklog/internal/service"
	"github.com/inklog/internal/view"
)

type postCommentPayload struct {
	ArticleID uint   `json:"article_id"`
	ReplyTo   *uint  `json:"reply_to"`
	Content   string `json:"content"`
}

type editCommentPayload struct {
	CommentID uint   `json:"comment_id"`
	Content   string `json:"content"`
}

// CreateComment 处理发表评论请求。
func (a *API) CreateComment(c *gin.Context) {
	var payload postCommentPayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	user := a.currentUser(c)
	if user == nil {
		respondError(c, http.StatusForbidden, "login required")
		return
	}

	comment, err := a.comments.Create(service.CommentInput{
		ArticleID: payload.ArticleID,
		ParentID:  payload.ReplyTo,
		Author:    user,
		Body:      payload.Content,
	})
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": comment.ID})
}

// EditComment 处理评论编辑请求。
func (a *API) EditComment(c *gin.Context) {
	var payload editCommentPayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	user := a.currentUser(c)
	if user == nil {
		respondError(c, http.StatusForbidden, "login required")
		return
	}

	if err := a.comments.Edit(payload.CommentID, user, payload.Content); err != nil {
		respondCommentError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// DeleteComment 处理评论删除请求（软删除）。
func (a *API) DeleteComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user := a.currentUser(c)
	if user == nil {
		respondError(c, http.StatusForbidden, "login required")
		return
	}

	if err := a.comments.Delete(id, user); err != nil {
		respondCommentError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// GetComment 返回以指定评论为根的 HTML 线程片段：
// 顶层评论附带全部回复，回复只包含其自身。
func (a *API) GetComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusNotFound, "comment not found")
		return
	}

	viewer := a.currentUser(c)
	comment, err := a.comments.Get(id, viewer)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	thread, err := a.comments.ThreadForComment(comment)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	node := a.buildCommentNode(&thread.Root, thread.Replies, comment.ParentID == nil, viewer)
	html, err := view.RenderComment(node)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// buildCommentNode 把评论（及其回复）转换为渲染用的视图模型。
// 权限一次性计算进 Capabilities，渲染层不再推导。
func (a *API) buildCommentNode(comment *db.Comment, replies []db.Comment, isRoot bool, viewer *db.User) view.CommentNode {
	admin := viewer != nil && viewer.Admin

	node := view.CommentNode{
		ID:          comment.ID,
		ArticleID:   comment.ArticleID,
		PostedAt:    comment.CreatedAt,
		Removed:     comment.Removed(),
		AdminViewer: admin,
		Caps:        service.ComputeCapabilities(comment, viewer, isRoot),
	}

	if !node.Stub() {
		if author, err := a.users.ByID(comment.AuthorID); err == nil {
			node.AuthorLogin = service.SanitizeText(author.GithubLogin)
			node.AuthorURL = service.SanitizeText(author.GithubHTMLURL)
		}
		if revision, err := a.comments.LatestRevision(comment); err == nil {
			node.ContentHTML = service.RenderMarkdown(revision.Content, false)
			if revision.CreatedAt.After(comment.CreatedAt) {
				editedAt := revision.CreatedAt
				node.EditedAt = &editedAt
			}
		}
	}

	for i := range replies {
		reply := replies[i]
		node.Replies = append(node.Replies, a.buildCommentNode(&reply, nil, false, viewer))
	}
	return node
}

// respondCommentError 将服务层错误映射为对客户端的具体响应。
// 校验与权限类错误给出可操作的信息；存储层错误只返回笼统的 500。
func respondCommentError(c *gin.Context, err error) {
	var cooldown *service.CooldownError
	switch {
	case errors.Is(err, service.ErrEmptyBody):
		respondError(c, http.StatusBadRequest, "no content provided")
	case errors.Is(err, service.ErrBodyTooLong):
		respondError(c, http.StatusRequestEntityTooLarge, "content is too long")
	case errors.Is(err, service.ErrArticleNotFound):
		respondError(c, http.StatusNotFound, "article not found")
	case errors.Is(err, service.ErrCommentNotFound):
		respondError(c, http.StatusNotFound, "comment not found")
	case errors.Is(err, service.ErrCommentsLocked):
		respondError(c, http.StatusForbidden, "comments are locked")
	case errors.Is(err, service.ErrNotLoggedIn):
		respondError(c, http.StatusForbidden, "login required")
	case errors.Is(err, service.ErrNotAllowed):
		respondError(c, http.StatusForbidden, "forbidden")
	case errors.As(err, &cooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":     "wait " + strconv.Itoa(cooldown.RemainingSeconds()) + "s before retrying",
			"remaining": cooldown.RemainingSeconds(),
		})
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}
