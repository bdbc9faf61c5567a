package view

import (
	"bytes"
	"html/template"
	"time"

	"github.com/inklog/internal/service"
)

// CommentNode 是渲染一条评论所需的全部数据。
// 操作按钮完全由 Caps 决定，模板不做任何权限推导。
type CommentNode struct {
	ID          uint
	ArticleID   uint
	AuthorLogin string
	AuthorURL   string
	PostedAt    time.Time
	EditedAt    *time.Time
	Removed     bool
	// AdminViewer 为 true 时，已删除评论仍显示原文并附加 REMOVED 标记。
	AdminViewer bool
	ContentHTML template.HTML
	Caps        service.Capabilities
	Replies     []CommentNode
}

// Stub 返回该评论是否渲染为"已删除"占位。
func (n CommentNode) Stub() bool {
	return n.Removed && !n.AdminViewer
}

// DateLabel 返回时间标签：编辑过的追加编辑时间，
// 管理员视角下已删除的追加 REMOVED 标记。
func (n CommentNode) DateLabel() string {
	label := n.PostedAt.Format(time.RFC3339)
	if n.EditedAt != nil && n.EditedAt.After(n.PostedAt) {
		label += " (edit: " + n.EditedAt.Format(time.RFC3339) + ")"
	}
	if n.Removed && n.AdminViewer {
		label += " - REMOVED"
	}
	return label
}

var commentTemplate = template.Must(template.New("comment").Parse(`{{define "node"}}<div class="comment" id="com-{{.ID}}">
	<div class="comment-header">
		{{if not .Stub}}<a href="{{.AuthorURL}}" target="_blank"><img class="comment-avatar" src="/avatar/{{.AuthorLogin}}"></a>
		<p><a href="{{.AuthorURL}}" target="_blank">{{.AuthorLogin}}</a></p>
		<h6 class="comment-date">{{.DateLabel}}</h6>
		{{end}}<div class="comment-buttons">
			{{if .Caps.CanPermalink}}<a href="#com-{{.ID}}" class="comment-button" title="Copy link">#</a>{{end}}
			{{if .Caps.CanEdit}}<a class="comment-button" onclick="toggle_edit({{.ID}})">Edit</a>{{end}}
			{{if .Caps.CanDelete}}<a class="comment-button" onclick="del({{.ID}})">Delete</a>{{end}}
			{{if .Caps.CanReply}}<a class="comment-button" onclick="toggle_reply({{.ID}})">Reply</a>{{end}}
		</div>
	</div>
	<div class="comment-content">
		{{if .Stub}}<p><i>deleted comment</i></p>{{else}}{{.ContentHTML}}{{end}}
	</div>
	{{if .Replies}}<div id="comment-{{.ID}}-replies" class="comments-list">
		{{range .Replies}}{{template "node" .}}{{end}}
	</div>{{end}}
</div>
{{end}}{{template "node" .}}`))

// RenderComment 渲染以 node 为根的评论线程片段。
func RenderComment(node CommentNode) (template.HTML, error) {
	var buf bytes.Buffer
	if err := commentTemplate.Execute(&buf, node); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
