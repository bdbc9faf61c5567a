package view

import (
	"strings"
	"testing"
	"time"

	"github.com/inklog/internal/service"
)

func TestRenderCommentShowsCapabilityButtons(t *testing.T) {
	node := CommentNode{
		ID:          7,
		AuthorLogin: "alice",
		AuthorURL:   "https://github.com/alice",
		PostedAt:    time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		ContentHTML: "<p>hello</p>",
		Caps:        service.Capabilities{CanEdit: true, CanDelete: true, CanReply: true, CanPermalink: true},
	}

	html, err := RenderComment(node)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := string(html)
	for _, want := range []string{`id="com-7"`, "alice", "<p>hello</p>", "Edit", "Delete", "Reply", "#com-7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCommentHidesButtonsWithoutCapabilities(t *testing.T) {
	node := CommentNode{
		ID:          7,
		AuthorLogin: "alice",
		PostedAt:    time.Now(),
		ContentHTML: "<p>hello</p>",
		Caps:        service.Capabilities{CanPermalink: true},
	}

	html, err := RenderComment(node)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := string(html)
	for _, banned := range []string{"Edit", "Delete", "Reply"} {
		if strings.Contains(out, banned) {
			t.Fatalf("anonymous reader must not see %q button:\n%s", banned, out)
		}
	}
}

func TestRenderCommentStub(t *testing.T) {
	node := CommentNode{
		ID:      9,
		Removed: true,
		Replies: []CommentNode{{
			ID:          10,
			AuthorLogin: "bob",
			PostedAt:    time.Now(),
			ContentHTML: "<p>still here</p>",
			Caps:        service.Capabilities{CanPermalink: true},
		}},
	}

	html, err := RenderComment(node)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := string(html)
	if !strings.Contains(out, "deleted comment") {
		t.Fatalf("stub marker missing:\n%s", out)
	}
	// 占位不泄露作者
	if strings.Contains(out, "avatar/") && !strings.Contains(out, "avatar/bob") {
		t.Fatalf("stub must not render an author avatar:\n%s", out)
	}
	// 回复仍然挂接
	if !strings.Contains(out, "still here") {
		t.Fatalf("replies under a removed root must still render:\n%s", out)
	}
}

func TestRenderCommentAdminSeesRemovedContent(t *testing.T) {
	node := CommentNode{
		ID:          9,
		AuthorLogin: "alice",
		PostedAt:    time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		Removed:     true,
		AdminViewer: true,
		ContentHTML: "<p>offending text</p>",
	}

	html, err := RenderComment(node)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := string(html)
	if !strings.Contains(out, "offending text") {
		t.Fatalf("admins must still see removed content:\n%s", out)
	}
	if !strings.Contains(out, "REMOVED") {
		t.Fatalf("admin view must carry the REMOVED marker:\n%s", out)
	}
}

func TestDateLabel(t *testing.T) {
	posted := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	edited := posted.Add(time.Hour)

	plain := CommentNode{PostedAt: posted}
	if got := plain.DateLabel(); strings.Contains(got, "edit:") {
		t.Fatalf("unedited comment must not carry an edit label: %q", got)
	}

	withEdit := CommentNode{PostedAt: posted, EditedAt: &edited}
	if got := withEdit.DateLabel(); !strings.Contains(got, "edit: "+edited.Format(time.RFC3339)) {
		t.Fatalf("edited comment must carry the edit time: %q", got)
	}
}
