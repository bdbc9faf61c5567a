package service

import (
	"strings"
	"testing"
)

func TestRenderMarkdownSanitizesScripts(t *testing.T) {
	out := string(RenderMarkdown("hello <script>alert(1)</script> world", true))
	if strings.Contains(out, "<script") {
		t.Fatalf("script tags must be stripped, got %q", out)
	}
	if !strings.Contains(out, "hello") {
		t.Fatalf("text content must survive, got %q", out)
	}
}

func TestRenderMarkdownBasics(t *testing.T) {
	out := string(RenderMarkdown("**bold** and [link](https://example.com)", false))
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Fatalf("expected bold rendering, got %q", out)
	}
	if !strings.Contains(out, `href="https://example.com"`) {
		t.Fatalf("expected link rendering, got %q", out)
	}
}

func TestRenderMarkdownEscapesRawHTMLInComments(t *testing.T) {
	// 评论不透传内嵌 HTML
	out := string(RenderMarkdown(`<img src=x onerror=alert(1)>`, false))
	if strings.Contains(out, "onerror") {
		t.Fatalf("event handlers must never survive, got %q", out)
	}
}

func TestSanitizeText(t *testing.T) {
	if got := SanitizeText(`<a href="javascript:alert(1)">x</a>`); strings.Contains(got, "javascript:") {
		t.Fatalf("javascript urls must be stripped, got %q", got)
	}
}
