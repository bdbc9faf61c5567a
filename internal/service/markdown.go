package service

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(htmlrenderer.WithHardWraps(), htmlrenderer.WithXHTML()),
	)
	// rawHTMLEngine 额外透传 Markdown 中内嵌的 HTML，仅用于文章正文。
	rawHTMLEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(htmlrenderer.WithHardWraps(), htmlrenderer.WithXHTML(), htmlrenderer.WithUnsafe()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// RenderMarkdown 将 Markdown 渲染为净化后的 HTML。
// allowHTML 控制是否透传正文内嵌的 HTML；无论何种模式，
// 输出都会再经过一次白名单净化。
func RenderMarkdown(md string, allowHTML bool) template.HTML {
	engine := markdownEngine
	if allowHTML {
		engine = rawHTMLEngine
	}

	var buf bytes.Buffer
	if err := engine.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}

// SanitizeText 对外部来源的纯文本字段做白名单净化。
func SanitizeText(s string) string {
	return sanitizer.Sanitize(s)
}
