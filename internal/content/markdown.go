package content

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	// md renders article bodies. GFM adds tables, strikethrough, autolinks.
	md = goldmark.New(goldmark.WithExtensions(extension.GFM))

	// htmlPolicy allows the usual user-generated-content tags.
	htmlPolicy = bluemonday.UGCPolicy()

	// textPolicy strips all markup from plain-text fields.
	textPolicy = bluemonday.StrictPolicy()
)

// RenderMarkdown converts markdown to sanitized HTML. goldmark's default
// renderer already drops raw HTML; the UGC policy is the second line for
// links and attributes. On a render failure the escaped source is returned.
func RenderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return html.EscapeString(src)
	}
	return htmlPolicy.Sanitize(buf.String())
}

// SanitizeText strips every HTML tag from s and trims it. Used for contact
// and feedback messages, which are shown verbatim in the dashboard.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
