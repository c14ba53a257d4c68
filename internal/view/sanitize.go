package view

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy

	answerPolicyOnce sync.Once
	answerPolicy     *bluemonday.Policy
)

// StrictHTMLPolicy returns a singleton policy that strips every element and attribute.
func StrictHTMLPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// AnswerHTMLPolicy returns a singleton policy for rendered assistant answers: basic
// formatting, lists, code and links to http(s) targets only.
func AnswerHTMLPolicy() *bluemonday.Policy {
	answerPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowURLSchemes("http", "https")
		policy.RequireParseableURLs(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		policy.RequireNoReferrerOnLinks(true)
		answerPolicy = policy
	})
	return answerPolicy
}

// markdown converts assistant answers. Raw HTML in the source is dropped by the
// converter and again by the sanitizer.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// AnswerHTML renders assistant text as sanitized HTML.
func AnswerHTML(text string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return PlainHTML(text)
	}
	//nolint:gosec // Output of the sanitizer.
	return template.HTML(strings.TrimSpace(AnswerHTMLPolicy().Sanitize(buf.String())))
}

// PlainHTML escapes text and keeps its line breaks.
func PlainHTML(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	//nolint:gosec // Escaped above.
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// TitleHTML reduces a rendered WordPress title to text. Entities are kept as-is.
func TitleHTML(rendered string) template.HTML {
	//nolint:gosec // Output of the strict sanitizer.
	return template.HTML(strings.TrimSpace(StrictHTMLPolicy().Sanitize(rendered)))
}

// SafeLink returns link when it is an absolute http or https URL, otherwise "".
func SafeLink(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}
