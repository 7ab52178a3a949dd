package transform

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	boldPattern  = regexp.MustCompile(`\*\*(.*?)\*\*`)
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Service converts provider output between markdown and HTML
type Service struct {
	logger   arbor.ILogger
	markdown goldmark.Markdown
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithUnsafe(), // provider markdown embeds HTML tables
			),
		),
	}
}

// MarkdownToHTML renders a markdown fragment (narrative, verdict) as HTML.
// Outer code fences that models sometimes wrap their answer in are removed first.
func (s *Service) MarkdownToHTML(markdown string) (string, error) {
	markdown = stripOuterCodeFences(markdown)
	if markdown == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		s.logger.Warn().Err(err).Int("input_len", len(markdown)).Msg("Failed to convert markdown to HTML")
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// FormatInline upgrades markdown remnants inside content that is already HTML:
// **bold** becomes <strong> and newlines become <br>.
func (s *Service) FormatInline(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = boldPattern.ReplaceAllString(content, "<strong>$1</strong>")
	return strings.ReplaceAll(content, "\n", "<br>")
}

// HTMLToMarkdown converts HTML content to markdown.
// On converter failure or empty output the text with tags stripped is returned.
func (s *Service) HTMLToMarkdown(htmlContent string) (string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return "", nil
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	converted, err := converter.ConvertString(htmlContent)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using fallback")
		return stripHTMLTags(htmlContent), nil
	}

	if strings.TrimSpace(converted) == "" {
		s.logger.Warn().
			Int("html_length", len(htmlContent)).
			Msg("HTML to markdown conversion produced empty output, applying fallback")
		return stripHTMLTags(htmlContent), nil
	}

	return converted, nil
}

// stripHTMLTags removes tags and collapses whitespace
func stripHTMLTags(htmlStr string) string {
	stripped := tagPattern.ReplaceAllString(htmlStr, " ")
	cleaned := spacePattern.ReplaceAllString(stripped, " ")

	cleaned = strings.ReplaceAll(cleaned, "&amp;", "&")
	cleaned = strings.ReplaceAll(cleaned, "&lt;", "<")
	cleaned = strings.ReplaceAll(cleaned, "&gt;", ">")
	cleaned = strings.ReplaceAll(cleaned, "&quot;", "\"")
	cleaned = strings.ReplaceAll(cleaned, "&#39;", "'")
	cleaned = strings.ReplaceAll(cleaned, "&nbsp;", " ")

	return strings.TrimSpace(cleaned)
}

// stripOuterCodeFences removes a ``` fence wrapping the whole content,
// including an opening fence that was never closed.
func stripOuterCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	firstNewline := strings.Index(content, "\n")
	if firstNewline == -1 {
		return ""
	}

	inner := content[firstNewline+1:]
	trimmedEnd := strings.TrimRight(inner, " \t\r\n")
	if strings.HasSuffix(trimmedEnd, "```") {
		inner = strings.TrimSuffix(trimmedEnd, "```")
	}
	return strings.TrimSpace(inner)
}
