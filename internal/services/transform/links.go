package transform

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is a cited source found in section content
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// ExtractLinks returns the absolute http(s) links in htmlContent, in document
// order and without duplicates.
func (s *Service) ExtractLinks(htmlContent string) ([]Link, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for link extraction: %w", err)
	}

	var links []Link
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return
		}

		link := u.String()
		if seen[link] {
			return
		}
		seen[link] = true

		text := strings.TrimSpace(sel.Text())
		if text == "" {
			text = u.Host
		}
		links = append(links, Link{Text: text, URL: link})
	})

	return links, nil
}
