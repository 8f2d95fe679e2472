package web

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

// skippedElements hold no readable prose and are pruned whole.
var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"nav":      {},
	"header":   {},
	"footer":   {},
	"aside":    {},
	"form":     {},
	"iframe":   {},
	"svg":      {},
}

// blockElements force a paragraph break around their text.
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "section": {}, "article": {}, "li": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"br": {}, "tr": {}, "blockquote": {}, "pre": {},
}

func extractHTML(link string, body []byte) (*domain.Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var title string
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := skippedElements[n.Data]; skip {
				return
			}
			if n.Data == "title" && title == "" {
				title = strings.TrimSpace(textOf(n))
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteByte(' ')
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode {
			if _, block := blockElements[n.Data]; block {
				b.WriteByte('\n')
			}
		}
	}
	walk(root)

	content := normalizeWhitespace(b.String())
	return &domain.Document{
		URL:     link,
		Title:   title,
		Content: content,
		Metadata: map[string]string{
			"content_type": "text/html",
		},
	}, nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
	}
	return b.String()
}

// normalizeWhitespace collapses runs of spaces and keeps at most one blank
// line between paragraphs.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
