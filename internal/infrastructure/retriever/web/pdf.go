package web

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

func (r *Retriever) extractPDF(link string, body []byte) (*domain.Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			r.logger.Warn("pdf_page_skipped", "url", link, "page", i, "error", err)
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}

	content := normalizeWhitespace(b.String())
	if content == "" {
		return nil, fmt.Errorf("pdf has no extractable text")
	}

	title := strings.TrimSuffix(path.Base(link), ".pdf")
	return &domain.Document{
		URL:     link,
		Title:   title,
		Content: content,
		Metadata: map[string]string{
			"content_type": "application/pdf",
			"pages":        fmt.Sprintf("%d", pages),
		},
	}, nil
}
