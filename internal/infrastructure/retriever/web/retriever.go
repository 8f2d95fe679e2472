package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

const (
	defaultPerURLTimeout = 8 * time.Second
	defaultConcurrency   = 8
	maxBodyBytes         = 10 << 20
	userAgent            = "searchcore/1.0 (+https://github.com/asemyonov/searchcore)"
)

// Retriever downloads pages for the pipeline's extraction stage. Failures
// are per-URL: a link that cannot be fetched is skipped, never fatal.
type Retriever struct {
	httpClient    *http.Client
	perURLTimeout time.Duration
	concurrency   int
	logger        *slog.Logger
}

type Options struct {
	PerURLTimeout time.Duration
	Concurrency   int
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

func New(options Options) *Retriever {
	timeout := options.PerURLTimeout
	if timeout <= 0 {
		timeout = defaultPerURLTimeout
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		httpClient:    httpClient,
		perURLTimeout: timeout,
		concurrency:   concurrency,
		logger:        logger,
	}
}

// GetDocumentsFromLinks fetches every link concurrently and returns the
// documents that could be extracted, preserving input order.
func (r *Retriever) GetDocumentsFromLinks(ctx context.Context, links []string) ([]domain.Document, error) {
	if len(links) == 0 {
		return []domain.Document{}, nil
	}

	results := make([]*domain.Document, len(links))

	pool, err := ants.NewPool(r.concurrency)
	if err != nil {
		return nil, fmt.Errorf("retriever pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, link := range links {
		wg.Add(1)
		task := func(i int, link string) func() {
			return func() {
				defer wg.Done()
				doc, err := r.fetchOne(ctx, link)
				if err != nil {
					r.logger.Warn("document_fetch_skipped", "url", link, "error", err)
					return
				}
				results[i] = doc
			}
		}(i, link)
		if err := pool.Submit(task); err != nil {
			// pool rejected the task, run inline rather than dropping the link
			task()
		}
	}
	wg.Wait()

	docs := make([]domain.Document, 0, len(links))
	for _, doc := range results {
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (r *Retriever) fetchOne(ctx context.Context, link string) (*domain.Document, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.perURLTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/pdf" || strings.HasSuffix(strings.ToLower(link), ".pdf"):
		return r.extractPDF(link, body)
	case mediaType == "" || strings.Contains(mediaType, "html") || strings.HasPrefix(mediaType, "text/"):
		return extractHTML(link, body)
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}
}
