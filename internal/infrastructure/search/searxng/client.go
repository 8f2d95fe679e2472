package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
	"github.com/asemyonov/searchcore/internal/infrastructure/resilience"
)

// Client queries a SearXNG instance over its JSON API. A process-wide rate
// limiter keeps the fan-out from flooding the instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	RequestTimeout     time.Duration
	RequestsPerSecond  float64
	Burst              int
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 8
	}
	burst := options.Burst
	if burst <= 0 {
		burst = 4
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		executor:   options.ResilienceExecutor,
	}
}

type searchResponse struct {
	Results []struct {
		URL       string `json:"url"`
		Title     string `json:"title"`
		Content   string `json:"content"`
		ImgSrc    string `json:"img_src"`
		Thumbnail string `json:"thumbnail"`
		IframeSrc string `json:"iframe_src"`
	} `json:"results"`
}

// Search implements ports.SearchBackend.
func (c *Client) Search(ctx context.Context, query string, opts ports.SearchOptions) ([]domain.SearchHit, error) {
	category := opts.Category
	if category == "" {
		category = "general"
	}
	response, err := c.query(ctx, query, category, "search."+category)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(response.Results))
	for _, result := range response.Results {
		if result.URL == "" {
			continue
		}
		hits = append(hits, domain.SearchHit{
			URL:     result.URL,
			Title:   result.Title,
			Content: result.Content,
		})
		if opts.MaxResults > 0 && len(hits) >= opts.MaxResults {
			break
		}
	}
	return hits, nil
}

// SearchImages implements the image half of ports.MediaSearcher.
func (c *Client) SearchImages(ctx context.Context, query string, max int) ([]domain.ImageResult, error) {
	response, err := c.query(ctx, query, "images", "search.images")
	if err != nil {
		return nil, err
	}

	images := make([]domain.ImageResult, 0, len(response.Results))
	for _, result := range response.Results {
		if result.ImgSrc == "" {
			continue
		}
		images = append(images, domain.ImageResult{
			ImgSrc: result.ImgSrc,
			URL:    result.URL,
			Title:  result.Title,
		})
		if max > 0 && len(images) >= max {
			break
		}
	}
	return images, nil
}

// SearchVideos implements the video half of ports.MediaSearcher.
func (c *Client) SearchVideos(ctx context.Context, query string, max int) ([]domain.VideoResult, error) {
	response, err := c.query(ctx, query, "videos", "search.videos")
	if err != nil {
		return nil, err
	}

	videos := make([]domain.VideoResult, 0, len(response.Results))
	for _, result := range response.Results {
		if result.URL == "" {
			continue
		}
		videos = append(videos, domain.VideoResult{
			URL:       result.URL,
			Title:     result.Title,
			Thumbnail: result.Thumbnail,
			IframeSrc: result.IframeSrc,
		})
		if max > 0 && len(videos) >= max {
			break
		}
	}
	return videos, nil
}

func (c *Client) query(ctx context.Context, query, category, operation string) (*searchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, operation, fmt.Errorf("empty query"))
	}

	var response searchResponse
	call := func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.doQuery(ctx, query, category, &response)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifySearchError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded(operation, err)
	}
	return &response, nil
}

func (c *Client) doQuery(ctx context.Context, query, category string, out *searchResponse) error {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("categories", category)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("searxng request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}
