package usecase

import (
	"sort"
	"strings"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

// placeholderMarkers flag stock placeholder assets that carry no content.
var placeholderMarkers = []string{"placeholder", "default.", "no-image", "noimage", "blank.", "spacer.", "1x1", "pixel."}

// filterImages is the cheap second relevance pass applied only to media:
// keyword overlap with the query plus quality heuristics, sorted descending
// and truncated to max.
func filterImages(query string, images []domain.ImageResult, max int) []domain.ImageResult {
	terms := queryTerms(query)

	type scoredImage struct {
		image domain.ImageResult
		score float64
	}
	scored := make([]scoredImage, 0, len(images))
	for _, img := range images {
		score := mediaScore(terms, img.Title, img.URL)
		if isPlaceholderAsset(img.ImgSrc) {
			continue
		}
		if score <= 0 {
			continue
		}
		scored = append(scored, scoredImage{image: img, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	out := make([]domain.ImageResult, 0, len(scored))
	for _, s := range scored {
		if max > 0 && len(out) >= max {
			break
		}
		out = append(out, s.image)
	}
	return out
}

func filterVideos(query string, videos []domain.VideoResult, max int) []domain.VideoResult {
	terms := queryTerms(query)

	type scoredVideo struct {
		video domain.VideoResult
		score float64
	}
	scored := make([]scoredVideo, 0, len(videos))
	for _, vid := range videos {
		score := mediaScore(terms, vid.Title, vid.URL)
		if score <= 0 {
			continue
		}
		scored = append(scored, scoredVideo{video: vid, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	out := make([]domain.VideoResult, 0, len(scored))
	for _, s := range scored {
		if max > 0 && len(out) >= max {
			break
		}
		out = append(out, s.video)
	}
	return out
}

// mediaScore rewards query-term overlap in title and URL plus a sane title
// length. A zero score means the item is unrelated to the query.
func mediaScore(terms []string, title, url string) float64 {
	titleLower := strings.ToLower(title)
	urlLower := strings.ToLower(url)

	score := 0.0
	for _, term := range terms {
		if strings.Contains(titleLower, term) {
			score += 0.3
		}
		if strings.Contains(urlLower, term) {
			score += 0.1
		}
	}
	if len(terms) == 0 {
		score = 0.1 // nothing to match against, keep with minimal confidence
	}

	// quality bonus only tops up items that already matched the query
	if score > 0 && len(title) >= 10 && len(title) <= 150 {
		score += 0.1
	}
	return score
}

func isPlaceholderAsset(src string) bool {
	lower := strings.ToLower(src)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
