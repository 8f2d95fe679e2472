package usecase

import (
	"testing"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

func TestFilterImagesDropsPlaceholdersAndUnrelated(t *testing.T) {
	images := []domain.ImageResult{
		{ImgSrc: "https://cdn.example.com/mars-surface.jpg", URL: "https://example.com/mars", Title: "Mars surface panorama"},
		{ImgSrc: "https://cdn.example.com/placeholder.png", URL: "https://example.com/mars2", Title: "Mars rover closeup"},
		{ImgSrc: "https://cdn.example.com/kitten.jpg", URL: "https://example.com/cats", Title: "Sleepy kitten"},
	}

	out := filterImages("mars surface", images, 10)
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving image, got %d", len(out))
	}
	if out[0].Title != "Mars surface panorama" {
		t.Fatalf("unexpected survivor %q", out[0].Title)
	}
}

func TestFilterImagesSortsByRelevanceAndTruncates(t *testing.T) {
	images := []domain.ImageResult{
		{ImgSrc: "https://cdn.example.com/1.jpg", URL: "https://example.com/1", Title: "Saturn from afar"},
		{ImgSrc: "https://cdn.example.com/2.jpg", URL: "https://example.com/saturn-rings", Title: "Saturn rings in detail"},
	}

	out := filterImages("saturn rings", images, 1)
	if len(out) != 1 {
		t.Fatalf("expected truncation to 1, got %d", len(out))
	}
	if out[0].Title != "Saturn rings in detail" {
		t.Fatalf("expected best match kept, got %q", out[0].Title)
	}
}

func TestFilterVideosDropsUnrelated(t *testing.T) {
	videos := []domain.VideoResult{
		{URL: "https://video.example.com/golang-talk", Title: "Golang concurrency talk"},
		{URL: "https://video.example.com/unrelated", Title: "Uncut gem polishing"},
	}

	out := filterVideos("golang concurrency", videos, 10)
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving video, got %d", len(out))
	}
	if out[0].Title != "Golang concurrency talk" {
		t.Fatalf("unexpected survivor %q", out[0].Title)
	}
}

func TestFilterVideosEmptyInput(t *testing.T) {
	out := filterVideos("anything", nil, 5)
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
}
