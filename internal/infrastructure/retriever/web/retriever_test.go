package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Test Article</title><style>body { color: red; }</style></head>
<body>
<nav>Home | About | Contact</nav>
<script>trackVisitor();</script>
<article>
<h1>Test Article</h1>
<p>First paragraph with useful content.</p>
<p>Second paragraph continues the story.</p>
</article>
<footer>Copyright notice</footer>
</body>
</html>`

func TestGetDocumentsFromLinksExtractsHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	retriever := New(Options{})
	docs, err := retriever.GetDocumentsFromLinks(context.Background(), []string{server.URL + "/article"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}

	doc := docs[0]
	if doc.Title != "Test Article" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	if !strings.Contains(doc.Content, "First paragraph with useful content.") {
		t.Fatalf("expected body text, got %q", doc.Content)
	}
	if strings.Contains(doc.Content, "trackVisitor") || strings.Contains(doc.Content, "color: red") {
		t.Fatalf("script/style text leaked into content: %q", doc.Content)
	}
	if strings.Contains(doc.Content, "Home | About") || strings.Contains(doc.Content, "Copyright notice") {
		t.Fatalf("navigation/footer text leaked into content: %q", doc.Content)
	}
}

func TestGetDocumentsFromLinksSkipsFailures(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>Good</title></head><body><p>content here</p></body></html>"))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer bad.Close()

	retriever := New(Options{})
	docs, err := retriever.GetDocumentsFromLinks(context.Background(), []string{bad.URL, good.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "Good" {
		t.Fatalf("expected only the good document, got %+v", docs)
	}
}

func TestGetDocumentsFromLinksPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		name := strings.TrimPrefix(r.URL.Path, "/")
		_, _ = w.Write([]byte("<html><head><title>" + name + "</title></head><body><p>text</p></body></html>"))
	}))
	defer server.Close()

	links := []string{server.URL + "/one", server.URL + "/two", server.URL + "/three"}
	retriever := New(Options{Concurrency: 3})
	docs, err := retriever.GetDocumentsFromLinks(context.Background(), links)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if docs[i].Title != want {
			t.Fatalf("expected order preserved, got %q at %d", docs[i].Title, i)
		}
	}
}

func TestGetDocumentsFromLinksEmptyInput(t *testing.T) {
	retriever := New(Options{})
	docs, err := retriever.GetDocumentsFromLinks(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", docs)
	}
}

func TestFetchOneRejectsUnsupportedContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer server.Close()

	retriever := New(Options{})
	if _, err := retriever.fetchOne(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error for unsupported content type")
	}
}

func TestFetchOneHonorsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	retriever := New(Options{PerURLTimeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := retriever.fetchOne(context.Background(), server.URL)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not enforced, took %v", time.Since(start))
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	in := "a   b\n\n\n  c   d  \n"
	if got := normalizeWhitespace(in); got != "a b\nc d" {
		t.Fatalf("unexpected normalization %q", got)
	}
}
