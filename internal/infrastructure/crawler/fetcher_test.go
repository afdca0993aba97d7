package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"
)

func TestFetchExtractsSameHostLinks(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		page := `<html><body>
			<a href="/behandling">Behandling</a>
			<a href="/behandling#team">Team</a>
			<a href="` + server.URL + `/kontakt.php">Kontakt</a>
			<a href="/rapport.pdf">Rapport</a>
			<a href="https://other.example/ekstern">Ekstern</a>
			<a href="/billede.jpg">Billede</a>
			<a href="mailto:info@kkuc.dk">Mail</a>
		</body></html>`
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	fetcher, err := NewFetcher(server.URL, 100)
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	page, err := fetcher.Fetch(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	want := []string{
		server.URL + "/behandling",
		server.URL + "/kontakt.php",
		server.URL + "/rapport.pdf",
	}
	if !slices.Equal(page.Links, want) {
		t.Fatalf("Links = %v, want %v", page.Links, want)
	}
	if !strings.Contains(page.ContentType, "text/html") {
		t.Fatalf("ContentType = %q", page.ContentType)
	}
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher, err := NewFetcher(server.URL, 100)
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	if _, err := fetcher.Fetch(context.Background(), server.URL+"/missing"); err == nil {
		t.Fatal("Fetch() = nil error, want status error")
	}
}

func TestFetchSkipsLinkExtractionForPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	fetcher, err := NewFetcher(server.URL, 100)
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	page, err := fetcher.Fetch(context.Background(), server.URL+"/doc.pdf")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(page.Links) != 0 {
		t.Fatalf("Links = %v, want none for pdf", page.Links)
	}
	if len(page.Body) == 0 {
		t.Fatal("Body is empty")
	}
}

func TestNewFetcherRejectsBadStartURL(t *testing.T) {
	if _, err := NewFetcher("not a url", 1); err == nil {
		t.Fatal("NewFetcher() = nil error, want invalid url")
	}
}

func TestResolveLinkDropsFragments(t *testing.T) {
	fetcher, err := NewFetcher("https://kkuc.dk/", 1)
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	base, _ := url.Parse("https://kkuc.dk/om")
	resolved, ok := fetcher.resolveLink(base, "/behandling#afsnit")
	if !ok || resolved != "https://kkuc.dk/behandling" {
		t.Fatalf("resolveLink() = (%q, %v)", resolved, ok)
	}
}
