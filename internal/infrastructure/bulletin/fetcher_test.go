package bulletin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const bulletinPage = `<!DOCTYPE html>
<html><body>
<h1>Daily Commercial List</h1>
<ul>
  <li><a href="/notices/2026-0412.pdf">Notice of Power of Sale - 123 Main St</a></li>
  <li><a href="https://external.example.ca/filings/order.html">Receivership Order</a></li>
  <li><a href="/notices/2026-0412.pdf">Notice of Power of Sale - 123 Main St (duplicate)</a></li>
  <li><a href="/insolvency/2026-0413.pdf"></a></li>
  <li><a href="/about-us">About the court</a></li>
  <li><a href="#top">Back to top</a></li>
  <li><a href="mailto:registrar@example.ca">Contact</a></li>
</ul>
</body></html>`

func TestFetchExtractsFilings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "CourtWatch/1.0" {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(bulletinPage)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL+"/bulletins/daily", 5*time.Second, srv.Client())

	filings, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(filings) != 3 {
		t.Fatalf("got %d filings, want 3: %+v", len(filings), filings)
	}

	first := filings[0]
	if first.URL != srv.URL+"/notices/2026-0412.pdf" {
		t.Errorf("relative href not resolved against the page URL: %q", first.URL)
	}
	if first.Title != "Notice of Power of Sale - 123 Main St" {
		t.Errorf("unexpected title %q", first.Title)
	}

	if filings[1].URL != "https://external.example.ca/filings/order.html" {
		t.Errorf("absolute href mangled: %q", filings[1].URL)
	}

	// An empty anchor falls back to the document name.
	if filings[2].Title != "2026-0413.pdf" {
		t.Errorf("unexpected fallback title %q", filings[2].Title)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance window", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second, srv.Client())

	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for 503 response, got nil")
	}
}

func TestFetchEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("<html><body><p>No filings today.</p></body></html>")); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second, srv.Client())

	filings, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(filings) != 0 {
		t.Fatalf("got %d filings from an empty page, want 0", len(filings))
	}
}
