package bulletin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

// Fetcher pulls the published bulletin page and extracts candidate filing
// links. It does not retry internally; a failed cycle is retried wholesale
// by the next scheduled poll, which is safe because persistence dedupes by
// URL.
type Fetcher struct {
	pageURL string
	client  *http.Client
}

var _ ports.BulletinSource = (*Fetcher)(nil)

// filingExtensions mark hrefs that point at filing documents.
var filingExtensions = map[string]struct{}{
	".pdf":  {},
	".htm":  {},
	".html": {},
}

// pathHints mark hrefs whose path clearly belongs to the bulletin area even
// without a document extension.
var pathHints = []string{"/notice", "/filing", "/bulletin", "/insolvency", "/sale"}

// NewFetcher wires the bulletin endpoint; timeout bounds the single GET.
func NewFetcher(pageURL string, timeout time.Duration, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Fetcher{pageURL: pageURL, client: client}
}

// Fetch issues one GET to the bulletin page and returns the deduplicated
// list of candidate filings found in it.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.Filing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "CourtWatch/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bulletin: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("bulletin returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse bulletin: %w", err)
	}

	base, err := url.Parse(f.pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bulletin url %s: %w", f.pageURL, err)
	}

	return extractFilings(doc, base), nil
}

func extractFilings(doc *goquery.Document, base *url.URL) []domain.Filing {
	var filings []domain.Filing
	seen := map[string]struct{}{}

	doc.Find("a[href]").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !looksLikeFiling(abs) {
			return
		}

		full := abs.String()
		if _, ok := seen[full]; ok {
			return
		}
		seen[full] = struct{}{}

		title := strings.Join(strings.Fields(a.Text()), " ")
		if title == "" {
			title = path.Base(abs.Path)
		}

		filings = append(filings, domain.Filing{Title: title, URL: full})
	})

	return filings
}

func looksLikeFiling(u *url.URL) bool {
	ext := strings.ToLower(path.Ext(u.Path))
	if _, ok := filingExtensions[ext]; ok {
		return true
	}
	lower := strings.ToLower(u.Path)
	for _, hint := range pathHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
