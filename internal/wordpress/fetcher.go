// Package wordpress loads posts and pages from the WordPress REST API.
package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/wpassist/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	// PerPage is the number of items requested from each collection.
	PerPage = 20

	maxBodySize = 8 << 20 // 8MB

	// WordPress reports dates in site-local time without a zone.
	dateLayout = "2006-01-02T15:04:05"
)

// collection names a REST collection and the kind of item it returns.
type collection struct {
	path string
	kind domain.Kind
}

// Posts first, then pages.
var collections = []collection{
	{path: "posts", kind: domain.KindPost},
	{path: "pages", kind: domain.KindPage},
}

// Fetcher retrieves content from WordPress sites.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a fetcher. A nil client uses http.DefaultClient, so no timeout
// is applied beyond the client's own defaults.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger}
}

// wpObject is the subset of a REST collection entry the assistant consumes.
type wpObject struct {
	ID    int64 `json:"id"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Excerpt struct {
		Rendered string `json:"rendered"`
	} `json:"excerpt"`
	Link string `json:"link"`
	Type string `json:"type"`
	Date string `json:"date"`
}

// NormalizeURL strips trailing slashes and checks that siteURL is an absolute http(s) URL.
func NormalizeURL(siteURL string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(siteURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse site url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("site url must be an absolute http or https url")
	}
	return base, nil
}

// Fetch loads the first page of posts and pages from siteURL concurrently and returns
// posts followed by pages. Any failure discards both results and yields a *ConnectionError.
func (f *Fetcher) Fetch(ctx context.Context, siteURL string) ([]domain.ContentItem, error) {
	base, err := NormalizeURL(siteURL)
	if err != nil {
		return nil, &ConnectionError{SiteURL: siteURL, Err: err}
	}

	results := make([][]domain.ContentItem, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range collections {
		endpoint := fmt.Sprintf("%s/wp-json/wp/v2/%s?per_page=%d", base, c.path, PerPage)
		g.Go(func() error {
			items, err := f.fetchCollection(gctx, endpoint, c.kind)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		f.logger.Warn("WordPress fetch failed", "site", base, "error", err)
		return nil, &ConnectionError{SiteURL: base, Err: err}
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]domain.ContentItem, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}

	f.logger.Info("WordPress content fetched", "site", base, "posts", len(results[0]), "pages", len(results[1]))
	return merged, nil
}

func (f *Fetcher) fetchCollection(ctx context.Context, endpoint string, kind domain.Kind) ([]domain.ContentItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Debug("failed to close response body", "url", endpoint, "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode}
	}

	var objects []wpObject
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&objects); err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	if objects == nil {
		return nil, errors.New("decode " + endpoint + ": expected a JSON array")
	}

	items := make([]domain.ContentItem, 0, len(objects))
	for _, o := range objects {
		items = append(items, o.toItem(kind))
	}
	return items, nil
}

func (o wpObject) toItem(fallback domain.Kind) domain.ContentItem {
	kind := domain.Kind(o.Type)
	if kind == "" {
		kind = fallback
	}
	item := domain.ContentItem{
		ID:              o.ID,
		RenderedTitle:   o.Title.Rendered,
		RenderedExcerpt: o.Excerpt.Rendered,
		Link:            o.Link,
		Kind:            kind,
	}
	if t, err := time.Parse(dateLayout, o.Date); err == nil {
		item.PublishedAt = t
	}
	return item
}
