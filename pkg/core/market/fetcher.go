// Package market fetches rental comparables from listing pages and reduces
// them to summary statistics the advisory crew can quote. Parsing is
// best-effort: listing sites change markup constantly, so unparseable rows
// are skipped rather than failing the whole page.
package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// UserAgent identifies us to listing sites. Some return 403 to the
	// default Go client string.
	UserAgent = "RealEstateAdvisor/1.0 (contact@example.com)"

	fetchTimeout = 30 * time.Second
)

// ContentFetcher retrieves raw HTML for a URL. Injectable so tests and the
// simulation mode can supply canned pages instead of hitting the network.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher is the live ContentFetcher backed by net/http.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with a bounded request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// Fetch downloads a listings page.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("listings request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("listings site returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return string(body), nil
}

// CompsClient fetches and parses rental comparables.
type CompsClient struct {
	fetcher ContentFetcher
}

// NewCompsClient creates a comps client. Pass nil to use the live HTTP
// fetcher.
func NewCompsClient(fetcher ContentFetcher) *CompsClient {
	if fetcher == nil {
		fetcher = NewHTTPFetcher()
	}
	return &CompsClient{fetcher: fetcher}
}

// FetchComps downloads a listings page and builds a comps report relative to
// the subject deal's asking rent.
func (c *CompsClient) FetchComps(ctx context.Context, url, location string, dealMonthlyRent float64) (*CompsReport, error) {
	html, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	listings, err := ParseListings(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listings: %w", err)
	}

	report := BuildReport(location, listings, dealMonthlyRent)
	return &report, nil
}
