package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/market"
)

// CompsCache stores fetched rental comp snapshots so repeated evaluations of
// the same listing do not re-scrape the source. Hybrid vault: DB (primary)
// with a file-system fallback for local runs without Postgres.
//
// Unlike immutable filings, rental listings churn, so reads carry a maximum
// age and stale snapshots count as misses.
type CompsCache struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewCompsCache creates a comps cache. If pool is nil it falls back to a
// file cache in dir; an empty dir defaults to .cache/market/comps.
func NewCompsCache(pool *pgxpool.Pool, dir string) *CompsCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "market", "comps")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[WARNING] Check CompsCache dir: %v\n", err)
		}
	}
	return &CompsCache{pool: pool, fileDir: dir}
}

// CompsCacheEntry wraps a snapshot with its provenance for the file vault.
type CompsCacheEntry struct {
	ListingURL string              `json:"listing_url"`
	Location   string              `json:"location"`
	SampleSize int                 `json:"sample_size"`
	Report     *market.CompsReport `json:"report"`
	FetchedAt  time.Time           `json:"fetched_at"`
}

// Get retrieves a cached snapshot for a listing URL. A snapshot older than
// maxAge is treated as a miss; maxAge <= 0 accepts any age. Misses return
// (nil, nil).
func (c *CompsCache) Get(ctx context.Context, listingURL string, maxAge time.Duration) (*market.CompsReport, error) {
	if c.pool != nil {
		query := `
			SELECT data, fetched_at
			FROM comps_snapshots
			WHERE listing_url = $1
			LIMIT 1
		`
		var dataJSON []byte
		var fetchedAt time.Time
		err := c.pool.QueryRow(ctx, query, listingURL).Scan(&dataJSON, &fetchedAt)
		if err != nil {
			return nil, nil // Cache miss
		}
		if stale(fetchedAt, maxAge) {
			return nil, nil
		}
		var report market.CompsReport
		if err := json.Unmarshal(dataJSON, &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached comps: %w", err)
		}
		return &report, nil
	}

	if c.fileDir != "" {
		entry, err := c.loadEntry(c.snapshotPath(listingURL))
		if err != nil || entry == nil || entry.Report == nil {
			return nil, nil
		}
		if stale(entry.FetchedAt, maxAge) {
			return nil, nil
		}
		return entry.Report, nil
	}

	return nil, nil
}

// Save stores a fetched snapshot, upserting on the listing URL.
//
// Schema assumption:
// CREATE TABLE IF NOT EXISTS comps_snapshots (
//   listing_url TEXT PRIMARY KEY,
//   location TEXT,
//   sample_size INT,
//   data JSONB,
//   fetched_at TIMESTAMPTZ,
//   updated_at TIMESTAMPTZ
// );
func (c *CompsCache) Save(ctx context.Context, listingURL string, report *market.CompsReport) error {
	if report == nil {
		return fmt.Errorf("nil comps report")
	}

	dataJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal comps report: %w", err)
	}
	now := time.Now()

	if c.pool != nil {
		query := `
			INSERT INTO comps_snapshots (listing_url, location, sample_size, data, fetched_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (listing_url)
			DO UPDATE SET
				location = EXCLUDED.location,
				sample_size = EXCLUDED.sample_size,
				data = EXCLUDED.data,
				fetched_at = EXCLUDED.fetched_at,
				updated_at = NOW()
		`
		if _, err := c.pool.Exec(ctx, query, listingURL, report.Location, report.SampleSize, dataJSON, now); err != nil {
			return fmt.Errorf("failed to save comps to db cache: %w", err)
		}
	}

	if c.fileDir != "" {
		entry := CompsCacheEntry{
			ListingURL: listingURL,
			Location:   report.Location,
			SampleSize: report.SampleSize,
			Report:     report,
			FetchedAt:  now,
		}
		fileBytes, _ := json.MarshalIndent(entry, "", "  ")
		if err := os.WriteFile(c.snapshotPath(listingURL), fileBytes, 0644); err != nil {
			return fmt.Errorf("failed to save comps to file cache: %w", err)
		}
	}

	return nil
}

// Exists reports whether any snapshot is cached for the listing URL,
// regardless of age.
func (c *CompsCache) Exists(ctx context.Context, listingURL string) bool {
	if c.pool != nil {
		query := `SELECT 1 FROM comps_snapshots WHERE listing_url = $1 LIMIT 1`
		var exists int
		if err := c.pool.QueryRow(ctx, query, listingURL).Scan(&exists); err == nil {
			return true
		}
	}

	if c.fileDir != "" {
		if _, err := os.Stat(c.snapshotPath(listingURL)); err == nil {
			return true
		}
	}

	return false
}

// Internal helpers

func stale(fetchedAt time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(fetchedAt) > maxAge
}

// snapshotPath keys files by a URL digest; listing URLs carry characters
// that are not filesystem-safe.
func (c *CompsCache) snapshotPath(listingURL string) string {
	sum := sha256.Sum256([]byte(listingURL))
	return filepath.Join(c.fileDir, hex.EncodeToString(sum[:8])+".json")
}

func (c *CompsCache) loadEntry(path string) (*CompsCacheEntry, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, nil // Not found
	}
	var entry CompsCacheEntry
	if err := json.Unmarshal(fileBytes, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
