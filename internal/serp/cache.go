// Package serp fetches Avito search result pages and caches the ranked
// item paths they contain. A snapshot stays valid for the configured TTL;
// within one reconciliation cycle every listing sharing a search source
// reads the same snapshot, and concurrent misses collapse into a single
// outbound fetch.
package serp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ByteSpectre/avito-bid-manager/internal/links"
	"github.com/ByteSpectre/avito-bid-manager/internal/models"
)

// DefaultTTL is how long a snapshot is served before a refetch.
const DefaultTTL = 300 * time.Second

// Cache is a TTL-bounded cache of parsed search snapshots.
type Cache struct {
	ttl        time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	group     singleflight.Group
	mu        sync.RWMutex
	snapshots map[string]*models.Snapshot
}

// NewCache creates a snapshot cache. A non-positive ttl falls back to
// DefaultTTL; a nil client gets a 20 second timeout.
func NewCache(ttl time.Duration, httpClient *http.Client, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Cache{
		ttl:        ttl,
		httpClient: httpClient,
		logger:     logger,
		snapshots:  make(map[string]*models.Snapshot),
	}
}

// Snapshot returns the cached snapshot for sourceURL, fetching a fresh
// one when the cache is cold or expired. Concurrent callers for the same
// source while no valid entry exists share one outbound request. On a
// fetch or parse failure nothing is stored, so the caller treats the
// source as having no data this cycle.
func (c *Cache) Snapshot(ctx context.Context, sourceURL string) (*models.Snapshot, error) {
	if snap := c.cached(sourceURL); snap != nil {
		return snap, nil
	}

	v, err, _ := c.group.Do(sourceURL, func() (interface{}, error) {
		// A waiter may arrive just after the winner stored the result.
		if snap := c.cached(sourceURL); snap != nil {
			return snap, nil
		}
		return c.fetch(ctx, sourceURL)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Snapshot), nil
}

func (c *Cache) cached(sourceURL string) *models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.snapshots[sourceURL]
	if !ok || snap.Age(time.Now()) >= c.ttl {
		return nil
	}
	return snap
}

func (c *Cache) fetch(ctx context.Context, sourceURL string) (*models.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, &models.FetchError{URL: sourceURL, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.FetchError{URL: sourceURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.FetchError{URL: sourceURL, StatusCode: resp.StatusCode}
	}

	hrefs, err := itemLinks(resp.Body)
	if err != nil {
		return nil, &models.ParseError{URL: sourceURL, Err: err}
	}
	if len(hrefs) == 0 {
		return nil, &models.ParseError{URL: sourceURL, Err: fmt.Errorf("no item links found")}
	}

	paths := make([]string, len(hrefs))
	for i, href := range hrefs {
		paths[i] = links.CanonicalPath(href)
	}

	snap := &models.Snapshot{
		SourceURL: sourceURL,
		FetchedAt: time.Now(),
		Paths:     paths,
	}

	c.mu.Lock()
	c.snapshots[sourceURL] = snap
	c.mu.Unlock()

	c.logger.Debug("search snapshot refreshed",
		"source_url", sourceURL,
		"items", len(paths),
	)
	return snap, nil
}
