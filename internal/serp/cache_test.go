package serp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ByteSpectre/avito-bid-manager/internal/models"
)

const searchPage = `<!DOCTYPE html>
<html><body>
<div class="items">
  <a itemprop="url" href="/moscow/telefony/iphone_15_111">first</a>
  <a href="/moscow/banner">not an item</a>
  <a itemprop="url" href="/moscow/telefony/samsung_222">second</a>
  <a itemprop="url" href="/moscow/telefony/iphone_15_111">duplicate</a>
</div>
</body></html>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestItemLinks(t *testing.T) {
	hrefs, err := itemLinks(strings.NewReader(searchPage))
	if err != nil {
		t.Fatalf("itemLinks returned error: %v", err)
	}

	want := []string{
		"/moscow/telefony/iphone_15_111",
		"/moscow/telefony/samsung_222",
		"/moscow/telefony/iphone_15_111",
	}
	if len(hrefs) != len(want) {
		t.Fatalf("expected %d hrefs, got %d: %v", len(want), len(hrefs), hrefs)
	}
	for i := range want {
		if hrefs[i] != want[i] {
			t.Errorf("href[%d] = %q, want %q", i, hrefs[i], want[i])
		}
	}
}

func TestSnapshotParsesAndCanonicalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	cache := NewCache(time.Minute, srv.Client(), testLogger())
	snap, err := cache.Snapshot(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}

	if len(snap.Paths) != 3 {
		t.Fatalf("expected 3 paths, got %d", len(snap.Paths))
	}
	if snap.Paths[0] != "telefony/iphone_15_111" {
		t.Errorf("unexpected first canonical path: %q", snap.Paths[0])
	}
	if rank := snap.RankOf("telefony/samsung_222"); rank != 2 {
		t.Errorf("expected rank 2, got %d", rank)
	}
}

func TestRankOfFirstOccurrenceWins(t *testing.T) {
	snap := &models.Snapshot{Paths: []string{"a/1", "item/123", "item/123"}}
	if rank := snap.RankOf("item/123"); rank != 2 {
		t.Errorf("expected first occurrence rank 2, got %d", rank)
	}
	if rank := snap.RankOf("item/999"); rank != 0 {
		t.Errorf("expected 0 for absent path, got %d", rank)
	}
}

func TestSnapshotReusedWithinTTL(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	cache := NewCache(time.Minute, srv.Client(), testLogger())
	for i := 0; i < 5; i++ {
		if _, err := cache.Snapshot(context.Background(), srv.URL); err != nil {
			t.Fatalf("Snapshot returned error: %v", err)
		}
	}

	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("expected exactly 1 fetch within TTL, got %d", n)
	}
}

func TestSnapshotRefetchedAfterTTL(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	cache := NewCache(10*time.Millisecond, srv.Client(), testLogger())
	if _, err := cache.Snapshot(context.Background(), srv.URL); err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := cache.Snapshot(context.Background(), srv.URL); err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}

	if n := atomic.LoadInt32(&fetches); n != 2 {
		t.Errorf("expected refetch after TTL, got %d fetches", n)
	}
}

func TestConcurrentMissesCollapse(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		time.Sleep(20 * time.Millisecond) // hold the fetch open so callers pile up
		fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	cache := NewCache(time.Minute, srv.Client(), testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Snapshot(context.Background(), srv.URL); err != nil {
				t.Errorf("Snapshot returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("expected concurrent misses to collapse into 1 fetch, got %d", n)
	}
}

func TestNonSuccessStatusIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	cache := NewCache(time.Minute, srv.Client(), testLogger())
	_, err := cache.Snapshot(context.Background(), srv.URL)

	var fetchErr *models.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", fetchErr.StatusCode)
	}
}

func TestPageWithoutItemLinksIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/somewhere">nope</a></body></html>`)
	}))
	defer srv.Close()

	cache := NewCache(time.Minute, srv.Client(), testLogger())
	_, err := cache.Snapshot(context.Background(), srv.URL)

	var parseErr *models.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestFailedFetchStoresNothing(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "oops", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	cache := NewCache(time.Minute, srv.Client(), testLogger())
	if _, err := cache.Snapshot(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error from failing source")
	}

	fail.Store(false)
	snap, err := cache.Snapshot(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Snapshot returned error after recovery: %v", err)
	}
	if len(snap.Paths) == 0 {
		t.Error("expected a fresh snapshot after recovery")
	}
}
