// Package reconcile holds the bid escalation engine. Each cycle groups
// tracked listings by their shared search source, fetches one snapshot
// per group, matches every listing to its rank and raises the bid of
// any listing that slipped out of its desired window. Failures are
// isolated to the smallest unit they affect; the next cycle is the
// retry mechanism.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ByteSpectre/avito-bid-manager/internal/links"
	"github.com/ByteSpectre/avito-bid-manager/internal/metrics"
	"github.com/ByteSpectre/avito-bid-manager/internal/models"
	"github.com/ByteSpectre/avito-bid-manager/internal/serp"
)

// BidPusher is the slice of the platform client the engine needs.
type BidPusher interface {
	SetManualBid(ctx context.Context, accountID string, itemID, bidKopecks int64) error
}

// Config holds engine tuning parameters.
type Config struct {
	// MaxConcurrentSources bounds how many search sources are fetched
	// and reconciled in parallel within one cycle.
	MaxConcurrentSources int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrentSources: 3}
}

// Engine drives the reconciliation cycles. At most one cycle mutates
// bids at a time: triggers arriving while a cycle is in flight coalesce
// into a single pending run.
type Engine struct {
	listings  models.ListingRepository
	snapshots *serp.Cache
	platform  BidPusher
	guard     *PushGuard
	collector *metrics.Collector
	logger    *slog.Logger
	config    Config

	triggerCh chan struct{}
	runMu     sync.Mutex
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(
	listings models.ListingRepository,
	snapshots *serp.Cache,
	platform BidPusher,
	guard *PushGuard,
	collector *metrics.Collector,
	logger *slog.Logger,
	config Config,
) *Engine {
	if config.MaxConcurrentSources <= 0 {
		config.MaxConcurrentSources = DefaultConfig().MaxConcurrentSources
	}
	return &Engine{
		listings:  listings,
		snapshots: snapshots,
		platform:  platform,
		guard:     guard,
		collector: collector,
		logger:    logger,
		config:    config,
		triggerCh: make(chan struct{}, 1),
	}
}

// Guard exposes the per-listing push lock so the edit path can serialize
// its manual pushes against engine pushes.
func (e *Engine) Guard() *PushGuard {
	return e.guard
}

// Trigger requests a reconciliation cycle without blocking. While a
// cycle is running, at most one further trigger is retained; extra
// triggers coalesce into it. A trigger never cancels a cycle in flight.
func (e *Engine) Trigger() {
	select {
	case e.triggerCh <- struct{}{}:
	default:
	}
}

// Start consumes triggers and runs cycles until ctx is cancelled. Run it
// in its own goroutine.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("reconciliation engine started",
		"max_concurrent_sources", e.config.MaxConcurrentSources,
	)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("reconciliation engine stopped")
			return
		case <-e.triggerCh:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle executes one reconciliation pass. Cycles are serialized: a
// direct caller racing the Start loop waits its turn.
func (e *Engine) RunCycle(ctx context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	start := time.Now()

	all, err := e.listings.ListAll(ctx)
	if err != nil {
		logger.Error("failed to list tracked listings", "error", err)
		return
	}

	groups := groupBySource(all)
	logger.Info("reconciliation cycle started",
		"listings", len(all),
		"sources", len(groups),
	)

	sem := semaphore.NewWeighted(int64(e.config.MaxConcurrentSources))
	var wg sync.WaitGroup
	for sourceURL, group := range groups {
		wg.Add(1)
		go func(sourceURL string, group []*models.Listing) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			e.reconcileGroup(ctx, logger, sourceURL, group)
		}(sourceURL, group)
	}
	wg.Wait()

	e.collector.CycleRun()
	logger.Info("reconciliation cycle complete", "duration", time.Since(start))
}

// groupBySource partitions listings by their search source. Listings
// without one are simply not eligible for position checking.
func groupBySource(all []*models.Listing) map[string][]*models.Listing {
	groups := make(map[string][]*models.Listing)
	for _, listing := range all {
		if listing.SearchURL == "" {
			continue
		}
		groups[listing.SearchURL] = append(groups[listing.SearchURL], listing)
	}
	return groups
}

// reconcileGroup fetches one snapshot and reconciles every listing in
// the group against it. A failed fetch skips the whole group for this
// cycle; other groups proceed.
func (e *Engine) reconcileGroup(ctx context.Context, logger *slog.Logger, sourceURL string, group []*models.Listing) {
	snap, err := e.snapshots.Snapshot(ctx, sourceURL)
	if err != nil {
		e.collector.SnapshotFailed()
		logger.Error("skipping search source this cycle",
			"source_url", sourceURL,
			"listings", len(group),
			"error", err,
		)
		return
	}

	for _, listing := range group {
		e.reconcileListing(ctx, logger, snap, listing)
	}
}

func (e *Engine) reconcileListing(ctx context.Context, logger *slog.Logger, snap *models.Snapshot, listing *models.Listing) {
	e.collector.ListingChecked()

	canonical := links.CanonicalPath(listing.AdURL)
	rank := snap.RankOf(canonical)
	now := time.Now()

	if rank == 0 {
		logger.Info("listing not found in search results",
			"listing_id", listing.ID,
			"canonical_path", canonical,
		)
		if err := e.listings.UpdateRank(ctx, listing.ID, nil, now); err != nil {
			logger.Error("failed to record rank", "listing_id", listing.ID, "error", err)
		}
		return
	}

	if err := e.listings.UpdateRank(ctx, listing.ID, &rank, now); err != nil {
		logger.Error("failed to record rank", "listing_id", listing.ID, "error", err)
	}

	if listing.Range.Contains(rank) {
		logger.Debug("listing within desired range",
			"listing_id", listing.ID,
			"rank", rank,
			"lower", listing.Range.Lower,
			"upper", listing.Range.Upper,
		)
		return
	}

	// Out of window: escalate. A zero step still counts as an update.
	newBid := listing.CurrentBid + listing.BidStep

	if listing.ItemID == 0 {
		logger.Warn("listing needs escalation but has no item id, skipping push",
			"listing_id", listing.ID,
			"rank", rank,
		)
		return
	}

	e.guard.Lock(listing.ID)
	defer e.guard.Unlock(listing.ID)

	if err := e.platform.SetManualBid(ctx, listing.AccountID, listing.ItemID, newBid); err != nil {
		e.collector.PushFailed()
		logger.Error("bid push failed, keeping current bid",
			"listing_id", listing.ID,
			"rank", rank,
			"error", err,
		)
		return
	}

	if err := e.listings.UpdateCurrentBid(ctx, listing.ID, newBid); err != nil {
		logger.Error("bid pushed but not persisted locally",
			"listing_id", listing.ID,
			"error", err,
		)
		return
	}

	e.collector.EscalationPushed()
	logger.Info("bid escalated",
		"listing_id", listing.ID,
		"rank", rank,
		"new_bid_kopecks", newBid,
	)
}
