package models

import (
	"context"
	"fmt"
	"time"
)

// PositionRange is the desired window of 1-based search ranks for a listing.
type PositionRange struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// Contains reports whether rank falls inside the window.
func (r PositionRange) Contains(rank int) bool {
	return rank >= r.Lower && rank <= r.Upper
}

// Validate checks the range invariants (lower >= 1, upper >= lower).
func (r PositionRange) Validate() error {
	if r.Lower < 1 {
		return fmt.Errorf("lower range must be at least 1, got %d", r.Lower)
	}
	if r.Upper < r.Lower {
		return fmt.Errorf("upper range %d must not be below lower range %d", r.Upper, r.Lower)
	}
	return nil
}

// Listing is a tracked advertisement whose manual bid is escalated when
// its search rank drifts out of the desired window. All monetary fields
// are kopecks; ruble formatting happens only at the API boundary.
type Listing struct {
	ID        string
	AccountID string

	// AdURL is the listing's own advertisement URL, required.
	AdURL string
	// SearchURL is the shared search results page the listing is ranked
	// in. Listings without one are excluded from reconciliation.
	SearchURL string

	Range PositionRange

	// BidStep is added to CurrentBid on each escalation. Zero is legal
	// and makes escalation a no-op that is still reported as an update.
	BidStep    int64
	CurrentBid int64

	// ItemID is the platform-assigned identifier, zero until known.
	// Required before any bid can be pushed.
	ItemID int64

	// Last observed position, kept for display only. LastRank is nil
	// when the listing was absent from the most recent snapshot.
	LastRank      *int
	LastCheckedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListingRepository defines operations for tracked listings
type ListingRepository interface {
	// Create stores a new listing, assigning its ID
	Create(ctx context.Context, listing *Listing) error

	// GetByID retrieves a listing by ID
	GetByID(ctx context.Context, id string) (*Listing, error)

	// ListByAccount returns the account's listings in creation order
	ListByAccount(ctx context.Context, accountID string) ([]*Listing, error)

	// ListAll returns every listing across all accounts
	ListAll(ctx context.Context) ([]*Listing, error)

	// Update replaces the listing's editable fields (URLs, range, step,
	// bid, item id)
	Update(ctx context.Context, listing *Listing) error

	// UpdateCurrentBid persists a new current bid after a successful push
	UpdateCurrentBid(ctx context.Context, id string, bidKopecks int64) error

	// UpdateRank records the last observed rank; nil means unranked
	UpdateRank(ctx context.Context, id string, rank *int, checkedAt time.Time) error
}
