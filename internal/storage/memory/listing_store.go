package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ByteSpectre/avito-bid-manager/internal/models"
)

// ListingStore is an in-memory models.ListingRepository. Listings are
// kept in creation order per account; there is no delete.
type ListingStore struct {
	mu       sync.RWMutex
	listings map[string]*models.Listing
	byAcct   map[string][]string
	order    []string
}

// NewListingStore creates an empty listing store.
func NewListingStore() *ListingStore {
	return &ListingStore{
		listings: make(map[string]*models.Listing),
		byAcct:   make(map[string][]string),
	}
}

// Create stores a new listing, assigning its ID and timestamps.
func (s *ListingStore) Create(ctx context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	stored := cloneListing(listing)
	s.listings[listing.ID] = stored
	s.byAcct[listing.AccountID] = append(s.byAcct[listing.AccountID], listing.ID)
	s.order = append(s.order, listing.ID)
	return nil
}

// GetByID retrieves a copy of the listing.
func (s *ListingStore) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.listings[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "listing", ID: id}
	}
	return cloneListing(listing), nil
}

// ListByAccount returns copies of the account's listings in creation order.
func (s *ListingStore) ListByAccount(ctx context.Context, accountID string) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byAcct[accountID]
	listings := make([]*models.Listing, 0, len(ids))
	for _, id := range ids {
		listings = append(listings, cloneListing(s.listings[id]))
	}
	return listings, nil
}

// ListAll returns copies of every listing across all accounts.
func (s *ListingStore) ListAll(ctx context.Context) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listings := make([]*models.Listing, 0, len(s.order))
	for _, id := range s.order {
		listings = append(listings, cloneListing(s.listings[id]))
	}
	return listings, nil
}

// Update replaces the listing's editable fields.
func (s *ListingStore) Update(ctx context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.listings[listing.ID]
	if !ok {
		return &models.NotFoundError{Kind: "listing", ID: listing.ID}
	}
	stored.AdURL = listing.AdURL
	stored.SearchURL = listing.SearchURL
	stored.Range = listing.Range
	stored.BidStep = listing.BidStep
	stored.CurrentBid = listing.CurrentBid
	stored.ItemID = listing.ItemID
	stored.UpdatedAt = time.Now()
	listing.UpdatedAt = stored.UpdatedAt
	return nil
}

// UpdateCurrentBid persists a new current bid after a successful push.
func (s *ListingStore) UpdateCurrentBid(ctx context.Context, id string, bidKopecks int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[id]
	if !ok {
		return &models.NotFoundError{Kind: "listing", ID: id}
	}
	listing.CurrentBid = bidKopecks
	listing.UpdatedAt = time.Now()
	return nil
}

// UpdateRank records the last observed rank; nil marks the listing unranked.
func (s *ListingStore) UpdateRank(ctx context.Context, id string, rank *int, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[id]
	if !ok {
		return &models.NotFoundError{Kind: "listing", ID: id}
	}
	if rank != nil {
		r := *rank
		listing.LastRank = &r
	} else {
		listing.LastRank = nil
	}
	checked := checkedAt
	listing.LastCheckedAt = &checked
	return nil
}

func cloneListing(l *models.Listing) *models.Listing {
	copied := *l
	if l.LastRank != nil {
		rank := *l.LastRank
		copied.LastRank = &rank
	}
	if l.LastCheckedAt != nil {
		checked := *l.LastCheckedAt
		copied.LastCheckedAt = &checked
	}
	return &copied
}
