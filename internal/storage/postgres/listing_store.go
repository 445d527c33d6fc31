package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ByteSpectre/avito-bid-manager/internal/models"
)

// ListingStore is a PostgreSQL-backed models.ListingRepository.
type ListingStore struct {
	db *sql.DB
}

// NewListingStore creates a listing store over the given connection.
func NewListingStore(db *sql.DB) *ListingStore {
	return &ListingStore{db: db}
}

const listingColumns = `
	id, account_id, ad_url, search_url, lower_range, upper_range,
	bid_step_kopecks, current_bid_kopecks, item_id,
	last_rank, last_checked_at, created_at, updated_at
`

func (s *ListingStore) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}

	query := `
		INSERT INTO listings
		(id, account_id, ad_url, search_url, lower_range, upper_range,
		 bid_step_kopecks, current_bid_kopecks, item_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	return s.db.QueryRowContext(ctx, query,
		listing.ID,
		listing.AccountID,
		listing.AdURL,
		listing.SearchURL,
		listing.Range.Lower,
		listing.Range.Upper,
		listing.BidStep,
		listing.CurrentBid,
		listing.ItemID,
	).Scan(&listing.CreatedAt, &listing.UpdatedAt)
}

func (s *ListingStore) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	listing, err := scanListing(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Kind: "listing", ID: id}
	}
	return listing, err
}

func (s *ListingStore) ListByAccount(ctx context.Context, accountID string) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE account_id = $1 ORDER BY created_at`
	return s.queryListings(ctx, query, accountID)
}

func (s *ListingStore) ListAll(ctx context.Context) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings ORDER BY created_at`
	return s.queryListings(ctx, query)
}

func (s *ListingStore) Update(ctx context.Context, listing *models.Listing) error {
	query := `
		UPDATE listings SET
			ad_url = $2, search_url = $3, lower_range = $4, upper_range = $5,
			bid_step_kopecks = $6, current_bid_kopecks = $7, item_id = $8,
			updated_at = NOW()
		WHERE id = $1
	`
	return s.exec(ctx, listing.ID, query,
		listing.ID,
		listing.AdURL,
		listing.SearchURL,
		listing.Range.Lower,
		listing.Range.Upper,
		listing.BidStep,
		listing.CurrentBid,
		listing.ItemID,
	)
}

func (s *ListingStore) UpdateCurrentBid(ctx context.Context, id string, bidKopecks int64) error {
	query := `UPDATE listings SET current_bid_kopecks = $2, updated_at = NOW() WHERE id = $1`
	return s.exec(ctx, id, query, id, bidKopecks)
}

func (s *ListingStore) UpdateRank(ctx context.Context, id string, rank *int, checkedAt time.Time) error {
	query := `UPDATE listings SET last_rank = $2, last_checked_at = $3 WHERE id = $1`
	var rankValue sql.NullInt32
	if rank != nil {
		rankValue = sql.NullInt32{Int32: int32(*rank), Valid: true}
	}
	return s.exec(ctx, id, query, id, rankValue, checkedAt)
}

func (s *ListingStore) queryListings(ctx context.Context, query string, args ...interface{}) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

func (s *ListingStore) exec(ctx context.Context, id, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &models.NotFoundError{Kind: "listing", ID: id}
	}
	return nil
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var listing models.Listing
	var lastRank sql.NullInt32
	var lastChecked sql.NullTime

	err := row.Scan(
		&listing.ID,
		&listing.AccountID,
		&listing.AdURL,
		&listing.SearchURL,
		&listing.Range.Lower,
		&listing.Range.Upper,
		&listing.BidStep,
		&listing.CurrentBid,
		&listing.ItemID,
		&lastRank,
		&lastChecked,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastRank.Valid {
		rank := int(lastRank.Int32)
		listing.LastRank = &rank
	}
	if lastChecked.Valid {
		checked := lastChecked.Time
		listing.LastCheckedAt = &checked
	}
	return &listing, nil
}
