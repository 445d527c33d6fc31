package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ByteSpectre/avito-bid-manager/internal/currency"
	"github.com/ByteSpectre/avito-bid-manager/internal/models"
	"log/slog"
)

// ListingPayload is the wire shape of a listing. Monetary fields are
// ruble strings with two fraction digits; kopecks never cross the API.
type ListingPayload struct {
	ID            string               `json:"id"`
	AccountID     string               `json:"account_id"`
	AdURL         string               `json:"ad_url"`
	SearchURL     string               `json:"search_url,omitempty"`
	Range         models.PositionRange `json:"range"`
	BidStep       string               `json:"bid_step"`
	CurrentBid    string               `json:"current_bid"`
	ItemID        int64                `json:"item_id,omitempty"`
	LastRank      *int                 `json:"last_rank"`
	LastCheckedAt *time.Time           `json:"last_checked_at"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func listingToPayload(l *models.Listing) ListingPayload {
	return ListingPayload{
		ID:            l.ID,
		AccountID:     l.AccountID,
		AdURL:         l.AdURL,
		SearchURL:     l.SearchURL,
		Range:         l.Range,
		BidStep:       currency.KopecksToRubles(l.BidStep),
		CurrentBid:    currency.KopecksToRubles(l.CurrentBid),
		ItemID:        l.ItemID,
		LastRank:      l.LastRank,
		LastCheckedAt: l.LastCheckedAt,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func listingsToPayloads(listings []*models.Listing) []ListingPayload {
	payloads := make([]ListingPayload, 0, len(listings))
	for _, l := range listings {
		payloads = append(payloads, listingToPayload(l))
	}
	return payloads
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var notFound *models.NotFoundError
	if errors.As(err, &notFound) {
		http.Error(w, notFound.Error(), http.StatusNotFound)
		return
	}

	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		http.Error(w, authErr.Error(), http.StatusBadGateway)
		return
	}

	var platformErr *models.PlatformError
	if errors.As(err, &platformErr) {
		http.Error(w, platformErr.Error(), http.StatusBadGateway)
		return
	}

	var fetchErr *models.FetchError
	if errors.As(err, &fetchErr) {
		http.Error(w, fetchErr.Error(), http.StatusBadGateway)
		return
	}

	logger.Error("unexpected error", "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
