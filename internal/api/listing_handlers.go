package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ByteSpectre/avito-bid-manager/internal/currency"
	"github.com/ByteSpectre/avito-bid-manager/internal/links"
	"github.com/ByteSpectre/avito-bid-manager/internal/models"
	"github.com/ByteSpectre/avito-bid-manager/internal/reconcile"
	"log/slog"
)

// Reconciler is the slice of the engine the handlers need: kicking off
// a cycle and sharing the per-listing push locks.
type Reconciler interface {
	Trigger()
	Guard() *reconcile.PushGuard
}

// Creation defaults matching the import flow.
var defaultRange = models.PositionRange{Lower: 1, Upper: 10}

const defaultBidStepKopecks int64 = 1000 // 10.00 RUB

// parseBidAmount parses a ruble amount for a bid field. Bid steps and
// current bids may never go negative, so that is enforced here at the
// boundary rather than deep in the engine.
func parseBidAmount(field, raw string) (int64, error) {
	v, err := currency.RublesToKopecks(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return v, nil
}

// ListingHandler handles tracked listing requests
type ListingHandler struct {
	listings   models.ListingRepository
	accounts   models.AccountRepository
	platform   Platform
	reconciler Reconciler
	logger     *slog.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(listings models.ListingRepository, accounts models.AccountRepository, platform Platform, reconciler Reconciler, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listings:   listings,
		accounts:   accounts,
		platform:   platform,
		reconciler: reconciler,
		logger:     logger,
	}
}

// ListingRequest carries the editable listing fields. Monetary values
// are ruble strings; empty means "use the default" on create.
type ListingRequest struct {
	AdURL      string                `json:"ad_url"`
	SearchURL  string                `json:"search_url"`
	Range      *models.PositionRange `json:"range"`
	BidStep    string                `json:"bid_step"`
	CurrentBid string                `json:"current_bid"`
	ItemID     int64                 `json:"item_id"`
}

// ImportRequest selects a platform item to start tracking.
type ImportRequest struct {
	ItemID int64  `json:"item_id"`
	URL    string `json:"url"`
}

// CreateListingHandler handles POST /api/accounts/:id/listings
func (h *ListingHandler) CreateListingHandler(w http.ResponseWriter, r *http.Request, accountID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := h.accounts.GetByID(r.Context(), accountID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	var req ListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.AdURL == "" {
		http.Error(w, "ad_url is required", http.StatusBadRequest)
		return
	}

	rng := defaultRange
	if req.Range != nil {
		rng = *req.Range
	}
	if err := rng.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bidStep := defaultBidStepKopecks
	if req.BidStep != "" {
		v, err := parseBidAmount("bid_step", req.BidStep)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		bidStep = v
	}

	var currentBid int64
	if req.CurrentBid != "" {
		v, err := parseBidAmount("current_bid", req.CurrentBid)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		currentBid = v
	}

	itemID := req.ItemID
	if itemID == 0 {
		itemID = links.ExtractItemID(req.AdURL)
	}

	listing := &models.Listing{
		AccountID:  accountID,
		AdURL:      req.AdURL,
		SearchURL:  req.SearchURL,
		Range:      rng,
		BidStep:    bidStep,
		CurrentBid: currentBid,
		ItemID:     itemID,
	}
	if err := h.listings.Create(r.Context(), listing); err != nil {
		h.logger.Error("failed to create listing", "account_id", accountID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("listing created", "listing_id", listing.ID, "account_id", accountID, "item_id", itemID)
	h.reconciler.Trigger()

	writeJSON(w, h.logger, http.StatusCreated, listingToPayload(listing))
}

// ImportListingHandler handles POST /api/accounts/:id/listings/import,
// creating a listing from one of the account's platform items.
func (h *ListingHandler) ImportListingHandler(w http.ResponseWriter, r *http.Request, accountID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := h.accounts.GetByID(r.Context(), accountID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	itemID := req.ItemID
	if itemID == 0 {
		itemID = links.ExtractItemID(req.URL)
	}

	listing := &models.Listing{
		AccountID: accountID,
		AdURL:     req.URL,
		Range:     defaultRange,
		BidStep:   defaultBidStepKopecks,
		ItemID:    itemID,
	}
	if err := h.listings.Create(r.Context(), listing); err != nil {
		h.logger.Error("failed to import listing", "account_id", accountID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("listing imported", "listing_id", listing.ID, "account_id", accountID, "item_id", itemID)
	h.reconciler.Trigger()

	writeJSON(w, h.logger, http.StatusCreated, listingToPayload(listing))
}

// UpdateListingHandler handles PUT /api/listings/:id. The request is a
// full replacement of the editable fields. When the listing has an item
// id the edited bid is pushed to the platform immediately, serialized
// with engine pushes for the same listing.
func (h *ListingHandler) UpdateListingHandler(w http.ResponseWriter, r *http.Request, listingID string) {
	listing, err := h.listings.GetByID(r.Context(), listingID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	var req ListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.AdURL == "" {
		http.Error(w, "ad_url is required", http.StatusBadRequest)
		return
	}
	if req.Range == nil {
		http.Error(w, "range is required", http.StatusBadRequest)
		return
	}
	if err := req.Range.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bidStep, err := parseBidAmount("bid_step", req.BidStep)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	currentBid, err := parseBidAmount("current_bid", req.CurrentBid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	itemID := req.ItemID
	if itemID == 0 {
		itemID = links.ExtractItemID(req.AdURL)
	}

	listing.AdURL = req.AdURL
	listing.SearchURL = req.SearchURL
	listing.Range = *req.Range
	listing.BidStep = bidStep
	listing.CurrentBid = currentBid
	listing.ItemID = itemID

	if err := h.listings.Update(r.Context(), listing); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	var warning string
	if listing.ItemID != 0 {
		guard := h.reconciler.Guard()
		guard.Lock(listing.ID)
		err := h.platform.SetManualBid(r.Context(), listing.AccountID, listing.ItemID, listing.CurrentBid)
		guard.Unlock(listing.ID)
		if err != nil {
			h.logger.Error("manual bid push failed", "listing_id", listing.ID, "error", err)
			warning = "listing saved, but the bid push failed: " + err.Error()
		}
	}

	h.logger.Info("listing updated", "listing_id", listing.ID)
	h.reconciler.Trigger()

	response := map[string]any{"listing": listingToPayload(listing)}
	if warning != "" {
		response["warning"] = warning
	}
	writeJSON(w, h.logger, http.StatusOK, response)
}

// RefreshBidHandler handles POST /api/listings/:id/refresh-bid, reading
// the current manual bid from the platform and storing it locally.
func (h *ListingHandler) RefreshBidHandler(w http.ResponseWriter, r *http.Request, listingID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	listing, err := h.listings.GetByID(r.Context(), listingID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	if listing.ItemID == 0 {
		http.Error(w, "listing has no item id", http.StatusBadRequest)
		return
	}

	bid, err := h.platform.ReadManualBid(r.Context(), listing.AccountID, listing.ItemID)
	if err != nil {
		h.logger.Error("failed to read manual bid", "listing_id", listing.ID, "error", err)
		writeDomainError(w, h.logger, err)
		return
	}

	if err := h.listings.UpdateCurrentBid(r.Context(), listing.ID, bid); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	listing.CurrentBid = bid

	h.logger.Info("bid refreshed from platform", "listing_id", listing.ID, "bid", currency.KopecksToRubles(bid))
	writeJSON(w, h.logger, http.StatusOK, listingToPayload(listing))
}

// ReconcileHandler handles POST /api/reconcile, scheduling a cycle.
func (h *ListingHandler) ReconcileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.reconciler.Trigger()
	writeJSON(w, h.logger, http.StatusAccepted, map[string]string{"status": "scheduled"})
}
