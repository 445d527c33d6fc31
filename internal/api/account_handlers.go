package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ByteSpectre/avito-bid-manager/internal/avito"
	"github.com/ByteSpectre/avito-bid-manager/internal/models"
	"log/slog"
)

// Platform is the slice of the Avito client the handlers need.
type Platform interface {
	ListActiveItems(ctx context.Context, accountID string, page, perPage int) ([]avito.Item, error)
	ReadManualBid(ctx context.Context, accountID string, itemID int64) (int64, error)
	SetManualBid(ctx context.Context, accountID string, itemID, bidKopecks int64) error
}

// AccountHandler handles seller account requests
type AccountHandler struct {
	accounts models.AccountRepository
	listings models.ListingRepository
	platform Platform
	logger   *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts models.AccountRepository, listings models.ListingRepository, platform Platform, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		listings: listings,
		platform: platform,
		logger:   logger,
	}
}

// CreateAccountRequest represents an account creation request
type CreateAccountRequest struct {
	AvitoUserID  string `json:"avito_user_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AccountsHandler handles GET and POST /api/accounts
func (h *AccountHandler) AccountsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listAccounts(w, r)
	case http.MethodPost:
		h.createAccount(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AccountHandler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list accounts", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

func (h *AccountHandler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ClientID == "" || req.ClientSecret == "" {
		http.Error(w, "client_id and client_secret are required", http.StatusBadRequest)
		return
	}

	account := &models.Account{
		AvitoUserID:  req.AvitoUserID,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
	}
	if err := h.accounts.Create(r.Context(), account); err != nil {
		h.logger.Error("failed to create account", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("account created", "account_id", account.ID, "client_id", account.ClientID)
	writeJSON(w, h.logger, http.StatusCreated, account)
}

// AccountHandlerByID handles GET and PUT /api/accounts/:id
func (h *AccountHandler) AccountHandlerByID(w http.ResponseWriter, r *http.Request, accountID string) {
	switch r.Method {
	case http.MethodGet:
		h.getAccount(w, r, accountID)
	case http.MethodPut:
		h.updateAccount(w, r, accountID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getAccount returns the account together with its tracked listings.
func (h *AccountHandler) getAccount(w http.ResponseWriter, r *http.Request, accountID string) {
	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	listings, err := h.listings.ListByAccount(r.Context(), accountID)
	if err != nil {
		h.logger.Error("failed to list account listings", "account_id", accountID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"account":  account,
		"listings": listingsToPayloads(listings),
	})
}

// updateAccount replaces the account's Avito identity and credentials.
func (h *AccountHandler) updateAccount(w http.ResponseWriter, r *http.Request, accountID string) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ClientID == "" || req.ClientSecret == "" {
		http.Error(w, "client_id and client_secret are required", http.StatusBadRequest)
		return
	}

	if err := h.accounts.UpdateCredentials(r.Context(), accountID, req.AvitoUserID, req.ClientID, req.ClientSecret); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("account credentials updated", "account_id", accountID)
	writeJSON(w, h.logger, http.StatusOK, account)
}

// GetItemsHandler handles GET /api/accounts/:id/items, listing the
// account's active platform items as import candidates.
func (h *AccountHandler) GetItemsHandler(w http.ResponseWriter, r *http.Request, accountID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := h.accounts.GetByID(r.Context(), accountID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 100)

	items, err := h.platform.ListActiveItems(r.Context(), accountID, page, perPage)
	if err != nil {
		h.logger.Error("failed to list platform items", "account_id", accountID, "error", err)
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
