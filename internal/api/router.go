package api

import (
	"net/http"
	"strings"

	"github.com/ByteSpectre/avito-bid-manager/internal/auth"
	"github.com/ByteSpectre/avito-bid-manager/internal/models"
	"log/slog"
)

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, accounts models.AccountRepository, listings models.ListingRepository, platform Platform, reconciler Reconciler, authConfig auth.Config, logger *slog.Logger) {
	authHandler := NewAuthHandler(authConfig, logger)
	accountHandler := NewAccountHandler(accounts, listings, platform, logger)
	listingHandler := NewListingHandler(listings, accounts, platform, reconciler, logger)

	authMiddleware := auth.AuthMiddleware(authConfig)
	protect := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authMiddleware(h).ServeHTTP(w, r)
		}
	}

	// Authentication routes (public)
	mux.HandleFunc("/api/auth/login", authHandler.Login)

	// Account routes
	mux.HandleFunc("/api/accounts", protect(accountHandler.AccountsHandler))
	mux.HandleFunc("/api/accounts/", protect(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		if len(parts) == 0 || parts[0] == "" {
			http.Error(w, "Account ID required", http.StatusBadRequest)
			return
		}
		accountID := parts[0]

		switch {
		case len(parts) == 1:
			accountHandler.AccountHandlerByID(w, r, accountID)
		case len(parts) == 2 && parts[1] == "items":
			accountHandler.GetItemsHandler(w, r, accountID)
		case len(parts) == 2 && parts[1] == "listings":
			listingHandler.CreateListingHandler(w, r, accountID)
		case len(parts) == 3 && parts[1] == "listings" && parts[2] == "import":
			listingHandler.ImportListingHandler(w, r, accountID)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	}))

	// Listing routes
	mux.HandleFunc("/api/listings/", protect(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/listings/")
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		if len(parts) == 0 || parts[0] == "" {
			http.Error(w, "Listing ID required", http.StatusBadRequest)
			return
		}
		listingID := parts[0]

		switch {
		case len(parts) == 1 && r.Method == http.MethodPut:
			listingHandler.UpdateListingHandler(w, r, listingID)
		case len(parts) == 2 && parts[1] == "refresh-bid":
			listingHandler.RefreshBidHandler(w, r, listingID)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	}))

	// Manual cycle trigger
	mux.HandleFunc("/api/reconcile", protect(listingHandler.ReconcileHandler))
}
