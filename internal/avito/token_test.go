package avito

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ByteSpectre/avito-bid-manager/internal/models"
	"github.com/ByteSpectre/avito-bid-manager/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAccount(t *testing.T, store *memory.AccountStore) *models.Account {
	t.Helper()
	account := &models.Account{
		AvitoUserID:  "100",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
	}
	if err := store.Create(context.Background(), account); err != nil {
		t.Fatalf("creating account: %v", err)
	}
	return account
}

func tokenEndpoint(t *testing.T, exchanges *int32) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token/" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("client_id") == "" || r.PostForm.Get("client_secret") == "" {
			http.Error(w, "missing credentials", http.StatusBadRequest)
			return
		}
		n := atomic.AddInt32(exchanges, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer"}`, n)
	}
}

func TestValidTokenReusesCachedToken(t *testing.T) {
	var exchanges int32
	srv := httptest.NewServer(tokenEndpoint(t, &exchanges))
	defer srv.Close()

	store := memory.NewAccountStore()
	account := newTestAccount(t, store)
	manager := NewTokenManager(store, srv.URL, srv.Client(), testLogger())

	for i := 0; i < 5; i++ {
		token, err := manager.ValidToken(context.Background(), account.ID)
		if err != nil {
			t.Fatalf("ValidToken returned error: %v", err)
		}
		if token != "tok-1" {
			t.Errorf("expected cached token tok-1, got %q", token)
		}
	}

	if n := atomic.LoadInt32(&exchanges); n != 1 {
		t.Errorf("expected exactly 1 exchange during validity window, got %d", n)
	}
}

func TestValidTokenRefreshesAfterExpiry(t *testing.T) {
	var exchanges int32
	srv := httptest.NewServer(tokenEndpoint(t, &exchanges))
	defer srv.Close()

	store := memory.NewAccountStore()
	account := newTestAccount(t, store)
	manager := NewTokenManager(store, srv.URL, srv.Client(), testLogger())

	if _, err := manager.ValidToken(context.Background(), account.ID); err != nil {
		t.Fatalf("ValidToken returned error: %v", err)
	}

	// Force the cached token past its expiry.
	if err := store.UpdateToken(context.Background(), account.ID, "tok-1", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("forcing expiry: %v", err)
	}

	token, err := manager.ValidToken(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("ValidToken returned error: %v", err)
	}
	if token != "tok-2" {
		t.Errorf("expected refreshed token tok-2, got %q", token)
	}
	if n := atomic.LoadInt32(&exchanges); n != 2 {
		t.Errorf("expected exactly one more exchange after expiry, got %d total", n)
	}
}

func TestConcurrentRefreshIsSingleFlight(t *testing.T) {
	var exchanges int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&exchanges, 1)
		time.Sleep(20 * time.Millisecond) // hold the exchange open so callers pile up
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-shared"}`)
	}))
	defer srv.Close()

	store := memory.NewAccountStore()
	account := newTestAccount(t, store)
	manager := NewTokenManager(store, srv.URL, srv.Client(), testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := manager.ValidToken(context.Background(), account.ID)
			if err != nil {
				t.Errorf("ValidToken returned error: %v", err)
				return
			}
			if token != "tok-shared" {
				t.Errorf("expected shared token, got %q", token)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&exchanges); n != 1 {
		t.Errorf("expected concurrent refreshes to collapse into 1 exchange, got %d", n)
	}
}

func TestRefreshFailureLeavesTokenStateUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := memory.NewAccountStore()
	account := newTestAccount(t, store)
	manager := NewTokenManager(store, srv.URL, srv.Client(), testLogger())

	_, err := manager.ValidToken(context.Background(), account.ID)
	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.AccountID != account.ID {
		t.Errorf("expected error for account %s, got %s", account.ID, authErr.AccountID)
	}

	stored, err := store.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if stored.AccessToken != "" || !stored.TokenExpiresAt.IsZero() {
		t.Error("failed exchange must leave token state unchanged")
	}
}

func TestRefreshesForDifferentAccountsAreIndependent(t *testing.T) {
	var exchanges int32
	srv := httptest.NewServer(tokenEndpoint(t, &exchanges))
	defer srv.Close()

	store := memory.NewAccountStore()
	first := newTestAccount(t, store)
	second := newTestAccount(t, store)
	manager := NewTokenManager(store, srv.URL, srv.Client(), testLogger())

	if _, err := manager.ValidToken(context.Background(), first.ID); err != nil {
		t.Fatalf("ValidToken returned error: %v", err)
	}
	if _, err := manager.ValidToken(context.Background(), second.ID); err != nil {
		t.Fatalf("ValidToken returned error: %v", err)
	}

	if n := atomic.LoadInt32(&exchanges); n != 2 {
		t.Errorf("expected one exchange per account, got %d", n)
	}
}
