package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ByteSpectre/avito-bid-manager/internal/models"
)

func TestAccountStoreCreateAndGet(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	account := &models.Account{
		AvitoUserID:  "12345",
		ClientID:     "client",
		ClientSecret: "secret",
	}
	if err := store.Create(ctx, account); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if account.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	got, err := store.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.AvitoUserID != "12345" || got.ClientSecret != "secret" {
		t.Errorf("unexpected account: %+v", got)
	}
}

func TestAccountStoreNotFound(t *testing.T) {
	store := NewAccountStore()

	_, err := store.GetByID(context.Background(), "missing")
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Kind != "account" {
		t.Errorf("expected kind account, got %q", notFound.Kind)
	}
}

func TestAccountStoreUpdateToken(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	account := &models.Account{ClientID: "c", ClientSecret: "s"}
	if err := store.Create(ctx, account); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	expiry := time.Now().Add(time.Hour)
	if err := store.UpdateToken(ctx, account.ID, "tok", expiry); err != nil {
		t.Fatalf("UpdateToken returned error: %v", err)
	}

	got, err := store.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.AccessToken != "tok" {
		t.Errorf("expected token to be stored, got %q", got.AccessToken)
	}
	if !got.HasValidToken(time.Now()) {
		t.Error("token should be valid before expiry")
	}
	if got.HasValidToken(expiry.Add(time.Second)) {
		t.Error("token should be invalid after expiry")
	}
}

func TestListingStoreOrderAndUpdate(t *testing.T) {
	store := NewListingStore()
	ctx := context.Background()

	first := &models.Listing{AccountID: "a1", AdURL: "https://x/m/item/1", Range: models.PositionRange{Lower: 1, Upper: 5}}
	second := &models.Listing{AccountID: "a1", AdURL: "https://x/m/item/2", Range: models.PositionRange{Lower: 1, Upper: 5}}
	for _, l := range []*models.Listing{first, second} {
		if err := store.Create(ctx, l); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	listings, err := store.ListByAccount(ctx, "a1")
	if err != nil {
		t.Fatalf("ListByAccount returned error: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	if listings[0].ID != first.ID || listings[1].ID != second.ID {
		t.Error("listings should come back in creation order")
	}

	if err := store.UpdateCurrentBid(ctx, first.ID, 1500); err != nil {
		t.Fatalf("UpdateCurrentBid returned error: %v", err)
	}
	got, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.CurrentBid != 1500 {
		t.Errorf("expected current bid 1500, got %d", got.CurrentBid)
	}
}

func TestListingStoreUpdateRank(t *testing.T) {
	store := NewListingStore()
	ctx := context.Background()

	listing := &models.Listing{AccountID: "a1", AdURL: "https://x/m/item/1"}
	if err := store.Create(ctx, listing); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	rank := 3
	if err := store.UpdateRank(ctx, listing.ID, &rank, time.Now()); err != nil {
		t.Fatalf("UpdateRank returned error: %v", err)
	}
	got, _ := store.GetByID(ctx, listing.ID)
	if got.LastRank == nil || *got.LastRank != 3 {
		t.Fatalf("expected last rank 3, got %v", got.LastRank)
	}

	if err := store.UpdateRank(ctx, listing.ID, nil, time.Now()); err != nil {
		t.Fatalf("UpdateRank returned error: %v", err)
	}
	got, _ = store.GetByID(ctx, listing.ID)
	if got.LastRank != nil {
		t.Errorf("expected unranked, got %d", *got.LastRank)
	}
	if got.LastCheckedAt == nil {
		t.Error("expected check timestamp to be recorded")
	}
}

func TestListingStoreCopiesAreIsolated(t *testing.T) {
	store := NewListingStore()
	ctx := context.Background()

	listing := &models.Listing{AccountID: "a1", AdURL: "https://x/m/item/1", CurrentBid: 100}
	if err := store.Create(ctx, listing); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, _ := store.GetByID(ctx, listing.ID)
	got.CurrentBid = 999

	again, _ := store.GetByID(ctx, listing.ID)
	if again.CurrentBid != 100 {
		t.Errorf("mutating a returned copy should not affect the store, got %d", again.CurrentBid)
	}
}

func TestListingStoreConcurrentBidUpdates(t *testing.T) {
	store := NewListingStore()
	ctx := context.Background()

	listing := &models.Listing{AccountID: "a1", AdURL: "https://x/m/item/1"}
	if err := store.Create(ctx, listing); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(bid int64) {
			defer wg.Done()
			_ = store.UpdateCurrentBid(ctx, listing.ID, bid)
			_, _ = store.GetByID(ctx, listing.ID)
		}(int64(i))
	}
	wg.Wait()
}
