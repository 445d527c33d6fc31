// Package memory provides the in-process repository implementations the
// engine runs against by default. All mutation happens under a per-store
// RWMutex, which gives the per-entity exclusivity the engine and the
// management API both rely on.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ByteSpectre/avito-bid-manager/internal/models"
)

// AccountStore is an in-memory models.AccountRepository.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	order    []string
}

// NewAccountStore creates an empty account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*models.Account),
	}
}

// Create stores a new account, assigning its ID and timestamps.
func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := *account
	s.accounts[account.ID] = &stored
	s.order = append(s.order, account.ID)
	return nil
}

// GetByID retrieves a copy of the account.
func (s *AccountStore) GetByID(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "account", ID: id}
	}
	copied := *account
	return &copied, nil
}

// ListAll returns copies of all accounts in creation order.
func (s *AccountStore) ListAll(ctx context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]*models.Account, 0, len(s.order))
	for _, id := range s.order {
		copied := *s.accounts[id]
		accounts = append(accounts, &copied)
	}
	return accounts, nil
}

// UpdateCredentials replaces the account's Avito identity and credential pair.
func (s *AccountStore) UpdateCredentials(ctx context.Context, id, avitoUserID, clientID, clientSecret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return &models.NotFoundError{Kind: "account", ID: id}
	}
	account.AvitoUserID = avitoUserID
	account.ClientID = clientID
	account.ClientSecret = clientSecret
	account.UpdatedAt = time.Now()
	return nil
}

// UpdateToken stores a freshly issued access token and its expiry.
func (s *AccountStore) UpdateToken(ctx context.Context, id, accessToken string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return &models.NotFoundError{Kind: "account", ID: id}
	}
	account.AccessToken = accessToken
	account.TokenExpiresAt = expiresAt
	account.UpdatedAt = time.Now()
	return nil
}
