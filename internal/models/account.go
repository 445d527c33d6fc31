package models

import (
	"context"
	"time"
)

// Account represents an Avito seller account whose listings are managed
type Account struct {
	ID           string `json:"id"`
	AvitoUserID  string `json:"avito_user_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"`

	// Cached OAuth token state. Zero expiry means no token has been
	// issued yet. Mutated only through UpdateToken.
	AccessToken    string    `json:"-"`
	TokenExpiresAt time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasValidToken reports whether the cached token can still be used at now.
func (a *Account) HasValidToken(now time.Time) bool {
	return a.AccessToken != "" && now.Before(a.TokenExpiresAt)
}

// AccountRepository defines operations for seller accounts
type AccountRepository interface {
	// Create stores a new account, assigning its ID
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// ListAll returns all accounts in creation order
	ListAll(ctx context.Context) ([]*Account, error)

	// UpdateCredentials replaces the account's Avito identity and credential pair
	UpdateCredentials(ctx context.Context, id, avitoUserID, clientID, clientSecret string) error

	// UpdateToken stores a freshly issued access token and its expiry
	UpdateToken(ctx context.Context, id, accessToken string, expiresAt time.Time) error
}
