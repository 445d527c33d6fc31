// Package avito wraps the three Avito API surfaces the bid manager
// needs: the client-credentials token exchange, the active item list
// and the manual-bid promotion endpoints.
package avito

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ByteSpectre/avito-bid-manager/internal/models"
)

const (
	// Avito does not return an explicit lifetime; tokens live 24 hours.
	tokenLifetime = 24 * time.Hour
	// Refresh a minute early so a token never expires mid-call.
	tokenSafetyMargin = 60 * time.Second
)

// TokenManager exchanges account credentials for bearer tokens and
// caches them on the account record. Refreshes are single-flight per
// account: concurrent callers during a pending exchange wait for and
// share its result.
type TokenManager struct {
	accounts   models.AccountRepository
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	group      singleflight.Group
}

// NewTokenManager creates a token manager against the given API base URL.
func NewTokenManager(accounts models.AccountRepository, baseURL string, httpClient *http.Client, logger *slog.Logger) *TokenManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenManager{
		accounts:   accounts,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// ValidToken returns a usable bearer token for the account, performing
// a client-credentials exchange when none is cached or the cached one
// has expired. On failure the account's token state is left unchanged
// and an AuthError is returned.
func (m *TokenManager) ValidToken(ctx context.Context, accountID string) (string, error) {
	account, err := m.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if account.HasValidToken(time.Now()) {
		return account.AccessToken, nil
	}

	v, err, _ := m.group.Do(accountID, func() (interface{}, error) {
		// Another caller may have finished a refresh while we queued.
		account, err := m.accounts.GetByID(ctx, accountID)
		if err != nil {
			return "", err
		}
		if account.HasValidToken(time.Now()) {
			return account.AccessToken, nil
		}
		return m.refresh(ctx, account)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *TokenManager) refresh(ctx context.Context, account *models.Account) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {account.ClientID},
		"client_secret": {account.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/token/", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &models.AuthError{AccountID: account.ID, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issuedAt := time.Now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", &models.AuthError{AccountID: account.ID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &models.AuthError{AccountID: account.ID, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &models.AuthError{
			AccountID: account.ID,
			Err:       fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", &models.AuthError{AccountID: account.ID, Err: fmt.Errorf("decoding token response: %w", err)}
	}
	if payload.AccessToken == "" {
		return "", &models.AuthError{AccountID: account.ID, Err: fmt.Errorf("token response missing access_token")}
	}

	expiresAt := issuedAt.Add(tokenLifetime - tokenSafetyMargin)
	if err := m.accounts.UpdateToken(ctx, account.ID, payload.AccessToken, expiresAt); err != nil {
		return "", err
	}

	m.logger.Info("issued new access token",
		"account_id", account.ID,
		"expires_at", expiresAt,
	)
	return payload.AccessToken, nil
}
