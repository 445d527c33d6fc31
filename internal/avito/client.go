package avito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ByteSpectre/avito-bid-manager/internal/models"
)

// ManualClicksActionTypeID identifies the manual/clicks promotion action
// in the cpxpromo API.
const ManualClicksActionTypeID = 5

// Item is an active advertisement as listed by the platform.
type Item struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// Client is a typed wrapper around the Avito API calls the manager
// performs. Every call authenticates with a bearer token obtained from
// the token manager.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenManager
	logger     *slog.Logger
}

// NewClient creates a platform client against the given API base URL.
func NewClient(baseURL string, httpClient *http.Client, tokens *TokenManager, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
	}
}

// ListActiveItems returns one page of the account's active advertisements.
func (c *Client) ListActiveItems(ctx context.Context, accountID string, page, perPage int) ([]Item, error) {
	endpoint := fmt.Sprintf("%s/core/v1/items?per_page=%d&page=%d&status=active", c.baseURL, perPage, page)

	body, err := c.call(ctx, accountID, http.MethodGet, "listItems", endpoint, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Resources []Item `json:"resources"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &models.PlatformError{Operation: "listItems", StatusCode: http.StatusOK, Body: "undecodable response"}
	}
	return payload.Resources, nil
}

// ReadManualBid returns the manual bid currently configured for the
// item, in kopecks.
func (c *Client) ReadManualBid(ctx context.Context, accountID string, itemID int64) (int64, error) {
	endpoint := fmt.Sprintf("%s/cpxpromo/1/getBids/%d", c.baseURL, itemID)

	body, err := c.call(ctx, accountID, http.MethodGet, "getBids", endpoint, nil)
	if err != nil {
		return 0, err
	}

	var payload struct {
		Manual *struct {
			BidPenny *int64 `json:"bidPenny"`
		} `json:"manual"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Manual == nil || payload.Manual.BidPenny == nil {
		return 0, &models.PlatformError{Operation: "getBids", StatusCode: http.StatusOK, Body: "response missing manual.bidPenny"}
	}
	return *payload.Manual.BidPenny, nil
}

// SetManualBid pushes a new manual bid for the item. The caller must not
// persist the bid locally unless this returns nil.
func (c *Client) SetManualBid(ctx context.Context, accountID string, itemID, bidKopecks int64) error {
	payload := map[string]int64{
		"actionTypeID": ManualClicksActionTypeID,
		"bidPenny":     bidKopecks,
		"itemID":       itemID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding setManual payload: %w", err)
	}

	endpoint := c.baseURL + "/cpxpromo/1/setManual"
	if _, err := c.call(ctx, accountID, http.MethodPost, "setManual", endpoint, body); err != nil {
		return err
	}

	c.logger.Debug("manual bid set",
		"account_id", accountID,
		"item_id", itemID,
		"bid_kopecks", bidKopecks,
	)
	return nil
}

// call performs one authenticated request and returns the response body.
// Transport failures become FetchError, non-2xx statuses PlatformError.
func (c *Client) call(ctx context.Context, accountID, method, operation, endpoint string, body []byte) ([]byte, error) {
	token, err := c.tokens.ValidToken(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &models.FetchError{URL: endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.FetchError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.FetchError{URL: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.PlatformError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	return respBody, nil
}
